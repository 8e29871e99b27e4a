// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xobs: 轻量观测接口，内置 OpenTelemetry 适配
//   - xlogging: 基于 log/slog 的日志构建器，支持文件轮转
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 观测为可选依赖，默认 Noop 实现零开销
package observability
