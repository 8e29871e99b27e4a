// Package xobs 提供统一的观测抽象。
//
// 核心组件：
//   - Observer: 观测接口，Start 开启跨度，Span.End 记录结果
//   - NoopObserver: 空实现，用于测试或禁用观测的场景
//   - NewOTelObserver: 基于 OpenTelemetry 的实现（trace + metrics）
//
// 配额协调器与检索门面通过 Observer 记录准入判定、槽位等待和回源耗时，
// 调用方可注入自定义实现接入任意观测后端。
package xobs
