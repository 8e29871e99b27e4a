// Package xlogging 提供基于 log/slog 的日志构建器。
//
// 链式配置输出目标、级别、格式与可选的文件轮转（lumberjack），
// Build 返回标准 *slog.Logger 与清理函数，不引入自定义 Logger 抽象。
package xlogging
