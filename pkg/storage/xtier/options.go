package xtier

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
)

// =============================================================================
// Remote 配置选项
// =============================================================================

// SetErrorHook 缓存写入失败回调钩子。
// 写入失败不影响业务返回，钩子用于监控告警。
// 注意：钩子在请求路径上同步执行，应避免耗时操作。
type SetErrorHook func(ctx context.Context, key string, err error)

// RemoteOptions 定义 Remote 缓存的配置选项。
type RemoteOptions struct {
	// Singleflight 是否在进程内合并同一 key 的并发回源。
	// 默认为 false：保持"每次调用未命中即回源一次"的语义，
	// 并发回源的总量由配额协调器约束。
	Singleflight bool

	// FillLock 跨进程回填锁。
	// 设置后，GetOrSet 未命中时会先尝试获取分布式锁；
	// 竞争失败的一方等待对端回填，等待超限后自行回源。
	// 默认为 nil（不启用）。
	FillLock *redsync.Redsync

	// FillLockTTL 回填锁的持有时间。
	// 必须大于单次回源耗时，默认 30 秒。
	FillLockTTL time.Duration

	// FillLockPrefix 回填锁 key 的前缀，默认 "fill:"。
	FillLockPrefix string

	// FillWaitAttempts 等待对端回填的最大轮询次数，默认 10。
	FillWaitAttempts int

	// OnSetError 缓存写入失败钩子。
	OnSetError SetErrorHook

	// Logger 用于记录降级与自愈日志。
	// 默认使用 slog.Default()，传入 nil 禁用日志。
	Logger *slog.Logger
}

// RemoteOption 定义配置 Remote 缓存的函数类型。
type RemoteOption func(*RemoteOptions)

// defaultRemoteOptions 返回默认的 Remote 配置。
func defaultRemoteOptions() *RemoteOptions {
	return &RemoteOptions{
		Singleflight:     false,
		FillLockTTL:      30 * time.Second,
		FillLockPrefix:   "fill:",
		FillWaitAttempts: 10,
		Logger:           slog.Default(),
	}
}

// WithSingleflight 设置是否启用进程内回源合并。
//
// 启用后，同一 key 的并发 GetOrSet 只触发一次回源，其余调用者共享结果。
// 默认关闭：每个未命中的调用各自回源一次，语义最直观，
// 冗余回源的代价由配额协调器统一兜底。
func WithSingleflight(enable bool) RemoteOption {
	return func(o *RemoteOptions) {
		o.Singleflight = enable
	}
}

// WithFillLock 设置跨进程回填锁。
// ttl 非正时使用默认值（30s）。
func WithFillLock(rs *redsync.Redsync, ttl time.Duration) RemoteOption {
	return func(o *RemoteOptions) {
		o.FillLock = rs
		if ttl > 0 {
			o.FillLockTTL = ttl
		}
	}
}

// WithFillWaitAttempts 设置等待对端回填的最大轮询次数。
func WithFillWaitAttempts(n int) RemoteOption {
	return func(o *RemoteOptions) {
		if n > 0 {
			o.FillWaitAttempts = n
		}
	}
}

// WithOnSetError 设置缓存写入失败钩子。
func WithOnSetError(hook SetErrorHook) RemoteOption {
	return func(o *RemoteOptions) {
		o.OnSetError = hook
	}
}

// WithLogger 设置自定义 Logger。传入 nil 将禁用日志输出。
func WithLogger(logger *slog.Logger) RemoteOption {
	return func(o *RemoteOptions) {
		o.Logger = logger
	}
}

// =============================================================================
// Memory 配置选项
// =============================================================================

// MemoryOptions 定义内存缓存的配置选项。
type MemoryOptions struct {
	// NumCounters 用于跟踪频率的计数器数量。
	// 建议设置为预期 key 数量的 10 倍，默认 1e6。
	NumCounters int64

	// MaxCost 缓存最大容量。条目成本固定为 1，因此即最大条目数，默认 100k。
	MaxCost int64

	// BufferItems 写入缓冲区大小，默认 64。
	BufferItems int64
}

// MemoryOption 定义配置内存缓存的函数类型。
type MemoryOption func(*MemoryOptions)

// defaultMemoryOptions 返回默认的内存缓存配置。
func defaultMemoryOptions() *MemoryOptions {
	return &MemoryOptions{
		NumCounters: 1e6,
		MaxCost:     100_000,
		BufferItems: 64,
	}
}

// WithMemoryNumCounters 设置计数器数量。非正值被忽略。
func WithMemoryNumCounters(n int64) MemoryOption {
	return func(o *MemoryOptions) {
		if n > 0 {
			o.NumCounters = n
		}
	}
}

// WithMemoryMaxCost 设置最大条目数。非正值被忽略。
func WithMemoryMaxCost(cost int64) MemoryOption {
	return func(o *MemoryOptions) {
		if cost > 0 {
			o.MaxCost = cost
		}
	}
}

// WithMemoryBufferItems 设置写入缓冲区大小。非正值被忽略。
func WithMemoryBufferItems(n int64) MemoryOption {
	return func(o *MemoryOptions) {
		if n > 0 {
			o.BufferItems = n
		}
	}
}
