package xquota

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skidsh/warcraft-armory/pkg/observability/xobs"
)

// =============================================================================
// 配额协调器
// =============================================================================

// Coordinator 定义配额协调器接口。
type Coordinator interface {
	// AdmitCaller 判定调用方是否在自身配额内。
	//
	// 同时递增调用方的分桶和时桶，任一超限即拒绝（返回 false）。
	// 被拒绝的请求消耗的计数保留。计数存储故障 fail-open：放行并记录日志。
	// error 仅用于参数/状态错误（空 callerID、已关闭）。
	AdmitCaller(ctx context.Context, callerID string) (bool, error)

	// AwaitGlobalSlot 阻塞直到获得一个全局上游配额槽位。
	//
	// 先检查时桶：超限则等到下一个小时边界（加余量）重试；
	// 再检查秒桶：超限则等到下一个秒边界（加余量）重试。
	// 重试预算耗尽返回 ErrSaturated；等待期间 context 取消返回 ctx.Err()，
	// 取消后不再产生任何计数。计数存储故障时延迟 FailOpenDelay 后放行。
	AwaitGlobalSlot(ctx context.Context) error

	// Stats 返回当前各桶的使用快照，best-effort：不可读的桶按 0 计。
	// callerID 可为空，此时只返回全局桶。
	Stats(ctx context.Context, callerID string) *Stats

	// ResetCaller 清零调用方当前的分桶与时桶，用于管理操作。
	ResetCaller(ctx context.Context, callerID string) error

	// Close 关闭协调器，后续操作返回 ErrClosed。
	Close() error
}

// coordinator 实现 Coordinator。
type coordinator struct {
	client  redis.UniversalClient
	options *Options
	closed  atomic.Bool

	// 测试注入点：时钟与睡眠。
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Coordinator = (*coordinator)(nil)

// New 创建配额协调器。
// 不接管 client 的生命周期，Close 不会关闭传入的客户端。
func New(client redis.UniversalClient, opts ...Option) (Coordinator, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &coordinator{
		client:  client,
		options: options,
		now:     time.Now,
		sleep:   sleepContext,
	}, nil
}

// sleepContext 可被 context 打断的睡眠。
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// increment 对 bucket 执行 INCR 并刷新过期时间，返回递增后的计数。
// INCR 与 EXPIRE 走同一个 pipeline，单次往返。
// 两条命令之间不需要原子性：EXPIRE 丢失的最坏后果是桶多活一个富余量。
func (c *coordinator) increment(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, expiry)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// AdmitCaller 实现 Coordinator 接口。
func (c *coordinator) AdmitCaller(ctx context.Context, callerID string) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}
	if callerID == "" {
		return false, ErrEmptyCallerID
	}

	ctx, span := xobs.Start(ctx, c.options.Observer, xobs.SpanOptions{
		Component: "xquota",
		Operation: "admit_caller",
		Kind:      xobs.KindInternal,
		Attrs:     []xobs.Attr{xobs.String("caller_id", callerID)},
	})

	now := c.now()
	minuteCount, minuteErr := c.increment(ctx, callerMinuteKey(c.options.KeyPrefix, callerID, now), minuteBucketExpiry)
	hourCount, hourErr := c.increment(ctx, callerHourKey(c.options.KeyPrefix, callerID, now), hourBucketExpiry)

	// fail-open：配额计数不可用时放行。内部公平性配额允许短暂放宽，
	// 自身故障不能变成用户可见的拒绝。
	if minuteErr != nil || hourErr != nil {
		err := minuteErr
		if err == nil {
			err = hourErr
		}
		if logger := c.options.Logger; logger != nil {
			logger.WarnContext(ctx, "xquota: caller admission failing open",
				slog.String("caller_id", callerID),
				slog.String("error", err.Error()))
		}
		span.End(xobs.Result{Status: xobs.StatusOK, Attrs: []xobs.Attr{xobs.Bool("fail_open", true)}})
		return true, nil
	}

	admitted := minuteCount <= c.options.CallerPerMinute && hourCount <= c.options.CallerPerHour
	span.End(xobs.Result{Status: xobs.StatusOK, Attrs: []xobs.Attr{xobs.Bool("admitted", admitted)}})
	return admitted, nil
}

// AwaitGlobalSlot 实现 Coordinator 接口。
func (c *coordinator) AwaitGlobalSlot(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	ctx, span := xobs.Start(ctx, c.options.Observer, xobs.SpanOptions{
		Component: "xquota",
		Operation: "await_global_slot",
		Kind:      xobs.KindInternal,
	})

	err := c.awaitGlobalSlot(ctx)
	span.End(xobs.Result{Err: err})
	return err
}

func (c *coordinator) awaitGlobalSlot(ctx context.Context) error {
	for attempt := 0; attempt < c.options.MaxSlotRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := c.now()

		hourCount, err := c.increment(ctx, globalHourKey(c.options.KeyPrefix, now), hourBucketExpiry)
		if err != nil {
			return c.failOpen(ctx, err)
		}
		if hourCount > c.options.GlobalPerHour {
			// 小时配额耗尽：秒级重试毫无意义，直接等到下一个小时窗口。
			wait := untilNextHour(now) + c.options.HourBoundaryMargin
			if logger := c.options.Logger; logger != nil {
				logger.WarnContext(ctx, "xquota: hourly quota exhausted, waiting for next window",
					slog.Int64("count", hourCount),
					slog.Duration("wait", wait))
			}
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		secondCount, err := c.increment(ctx, globalSecondKey(c.options.KeyPrefix, now), secondBucketExpiry)
		if err != nil {
			return c.failOpen(ctx, err)
		}
		if secondCount > c.options.GlobalPerSecond {
			if err := c.sleep(ctx, untilNextSecond(now)+c.options.SecondRetryMargin); err != nil {
				return err
			}
			continue
		}

		return nil
	}
	return ErrSaturated
}

// failOpen 计数存储故障时的放行路径：延迟后返回 nil。
// 延迟为不可用期间的全局流量提供最起码的节流。
func (c *coordinator) failOpen(ctx context.Context, cause error) error {
	if logger := c.options.Logger; logger != nil {
		logger.WarnContext(ctx, "xquota: quota store unavailable, failing open",
			slog.String("error", cause.Error()))
	}
	if err := c.sleep(ctx, c.options.FailOpenDelay); err != nil {
		return err
	}
	return nil
}

// ResetCaller 实现 Coordinator 接口。
func (c *coordinator) ResetCaller(ctx context.Context, callerID string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if callerID == "" {
		return ErrEmptyCallerID
	}

	now := c.now()
	return c.client.Del(ctx,
		callerMinuteKey(c.options.KeyPrefix, callerID, now),
		callerHourKey(c.options.KeyPrefix, callerID, now),
	).Err()
}

// Close 实现 Coordinator 接口。
// 不关闭底层客户端，客户端由调用者管理。
func (c *coordinator) Close() error {
	c.closed.Swap(true)
	return nil
}
