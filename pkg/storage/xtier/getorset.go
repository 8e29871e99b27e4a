package xtier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/go-redsync/redsync/v4"
)

// =============================================================================
// 泛型读写与 Cache-Aside
// =============================================================================

// errFillPending 对端回填尚未可见，仅用于驱动等待轮询。
var errFillPending = errors.New("xtier: fill pending")

// GetAs 读取并反序列化 key 对应的值。
//
// 返回语义：
//   - 命中：(value, true, nil)
//   - 未命中：(nil, false, nil)
//   - 存储错误：(nil, false, err)
//
// 反序列化失败视为脏数据：best-effort 删除该条目后按未命中返回，
// 下一次 GetOrSet 会重新回源写入干净的值（自愈）。
func GetAs[T any](ctx context.Context, r *Remote, key string) (*T, bool, error) {
	if r == nil {
		return nil, false, ErrNilClient
	}

	data, ok, err := r.GetBytes(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	value := new(T)
	if err := json.Unmarshal(data, value); err != nil {
		// 脏数据自愈：删除后按未命中处理。删除失败只记日志，
		// 条目仍会随 TTL 过期。
		if logger := r.logger(); logger != nil {
			logger.WarnContext(ctx, "xtier: corrupt cache entry, self-healing",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		_ = r.Remove(context.WithoutCancel(ctx), key)
		return nil, false, nil
	}
	return value, true, nil
}

// SetAs 序列化并写入 key 对应的值，ttl 必须为正。
func SetAs[T any](ctx context.Context, r *Remote, key string, value *T, ttl time.Duration) error {
	if r == nil {
		return ErrNilClient
	}
	if value == nil {
		return ErrNilValue
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.SetBytes(ctx, key, data, ttl)
}

// GetOrSet 实现 Cache-Aside：命中直接返回；未命中调用 producer 回源，
// 成功后 best-effort 写回缓存并返回新值。
//
// 关键语义：
//   - 存储读错误降级为未命中，绝不因缓存故障阻断回源
//   - producer 返回 (nil, nil) 视为"源中无此数据"，返回 ErrProducerEmpty 且不写缓存
//   - 写回失败不影响返回值，通过 OnSetError 钩子与日志暴露
//   - 默认每次未命中各自回源；进程内合并（WithSingleflight）与
//     跨进程回填锁（WithFillLock）均为可选收紧
func GetOrSet[T any](ctx context.Context, r *Remote, key string, ttl time.Duration, producer func(context.Context) (*T, error)) (*T, error) {
	if r == nil {
		return nil, ErrNilClient
	}
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if key == "" {
		return nil, ErrEmptyKey
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if producer == nil {
		return nil, ErrNilProducer
	}

	if value, ok := lookup[T](ctx, r, key); ok {
		return value, nil
	}

	if !r.options.Singleflight {
		return produceAndFill(ctx, r, key, ttl, producer)
	}

	// singleflight key 按类型命名空间化，防止同一 key 被不同类型共享结果。
	sfKey := fmt.Sprintf("%T|%s", (*T)(nil), key)
	ch := r.sf.DoChan(sfKey, func() (any, error) {
		// 与发起者的取消解耦：第一个调用者取消不应让等待者拿到 context 错误。
		return produceAndFill(context.WithoutCancel(ctx), r, key, ttl, producer)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		value, ok := res.Val.(*T)
		if !ok {
			return nil, fmt.Errorf("xtier: unexpected shared result type %T", res.Val)
		}
		return value, nil
	}
}

// lookup 读取缓存并把存储错误降级为未命中。
func lookup[T any](ctx context.Context, r *Remote, key string) (*T, bool) {
	value, ok, err := GetAs[T](ctx, r, key)
	if err != nil {
		if logger := r.logger(); logger != nil {
			logger.WarnContext(ctx, "xtier: cache read degraded to miss",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return nil, false
	}
	return value, ok
}

// produceAndFill 执行回源并写回缓存。
// 配置了跨进程回填锁时，先尝试持锁；竞争失败则等待对端回填，
// 等待超限后退化为自行回源（可用性优先于严格去重）。
func produceAndFill[T any](ctx context.Context, r *Remote, key string, ttl time.Duration, producer func(context.Context) (*T, error)) (*T, error) {
	if r.options.FillLock != nil {
		if value, done, err := fillWithLock(ctx, r, key, ttl, producer); done {
			return value, err
		}
	}
	return produce(ctx, r, key, ttl, producer)
}

// fillWithLock 尝试持有跨进程回填锁后回源。
// 返回 done=false 表示锁路径未得出结论，调用方应退化为直接回源。
func fillWithLock[T any](ctx context.Context, r *Remote, key string, ttl time.Duration, producer func(context.Context) (*T, error)) (value *T, done bool, err error) {
	mutex := r.options.FillLock.NewMutex(
		r.options.FillLockPrefix+key,
		redsync.WithExpiry(r.options.FillLockTTL),
		redsync.WithTries(1),
	)

	lockErr := mutex.TryLockContext(ctx)
	if lockErr == nil {
		defer func() {
			// 解锁失败不影响结果，锁会随 TTL 自动释放。
			_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
		}()
		v, perr := produce(ctx, r, key, ttl, producer)
		return v, true, perr
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, true, ctxErr
	}

	var taken *redsync.ErrTaken
	if errors.As(lockErr, &taken) {
		// 对端正在回填，轮询等待其结果可见。
		if v, ok := awaitPeerFill[T](ctx, r, key); ok {
			return v, true, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, true, ctxErr
		}
		return nil, false, nil
	}

	// 锁服务异常：记日志后退化为直接回源。
	if logger := r.logger(); logger != nil {
		logger.WarnContext(ctx, "xtier: fill lock unavailable, producing without lock",
			slog.String("key", key),
			slog.String("error", lockErr.Error()))
	}
	return nil, false, nil
}

// awaitPeerFill 轮询等待持锁方的回填结果出现在缓存中。
func awaitPeerFill[T any](ctx context.Context, r *Remote, key string) (*T, bool) {
	attempts := r.options.FillWaitAttempts
	if attempts <= 0 {
		return nil, false
	}

	value, err := retry.NewWithData[*T](
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			// 指数退避，上限 1 秒。
			delay := 50 * time.Millisecond << n
			if delay > time.Second {
				delay = time.Second
			}
			return delay
		}),
		retry.LastErrorOnly(true),
	).Do(func() (*T, error) {
		v, ok := lookup[T](ctx, r, key)
		if !ok {
			return nil, errFillPending
		}
		return v, nil
	})
	if err != nil {
		return nil, false
	}
	return value, true
}

// produce 调用 producer 回源并 best-effort 写回。
func produce[T any](ctx context.Context, r *Remote, key string, ttl time.Duration, producer func(context.Context) (*T, error)) (*T, error) {
	value, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, ErrProducerEmpty
	}

	if err := SetAs(ctx, r, key, value, ttl); err != nil {
		if hook := r.options.OnSetError; hook != nil {
			hook(ctx, key, err)
		}
		if logger := r.logger(); logger != nil {
			logger.WarnContext(ctx, "xtier: cache fill failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}
	return value, nil
}
