package xtier

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// 分布式缓存（L2）
// =============================================================================

// scanBatchSize SCAN 每轮返回的 key 数量提示值。
const scanBatchSize = 256

// Remote 跨进程共享的 Redis 缓存层。
// 值以 JSON 字节存储，读写入口为 GetBytes/SetBytes 与泛型的 GetAs/SetAs/GetOrSet。
type Remote struct {
	client  redis.UniversalClient
	options *RemoteOptions
	sf      singleflight.Group
	closed  atomic.Bool
}

// NewRemote 创建 Redis 缓存层。
// 注意：不接管 client 的生命周期，Close 不会关闭传入的客户端。
func NewRemote(client redis.UniversalClient, opts ...RemoteOption) (*Remote, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	options := defaultRemoteOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Remote{
		client:  client,
		options: options,
	}, nil
}

// GetBytes 读取 key 的原始字节。
// 未命中返回 (nil, false, nil)；存储错误返回 (nil, false, err)，
// 由调用方决定是否降级（GetOrSet 会降级为未命中）。
func (r *Remote) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if r.closed.Load() {
		return nil, false, ErrClosed
	}
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// SetBytes 写入 key 的原始字节，ttl 必须为正。
func (r *Remote) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Remove 删除一个或多个 key。key 不存在不算错误。
func (r *Remote) Remove(ctx context.Context, keys ...string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if len(keys) == 0 {
		return nil
	}
	for _, key := range keys {
		if key == "" {
			return ErrEmptyKey
		}
	}
	return r.client.Del(ctx, keys...).Err()
}

// RemoveByPrefix 删除指定前缀下的所有 key，返回删除的条数。
// 使用 SCAN 增量遍历，避免 KEYS 阻塞；用于管理性的缓存失效操作，
// 不应出现在请求路径上。
func (r *Remote) RemoveByPrefix(ctx context.Context, prefix string) (int64, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	if prefix == "" {
		return 0, ErrEmptyPrefix
	}

	var (
		removed int64
		cursor  uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			removed += n
			if err != nil {
				return removed, err
			}
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Client 返回底层的 redis.UniversalClient，用于本包未封装的操作。
func (r *Remote) Client() redis.UniversalClient {
	return r.client
}

// Close 标记缓存为已关闭，后续操作返回 ErrClosed。
// 不关闭底层客户端，客户端由调用者管理。
func (r *Remote) Close() error {
	r.closed.Swap(true)
	return nil
}

// logger 返回配置的 Logger，未配置时返回 nil（禁用日志）。
func (r *Remote) logger() *slog.Logger {
	return r.options.Logger
}
