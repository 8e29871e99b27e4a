package xtier

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// =============================================================================
// 进程内缓存（L1）
// =============================================================================

// Memory 进程内缓存，基于 ristretto。
// 存储的是值的指针引用，调用方不得修改取出的对象。
// 所有条目成本固定为 1，MaxCost 即最大条目数。
type Memory struct {
	cache *ristretto.Cache[string, any]
}

// NewMemory 创建进程内缓存。
func NewMemory(opts ...MemoryOption) (*Memory, error) {
	options := defaultMemoryOptions()
	for _, opt := range opts {
		opt(options)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: options.NumCounters,
		MaxCost:     options.MaxCost,
		BufferItems: options.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{cache: cache}, nil
}

// Get 返回 key 对应的值。未命中返回 (nil, false)。
func (m *Memory) Get(key string) (any, bool) {
	if key == "" {
		return nil, false
	}
	return m.cache.Get(key)
}

// Set 写入缓存，ttl 为绝对过期时间。
// ristretto 的写入经过异步缓冲，可能被准入策略拒绝；
// 进程内缓存的丢失只影响命中率，不影响正确性，因此不返回错误。
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	if key == "" || ttl <= 0 {
		return
	}
	m.cache.SetWithTTL(key, value, 1, ttl)
}

// GetOrSet 命中时返回缓存值，未命中时执行 producer 并缓存其结果。
// 与 Remote 的 GetOrSet 形状一致，但没有序列化：值按引用存取，
// 调用方不得修改返回的对象。producer 返回 nil 值视为无数据，
// 返回 ErrProducerEmpty 且不写入。
// 写入经过 ristretto 的异步准入，在结果可见之前，未命中的调用各自执行一次 producer。
func (m *Memory) GetOrSet(key string, ttl time.Duration, producer func() (any, error)) (any, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if producer == nil {
		return nil, ErrNilProducer
	}

	if value, found := m.cache.Get(key); found {
		return value, nil
	}

	value, err := producer()
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, ErrProducerEmpty
	}
	m.cache.SetWithTTL(key, value, 1, ttl)
	return value, nil
}

// Remove 删除 key 对应的条目。
func (m *Memory) Remove(key string) {
	if key == "" {
		return
	}
	m.cache.Del(key)
}

// Wait 阻塞直到写入缓冲区排空，仅用于测试中消除写入的异步性。
func (m *Memory) Wait() {
	m.cache.Wait()
}

// Close 释放缓存占用的资源。
func (m *Memory) Close() {
	m.cache.Close()
}
