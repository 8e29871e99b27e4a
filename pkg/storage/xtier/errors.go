package xtier

import "errors"

var (
	// ErrNilClient 表示传入的客户端为 nil。
	ErrNilClient = errors.New("xtier: nil client")

	// ErrEmptyKey 表示传入的 key 为空字符串。
	// 空 key 在 Redis 中合法但几乎总是使用错误，在入口处 fail-fast。
	ErrEmptyKey = errors.New("xtier: empty key")

	// ErrInvalidTTL 表示 TTL 非正。
	// 缓存条目必须有确定的生命周期，不允许永不过期的写入。
	ErrInvalidTTL = errors.New("xtier: ttl must be positive")

	// ErrNilProducer 表示回源函数为 nil。
	ErrNilProducer = errors.New("xtier: nil producer function")

	// ErrNilValue 表示写入的值为 nil 指针。
	ErrNilValue = errors.New("xtier: nil value")

	// ErrProducerEmpty 表示回源函数返回了空值。
	// 空值不写入缓存，由调用方决定如何呈现缺失。
	ErrProducerEmpty = errors.New("xtier: producer returned empty value")

	// ErrClosed 表示缓存已关闭。
	ErrClosed = errors.New("xtier: closed")

	// ErrEmptyPrefix 表示按前缀删除时传入了空前缀。
	// 空前缀等价于清空整个键空间，必须显式拒绝。
	ErrEmptyPrefix = errors.New("xtier: empty prefix")
)
