package xarmory

import "errors"

var (
	// ErrQuotaExceeded 表示调用方超出自身配额，应稍后重试。
	ErrQuotaExceeded = errors.New("xarmory: caller quota exceeded")

	// ErrNilCoordinator 表示未提供配额协调器。
	ErrNilCoordinator = errors.New("xarmory: nil quota coordinator")

	// ErrNilCredentials 表示未提供凭据管理器。
	ErrNilCredentials = errors.New("xarmory: nil credential manager")

	// ErrNilSource 表示未提供上游客户端。
	ErrNilSource = errors.New("xarmory: nil source client")

	// ErrNilRemote 表示未提供分布式缓存。
	ErrNilRemote = errors.New("xarmory: nil remote cache")

	// ErrNilMapFn 表示未提供映射函数。
	ErrNilMapFn = errors.New("xarmory: nil map function")

	// ErrInvalidResource 表示资源描述不完整。
	ErrInvalidResource = errors.New("xarmory: invalid resource")
)
