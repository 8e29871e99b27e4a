package xquota

import "errors"

var (
	// ErrNilClient 表示传入的 Redis 客户端为 nil。
	ErrNilClient = errors.New("xquota: nil client")

	// ErrEmptyCallerID 表示调用方标识为空。
	ErrEmptyCallerID = errors.New("xquota: empty caller id")

	// ErrSaturated 表示全局配额在重试预算内始终不可用。
	// 与 context 取消相区分：取消返回 ctx.Err()。
	ErrSaturated = errors.New("xquota: global quota saturated")

	// ErrClosed 表示协调器已关闭。
	ErrClosed = errors.New("xquota: closed")
)
