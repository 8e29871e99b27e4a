package xbnet

import "errors"

var (
	// ErrNotFound 表示上游不存在该数据。
	// 这是合法的业务信号而非故障，调用方应将其呈现为"数据缺失"。
	ErrNotFound = errors.New("xbnet: not found")

	// ErrSourceRateLimited 表示上游返回 429。
	ErrSourceRateLimited = errors.New("xbnet: source rate limited")

	// ErrTransient 表示可重试的瞬态失败（5xx、传输错误、熔断器打开）。
	ErrTransient = errors.New("xbnet: transient failure")

	// ErrUpstream 表示不可重试的上游错误（404/429 之外的 4xx）。
	ErrUpstream = errors.New("xbnet: upstream error")

	// ErrResponseTooLarge 表示响应体超出大小上限。
	ErrResponseTooLarge = errors.New("xbnet: response too large")

	// ErrUnknownRegion 表示请求了未配置的数据分区。
	ErrUnknownRegion = errors.New("xbnet: unknown region")

	// ErrEmptyToken 表示未提供访问令牌。
	ErrEmptyToken = errors.New("xbnet: empty token")
)
