package xoauth

import "errors"

var (
	// ErrMissingCredentials 表示 ClientID 或 ClientSecret 未配置。
	ErrMissingCredentials = errors.New("xoauth: missing client credentials")

	// ErrUnknownRegion 表示请求了未配置的数据分区。
	ErrUnknownRegion = errors.New("xoauth: unknown region")

	// ErrAcquireFailed 表示认证请求失败（非 2xx、响应畸形或 access_token 为空）。
	// 使用 errors.Is 判断，具体原因在错误链中。
	ErrAcquireFailed = errors.New("xoauth: token acquisition failed")

	// ErrNilManager 表示预热器缺少凭据管理器。
	ErrNilManager = errors.New("xoauth: nil manager")

	// ErrInvalidSchedule 表示预热调度表达式无法解析。
	ErrInvalidSchedule = errors.New("xoauth: invalid schedule")
)
