package xoauth

import "time"

// Credential 表示一份上游访问凭据。
type Credential struct {
	// AccessToken 访问令牌。
	AccessToken string `json:"access_token"`

	// TokenType 令牌类型，通常为 "bearer"。
	TokenType string `json:"token_type"`

	// ExpiresIn 服务端声明的有效期（秒）。
	ExpiresIn int64 `json:"expires_in"`

	// ObtainedAt 本地获取时刻。
	ObtainedAt time.Time `json:"-"`

	// ExpiresAt 本地计算的过期时刻：ObtainedAt + ExpiresIn。
	ExpiresAt time.Time `json:"-"`
}

// Stale 报告凭据剩余有效期是否不足 buffer。
// 陈旧的凭据仍可能被上游短暂接受，但不应再分发给新请求。
func (c *Credential) Stale(buffer time.Duration) bool {
	if c == nil || c.AccessToken == "" {
		return true
	}
	return time.Until(c.ExpiresAt) < buffer
}
