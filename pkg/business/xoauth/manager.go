package xoauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/skidsh/warcraft-armory/pkg/observability/xobs"
)

// =============================================================================
// 凭据管理器
// =============================================================================

// maxTokenResponseSize 认证响应体的读取上限。
const maxTokenResponseSize = 1 << 20 // 1 MiB

// Manager 管理各分区的凭据单例。并发安全。
type Manager struct {
	options *Options

	// store 以分区为 key 的凭据缓存。
	// expirable LRU 的 TTL 只做兜底清理；新鲜度由 Credential.Stale 判定。
	store *expirable.LRU[string, *Credential]

	// locks 分区级互斥锁，慢路径串行化同一分区的认证请求。
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New 创建凭据管理器。
func New(clientID, clientSecret string, opts ...Option) (*Manager, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	options := defaultOptions()
	options.ClientID = clientID
	options.ClientSecret = clientSecret
	for _, opt := range opts {
		opt(options)
	}

	return &Manager{
		options: options,
		store:   expirable.NewLRU[string, *Credential](defaultCacheSize, nil, defaultCacheTTL),
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Token 返回指定分区当前有效的访问令牌，必要时先获取新凭据。
//
// 快路径无锁：缓存命中且凭据新鲜时直接返回。
// 慢路径持分区锁并重新检查——等锁期间其他请求可能已完成刷新，
// 重查命中则直接复用，避免重复认证调用。
func (m *Manager) Token(ctx context.Context, region string) (string, error) {
	region = strings.ToLower(region)
	tokenURL, ok := m.options.TokenURLs[region]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}

	// 快路径
	if cred, ok := m.store.Get(region); ok && !cred.Stale(m.options.SafetyBuffer) {
		return cred.AccessToken, nil
	}

	mu := m.regionLock(region)
	mu.Lock()
	defer mu.Unlock()

	// 持锁重查
	if cred, ok := m.store.Get(region); ok && !cred.Stale(m.options.SafetyBuffer) {
		return cred.AccessToken, nil
	}

	cred, err := m.acquire(ctx, region, tokenURL)
	if err != nil {
		return "", err
	}
	m.store.Add(region, cred)
	return cred.AccessToken, nil
}

// Refresh 丢弃指定分区的缓存凭据并立即获取新凭据。
func (m *Manager) Refresh(ctx context.Context, region string) (string, error) {
	m.Invalidate(region)
	return m.Token(ctx, region)
}

// Invalidate 丢弃指定分区的缓存凭据，不发起任何请求。
// 用于上游返回 401 后强制下一次请求重新认证。
func (m *Manager) Invalidate(region string) {
	m.store.Remove(strings.ToLower(region))
}

// regionLock 返回分区级互斥锁，按需创建。
func (m *Manager) regionLock(region string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	mu, ok := m.locks[region]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[region] = mu
	}
	return mu
}

// acquire 向分区认证端点发起 client_credentials 请求。
// 任何失败（传输、非 2xx、畸形响应、空令牌）都包装为 ErrAcquireFailed，
// 不做内部重试。
func (m *Manager) acquire(ctx context.Context, region, tokenURL string) (*Credential, error) {
	ctx, span := xobs.Start(ctx, m.options.Observer, xobs.SpanOptions{
		Component: "xoauth",
		Operation: "acquire",
		Kind:      xobs.KindClient,
		Attrs:     []xobs.Attr{xobs.String("region", region)},
	})
	cred, err := m.doAcquire(ctx, tokenURL)
	span.End(xobs.Result{Err: err})

	if err != nil {
		if logger := m.options.Logger; logger != nil {
			logger.WarnContext(ctx, "xoauth: token acquisition failed",
				slog.String("region", region),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	if logger := m.options.Logger; logger != nil {
		logger.DebugContext(ctx, "xoauth: credential acquired",
			slog.String("region", region),
			slog.Int64("expires_in", cred.ExpiresIn))
	}
	return cred, nil
}

func (m *Manager) doAcquire(ctx context.Context, tokenURL string) (*Credential, error) {
	// 凭据通过 POST body 传递，避免在 URL 中暴露（RFC 6749 §2.3.1）
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {m.options.ClientID},
		"client_secret": {m.options.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrAcquireFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.options.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquireFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrAcquireFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrAcquireFailed, resp.StatusCode)
	}

	var cred Credential
	if err := json.Unmarshal(body, &cred); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %w", ErrAcquireFailed, err)
	}
	if cred.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access_token", ErrAcquireFailed)
	}

	cred.ObtainedAt = time.Now()
	if cred.ExpiresIn > 0 {
		cred.ExpiresAt = cred.ObtainedAt.Add(time.Duration(cred.ExpiresIn) * time.Second)
	}
	return &cred, nil
}
