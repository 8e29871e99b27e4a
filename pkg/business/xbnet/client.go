package xbnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/skidsh/warcraft-armory/pkg/observability/xobs"
)

// =============================================================================
// 源客户端
// =============================================================================

// maxResponseSize 响应体大小上限。
// 正常的 Game Data 响应在几 KB 到几 MB 之间（拍卖行快照最大），
// 超出 10MB 的响应按异常处理，保护内存。
const maxResponseSize = 10 << 20

// Client 只读的上游 API 客户端。并发安全。
type Client struct {
	options *Options
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// New 创建源客户端。
func New(opts ...Option) *Client {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	c := &Client{options: options}
	if options.BreakerEnabled {
		c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    "xbnet",
			Timeout: options.BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= options.BreakerThreshold
			},
			// 只有瞬态失败计入熔断：404/429/4xx 是上游的正常响应，
			// 不代表上游不可用。
			IsSuccessful: func(err error) bool {
				return err == nil || !errors.Is(err, ErrTransient)
			},
		})
	}
	return c
}

// Get 请求指定分区的资源路径，返回原始响应体。
//
// namespace 原样写入 Battlenet-Namespace 头（如 "profile-us"、"static-eu"）。
// 每个请求携带独立的 UUID 关联标识，便于与上游对账。
// 状态码翻译见包文档；本方法不做任何重试。
func (c *Client) Get(ctx context.Context, region, path, namespace, token string) ([]byte, error) {
	region = strings.ToLower(region)
	baseURL, ok := c.options.BaseURLs[region]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	if token == "" {
		return nil, ErrEmptyToken
	}

	ctx, span := xobs.Start(ctx, c.options.Observer, xobs.SpanOptions{
		Component: "xbnet",
		Operation: "get",
		Kind:      xobs.KindClient,
		Attrs: []xobs.Attr{
			xobs.String("region", region),
			xobs.String("path", path),
		},
	})

	body, err := c.execute(ctx, baseURL, path, namespace, token)
	span.End(xobs.Result{Err: err})
	return body, err
}

// execute 经由熔断器（若启用）执行请求。
func (c *Client) execute(ctx context.Context, baseURL, path, namespace, token string) ([]byte, error) {
	if c.breaker == nil {
		return c.do(ctx, baseURL, path, namespace, token)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, baseURL, path, namespace, token)
	})
	if err != nil {
		// 熔断器拒绝的请求等价于上游暂不可用
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open: %w", ErrTransient, err)
		}
		return nil, err
	}
	return body, nil
}

// do 执行单次请求并翻译响应。
func (c *Client) do(ctx context.Context, baseURL, path, namespace, token string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if namespace != "" {
		req.Header.Set("Battlenet-Namespace", namespace)
	}

	resp, err := c.options.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return c.readBody(resp.Body, requestID)
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logStatus(ctx, requestID, resp.StatusCode, "source rate limited")
		return nil, fmt.Errorf("%w: status %d", ErrSourceRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		c.logStatus(ctx, requestID, resp.StatusCode, "upstream transient failure")
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		c.logStatus(ctx, requestID, resp.StatusCode, "upstream rejected request")
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
}

// readBody 读取响应体并执行大小上限检查。
func (c *Client) readBody(r io.Reader, requestID string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrTransient, err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes (request %s)", ErrResponseTooLarge, maxResponseSize, requestID)
	}
	return body, nil
}

func (c *Client) logStatus(ctx context.Context, requestID string, status int, msg string) {
	if logger := c.options.Logger; logger != nil {
		logger.WarnContext(ctx, "xbnet: "+msg,
			slog.String("request_id", requestID),
			slog.Int("status", status))
	}
}
