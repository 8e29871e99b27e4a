package xoauth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/skidsh/warcraft-armory/pkg/observability/xobs"
)

// =============================================================================
// 配置选项
// =============================================================================

// defaultTokenURL 统一认证端点，对 us/eu/kr/tw 均适用。
const defaultTokenURL = "https://oauth.battle.net/token"

const (
	// DefaultSafetyBuffer 默认安全缓冲：凭据剩余有效期低于该值即视为陈旧。
	DefaultSafetyBuffer = 60 * time.Second

	// defaultCacheSize 凭据缓存容量。每个分区一条，远大于实际需要。
	defaultCacheSize = 16

	// defaultCacheTTL 缓存兜底 TTL。上游凭据有效期为 24 小时，
	// 兜底清理只需要比它长；新鲜度判定不依赖此值。
	defaultCacheTTL = 25 * time.Hour

	// defaultRequestTimeout 认证请求超时。
	defaultRequestTimeout = 10 * time.Second
)

// defaultRegions 默认支持的数据分区。
var defaultRegions = []string{"us", "eu", "kr", "tw"}

// Options 定义凭据管理器的配置。
type Options struct {
	// ClientID OAuth 客户端标识，必填。
	ClientID string

	// ClientSecret OAuth 客户端密钥，必填。
	ClientSecret string

	// TokenURLs 各分区的认证端点。
	TokenURLs map[string]string

	// SafetyBuffer 安全缓冲，默认 60s。
	SafetyBuffer time.Duration

	// HTTPClient 自定义 HTTP 客户端，默认带 10s 超时。
	HTTPClient *http.Client

	// Logger 默认 slog.Default()，传入 nil 禁用日志。
	Logger *slog.Logger

	// Observer 观测接口，默认 NoopObserver。
	Observer xobs.Observer
}

// Option 定义配置凭据管理器的函数类型。
type Option func(*Options)

// defaultOptions 返回默认配置。
func defaultOptions() *Options {
	urls := make(map[string]string, len(defaultRegions))
	for _, region := range defaultRegions {
		urls[region] = defaultTokenURL
	}
	return &Options{
		TokenURLs:    urls,
		SafetyBuffer: DefaultSafetyBuffer,
		HTTPClient:   &http.Client{Timeout: defaultRequestTimeout},
		Logger:       slog.Default(),
		Observer:     xobs.NoopObserver{},
	}
}

// WithTokenURL 设置或新增一个分区的认证端点。
// 用于接入测试环境或新增分区。
func WithTokenURL(region, url string) Option {
	return func(o *Options) {
		if region != "" && url != "" {
			o.TokenURLs[region] = url
		}
	}
}

// WithRegions 限定支持的分区集合，未知分区沿用默认端点。
func WithRegions(regions ...string) Option {
	return func(o *Options) {
		if len(regions) == 0 {
			return
		}
		urls := make(map[string]string, len(regions))
		for _, region := range regions {
			if url, ok := o.TokenURLs[region]; ok {
				urls[region] = url
			} else {
				urls[region] = defaultTokenURL
			}
		}
		o.TokenURLs = urls
	}
}

// WithSafetyBuffer 设置安全缓冲。负值被忽略。
func WithSafetyBuffer(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.SafetyBuffer = d
		}
	}
}

// WithHTTPClient 设置自定义 HTTP 客户端。nil 被忽略。
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		if client != nil {
			o.HTTPClient = client
		}
	}
}

// WithLogger 设置自定义 Logger。传入 nil 将禁用日志输出。
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithObserver 设置观测接口。
func WithObserver(observer xobs.Observer) Option {
	return func(o *Options) {
		if observer != nil {
			o.Observer = observer
		}
	}
}
