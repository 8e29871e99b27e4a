package xbnet

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/skidsh/warcraft-armory/pkg/observability/xobs"
)

// =============================================================================
// 配置选项
// =============================================================================

const (
	defaultRequestTimeout = 15 * time.Second

	// defaultBreakerThreshold 连续瞬态失败多少次后熔断。
	defaultBreakerThreshold = 5

	// defaultBreakerOpenTimeout 熔断器打开后多久进入半开试探。
	defaultBreakerOpenTimeout = 30 * time.Second
)

// defaultBaseURLs 各分区的 API 入口。
var defaultBaseURLs = map[string]string{
	"us": "https://us.api.blizzard.com",
	"eu": "https://eu.api.blizzard.com",
	"kr": "https://kr.api.blizzard.com",
	"tw": "https://tw.api.blizzard.com",
}

// Options 定义源客户端的配置。
type Options struct {
	// BaseURLs 各分区的 API 入口。
	BaseURLs map[string]string

	// HTTPClient 自定义 HTTP 客户端，默认带 15s 超时。
	HTTPClient *http.Client

	// BreakerEnabled 是否启用熔断器，默认 true。
	BreakerEnabled bool

	// BreakerThreshold 连续瞬态失败多少次后熔断，默认 5。
	BreakerThreshold uint32

	// BreakerOpenTimeout 熔断器打开后多久进入半开试探，默认 30s。
	BreakerOpenTimeout time.Duration

	// Logger 默认 slog.Default()，传入 nil 禁用日志。
	Logger *slog.Logger

	// Observer 观测接口，默认 NoopObserver。
	Observer xobs.Observer
}

// Option 定义配置源客户端的函数类型。
type Option func(*Options)

// defaultOptions 返回默认配置。
func defaultOptions() *Options {
	urls := make(map[string]string, len(defaultBaseURLs))
	for region, url := range defaultBaseURLs {
		urls[region] = url
	}
	return &Options{
		BaseURLs:           urls,
		HTTPClient:         &http.Client{Timeout: defaultRequestTimeout},
		BreakerEnabled:     true,
		BreakerThreshold:   defaultBreakerThreshold,
		BreakerOpenTimeout: defaultBreakerOpenTimeout,
		Logger:             slog.Default(),
		Observer:           xobs.NoopObserver{},
	}
}

// WithBaseURL 设置或新增一个分区的 API 入口。
// 用于接入测试环境或新增分区。
func WithBaseURL(region, url string) Option {
	return func(o *Options) {
		if region != "" && url != "" {
			o.BaseURLs[region] = url
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

// WithBreaker 设置是否启用熔断器。
func WithBreaker(enabled bool) Option {
	return func(o *Options) {
		o.BreakerEnabled = enabled
	}
}

// WithBreakerThreshold 设置熔断阈值。零值被忽略。
func WithBreakerThreshold(n uint32) Option {
	return func(o *Options) {
		if n > 0 {
			o.BreakerThreshold = n
		}
	}
}

// WithBreakerOpenTimeout 设置熔断打开时长。非正值被忽略。
func WithBreakerOpenTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.BreakerOpenTimeout = d
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
