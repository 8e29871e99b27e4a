package xquota

import (
	"log/slog"
	"time"

	"github.com/skidsh/warcraft-armory/pkg/observability/xobs"
)

// =============================================================================
// 配置选项
// =============================================================================

// 默认配额上限。全局上限取上游限额（100/s、36,000/h）的 80%，
// 余量留给时钟漂移与网络在途请求；调用方上限是内部公平性策略。
const (
	defaultGlobalPerSecond = 80
	defaultGlobalPerHour   = 28_800
	defaultCallerPerMinute = 60
	defaultCallerPerHour   = 1_000
)

const (
	defaultKeyPrefix = "quota"

	// defaultMaxSlotRetries AwaitGlobalSlot 的最大重试次数。
	defaultMaxSlotRetries = 10

	// defaultHourBoundaryMargin 等待小时边界时的额外余量，
	// 吸收实例间的时钟漂移，避免边界处的惊群。
	defaultHourBoundaryMargin = 3 * time.Second

	// defaultSecondRetryMargin 等待秒边界时的额外余量。
	defaultSecondRetryMargin = 100 * time.Millisecond

	// defaultFailOpenDelay 计数存储故障时 fail-open 放行前的延迟，
	// 为全局流量提供最起码的节流。
	defaultFailOpenDelay = 100 * time.Millisecond
)

// Options 定义配额协调器的配置。
type Options struct {
	// KeyPrefix Redis key 前缀，默认 "quota"。
	KeyPrefix string

	// GlobalPerSecond 全局每秒配额上限，默认 80。
	GlobalPerSecond int64

	// GlobalPerHour 全局每小时配额上限，默认 28,800。
	GlobalPerHour int64

	// CallerPerMinute 单个调用方每分钟配额上限，默认 60。
	CallerPerMinute int64

	// CallerPerHour 单个调用方每小时配额上限，默认 1,000。
	CallerPerHour int64

	// MaxSlotRetries AwaitGlobalSlot 的最大重试次数，默认 10。
	MaxSlotRetries int

	// HourBoundaryMargin 小时边界等待余量，默认 3s。
	HourBoundaryMargin time.Duration

	// SecondRetryMargin 秒边界等待余量，默认 100ms。
	SecondRetryMargin time.Duration

	// FailOpenDelay fail-open 放行前的延迟，默认 100ms。
	FailOpenDelay time.Duration

	// Logger 用于记录 fail-open 与饱和事件。
	// 默认 slog.Default()，传入 nil 禁用日志。
	Logger *slog.Logger

	// Observer 观测接口，默认 NoopObserver。
	Observer xobs.Observer
}

// Option 定义配置协调器的函数类型。
type Option func(*Options)

// defaultOptions 返回默认配置。
func defaultOptions() *Options {
	return &Options{
		KeyPrefix:          defaultKeyPrefix,
		GlobalPerSecond:    defaultGlobalPerSecond,
		GlobalPerHour:      defaultGlobalPerHour,
		CallerPerMinute:    defaultCallerPerMinute,
		CallerPerHour:      defaultCallerPerHour,
		MaxSlotRetries:     defaultMaxSlotRetries,
		HourBoundaryMargin: defaultHourBoundaryMargin,
		SecondRetryMargin:  defaultSecondRetryMargin,
		FailOpenDelay:      defaultFailOpenDelay,
		Logger:             slog.Default(),
		Observer:           xobs.NoopObserver{},
	}
}

// WithKeyPrefix 设置 Redis key 前缀。空字符串被忽略。
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		if prefix != "" {
			o.KeyPrefix = prefix
		}
	}
}

// WithGlobalCeilings 设置全局每秒/每小时配额上限。非正值被忽略。
func WithGlobalCeilings(perSecond, perHour int64) Option {
	return func(o *Options) {
		if perSecond > 0 {
			o.GlobalPerSecond = perSecond
		}
		if perHour > 0 {
			o.GlobalPerHour = perHour
		}
	}
}

// WithCallerCeilings 设置调用方每分钟/每小时配额上限。非正值被忽略。
func WithCallerCeilings(perMinute, perHour int64) Option {
	return func(o *Options) {
		if perMinute > 0 {
			o.CallerPerMinute = perMinute
		}
		if perHour > 0 {
			o.CallerPerHour = perHour
		}
	}
}

// WithMaxSlotRetries 设置 AwaitGlobalSlot 的最大重试次数。非正值被忽略。
func WithMaxSlotRetries(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxSlotRetries = n
		}
	}
}

// WithHourBoundaryMargin 设置小时边界等待余量。负值被忽略。
func WithHourBoundaryMargin(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.HourBoundaryMargin = d
		}
	}
}

// WithFailOpenDelay 设置 fail-open 放行前的延迟。负值被忽略。
func WithFailOpenDelay(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.FailOpenDelay = d
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
