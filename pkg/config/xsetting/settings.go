package xsetting

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// 配置结构
// =============================================================================

// Settings 完整的服务配置。零值不可用，从 Default() 出发再覆盖。
type Settings struct {
	// Quota 配额协调配置。
	Quota QuotaSettings `koanf:"quota"`

	// Cache 两级缓存配置。
	Cache CacheSettings `koanf:"cache"`

	// OAuth 凭据获取配置。
	OAuth OAuthSettings `koanf:"oauth"`

	// Source 上游数据源配置。
	Source SourceSettings `koanf:"source"`

	// Logging 日志配置。
	Logging LoggingSettings `koanf:"logging"`
}

// QuotaSettings 对应 xquota 的上限与行为参数。
type QuotaSettings struct {
	// KeyPrefix 配额计数器的 key 前缀。
	KeyPrefix string `koanf:"key_prefix"`

	// GlobalPerSecond 全局每秒上游请求上限。
	GlobalPerSecond int64 `koanf:"global_per_second"`

	// GlobalPerHour 全局每小时上游请求上限。
	GlobalPerHour int64 `koanf:"global_per_hour"`

	// CallerPerMinute 单调用方每分钟准入上限。
	CallerPerMinute int64 `koanf:"caller_per_minute"`

	// CallerPerHour 单调用方每小时准入上限。
	CallerPerHour int64 `koanf:"caller_per_hour"`

	// MaxSlotRetries 全局槽位等待的最大重试轮数。
	MaxSlotRetries int `koanf:"max_slot_retries"`
}

// TTLSettings 一个波动性类别的两级 TTL。
type TTLSettings struct {
	// Remote 分布式缓存 TTL。
	Remote time.Duration `koanf:"remote"`

	// Local 本地缓存 TTL。
	Local time.Duration `koanf:"local"`
}

// CacheSettings 对应 xtier 与 xarmory TTL 策略的参数。
type CacheSettings struct {
	// RedisAddr 分布式缓存 Redis 地址，host:port。
	RedisAddr string `koanf:"redis_addr"`

	// Singleflight 是否启用进程内回源合并。
	Singleflight bool `koanf:"singleflight"`

	// FillLock 是否启用跨实例回填锁。
	FillLock bool `koanf:"fill_lock"`

	// TTL 按波动性类别覆盖 TTL，键为 static/profile/dynamic/derived。
	TTL map[string]TTLSettings `koanf:"ttl"`
}

// OAuthSettings 对应 xoauth 的凭据参数。
type OAuthSettings struct {
	// ClientID OAuth 客户端标识。
	ClientID string `koanf:"client_id"`

	// ClientSecret OAuth 客户端密钥。
	ClientSecret string `koanf:"client_secret"`

	// SafetyBuffer 凭据过期前的安全提前量。
	SafetyBuffer time.Duration `koanf:"safety_buffer"`

	// Regions 启用的数据分区列表。
	Regions []string `koanf:"regions"`

	// TokenURLs 按分区覆盖令牌端点，未覆盖的分区使用默认端点。
	TokenURLs map[string]string `koanf:"token_urls"`
}

// SourceSettings 对应 xbnet 的上游客户端参数。
type SourceSettings struct {
	// BaseURLs 按分区覆盖上游基础地址。
	BaseURLs map[string]string `koanf:"base_urls"`

	// Breaker 是否启用熔断器。
	Breaker bool `koanf:"breaker"`

	// BreakerThreshold 连续瞬态失败多少次后熔断。
	BreakerThreshold uint32 `koanf:"breaker_threshold"`

	// BreakerOpenTimeout 熔断打开后多久进入半开。
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`
}

// LoggingSettings 对应 xlogging 的构建参数。
type LoggingSettings struct {
	// Level 日志级别：debug/info/warn/error。
	Level string `koanf:"level"`

	// Format 输出格式：text 或 json。
	Format string `koanf:"format"`

	// AddSource 是否记录源码位置。
	AddSource bool `koanf:"add_source"`

	// File 日志文件路径，为空时输出到 stderr。
	File string `koanf:"file"`

	// MaxSizeMB 轮转前单个日志文件最大大小（MB）。
	MaxSizeMB int `koanf:"max_size_mb"`

	// MaxBackups 保留的备份文件数量。
	MaxBackups int `koanf:"max_backups"`

	// MaxAgeDays 保留备份的天数。
	MaxAgeDays int `koanf:"max_age_days"`
}

// =============================================================================
// 默认值与校验
// =============================================================================

// Default 返回与各子系统内置默认一致的配置。
func Default() *Settings {
	return &Settings{
		Quota: QuotaSettings{
			KeyPrefix:       "quota",
			GlobalPerSecond: 80,
			GlobalPerHour:   28_800,
			CallerPerMinute: 60,
			CallerPerHour:   1_000,
			MaxSlotRetries:  10,
		},
		Cache: CacheSettings{
			RedisAddr:    "localhost:6379",
			Singleflight: false,
			FillLock:     false,
			TTL: map[string]TTLSettings{
				"static":  {Remote: 24 * time.Hour, Local: 5 * time.Minute},
				"profile": {Remote: 45 * time.Minute, Local: 2 * time.Minute},
				"dynamic": {Remote: 10 * time.Minute, Local: time.Minute},
				"derived": {Remote: 20 * time.Minute, Local: 2 * time.Minute},
			},
		},
		OAuth: OAuthSettings{
			SafetyBuffer: time.Minute,
			Regions:      []string{"us", "eu", "kr", "tw"},
		},
		Source: SourceSettings{
			Breaker:            true,
			BreakerThreshold:   5,
			BreakerOpenTimeout: 30 * time.Second,
		},
		Logging: LoggingSettings{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
	}
}

// Validate 校验配置的自洽性。出错时错误链包含 ErrInvalidSetting 与具体键名。
func (s *Settings) Validate() error {
	if s.Quota.GlobalPerSecond <= 0 {
		return fmt.Errorf("%w: quota.global_per_second must be positive", ErrInvalidSetting)
	}
	if s.Quota.GlobalPerHour <= 0 {
		return fmt.Errorf("%w: quota.global_per_hour must be positive", ErrInvalidSetting)
	}
	if s.Quota.CallerPerMinute <= 0 {
		return fmt.Errorf("%w: quota.caller_per_minute must be positive", ErrInvalidSetting)
	}
	if s.Quota.CallerPerHour <= 0 {
		return fmt.Errorf("%w: quota.caller_per_hour must be positive", ErrInvalidSetting)
	}
	if s.Quota.MaxSlotRetries <= 0 {
		return fmt.Errorf("%w: quota.max_slot_retries must be positive", ErrInvalidSetting)
	}
	if s.Cache.RedisAddr == "" {
		return fmt.Errorf("%w: cache.redis_addr required", ErrInvalidSetting)
	}
	for class, ttl := range s.Cache.TTL {
		switch class {
		case "static", "profile", "dynamic", "derived":
		default:
			return fmt.Errorf("%w: cache.ttl has unknown class %q", ErrInvalidSetting, class)
		}
		if ttl.Remote <= 0 || ttl.Local <= 0 {
			return fmt.Errorf("%w: cache.ttl.%s durations must be positive", ErrInvalidSetting, class)
		}
	}
	if s.OAuth.ClientID == "" {
		return fmt.Errorf("%w: oauth.client_id required", ErrInvalidSetting)
	}
	if s.OAuth.ClientSecret == "" {
		return fmt.Errorf("%w: oauth.client_secret required", ErrInvalidSetting)
	}
	if s.OAuth.SafetyBuffer <= 0 {
		return fmt.Errorf("%w: oauth.safety_buffer must be positive", ErrInvalidSetting)
	}
	if len(s.OAuth.Regions) == 0 {
		return fmt.Errorf("%w: oauth.regions must not be empty", ErrInvalidSetting)
	}
	switch strings.ToLower(s.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalidSetting, s.Logging.Level)
	}
	switch strings.ToLower(s.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidSetting, s.Logging.Format)
	}
	if s.Source.Breaker {
		if s.Source.BreakerThreshold == 0 {
			return fmt.Errorf("%w: source.breaker_threshold must be positive", ErrInvalidSetting)
		}
		if s.Source.BreakerOpenTimeout <= 0 {
			return fmt.Errorf("%w: source.breaker_open_timeout must be positive", ErrInvalidSetting)
		}
	}
	return nil
}
