package xlogging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 轮转默认配置值。
const (
	// DefaultMaxSizeMB 单个日志文件最大大小（MB）。
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups 保留的备份文件数量。
	DefaultMaxBackups = 7

	// DefaultMaxAgeDays 保留备份的天数。
	DefaultMaxAgeDays = 30
)

// RotationOption 轮转配置选项。
type RotationOption func(*lumberjack.Logger)

// WithMaxSize 设置单个日志文件最大大小（MB）。
func WithMaxSize(mb int) RotationOption {
	return func(l *lumberjack.Logger) {
		l.MaxSize = mb
	}
}

// WithMaxBackups 设置保留的备份文件数量。
func WithMaxBackups(n int) RotationOption {
	return func(l *lumberjack.Logger) {
		l.MaxBackups = n
	}
}

// WithMaxAge 设置保留备份的天数。
func WithMaxAge(days int) RotationOption {
	return func(l *lumberjack.Logger) {
		l.MaxAge = days
	}
}

// WithCompress 设置是否 gzip 压缩备份文件。
func WithCompress(compress bool) RotationOption {
	return func(l *lumberjack.Logger) {
		l.Compress = compress
	}
}

// Builder 日志配置构建器。
type Builder struct {
	output    io.Writer
	levelVar  *slog.LevelVar
	format    string
	addSource bool
	rotator   *lumberjack.Logger
	err       error
}

// New 创建配置构建器，默认输出 text 格式到 stderr，级别 info。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
	}
}

// SetOutput 设置日志输出目标。
func (b *Builder) SetOutput(w io.Writer) *Builder {
	b.output = w
	return b
}

// SetLevel 设置日志级别。
func (b *Builder) SetLevel(level slog.Level) *Builder {
	b.levelVar.Set(level)
	return b
}

// SetLevelString 通过字符串设置日志级别。
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.err = err
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json。
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized == "" {
		// 空值视为使用默认格式，避免误把"没填"变成配置错误
		b.format = "text"
		return b
	}
	if normalized != "text" && normalized != "json" {
		b.err = fmt.Errorf("xlogging: unknown format %q", format)
		return b
	}
	b.format = normalized
	return b
}

// SetAddSource 是否在日志中添加源码位置。
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetRotation 设置日志文件轮转。
// 输出目标切换为轮转文件，Build 返回的清理函数负责关闭。
func (b *Builder) SetRotation(filename string, opts ...RotationOption) *Builder {
	if filename == "" {
		b.err = fmt.Errorf("xlogging: empty rotation filename")
		return b
	}

	rotator := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	}
	for _, opt := range opts {
		opt(rotator)
	}

	b.rotator = rotator
	b.output = rotator
	return b
}

// Build 构建 Logger 实例。
//
// 返回值：
//   - *slog.Logger: 日志实例
//   - func() error: 清理函数，释放轮转文件等资源
//   - error: 配置错误
func (b *Builder) Build() (*slog.Logger, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}

	var handler slog.Handler
	switch b.format {
	case "json":
		handler = slog.NewJSONHandler(b.output, opts)
	default:
		handler = slog.NewTextHandler(b.output, opts)
	}

	return slog.New(handler), b.createCleanup(), nil
}

// createCleanup 创建幂等的清理函数。
func (b *Builder) createCleanup() func() error {
	var once sync.Once
	rotator := b.rotator

	return func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}
}
