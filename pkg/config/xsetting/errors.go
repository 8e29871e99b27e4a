package xsetting

import "errors"

var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xsetting: empty path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xsetting: unsupported format")

	// ErrLoadFailed 表示配置读取失败。
	ErrLoadFailed = errors.New("xsetting: load failed")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xsetting: parse failed")

	// ErrUnmarshalFailed 表示配置反序列化失败。
	ErrUnmarshalFailed = errors.New("xsetting: unmarshal failed")

	// ErrInvalidSetting 表示配置值未通过校验，具体键在错误链中。
	ErrInvalidSetting = errors.New("xsetting: invalid setting")
)
