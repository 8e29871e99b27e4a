package xobs

import (
	"context"
	"strconv"
)

// =============================================================================
// 跨度模型
// =============================================================================

// Kind 区分跨度的观测视角。
type Kind int

const (
	// KindInternal 进程内的编排操作，如配额准入、缓存分层读取。
	KindInternal Kind = iota
	// KindServer 处理入站请求的服务端操作。
	KindServer
	// KindClient 对外部依赖的出站调用，如认证端点、上游数据接口。
	KindClient
)

// String 返回 Kind 的可读名称，未知值按 "Kind(n)" 格式输出。
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindServer:
		return "Server"
	case KindClient:
		return "Client"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Status 跨度结束时的归类。
type Status string

const (
	// StatusOK 操作按预期完成，包含 fail-open 放行这类降级后的成功。
	StatusOK Status = "ok"
	// StatusError 操作失败。
	StatusError Status = "error"
)

// SpanOptions 描述一次待观测的操作。
// Component 与 Operation 构成跨度和指标的命名维度，
// 如 "xquota" / "admit_caller"。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 跨度结束时回填的结果。
// Status 为空时由 Err 推导：nil 推导为 StatusOK，非 nil 推导为 StatusError。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

// Span 一次进行中的观测。End 只应调用一次，重复调用由实现自行忽略。
type Span interface {
	End(result Result)
}

// Observer 观测后端的接入点，实现负责把跨度翻译成追踪与指标。
// NewOTelObserver 提供 OpenTelemetry 实现。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// =============================================================================
// 空实现与包级入口
// =============================================================================

// NoopObserver 丢弃所有观测。未配置 Observer 的组件以它为缺省值。
type NoopObserver struct{}

// Start 原样返回 ctx 与空跨度。nil ctx 替换为 context.Background()。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 空跨度。
type NoopSpan struct{}

// End 不做任何处理。
func (NoopSpan) End(_ Result) {}

// Start 包级入口，observer 为 nil 时直接给出空跨度。
// 返回值保证非 nil：nil ctx 归一化为 context.Background()，
// 自定义 Observer 返回的 nil context 或 nil Span 也会被兜底，
// 调用方在热路径上无需判空。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}
