package xobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestObserver(t *testing.T) (Observer, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	obs, err := NewOTelObserver(
		WithTracerProvider(tp),
		WithMeterProvider(mp),
		WithInstrumentationName("armory-test"),
	)
	require.NoError(t, err)
	return obs, recorder, reader
}

func TestOTelObserver_RecordsSpan(t *testing.T) {
	obs, recorder, _ := newTestObserver(t)

	ctx, span := obs.Start(context.Background(), SpanOptions{
		Component: "xquota",
		Operation: "await_global_slot",
		Kind:      KindInternal,
		Attrs:     []Attr{String("scope", "global-second")},
	})
	require.NotNil(t, ctx)
	span.End(Result{})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "await_global_slot", spans[0].Name())
}

func TestOTelObserver_RecordsErrorResult(t *testing.T) {
	obs, recorder, _ := newTestObserver(t)

	_, span := obs.Start(context.Background(), SpanOptions{
		Component: "xarmory",
		Operation: "fetch",
	})
	span.End(Result{Err: errors.New("saturated")})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1) // RecordError 产生一个事件
}

func TestOTelObserver_EndIsIdempotent(t *testing.T) {
	obs, _, reader := newTestObserver(t)

	_, span := obs.Start(context.Background(), SpanOptions{
		Component: "xtier",
		Operation: "get_or_set",
	})
	span.End(Result{})
	span.End(Result{}) // 第二次调用不应再计数

	var rm metricdataCollector
	require.NoError(t, rm.collect(reader))
	assert.Equal(t, int64(1), rm.totalFor("xtier", "get_or_set"))
}
