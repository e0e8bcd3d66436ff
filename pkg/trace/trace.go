// Package trace carries OpenTelemetry span contexts across the feed event queue.
package trace

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type SpanContext struct {
	TraceID    [16]byte `json:"trace_id"`
	SpanID     [8]byte  `json:"span_id"`
	TraceFlags byte     `json:"trace_flags"`
	TraceState string   `json:"trace_state"`
	Remote     bool     `json:"remote"`
}

func ParseSpanContext(sc SpanContext) (trace.SpanContext, error) {
	traceState, err := trace.ParseTraceState(sc.TraceState)
	if err != nil {
		return trace.SpanContext{}, err
	}
	config := trace.SpanContextConfig{
		TraceID:    sc.TraceID,
		SpanID:     sc.SpanID,
		TraceFlags: trace.TraceFlags(sc.TraceFlags),
		TraceState: traceState,
		Remote:     true,
	}
	return trace.NewSpanContext(config), nil
}

func BuildSpanContext(sc trace.SpanContext) SpanContext {
	return SpanContext{
		TraceID:    sc.TraceID(),
		SpanID:     sc.SpanID(),
		TraceFlags: byte(sc.TraceFlags()),
		TraceState: sc.TraceState().String(),
		Remote:     sc.IsRemote(),
	}
}

// ContextWithRemote returns ctx carrying sc as its remote parent. Invalid span
// contexts leave ctx unchanged.
func ContextWithRemote(ctx context.Context, sc SpanContext) context.Context {
	parsed, err := ParseSpanContext(sc)
	if err != nil || !parsed.IsValid() {
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, parsed)
}
