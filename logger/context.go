package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	runIDKey
)

// ContextWithRequestID stores a request id for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithRunID stores a run id for WithContext.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithContext adds the request and run ids stored in ctx, plus the trace
// and span ids of the active span when one is recording.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		zc = zc.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		zc = zc.Str(FieldRequestID, id)
	}
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		zc = zc.Str(FieldRunID, id)
	}
	return l.derive(zc)
}
