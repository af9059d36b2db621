package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/kbukum/flowrun"

// Span names.
const (
	SpanHTTPRequest = "http.request"
	SpanRun         = "workflow.run"
	SpanNodePrefix  = "workflow.node"
)

// Attribute keys.
const (
	AttrServiceName  = "service.name"
	AttrRunID        = "workflow.run_id"
	AttrNodeID       = "workflow.node_id"
	AttrNodeType     = "workflow.node_type"
	AttrInputStatus  = "workflow.input_status"
	AttrErrorMessage = "error.message"
)

// StartSpan starts a span on the global tracer provider, which is a no-op
// until tracing export is enabled.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, name, opts...)
}

// FailSpan marks span as errored with err.
func FailSpan(span trace.Span, err error) {
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	span.SetStatus(codes.Error, err.Error())
}
