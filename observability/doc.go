// Package observability exports OpenTelemetry traces and metrics over
// OTLP/HTTP. Component installs the providers globally; until it starts,
// StartSpan and the Metrics instruments record into no-op providers.
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanNodePrefix+".curl")
//	defer span.End()
//
//	metrics, err := observability.NewMetrics(observability.Meter("flowrun"))
//	metrics.RecordNode(ctx, "curl", "ok", elapsed)
package observability
