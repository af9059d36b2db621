package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a meter on the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics are the instruments the server records: HTTP traffic, workflow
// runs and node executions.
type Metrics struct {
	httpRequests metric.Int64Counter
	httpLatency  metric.Float64Histogram
	httpInFlight metric.Int64UpDownCounter

	runs        metric.Int64Counter
	runLatency  metric.Float64Histogram
	runsActive  metric.Int64UpDownCounter
	nodes       metric.Int64Counter
	nodeLatency metric.Float64Histogram
	errors      metric.Int64Counter
}

// instruments accumulates creation errors so NewMetrics can report them
// together.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (b *instruments) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.errs = append(b.errs, err)
	return c
}

func (b *instruments) gauge(name, desc string) metric.Int64UpDownCounter {
	g, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	b.errs = append(b.errs, err)
	return g
}

func (b *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	b.errs = append(b.errs, err)
	return h
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	b := &instruments{meter: meter}
	m := &Metrics{
		httpRequests: b.counter("http.request.total", "HTTP requests by method, route and status"),
		httpLatency:  b.seconds("http.request.duration", "HTTP request latency"),
		httpInFlight: b.gauge("http.request.active", "HTTP requests in flight"),
		runs:         b.counter("workflow.run.total", "Finished workflow runs by status"),
		runLatency:   b.seconds("workflow.run.duration", "Workflow run latency"),
		runsActive:   b.gauge("workflow.run.active", "Workflow runs in progress"),
		nodes:        b.counter("workflow.node.total", "Node executions by type and status"),
		nodeLatency:  b.seconds("workflow.node.duration", "Node execution latency"),
		errors:       b.counter("error.total", "Errors by type and component"),
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) RecordRequestStart(ctx context.Context) { m.httpInFlight.Add(ctx, 1) }

// RecordRequestEnd closes a request opened by RecordRequestStart.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, d time.Duration) {
	m.httpInFlight.Add(ctx, -1)
	m.httpRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.httpLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

func (m *Metrics) RecordRunStart(ctx context.Context) { m.runsActive.Add(ctx, 1) }

// RecordRunEnd closes a run opened by RecordRunStart.
func (m *Metrics) RecordRunEnd(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runsActive.Add(ctx, -1)
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) RecordNode(ctx context.Context, nodeType, status string, d time.Duration) {
	m.nodes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_type", nodeType),
		attribute.String("status", status),
	))
	m.nodeLatency.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("node_type", nodeType)))
}

func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
