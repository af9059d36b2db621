package workflow

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/observability"
)

// WithTracing wraps an executor with span creation. Each execution creates
// a span named "workflow.node.<type>".
func WithTracing(kind Kind, exec Executor) Executor {
	return &tracingExecutor{inner: exec, name: observability.SpanNodePrefix + "." + kind.String()}
}

type tracingExecutor struct {
	inner Executor
	name  string
}

func (e *tracingExecutor) Execute(ctx context.Context, node Node, in Input) (any, error) {
	ctx, span := observability.StartSpan(ctx, e.name, trace.WithAttributes(
		attribute.String(observability.AttrNodeID, node.ID),
		attribute.String(observability.AttrNodeType, node.Type),
		attribute.String(observability.AttrInputStatus, string(in.Status)),
	))
	defer span.End()

	out, err := e.inner.Execute(ctx, node, in)
	if err != nil {
		observability.FailSpan(span, err)
	}
	return out, err
}

// WithMetrics wraps an executor with node count and duration recording.
func WithMetrics(metrics *observability.Metrics) func(Kind, Executor) Executor {
	return func(kind Kind, exec Executor) Executor {
		return &metricsExecutor{inner: exec, kind: kind, metrics: metrics}
	}
}

type metricsExecutor struct {
	inner   Executor
	kind    Kind
	metrics *observability.Metrics
}

func (e *metricsExecutor) Execute(ctx context.Context, node Node, in Input) (any, error) {
	start := time.Now()
	out, err := e.inner.Execute(ctx, node, in)

	status := "ok"
	if err != nil {
		status = "error"
		e.metrics.RecordError(ctx, "execution", e.kind.String())
	}
	e.metrics.RecordNode(ctx, e.kind.String(), status, time.Since(start))
	return out, err
}

// WithLogging wraps an executor with per-node debug and failure logging.
func WithLogging(log *logger.Logger) func(Kind, Executor) Executor {
	return func(kind Kind, exec Executor) Executor {
		return &loggingExecutor{inner: exec, log: log.WithComponent("executor")}
	}
}

type loggingExecutor struct {
	inner Executor
	log   *logger.Logger
}

func (e *loggingExecutor) Execute(ctx context.Context, node Node, in Input) (any, error) {
	start := time.Now()
	out, err := e.inner.Execute(ctx, node, in)

	fields := logger.Fields(
		logger.FieldNodeID, node.ID,
		logger.FieldNodeType, node.Type,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	log := e.log.WithContext(ctx)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		log.Warn("node failed", fields)
	} else {
		log.Debug("node completed", fields)
	}
	return out, err
}

// Instrument layers logging, metrics and tracing around every executor in
// reg. A nil metrics skips metric recording.
func Instrument(reg *Registry, log *logger.Logger, metrics *observability.Metrics) {
	if log != nil {
		reg.Wrap(WithLogging(log))
	}
	if metrics != nil {
		reg.Wrap(WithMetrics(metrics))
	}
	reg.Wrap(WithTracing)
}

// MetricsObserver records run-level metrics from coordinator events.
type MetricsObserver struct {
	metrics *observability.Metrics

	mu      sync.Mutex
	started map[string]time.Time
}

// NewMetricsObserver creates an observer recording into metrics.
func NewMetricsObserver(metrics *observability.Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: metrics, started: make(map[string]time.Time)}
}

func (o *MetricsObserver) OnEvent(e Event) {
	ctx := context.Background()
	switch e.Type {
	case EventRunStarted:
		o.mu.Lock()
		o.started[e.RunID] = e.Time
		o.mu.Unlock()
		o.metrics.RecordRunStart(ctx)
	case EventRunCompleted, EventRunFailed:
		o.mu.Lock()
		start, ok := o.started[e.RunID]
		delete(o.started, e.RunID)
		o.mu.Unlock()
		var d time.Duration
		if ok {
			d = e.Time.Sub(start)
		}
		o.metrics.RecordRunEnd(ctx, string(e.Status), d)
	}
}
