package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kbukum/flowrun/component"
	"github.com/kbukum/flowrun/logger"
)

// Component installs the OTLP tracer and meter providers globally while
// the server runs. With export disabled it installs nothing.
type Component struct {
	cfg Config
	id  Identity
	log *logger.Logger

	mu       sync.Mutex
	running  bool
	shutdown []func(context.Context) error
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, service, version, env string, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Component{
		cfg: cfg,
		id:  Identity{Service: service, Version: version, Environment: env},
		log: log.WithComponent("observability"),
	}
}

func (c *Component) Name() string { return "observability" }

func (c *Component) Start(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cfg.Enabled() {
		c.running = true
		return nil
	}

	res, err := c.id.resource()
	if err != nil {
		return fmt.Errorf("observability: resource: %w", err)
	}
	if c.cfg.Tracing {
		tp, err := newTracerProvider(ctx, c.cfg, res)
		if err != nil {
			return fmt.Errorf("observability: %w", err)
		}
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		c.shutdown = append(c.shutdown, tp.Shutdown)
	}
	if c.cfg.Metrics {
		mp, err := newMeterProvider(ctx, c.cfg, res)
		if err != nil {
			return fmt.Errorf("observability: %w", err)
		}
		otel.SetMeterProvider(mp)
		c.shutdown = append(c.shutdown, mp.Shutdown)
	}
	c.running = true
	c.log.Info("Telemetry export started", logger.Fields(
		"endpoint", c.cfg.Endpoint,
		"tracing", c.cfg.Tracing,
		"metrics", c.cfg.Metrics,
		"sample_rate", c.cfg.SampleRate,
	))
	return nil
}

// Stop flushes and shuts down the exporters.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, fn := range c.shutdown {
		errs = append(errs, fn(ctx))
	}
	c.shutdown, c.running = nil, false
	return errors.Join(errs...)
}

func (c *Component) Health(context.Context) component.Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.cfg.Enabled() && !c.running {
		h.Status, h.Message = component.StatusUnhealthy, "exporters not started"
	}
	return h
}

func (c *Component) Describe() component.Description {
	d := component.Description{Type: "telemetry", Details: "export disabled"}
	if c.cfg.Enabled() {
		d.Details = fmt.Sprintf("otlp %s tracing=%t metrics=%t", c.cfg.Endpoint, c.cfg.Tracing, c.cfg.Metrics)
	}
	return d
}
