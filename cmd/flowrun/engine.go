package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/flowrun/httpclient"
	"github.com/kbukum/flowrun/llm"
	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/nodes"
	"github.com/kbukum/flowrun/observability"
	"github.com/kbukum/flowrun/sandbox"
	"github.com/kbukum/flowrun/sse"
	"github.com/kbukum/flowrun/util"
	"github.com/kbukum/flowrun/workflow"
)

const preflightTimeout = 3 * time.Second

// engine is the execution core shared by the server and the run command.
type engine struct {
	coord     *workflow.Coordinator
	defs      *workflow.FileLoader
	events    *sse.Component
	telemetry *observability.Component
	metrics   *observability.Metrics
	sandbox   *sandbox.Runner
	llm       *llm.Router
}

// newEngine builds executors, the run store and the coordinator from cfg.
// Run events go to an SSE hub when withEvents is set.
func newEngine(cfg *Config, log *logger.Logger, withEvents bool) (*engine, error) {
	e := &engine{
		defs:      workflow.NewFileLoader(cfg.Workflows.Dirs...),
		telemetry: observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment, log),
	}

	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	e.metrics = metrics

	runner, err := sandbox.NewRunner(cfg.Sandbox, log)
	if err != nil {
		return nil, err
	}
	e.sandbox = runner

	router, err := llm.NewRouter(cfg.LLM)
	if err != nil {
		return nil, err
	}
	e.llm = router
	for family, bc := range cfg.LLM.Backends {
		log.Debug("llm backend configured", logger.Fields(
			"family", family,
			"dialect", bc.Dialect,
			"model", bc.Model,
			"api_key", util.MaskSecret(bc.APIKey, 4),
		))
	}

	httpNode, err := httpclient.New(cfg.HTTPNode)
	if err != nil {
		return nil, fmt.Errorf("http_node: %w", err)
	}

	reg := nodes.NewRegistry(nodes.Deps{
		Logger:  log,
		Sandbox: runner,
		LLM:     router,
		HTTP:    httpNode,
	})
	workflow.Instrument(reg, log, metrics)

	opts := []workflow.Option{
		workflow.WithLogger(log),
		workflow.WithObserver(workflow.NewMetricsObserver(metrics)),
		workflow.WithMaxConcurrentRuns(cfg.Engine.MaxConcurrentRuns, cfg.Engine.MaxWait),
	}
	if withEvents {
		e.events = sse.NewComponent("/api/execution-events/:id", log)
		opts = append(opts, workflow.WithObserver(e.events.Publisher()))
	}
	e.coord = workflow.NewCoordinator(reg, workflow.NewMemoryStore(), opts...)

	log.Info("engine ready", logger.Fields(
		"executors", len(reg.Kinds()),
		"llm_backends", router.Families(),
		"workflow_dirs", cfg.Workflows.Dirs,
	))
	return e, nil
}

// preflight warns about node dependencies that are missing on this host.
// Nothing here is fatal: affected nodes fail at run time instead.
func (e *engine) preflight(ctx context.Context, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()
	if !e.sandbox.Available(ctx) {
		log.Warn("python interpreter not found; pythonFunction nodes will fail",
			logger.Fields("interpreter", e.sandbox.Config().Interpreter))
	}
	for family, err := range e.llm.Unreachable(ctx) {
		log.Warn("llm backend unreachable", logger.Fields("family", string(family), "error", err.Error()))
	}
}
