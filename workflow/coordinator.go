package workflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/flowrun/errors"
	"github.com/kbukum/flowrun/logger"
	"github.com/kbukum/flowrun/observability"
	"github.com/kbukum/flowrun/resilience"
)

// Coordinator drives runs: it validates a graph, registers the run in the
// Store and executes nodes one at a time in build order on a background
// goroutine.
type Coordinator struct {
	registry  *Registry
	store     Store
	log       *logger.Logger
	observers []Observer
	bulkhead  *resilience.Bulkhead
	now       func() time.Time

	wg sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithObserver adds an event observer. Observers are called in
// registration order.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithMaxConcurrentRuns caps the number of runs in flight. A submission
// that cannot get a slot within maxWait is rejected with RATE_LIMITED.
// n <= 0 leaves runs unbounded.
func WithMaxConcurrentRuns(n int, maxWait time.Duration) Option {
	return func(c *Coordinator) {
		if n <= 0 {
			c.bulkhead = nil
			return
		}
		c.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "runs",
			MaxConcurrent: n,
			MaxWait:       maxWait,
		})
	}
}

// WithClock overrides the step timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a Coordinator over the given executors and store.
func NewCoordinator(reg *Registry, store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: reg,
		store:    store,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("coordinator")
	return c
}

// Store returns the run registry the coordinator writes to.
func (c *Coordinator) Store() Store { return c.store }

// Start validates g, creates a run and executes it in the background. The
// returned Run is already registered and observable through the Store.
// Only graph and capacity problems are returned as errors; node failures
// are recorded on the run.
func (c *Coordinator) Start(ctx context.Context, g *Graph) (*Run, error) {
	if err := g.Validate(); err != nil {
		return nil, graphAppError(err)
	}

	release := func() {}
	if c.bulkhead != nil {
		r, err := c.bulkhead.Acquire(ctx)
		if err != nil {
			return nil, capacityAppError(err)
		}
		release = r
	}

	order := BuildOrder(g.Nodes, g.Edges)
	state := c.store.Create(g.Nodes, order)
	run := &Run{state: state, done: make(chan struct{})}

	runCtx := logger.ContextWithRunID(context.WithoutCancel(ctx), state.ID())
	log := c.log.WithRun(state.ID())
	c.warnMerges(log, g)

	log.Info("run started", logger.Fields("nodes", len(g.Nodes), "edges", len(g.Edges)))
	c.emit(Event{Type: EventRunStarted, RunID: state.ID(), Status: RunRunning, Time: c.now()})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(run.done)
		defer release()
		c.drive(runCtx, log, state, g, order)
	}()
	return run, nil
}

// Submit starts a run and waits for it to finish. If ctx ends first the
// run keeps going and the error is ctx's.
func (c *Coordinator) Submit(ctx context.Context, g *Graph) (*Snapshot, error) {
	run, err := c.Start(ctx, g)
	if err != nil {
		return nil, err
	}
	return run.Wait(ctx)
}

// Wait blocks until every run started so far has finished, or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) drive(ctx context.Context, log *logger.Logger, state *RunState, g *Graph, order []Node) {
	ctx, span := observability.StartSpan(ctx, observability.SpanRun, trace.WithAttributes(
		attribute.String(observability.AttrRunID, state.ID()),
		attribute.Int("workflow.nodes", len(g.Nodes)),
	))
	defer span.End()

	adj := newAdjacency(g.Edges)
	started := c.now()

	for _, node := range order {
		in := inputFor(state, adj, node.ID)
		step := state.startStep(node.ID, in, c.now())
		c.emit(Event{Type: EventStepStarted, RunID: state.ID(), Status: RunRunning, Step: &step, Time: c.now()})

		out, err := c.invoke(ctx, node, in)
		if err != nil {
			f := asFailure(node, err)
			step = state.failStep(node.ID, f.Message, c.now())
			state.finish(RunError, nil, c.now())

			log.Error("run failed", logger.NodeFields(state.ID(), node.ID, node.Type),
				logger.Fields(logger.FieldError, f.Message, logger.FieldDuration, c.now().Sub(started).Milliseconds()))
			c.emit(Event{Type: EventStepFailed, RunID: state.ID(), Status: RunError, Step: &step, Time: c.now()})
			c.emit(Event{Type: EventRunFailed, RunID: state.ID(), Status: RunError, Time: c.now()})
			observability.FailSpan(span, f)
			return
		}

		step = state.completeStep(node.ID, out, c.now())
		c.emit(Event{Type: EventStepCompleted, RunID: state.ID(), Status: RunRunning, Step: &step, Time: c.now()})
	}

	final := finalResult(state, g.Nodes, order)
	state.finish(RunCompleted, final, c.now())
	log.Info("run completed", logger.Fields("steps", len(order), logger.FieldDuration, c.now().Sub(started).Milliseconds()))
	c.emit(Event{Type: EventRunCompleted, RunID: state.ID(), Status: RunCompleted, FinalResult: final, Time: c.now()})
}

// invoke runs the node's executor. A panicking executor fails the node.
func (c *Coordinator) invoke(ctx context.Context, node Node, in Input) (out any, err error) {
	exec, ok := c.registry.Resolve(node.Kind())
	if !ok {
		return in.Value, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = Failf("%s executor panicked: %v", node.Kind(), r)
		}
	}()
	return exec.Execute(ctx, node, in)
}

func (c *Coordinator) emit(e Event) {
	for _, o := range c.observers {
		o.OnEvent(e)
	}
}

func (c *Coordinator) warnMerges(log *logger.Logger, g *Graph) {
	adj := newAdjacency(g.Edges)
	for _, n := range g.Nodes {
		src := adj.sources(n.ID)
		if len(src) < 2 {
			continue
		}
		log.Warn("node has multiple incoming edges; only the first is used", logger.Fields(
			logger.FieldNodeID, n.ID,
			"used_source", src[0],
			"ignored_sources", strings.Join(src[1:], ","),
		))
	}
}

// inputFor resolves a node's input from the source of its first incoming
// edge in declared order.
func inputFor(state *RunState, adj adjacency, nodeID string) Input {
	src := adj.sources(nodeID)
	if len(src) == 0 {
		return Input{Status: InputNone}
	}
	v, ok := state.result(src[0])
	if !ok {
		return Input{Source: src[0], Status: InputPending}
	}
	return Input{Value: v, Source: src[0], Status: InputReady}
}

// finalResult picks the output of the first output node in input order,
// falling back to the last node executed.
func finalResult(state *RunState, nodes, order []Node) any {
	for _, n := range nodes {
		if n.Kind() == KindOutput {
			v, _ := state.result(n.ID)
			return v
		}
	}
	if len(order) == 0 {
		return nil
	}
	v, _ := state.result(order[len(order)-1].ID)
	return v
}

func graphAppError(err error) error {
	var ge *GraphError
	if !stderrors.As(err, &ge) {
		return errors.InvalidGraph(err.Error()).WithCause(err)
	}
	appErr := errors.InvalidGraph(ge.Reason).WithCause(err)
	if ge.NodeID != "" {
		appErr = appErr.WithDetail("node_id", ge.NodeID)
	}
	if ge.EdgeID != "" {
		appErr = appErr.WithDetail("edge_id", ge.EdgeID)
	}
	return appErr
}

func capacityAppError(err error) error {
	switch {
	case stderrors.Is(err, resilience.ErrBulkheadFull), stderrors.Is(err, resilience.ErrBulkheadTimeout):
		return errors.RateLimited("too many concurrent runs").WithCause(err)
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return err
	}
	return errors.Internal(fmt.Errorf("acquire run slot: %w", err))
}
