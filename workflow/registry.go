package workflow

import (
	"context"
	"slices"
	"sync"
)

// Executor performs the side effect of one node kind. Returned errors are
// turned into an ExecutionFailure for the node.
type Executor interface {
	Execute(ctx context.Context, node Node, in Input) (any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, node Node, in Input) (any, error)

func (f ExecutorFunc) Execute(ctx context.Context, node Node, in Input) (any, error) {
	return f(ctx, node, in)
}

// Registry maps node kinds to executors. Kinds without an executor run as
// a pass-through: their output is their input.
type Registry struct {
	mu        sync.RWMutex
	executors map[Kind]Executor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[Kind]Executor)}
}

// Register binds an executor to a known kind, replacing any previous one.
// Registering KindUnknown panics: unknown kinds always pass through.
func (r *Registry) Register(kind Kind, exec Executor) {
	if !kind.Known() {
		panic("workflow: cannot register an executor for kind " + kind.String())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[kind] = exec
}

// Resolve returns the executor for kind.
func (r *Registry) Resolve(kind Kind) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[kind]
	return e, ok
}

// Kinds returns the registered kinds in declaration order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.executors))
	for k := range r.executors {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Wrap replaces every registered executor with wrap(kind, executor). It is
// used to layer logging, tracing and metrics around the executors.
func (r *Registry) Wrap(wrap func(Kind, Executor) Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.executors {
		r.executors[k] = wrap(k, e)
	}
}
