package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/flowrun/workflow"
)

// MockExecutor is a configurable executor for coordinator tests. It
// records the inputs it receives and returns a preset output or error.
type MockExecutor struct {
	output any
	err    error
	fn     func(ctx context.Context, node workflow.Node, in workflow.Input) (any, error)

	mu     sync.Mutex
	calls  int
	inputs map[string]workflow.Input
}

var _ workflow.Executor = (*MockExecutor)(nil)

// NewMockExecutor creates a mock executor that returns the given output.
// If err is non-nil, every execution fails with that error.
func NewMockExecutor(output any, err error) *MockExecutor {
	return &MockExecutor{output: output, err: err, inputs: make(map[string]workflow.Input)}
}

// NewMockExecutorFunc creates a mock executor backed by a custom function.
func NewMockExecutorFunc(fn func(ctx context.Context, node workflow.Node, in workflow.Input) (any, error)) *MockExecutor {
	return &MockExecutor{fn: fn, inputs: make(map[string]workflow.Input)}
}

// Echo returns a mock executor that outputs "<node id>(<input>)", which
// makes the data path through a graph visible in results.
func Echo() *MockExecutor {
	return NewMockExecutorFunc(func(_ context.Context, node workflow.Node, in workflow.Input) (any, error) {
		return fmt.Sprintf("%s(%v)", node.ID, in.Value), nil
	})
}

func (m *MockExecutor) Execute(ctx context.Context, node workflow.Node, in workflow.Input) (any, error) {
	m.mu.Lock()
	m.calls++
	m.inputs[node.ID] = in
	m.mu.Unlock()

	if m.fn != nil {
		return m.fn(ctx, node, in)
	}
	return m.output, m.err
}

// Calls returns how many times Execute was invoked.
func (m *MockExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// InputOf returns the last input passed for nodeID.
func (m *MockExecutor) InputOf(nodeID string) (workflow.Input, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.inputs[nodeID]
	return in, ok
}

// Reset clears recorded calls.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.inputs = make(map[string]workflow.Input)
}

// GraphBuilder provides a fluent API for constructing test graphs.
type GraphBuilder struct {
	g workflow.Graph
}

// NewGraphBuilder creates an empty GraphBuilder.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{}
}

// Node appends a node with optional params given as key-value pairs.
func (b *GraphBuilder) Node(id, typ string, kv ...any) *GraphBuilder {
	var params workflow.Params
	if len(kv) > 0 {
		params = make(workflow.Params, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			params[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	b.g.Nodes = append(b.g.Nodes, workflow.Node{ID: id, Type: typ, Params: params})
	return b
}

// Edge appends an edge. Its id is "<source>-<target>".
func (b *GraphBuilder) Edge(source, target string) *GraphBuilder {
	b.g.Edges = append(b.g.Edges, workflow.Edge{ID: source + "-" + target, Source: source, Target: target})
	return b
}

// Chain appends edges linking ids in sequence.
func (b *GraphBuilder) Chain(ids ...string) *GraphBuilder {
	for i := 1; i < len(ids); i++ {
		b.Edge(ids[i-1], ids[i])
	}
	return b
}

// Build returns the graph.
func (b *GraphBuilder) Build() *workflow.Graph {
	g := b.g
	return &g
}
