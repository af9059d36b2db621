// Package workflow executes user-authored workflow graphs.
//
// A Graph is a list of nodes and directed data-flow edges. BuildOrder turns
// it into a deterministic execution order; the Coordinator then runs the
// nodes one at a time, feeding each node the cached result of the source of
// its first incoming edge. Executors are looked up per node Kind in a
// Registry, and a kind without an executor passes its input through.
//
// Runs are fail-fast: the first node failure marks the run as errored and
// every later step stays waiting. Progress is committed to a RunState held
// by a Store, which callers poll through immutable Snapshots:
//
//	reg := workflow.NewRegistry()
//	reg.Register(workflow.KindTextEditor, editor)
//
//	coord := workflow.NewCoordinator(reg, workflow.NewMemoryStore())
//	run, err := coord.Start(ctx, graph)
//	if err != nil {
//		return err // invalid graph or no capacity
//	}
//	snap, err := run.Wait(ctx)
//
// The run is driven on a context detached from the caller's cancellation,
// so a client that disconnects does not abort it.
package workflow
