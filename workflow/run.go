package workflow

import "context"

// Run is a handle to a run executing in the background.
type Run struct {
	state *RunState
	done  chan struct{}
}

// ID returns the run id.
func (r *Run) ID() string { return r.state.ID() }

// Done is closed once the run reaches a terminal status.
func (r *Run) Done() <-chan struct{} { return r.done }

// Snapshot returns the run's current state.
func (r *Run) Snapshot() *Snapshot { return r.state.Snapshot() }

// Wait blocks until the run finishes or ctx is done. Canceling ctx stops
// the wait, not the run.
func (r *Run) Wait(ctx context.Context) (*Snapshot, error) {
	select {
	case <-r.done:
		return r.state.Snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
