package workflow

import (
	"sync"
	"time"
)

// StepStatus is the lifecycle state of one node within a run.
type StepStatus string

const (
	StepWaiting   StepStatus = "waiting"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// Step is the per-node record of a run.
type Step struct {
	NodeID      string      `json:"node_id"`
	NodeType    string      `json:"node_type"`
	Status      StepStatus  `json:"status"`
	Input       any         `json:"input_data"`
	InputStatus InputStatus `json:"input_status,omitempty"`
	InputSource string      `json:"input_source,omitempty"`
	Output      any         `json:"output_data"`
	Error       string      `json:"error,omitempty"`
	StartedAt   *time.Time  `json:"start_time"`
	FinishedAt  *time.Time  `json:"end_time"`
}

// Snapshot is an immutable copy of a run's state.
type Snapshot struct {
	ID          string     `json:"execution_id"`
	Status      RunStatus  `json:"status"`
	Steps       []Step     `json:"steps"`
	FinalResult any        `json:"final_result"`
	Order       []string   `json:"order"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Step returns the step for nodeID.
func (s *Snapshot) Step(nodeID string) (Step, bool) {
	for _, st := range s.Steps {
		if st.NodeID == nodeID {
			return st, true
		}
	}
	return Step{}, false
}

// FailedStep returns the step that stopped the run, if any.
func (s *Snapshot) FailedStep() (Step, bool) {
	for _, st := range s.Steps {
		if st.Status == StepError {
			return st, true
		}
	}
	return Step{}, false
}

// Summary is the short listing form of a run.
type Summary struct {
	ID         string     `json:"execution_id"`
	Status     RunStatus  `json:"status"`
	Nodes      int        `json:"nodes"`
	Completed  int        `json:"completed"`
	FailedNode string     `json:"failed_node,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunState is the mutable record of one run. The Store owns it; the
// coordinator driving the run is its only writer and readers take
// Snapshots. Committed input and output values are shared with snapshots
// and must not be mutated afterwards.
type RunState struct {
	mu         sync.RWMutex
	id         string
	status     RunStatus
	steps      []Step
	index      map[string]int
	results    map[string]any
	final      any
	order      []string
	createdAt  time.Time
	finishedAt time.Time
}

func newRunState(id string, nodes, order []Node, now time.Time) *RunState {
	r := &RunState{
		id:        id,
		status:    RunRunning,
		steps:     make([]Step, len(nodes)),
		index:     make(map[string]int, len(nodes)),
		results:   make(map[string]any, len(nodes)),
		order:     make([]string, len(order)),
		createdAt: now,
	}
	for i, n := range nodes {
		r.steps[i] = Step{NodeID: n.ID, NodeType: n.Type, Status: StepWaiting}
		r.index[n.ID] = i
	}
	for i, n := range order {
		r.order[i] = n.ID
	}
	return r
}

// ID returns the run id.
func (r *RunState) ID() string { return r.id }

// Status returns the current run status.
func (r *RunState) Status() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Snapshot copies the run's current state.
func (r *RunState) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Snapshot{
		ID:          r.id,
		Status:      r.status,
		Steps:       make([]Step, len(r.steps)),
		FinalResult: r.final,
		Order:       append([]string(nil), r.order...),
		CreatedAt:   r.createdAt,
	}
	copy(s.Steps, r.steps)
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// Summary returns the listing form of the run.
func (r *RunState) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{ID: r.id, Status: r.status, Nodes: len(r.steps), CreatedAt: r.createdAt}
	for _, st := range r.steps {
		switch st.Status {
		case StepCompleted:
			s.Completed++
		case StepError:
			s.FailedNode = st.NodeID
		}
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// result looks up a cached node output. The boolean is false when the node
// has not produced a result yet, which is distinct from a nil result.
func (r *RunState) result(nodeID string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.results[nodeID]
	return v, ok
}

func (r *RunState) update(nodeID string, fn func(*Step)) Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &r.steps[r.index[nodeID]]
	fn(st)
	return *st
}

func (r *RunState) startStep(nodeID string, in Input, at time.Time) Step {
	return r.update(nodeID, func(st *Step) {
		st.Status = StepRunning
		st.Input = in.Value
		st.InputStatus = in.Status
		st.InputSource = in.Source
		st.StartedAt = &at
	})
}

func (r *RunState) completeStep(nodeID string, out any, at time.Time) Step {
	r.mu.Lock()
	r.results[nodeID] = out
	r.mu.Unlock()
	return r.update(nodeID, func(st *Step) {
		st.Status = StepCompleted
		st.Output = out
		st.FinishedAt = &at
	})
}

func (r *RunState) failStep(nodeID, message string, at time.Time) Step {
	return r.update(nodeID, func(st *Step) {
		st.Status = StepError
		st.Error = message
		st.FinishedAt = &at
	})
}

func (r *RunState) finish(status RunStatus, final any, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.final = final
	r.finishedAt = at
}
