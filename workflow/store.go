package workflow

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/flowrun/errors"
)

// Store is the run registry: it creates runs and serves snapshots of them.
type Store interface {
	// Create registers a new running run with every step waiting.
	Create(nodes, order []Node) *RunState
	// Get returns a snapshot of the run, or a NOT_FOUND AppError.
	Get(id string) (*Snapshot, error)
	// List returns summaries of all runs, newest first.
	List() []Summary
}

// MemoryStore keeps runs in process memory for the life of the process.
// The map lock only guards insert and lookup; each run carries its own
// lock, so updates to different runs never contend.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]*RunState
	newID func() string
	now   func() time.Time
}

// StoreOption configures a MemoryStore.
type StoreOption func(*MemoryStore)

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *MemoryStore) { s.newID = fn }
}

// WithStoreClock overrides the creation timestamp source.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty store that issues UUID run ids.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		runs:  make(map[string]*RunState),
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(nodes, order []Node) *RunState {
	run := newRunState(s.newID(), nodes, order, s.now())
	s.mu.Lock()
	s.runs[run.id] = run
	s.mu.Unlock()
	return run
}

func (s *MemoryStore) Get(id string) (*Snapshot, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("execution", id)
	}
	return run.Snapshot(), nil
}

func (s *MemoryStore) List() []Summary {
	s.mu.RLock()
	runs := make([]*RunState, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	s.mu.RUnlock()

	out := make([]Summary, len(runs))
	for i, r := range runs {
		out[i] = r.Summary()
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareStrings(a.ID, b.ID)
	})
	return out
}

// Len returns the number of runs held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
