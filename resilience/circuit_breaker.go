package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned, without running the call, while a breaker is
// open or its single half-open probe is already in flight.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the position of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CircuitBreakerConfig configures a breaker.
type CircuitBreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before one probe call is
	// let through.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig opens after 5 failures for 30s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{Name: name, MaxFailures: 5, Timeout: 30 * time.Second}
}

// CircuitBreaker stops calling a dependency after repeated failures and
// lets a single probe through once the open period has passed. A
// successful probe closes it; a failed one reopens it.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu       sync.Mutex
	failures int
	openedAt time.Time // zero while closed
	probing  bool
}

// NewCircuitBreaker creates a closed breaker. Unset limits take the defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the circuit is open. fn's error counts as a
// failure and is returned unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probe, ok := cb.admit()
	if !ok {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(probe, err == nil)
	return err
}

// State reports the breaker's position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state()
}

// Reset closes the circuit and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.failures, cb.openedAt, cb.probing = 0, time.Time{}, false
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) state() State {
	switch {
	case cb.openedAt.IsZero():
		return StateClosed
	case cb.now().Sub(cb.openedAt) >= cb.cfg.Timeout:
		return StateHalfOpen
	default:
		return StateOpen
	}
}

func (cb *CircuitBreaker) admit() (probe, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state() {
	case StateClosed:
		return false, true
	case StateHalfOpen:
		if cb.probing {
			return false, false
		}
		cb.probing = true
		return true, true
	default:
		return false, false
	}
}

func (cb *CircuitBreaker) record(probe, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe {
		cb.probing = false
	}
	if success {
		if probe || cb.openedAt.IsZero() {
			cb.failures, cb.openedAt = 0, time.Time{}
		}
		return
	}
	cb.failures++
	if probe || cb.failures >= cb.cfg.MaxFailures {
		cb.openedAt = cb.now()
	}
}
