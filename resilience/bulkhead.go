package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrBulkheadFull is returned when no slot is free and waiting is off.
	ErrBulkheadFull = errors.New("bulkhead is full")
	// ErrBulkheadTimeout is returned when MaxWait passes without a free slot.
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig sizes a bulkhead.
type BulkheadConfig struct {
	Name          string
	MaxConcurrent int           // defaults to 10
	MaxWait       time.Duration // 0 rejects at once when full
}

// Bulkhead hands out a fixed number of slots.
type Bulkhead struct {
	name  string
	wait  time.Duration
	slots chan struct{}
}

// NewBulkhead creates a bulkhead with every slot free.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	n := cfg.MaxConcurrent
	if n <= 0 {
		n = 10
	}
	return &Bulkhead{name: cfg.Name, wait: cfg.MaxWait, slots: make(chan struct{}, n)}
}

// Acquire takes a slot, waiting up to MaxWait, and returns its release
// function. Release may be called from another goroutine and more than
// once; only the first call frees the slot.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case b.slots <- struct{}{}:
	default:
		if b.wait <= 0 {
			return nil, ErrBulkheadFull
		}
		timer := time.NewTimer(b.wait)
		defer timer.Stop()
		select {
		case b.slots <- struct{}{}:
		case <-timer.C:
			return nil, ErrBulkheadTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	var once sync.Once
	return func() { once.Do(func() { <-b.slots }) }, nil
}

// InUse is the number of slots currently held.
func (b *Bulkhead) InUse() int { return len(b.slots) }

// Size is the total number of slots.
func (b *Bulkhead) Size() int { return cap(b.slots) }
