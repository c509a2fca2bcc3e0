package canvas

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Budget enforces the shared fetch limits: at most maxParallel fetches in
// flight, and at least minInterval between the start of consecutive
// fetches. Every fetch of a run draws from the same budget.
type Budget struct {
	slots    chan struct{}
	interval time.Duration

	mu   sync.Mutex
	last time.Time

	active atomic.Int32
}

// NewBudget creates a budget allowing maxParallel concurrent fetches whose
// starts are spaced at least minInterval apart.
func NewBudget(maxParallel int, minInterval time.Duration) *Budget {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Budget{
		slots:    make(chan struct{}, maxParallel),
		interval: minInterval,
	}
}

// Acquire blocks until a fetch may start: a parallelism slot is free and
// the spacing interval since the previous issuance has passed. Issuance is
// serialized, so simultaneous callers are still spaced by the interval.
func (b *Budget) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if b.interval > 0 {
		// Reserve the next issuance instant under the lock, sleep outside it.
		b.mu.Lock()
		now := time.Now()
		next := b.last.Add(b.interval)
		if next.Before(now) {
			next = now
		}
		b.last = next
		b.mu.Unlock()

		if wait := time.Until(next); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				<-b.slots
				return ctx.Err()
			}
		}
	}

	b.active.Add(1)
	return nil
}

// Release returns a slot to the budget. Call exactly once per successful
// Acquire.
func (b *Budget) Release() {
	b.active.Add(-1)
	<-b.slots
}

// Active returns the number of fetches currently in flight.
func (b *Budget) Active() int {
	return int(b.active.Load())
}

// MaxParallel returns the parallelism bound.
func (b *Budget) MaxParallel() int {
	return cap(b.slots)
}
