package blockring

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// counter is a counting semaphore with an observable value.
//
// value is a shadow of the number of permits the semaphore can hand out.
// It is updated after a successful acquire and before a release, so it never
// drops below the real number and matches it whenever nobody is mid-operation.
type counter struct {
	sem *semaphore.Weighted
	n   atomic.Int64
}

func newCounter(size, initial int64) *counter {
	c := &counter{sem: semaphore.NewWeighted(size)}
	if taken := size - initial; taken > 0 {
		if !c.sem.TryAcquire(taken) {
			panic("unreached")
		}
	}
	c.n.Store(initial)
	return c
}

// acquire takes one permit, blocking until one is released or ctx is done.
func (c *counter) acquire(ctx context.Context) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	c.n.Add(-1)
	return nil
}

// tryAcquire takes one permit if one is available right now.
func (c *counter) tryAcquire() bool {
	if !c.sem.TryAcquire(1) {
		return false
	}
	c.n.Add(-1)
	return true
}

func (c *counter) release() {
	c.n.Add(1)
	c.sem.Release(1)
}

func (c *counter) value() int64 {
	return c.n.Load()
}
