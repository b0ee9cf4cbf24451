package manager

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// slotGuard is a readers-writer guard over the model slot built on a weighted
// semaphore. A generation takes weight 1, a load or unload takes the full
// weight, so at most size generations share the slot and a writer waits for
// every reader to leave. Waiters are served FIFO: once a writer queues, later
// readers queue behind it.
type slotGuard struct {
	sem  *semaphore.Weighted
	size int64
}

func newSlotGuard(readers int) *slotGuard {
	return &slotGuard{sem: semaphore.NewWeighted(int64(readers)), size: int64(readers)}
}

func (g *slotGuard) acquireShared(ctx context.Context) error { return g.sem.Acquire(ctx, 1) }

func (g *slotGuard) releaseShared() { g.sem.Release(1) }

func (g *slotGuard) acquireExclusive(ctx context.Context) error { return g.sem.Acquire(ctx, g.size) }

func (g *slotGuard) releaseExclusive() { g.sem.Release(g.size) }
