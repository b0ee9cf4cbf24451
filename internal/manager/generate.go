package manager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Item is one element of a generation's ordered output: a text fragment or a
// terminal error.
type Item struct {
	Text string
	Err  error
}

// Generation is a running generation. Items yields fragments in emission
// order and is closed when the worker reaches a terminal state.
type Generation struct {
	ID string

	items    chan Item
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	summary  Summary
}

func newGeneration(buffer int) *Generation {
	return &Generation{
		ID:    uuid.NewString(),
		items: make(chan Item, buffer),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Items returns the output channel.
func (g *Generation) Items() <-chan Item { return g.items }

// Stop tells the worker the consumer is gone. The worker notices at its next
// emission and ends the generation as completed. Safe to call more than once.
func (g *Generation) Stop() { g.quitOnce.Do(func() { close(g.quit) }) }

// Done is closed once the worker has finished and released the model slot.
func (g *Generation) Done() <-chan struct{} { return g.done }

// Wait blocks until the worker has finished and returns its summary.
func (g *Generation) Wait() Summary {
	<-g.done
	return g.summary
}

// emit delivers it unless the consumer has gone away.
func (g *Generation) emit(it Item) bool {
	select {
	case <-g.quit:
		return false
	default:
	}
	select {
	case g.items <- it:
		return true
	case <-g.quit:
		return false
	}
}

// Generate waits for a shared view of the model slot, captures the current
// cancellation epoch and starts a worker for req. Only a ctx error while
// waiting for admission is returned here; every other failure, including an
// empty slot, arrives as an error Item.
func (m *Manager) Generate(ctx context.Context, req Request) (*Generation, error) {
	start := time.Now()
	if err := m.guard.acquireShared(ctx); err != nil {
		return nil, err
	}
	epoch := m.epoch.Load()
	g := newGeneration(m.streamBuffer)
	m.inflight.Add(1)
	generationsInflight.Inc()
	go m.runWorker(g, req, epoch, start)
	return g, nil
}

// Predict runs req to completion and returns the concatenated text. A
// terminal error is returned together with the text produced before it.
func (m *Manager) Predict(ctx context.Context, req Request) (string, Summary, error) {
	g, err := m.Generate(ctx, req)
	if err != nil {
		return "", Summary{}, err
	}
	text, sum := Collect(ctx, g)
	return text, sum, sum.Err
}

// Collect drains g, stopping it if ctx ends first.
func Collect(ctx context.Context, g *Generation) (string, Summary) {
	var b []byte
	for {
		select {
		case it, ok := <-g.Items():
			if !ok {
				return string(b), g.Wait()
			}
			if it.Err == nil {
				b = append(b, it.Text...)
			}
		case <-ctx.Done():
			g.Stop()
			for range g.Items() {
			}
			return string(b), g.Wait()
		}
	}
}
