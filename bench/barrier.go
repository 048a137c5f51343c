package bench

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// phaseBarrier is a rendezvous point for a known set of parties. All
// parties must be registered before the goroutines that arrive at the
// barrier are spawned, so an early arrival can never race registration.
type phaseBarrier struct {
	wg sync.WaitGroup
}

// Register adds n parties to the barrier.
func (b *phaseBarrier) Register(n int) {
	b.wg.Add(n)
}

// Arrival returns a party's arrival function. It is safe to call the
// returned function more than once; only the first call counts, so a
// worker can both defer it and call it on its normal path.
func (b *phaseBarrier) Arrival() func() {
	var once sync.Once

	return func() {
		once.Do(b.wg.Done)
	}
}

// Await blocks until every registered party has arrived.
func (b *phaseBarrier) Await() {
	b.wg.Wait()
}

// startGate is a one-shot broadcast signal. Every waiter observes the
// release of the single shared channel, giving all workers one "time
// zero" for rate measurement.
type startGate struct {
	once sync.Once
	ch   chan struct{}
}

func newStartGate() *startGate {
	return &startGate{ch: make(chan struct{})}
}

// Open releases every current and future waiter. Safe to call more
// than once.
func (g *startGate) Open() {
	g.once.Do(func() { close(g.ch) })
}

// Wait blocks until the gate opens, the context is canceled, or the
// timeout expires.
func (g *startGate) Wait(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for start signal: %w", ctx.Err())
	case <-timer.C:
		return fmt.Errorf("timed out after %s waiting for start signal", timeout)
	}
}
