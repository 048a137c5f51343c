package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gosuri/uiprogress"

	"github.com/weiihann/pubbench/report"
	"github.com/weiihann/pubbench/transport"
)

const (
	// startTimeout bounds how long a worker waits for the start signal.
	startTimeout = 60 * time.Second

	// flushTimeout bounds every flush a worker issues.
	flushTimeout = 5 * time.Second

	// recvTimeout is the per-attempt bound on a subscriber's receive,
	// so a stalled subscriber re-checks for cancellation every second.
	recvTimeout = time.Second
)

// pubWorker publishes a fixed share of the run's messages on its own
// connection and reports one timing sample.
type pubWorker struct {
	id      int
	dialer  transport.Dialer
	subject string
	msgs    int
	size    int
	gate    *startGate
	finish  func()
	pacer   *pacer
	sent    *atomic.Int64
	bench   *report.Benchmark
	errs    *errQueue
	bar     *uiprogress.Bar
	log     *slog.Logger
}

// run executes the publisher workload. The finish arrival is guaranteed
// on every exit path so the coordinator can never block forever.
func (w *pubWorker) run(ctx context.Context) {
	defer w.finish()

	if err := w.publish(ctx); err != nil {
		w.errs.Push(err)
	}
}

func (w *pubWorker) publish(ctx context.Context) error {
	conn, err := w.dialer.Dial()
	if err != nil {
		return fmt.Errorf("publisher %d: %w", w.id, err)
	}
	defer conn.Close()

	var payload []byte
	if w.size > 0 {
		payload = make([]byte, w.size)
	}

	if err := w.gate.Wait(ctx, startTimeout); err != nil {
		return fmt.Errorf("publisher %d: %w", w.id, err)
	}

	start := time.Now()
	w.pacer.begin(start)

	for i := 0; i < w.msgs; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("publisher %d: %w", w.id, err)
		}

		if err := conn.Publish(w.subject, payload); err != nil {
			return fmt.Errorf("publisher %d: %w", w.id, err)
		}

		total := w.sent.Add(1)
		if w.bar != nil {
			w.bar.Incr()
		}

		if d := w.pacer.step(int64(i+1), time.Now()); d > 0 {
			time.Sleep(d)
		}

		// Best effort; a failed periodic flush is not fatal.
		if smallMsgFlushDue(w.size, total) {
			_ = conn.Flush(flushTimeout)
		}
	}

	if err := conn.Flush(flushTimeout); err != nil {
		return fmt.Errorf("publisher %d: %w", w.id, err)
	}
	end := time.Now()

	w.bench.AddPubSample(report.NewSample(w.msgs, w.size, start, end, conn.Stats()))

	w.log.Debug("publisher finished",
		slog.Int("publisher", w.id),
		slog.Int("msgs", w.msgs),
		slog.Duration("elapsed", end.Sub(start)),
	)

	return nil
}

// subWorker subscribes before the run starts, receives the expected
// message count on its own connection, and reports one timing sample.
type subWorker struct {
	id       int
	dialer   transport.Dialer
	subject  string
	expect   int
	size     int
	gate     *startGate
	ready    func()
	finish   func()
	received *atomic.Int64
	bench    *report.Benchmark
	errs     *errQueue
	bar      *uiprogress.Bar
	log      *slog.Logger
}

// run executes the subscriber workload. Both the ready and the finish
// arrivals are guaranteed on every exit path.
func (w *subWorker) run(ctx context.Context) {
	defer w.finish()
	defer w.ready()

	if err := w.consume(ctx); err != nil {
		w.errs.Push(err)
	}
}

func (w *subWorker) consume(ctx context.Context) error {
	conn, err := w.dialer.Dial()
	if err != nil {
		return fmt.Errorf("subscriber %d: %w", w.id, err)
	}
	defer conn.Close()

	sub, err := conn.Subscribe(w.subject)
	if err != nil {
		return fmt.Errorf("subscriber %d: %w", w.id, err)
	}

	// Push the subscription registration to the server before
	// signaling ready, so no published message can be lost.
	if err := conn.Flush(flushTimeout); err != nil {
		return fmt.Errorf("subscriber %d: %w", w.id, err)
	}

	w.ready()

	if err := w.gate.Wait(ctx, startTimeout); err != nil {
		return fmt.Errorf("subscriber %d: %w", w.id, err)
	}

	got := 0
	start := time.Now()

	for got < w.expect {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("subscriber %d: %w", w.id, err)
		}

		ok, err := sub.Next(recvTimeout)
		if err != nil {
			return fmt.Errorf("subscriber %d: %w", w.id, err)
		}
		if !ok {
			continue
		}

		w.received.Add(1)
		got++

		if w.bar != nil {
			w.bar.Incr()
		}
	}
	end := time.Now()

	w.bench.AddSubSample(report.NewSample(got, w.size, start, end, conn.Stats()))

	w.log.Debug("subscriber finished",
		slog.Int("subscriber", w.id),
		slog.Int("msgs", got),
		slog.Duration("elapsed", end.Sub(start)),
	)

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("subscriber %d: %w", w.id, err)
	}

	return nil
}
