package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gosuri/uiprogress"

	"github.com/weiihann/pubbench/report"
	"github.com/weiihann/pubbench/transport"
)

// combinedPassRate is the per-publisher target rate when publishers and
// subscribers run together. Unpaced publishers would over-saturate the
// subscribers' receive loops and measure the client buffer instead of
// the system.
const combinedPassRate = 2_000_000

// Runner coordinates one benchmark pass: it spawns subscriber workers,
// waits for them to be ready, spawns publisher workers, releases all
// workers through a single start gate, and collects samples and errors.
type Runner struct {
	plan     Plan
	dialer   transport.Dialer
	log      *slog.Logger
	progress bool

	sent     atomic.Int64
	received atomic.Int64
}

// NewRunner creates a Runner for the given plan. When progress is true
// the runner renders a per-worker progress bar.
func NewRunner(
	plan Plan,
	dialer transport.Dialer,
	logger *slog.Logger,
	progress bool,
) *Runner {
	return &Runner{
		plan:     plan,
		dialer:   dialer,
		log:      logger,
		progress: progress,
	}
}

// Sent returns the number of messages sent so far in the current pass.
func (r *Runner) Sent() int64 { return r.sent.Load() }

// Received returns the number of messages received so far in the
// current pass.
func (r *Runner) Received() int64 { return r.received.Load() }

// Run executes one pass with the given worker counts and returns the
// finalized benchmark. A pass either completes fully or aborts with the
// first worker error; there is no partial result.
func (r *Runner) Run(
	ctx context.Context,
	title string,
	pubs, subs int,
) (*report.Benchmark, error) {
	r.sent.Store(0)
	r.received.Store(0)

	bm := report.New(title)
	ready := &phaseBarrier{}
	finish := &phaseBarrier{}
	gate := newStartGate()
	errs := &errQueue{}

	// On abort, cancel the remaining workers and open the gate so no
	// worker is stranded on a start wait or a receive loop.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer gate.Open()

	if r.progress {
		uiprogress.Start()
		defer uiprogress.Stop()
	}

	// Register every subscriber on both barriers before spawning.
	ready.Register(subs)
	finish.Register(subs)

	r.log.Info("starting pass",
		slog.String("title", title),
		slog.Int("pubs", pubs),
		slog.Int("subs", subs),
		slog.Int("msgs", r.plan.Msgs),
		slog.Int("size", r.plan.Size),
	)

	for i := 0; i < subs; i++ {
		w := &subWorker{
			id:       i,
			dialer:   r.dialer,
			subject:  r.plan.Subject,
			expect:   r.plan.Msgs,
			size:     r.plan.Size,
			gate:     gate,
			ready:    ready.Arrival(),
			finish:   finish.Arrival(),
			received: &r.received,
			bench:    bm,
			errs:     errs,
			bar:      r.newBar(r.plan.Msgs),
			log:      r.log,
		}
		go w.run(ctx)
	}

	ready.Await()

	if err := errs.Pop(); err != nil {
		return nil, fmt.Errorf("subscriber setup failed: %w", err)
	}

	if pubs > 0 {
		// Pacing only applies when subscribers share the run.
		var target int64
		if subs > 0 {
			target = combinedPassRate
		}

		counts := splitMessages(r.plan.Msgs, pubs)

		finish.Register(pubs)

		for i := 0; i < pubs; i++ {
			w := &pubWorker{
				id:      i,
				dialer:  r.dialer,
				subject: r.plan.Subject,
				msgs:    counts[i],
				size:    r.plan.Size,
				gate:    gate,
				finish:  finish.Arrival(),
				pacer:   newPacer(target),
				sent:    &r.sent,
				bench:   bm,
				errs:    errs,
				bar:     r.newBar(counts[i]),
				log:     r.log,
			}
			go w.run(ctx)
		}
	} else if subs > 0 {
		r.log.Info("no publishers configured, run them out of process to drive this pass")
	}

	gate.Open()

	finish.Await()

	if err := errs.Pop(); err != nil {
		return nil, fmt.Errorf("run failed (sent=%d received=%d): %w",
			r.sent.Load(), r.received.Load(), err)
	}

	// Each subscriber sees the full stream, so a clean pass receives
	// sent messages once per subscriber. A mismatch is an anomaly
	// worth flagging, not a failure.
	if subs > 0 && pubs > 0 {
		sent := r.sent.Load()
		received := r.received.Load()

		if received != sent*int64(subs) {
			r.log.Warn("sent and received do not match",
				slog.Int64("sent", sent),
				slog.Int64("received", received),
				slog.Int("subs", subs),
			)
		}
	}

	bm.Close()

	return bm, nil
}

func (r *Runner) newBar(total int) *uiprogress.Bar {
	if !r.progress || total <= 0 {
		return nil
	}

	return uiprogress.AddBar(total).AppendCompleted().PrependElapsed()
}
