package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/dustin/go-humanize"

	"github.com/weiihann/pubbench/report"
	"github.com/weiihann/pubbench/transport"
)

// Session drives one benchmark session. When publishers are configured
// it runs a publish-only pass first to measure raw publish throughput,
// then a combined publish/subscribe pass with the configured subscriber
// count. Without publishers it runs a single subscribe-only pass.
//
// Each pass gets its own Runner, a fresh Benchmark, and zeroed counters.
type Session struct {
	Plan     Plan
	Dialer   transport.Dialer
	Logger   *slog.Logger
	Out      io.Writer
	Progress bool
}

// Run executes the session. It returns the first pass error, if any.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintf(s.Out, "Starting benchmark [msgs=%s, msgsize=%s, pubs=%d, subs=%d]\n",
		humanize.Comma(int64(s.Plan.Msgs)),
		humanize.IBytes(uint64(s.Plan.Size)),
		s.Plan.Pubs,
		s.Plan.Subs,
	)
	s.printMemory("current")

	if s.Plan.Pubs > 0 {
		if err := s.pass(ctx, "Pub Only", s.Plan.Pubs, 0); err != nil {
			return err
		}
		if err := s.pass(ctx, "Pub/Sub", s.Plan.Pubs, s.Plan.Subs); err != nil {
			return err
		}
	} else {
		if err := s.pass(ctx, "Sub Only", 0, s.Plan.Subs); err != nil {
			return err
		}
	}

	s.printMemory("final")

	return nil
}

func (s *Session) pass(ctx context.Context, title string, pubs, subs int) error {
	runner := NewRunner(s.Plan, s.Dialer, s.Logger, s.Progress)

	bm, err := runner.Run(ctx, title, pubs, subs)
	if err != nil {
		s.Logger.Error("pass aborted",
			slog.String("title", title),
			slog.Int64("sent", runner.Sent()),
			slog.Int64("received", runner.Received()),
			slog.String("error", err.Error()),
		)

		return fmt.Errorf("%s pass: %w", title, err)
	}

	s.render(bm)

	return nil
}

func (s *Session) render(bm *report.Benchmark) {
	fmt.Fprintln(s.Out)

	if s.Plan.CSV {
		fmt.Fprint(s.Out, bm.CSV())
	} else {
		fmt.Fprintln(s.Out, bm.Report())
	}
}

func (s *Session) printMemory(stage string) {
	var m runtime.MemStats

	runtime.ReadMemStats(&m)
	fmt.Fprintf(s.Out, "Memory usage is %s allocated / %s from system (%s)\n",
		humanize.IBytes(m.Alloc), humanize.IBytes(m.Sys), stage)
}
