// Package report accumulates per-worker timing samples for one benchmark
// run and renders them as a human-readable summary or CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nats-io/nuid"

	"github.com/weiihann/pubbench/transport"
)

// Sample is one worker's measured timing window. It is immutable once
// created; ownership transfers to a Benchmark on Add*Sample.
type Sample struct {
	MsgCnt   int
	MsgBytes uint64
	Start    int64 // unix nanos
	End      int64 // unix nanos
	Stats    transport.Stats
}

// NewSample builds a Sample from a worker's message count, payload size,
// timing window, and final connection statistics.
func NewSample(
	msgCnt, msgSize int,
	start, end time.Time,
	stats transport.Stats,
) Sample {
	return Sample{
		MsgCnt:   msgCnt,
		MsgBytes: uint64(msgCnt) * uint64(msgSize),
		Start:    start.UnixNano(),
		End:      end.UnixNano(),
		Stats:    stats,
	}
}

// Duration returns the length of the sample's timing window.
func (s Sample) Duration() time.Duration {
	return time.Duration(s.End - s.Start)
}

// Rate returns the sample's message rate in messages per second.
func (s Sample) Rate() int64 {
	secs := s.Duration().Seconds()
	if secs <= 0 {
		return 0
	}

	return int64(float64(s.MsgCnt) / secs)
}

// Throughput returns the sample's payload throughput in bytes per second.
func (s Sample) Throughput() float64 {
	secs := s.Duration().Seconds()
	if secs <= 0 {
		return 0
	}

	return float64(s.MsgBytes) / secs
}

func (s Sample) String() string {
	return fmt.Sprintf("%s msgs/sec ~ %s/sec (%s msgs, %s IO)",
		humanize.Comma(s.Rate()),
		humanize.IBytes(uint64(s.Throughput())),
		humanize.Comma(int64(s.MsgCnt)),
		humanize.IBytes(s.Stats.InBytes+s.Stats.OutBytes),
	)
}

// SampleGroup aggregates the samples of one worker kind.
type SampleGroup struct {
	Samples []Sample
}

// HasSamples reports whether the group contains any samples.
func (g *SampleGroup) HasSamples() bool {
	return len(g.Samples) > 0
}

// Aggregate returns a synthetic Sample spanning the whole group: summed
// counts over the earliest start and latest end.
func (g *SampleGroup) Aggregate() Sample {
	if !g.HasSamples() {
		return Sample{}
	}

	agg := Sample{
		Start: g.Samples[0].Start,
		End:   g.Samples[0].End,
	}

	for _, s := range g.Samples {
		agg.MsgCnt += s.MsgCnt
		agg.MsgBytes += s.MsgBytes
		agg.Stats.InMsgs += s.Stats.InMsgs
		agg.Stats.OutMsgs += s.Stats.OutMsgs
		agg.Stats.InBytes += s.Stats.InBytes
		agg.Stats.OutBytes += s.Stats.OutBytes

		if s.Start < agg.Start {
			agg.Start = s.Start
		}
		if s.End > agg.End {
			agg.End = s.End
		}
	}

	return agg
}

// MinRate returns the lowest per-sample message rate in the group.
func (g *SampleGroup) MinRate() int64 {
	min := int64(math.MaxInt64)
	for _, s := range g.Samples {
		if r := s.Rate(); r < min {
			min = r
		}
	}

	if min == math.MaxInt64 {
		return 0
	}

	return min
}

// MaxRate returns the highest per-sample message rate in the group.
func (g *SampleGroup) MaxRate() int64 {
	var max int64
	for _, s := range g.Samples {
		if r := s.Rate(); r > max {
			max = r
		}
	}

	return max
}

// AvgRate returns the mean of the per-sample message rates.
func (g *SampleGroup) AvgRate() int64 {
	if !g.HasSamples() {
		return 0
	}

	var sum int64
	for _, s := range g.Samples {
		sum += s.Rate()
	}

	return sum / int64(len(g.Samples))
}

// StdDev returns the population standard deviation of the per-sample
// message rates.
func (g *SampleGroup) StdDev() float64 {
	if !g.HasSamples() {
		return 0
	}

	avg := float64(g.AvgRate())

	var sum float64
	for _, s := range g.Samples {
		d := float64(s.Rate()) - avg
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(g.Samples)))
}

// Benchmark collects publisher and subscriber samples for one run.
// Add*Sample may be called concurrently; Close finalizes the benchmark,
// after which further samples are discarded.
type Benchmark struct {
	Name  string
	RunID string

	mu     sync.Mutex
	closed bool
	pubs   SampleGroup
	subs   SampleGroup
}

// New creates an empty Benchmark with a fresh run identifier.
func New(name string) *Benchmark {
	return &Benchmark{
		Name:  name,
		RunID: nuid.Next(),
	}
}

// AddPubSample records one publisher's sample.
func (b *Benchmark) AddPubSample(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.pubs.Samples = append(b.pubs.Samples, s)
}

// AddSubSample records one subscriber's sample.
func (b *Benchmark) AddSubSample(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.subs.Samples = append(b.subs.Samples, s)
}

// Close finalizes the benchmark. Samples added afterwards are dropped.
func (b *Benchmark) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
}

// Pubs returns a copy of the publisher sample group.
func (b *Benchmark) Pubs() *SampleGroup {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &SampleGroup{Samples: append([]Sample(nil), b.pubs.Samples...)}
}

// Subs returns a copy of the subscriber sample group.
func (b *Benchmark) Subs() *SampleGroup {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &SampleGroup{Samples: append([]Sample(nil), b.subs.Samples...)}
}

// Report renders a human-readable summary of the run.
func (b *Benchmark) Report() string {
	pubs := b.Pubs()
	subs := b.Subs()

	if !pubs.HasSamples() && !subs.HasSamples() {
		return fmt.Sprintf("%s stats: no samples recorded", b.Name)
	}

	overall := SampleGroup{
		Samples: append(append([]Sample(nil), pubs.Samples...), subs.Samples...),
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s stats: %s\n", b.Name, overall.Aggregate())

	writeGroup(&sb, "Pub", pubs)
	writeGroup(&sb, "Sub", subs)

	return strings.TrimRight(sb.String(), "\n")
}

func writeGroup(sb *strings.Builder, label string, g *SampleGroup) {
	if !g.HasSamples() {
		return
	}

	fmt.Fprintf(sb, " %s stats: %s\n", label, g.Aggregate())

	for i, s := range g.Samples {
		fmt.Fprintf(sb, "  [%d] %s\n", i+1, s)
	}

	if len(g.Samples) > 1 {
		fmt.Fprintf(sb, "  min %s | avg %s | max %s | stddev %s msgs/sec\n",
			humanize.Comma(g.MinRate()),
			humanize.Comma(g.AvgRate()),
			humanize.Comma(g.MaxRate()),
			humanize.Comma(int64(g.StdDev())),
		)
	}
}

// CSV renders every sample as one CSV row.
func (b *Benchmark) CSV() string {
	var sb strings.Builder

	w := csv.NewWriter(&sb)
	_ = w.Write([]string{
		"RunID", "ClientID", "MsgCount", "MsgBytes",
		"MsgsPerSec", "BytesPerSec", "DurationSecs",
	})

	writeCSVGroup(w, b.RunID, "pub", b.Pubs())
	writeCSVGroup(w, b.RunID, "sub", b.Subs())
	w.Flush()

	return sb.String()
}

func writeCSVGroup(w *csv.Writer, runID, kind string, g *SampleGroup) {
	for i, s := range g.Samples {
		_ = w.Write([]string{
			runID,
			fmt.Sprintf("%s-%d", kind, i),
			strconv.Itoa(s.MsgCnt),
			strconv.FormatUint(s.MsgBytes, 10),
			strconv.FormatInt(s.Rate(), 10),
			fmt.Sprintf("%.0f", s.Throughput()),
			fmt.Sprintf("%f", s.Duration().Seconds()),
		})
	}
}
