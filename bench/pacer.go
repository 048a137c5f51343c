package bench

import "time"

const (
	// paceInterval is how many sends pass between pacing evaluations.
	// Sleeping once per thousand messages avoids per-message clock
	// overhead while still converging on the target rate.
	paceInterval = 1000

	// minAdjust keeps the delay adjustment from rounding to zero for
	// very high target rates.
	minAdjust = 1e-9

	// smallMsgSize is the payload size below which publishers flush
	// periodically to keep client-side buffering bounded.
	smallMsgSize = 64

	// smallMsgFlushInterval is the global send-count cadence of those
	// periodic flushes.
	smallMsgFlushInterval = 100_000
)

// pacer steers a publisher toward a target message rate. A target of
// zero or less disables pacing entirely (unbounded-speed publishing).
//
// The delay is recomputed from the target each evaluation: one message
// period, nudged down 5% when the measured rate is below target and up
// 5% when above, clamped at zero, then scaled by the evaluation cadence.
type pacer struct {
	target float64 // messages per second
	start  time.Time
}

func newPacer(target int64) *pacer {
	return &pacer{target: float64(target)}
}

// begin marks the start of the measurement window.
func (p *pacer) begin(t time.Time) {
	p.start = t
}

// step returns how long the publisher should sleep after its count-th
// send. It returns zero except at evaluation points.
func (p *pacer) step(count int64, now time.Time) time.Duration {
	if p.target <= 0 || count == 0 || count%paceInterval != 0 {
		return 0
	}

	elapsed := now.Sub(p.start).Seconds()
	if elapsed <= 0 {
		return 0
	}

	rate := float64(count) / elapsed
	delay := 1 / p.target

	adjust := delay / 20 // 5%
	if adjust == 0 {
		adjust = minAdjust
	}

	switch {
	case rate < p.target:
		delay -= adjust
	case rate > p.target:
		delay += adjust
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay * paceInterval * float64(time.Second))
}

// smallMsgFlushDue reports whether a publisher of size-byte payloads
// should force a flush after the count-th global send.
func smallMsgFlushDue(size int, count int64) bool {
	return size < smallMsgSize && count > 0 && count%smallMsgFlushInterval == 0
}
