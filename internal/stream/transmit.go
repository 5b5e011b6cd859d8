package stream

import (
	"time"

	"github.com/airwire/airwire/internal/link"
)

// FailureBudget counts rejected send attempts within one burst against a
// fixed threshold. It is reset at the start of every burst and accumulates
// across the whole burst; a successful frame does not earn any back.
type FailureBudget struct {
	count     int
	threshold int
}

// NewFailureBudget returns a budget with the given threshold. Non-positive
// thresholds fall back to the default.
func NewFailureBudget(threshold int) FailureBudget {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return FailureBudget{threshold: threshold}
}

// Record counts one rejected attempt.
func (b *FailureBudget) Record() { b.count++ }

// Exhausted reports whether the threshold has been reached.
func (b *FailureBudget) Exhausted() bool { return b.count >= b.threshold }

// Count returns the rejections recorded so far.
func (b *FailureBudget) Count() int { return b.count }

// Reset clears the counter for a new burst.
func (b *FailureBudget) Reset() { b.count = 0 }

// BurstResult reports one transmit burst.
type BurstResult struct {
	Elapsed  time.Duration
	Sent     int  // frames accepted by the link
	Failures int  // rejected send attempts
	Aborted  bool // failure budget exhausted before the burst finished
	// Index and marker of the frame in progress when the burst aborted.
	AbortIndex  int
	AbortMarker byte
}

// TransmitEngine runs streaming bursts over a link. One frame buffer is
// reused for the whole burst; each loop pass synthesizes the current frame in
// place before the send attempt.
type TransmitEngine struct {
	link   link.Link
	gen    Generator
	budget FailureBudget
	buf    Frame
}

// NewTransmitEngine returns an engine sending gen's frames over l, aborting a
// burst after threshold rejected attempts.
func NewTransmitEngine(l link.Link, gen Generator, threshold int) *TransmitEngine {
	return &TransmitEngine{
		link:   l,
		gen:    gen,
		budget: NewFailureBudget(threshold),
		buf:    make(Frame, gen.FrameLen),
	}
}

// RunBurst streams frames 0..n-1 in order. Any frame still queued from a
// previous burst is flushed first. A rejected attempt re-arms the same bytes
// on the link and does not advance the stream; once the failure budget is
// exhausted the burst stops where it stands. Elapsed time brackets the send
// loop whether it completed or aborted.
func (e *TransmitEngine) RunBurst(n int) BurstResult {
	e.link.FlushOutbound()
	e.budget.Reset()

	i := 0
	start := time.Now()
	var res BurstResult
	for i < n {
		e.gen.Fill(e.buf, i)
		if !e.link.SendNonblocking(e.buf) {
			e.budget.Record()
			e.link.ResendLast()
		} else {
			i++
		}
		if e.budget.Exhausted() {
			res.Aborted = true
			res.AbortIndex = i
			res.AbortMarker = e.buf.Marker()
			break
		}
	}
	res.Elapsed = time.Since(start)
	res.Sent = i
	res.Failures = e.budget.Count()
	return res
}
