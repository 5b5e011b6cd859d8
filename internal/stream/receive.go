package stream

import "github.com/airwire/airwire/internal/link"

// ReceiveEngine drains inbound frames one poll at a time and keeps the
// running receipt count. The count survives across polls and is reset by the
// role controller when the node turns into a transmitter.
type ReceiveEngine struct {
	link  link.Link
	count int
	buf   Frame
}

// NewReceiveEngine returns an engine reading frameLen-byte frames from l.
func NewReceiveEngine(l link.Link, frameLen int) *ReceiveEngine {
	if frameLen < 1 {
		frameLen = DefaultFrameLen
	}
	return &ReceiveEngine{link: l, buf: make(Frame, frameLen)}
}

// PollOnce checks the link for a ready frame. When one is available it is
// read, the receipt counter is incremented, and the frame is returned with
// the counter value at receipt. The frame aliases an internal buffer that is
// overwritten by the next poll. Returns ok=false when nothing is ready,
// which is the normal idle case, not an error.
func (e *ReceiveEngine) PollOnce() (f Frame, count int, ok bool) {
	if !e.link.InboundAvailable() {
		return nil, e.count, false
	}
	if err := e.link.Receive(e.buf); err != nil {
		return nil, e.count, false
	}
	e.count++
	return e.buf, e.count, true
}

// Count returns frames drained since the last reset.
func (e *ReceiveEngine) Count() int { return e.count }

// ResetCount zeroes the receipt counter.
func (e *ReceiveEngine) ResetCount() { e.count = 0 }
