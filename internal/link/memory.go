package link

import "sync"

// DefaultQueueDepth is the inbound queue depth of a memory link end.
const DefaultQueueDepth = 64

// MemoryEnd is one end of an in-process link pair. Frames sent on one end are
// delivered to the peer's inbound queue when the peer is listening; a frame
// sent while the peer is deaf is lost, matching the fire-and-forget radio it
// stands in for, and a send against a full peer queue is rejected, matching
// a saturated FIFO. ResendLast only re-arms the stored frame; the bytes go
// out again on the next send attempt.
//
// Safe for concurrent use, so a transmitter and receiver node may run in
// separate goroutines during tests and demos.
type MemoryEnd struct {
	mu          sync.Mutex
	peer        *MemoryEnd
	inbound     [][]byte
	depth       int
	last        []byte
	listening   bool
	closed      bool
	failNext    int
	resendCalls int
}

// NewMemoryPair returns two connected ends. Both start deaf (not listening),
// as a radio does before either node arms a role.
func NewMemoryPair(depth int) (*MemoryEnd, *MemoryEnd) {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	a := &MemoryEnd{depth: depth}
	b := &MemoryEnd{depth: depth}
	a.peer = b
	b.peer = a
	return a, b
}

// FailNext forces the next n send attempts to be rejected. Test hook.
func (m *MemoryEnd) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// ResendCalls reports how many times ResendLast has been invoked. Test hook.
func (m *MemoryEnd) ResendCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resendCalls
}

// FlushOutbound discards the armed frame.
func (m *MemoryEnd) FlushOutbound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = nil
}

// SendNonblocking arms a copy of frame and delivers it to the peer when
// possible. A forced failure, a closed end, or a full peer queue rejects the
// attempt; the bytes stay armed either way so ResendLast has something to
// work with.
func (m *MemoryEnd) SendNonblocking(frame []byte) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.last = append(m.last[:0], frame...)
	if m.failNext > 0 {
		m.failNext--
		m.mu.Unlock()
		return false
	}
	out := append([]byte(nil), frame...)
	peer := m.peer
	m.mu.Unlock()

	return peer.deliver(out)
}

// ResendLast re-arms the stored frame. Delivery happens on the next send
// attempt, as with a radio's reuse-payload command.
func (m *MemoryEnd) ResendLast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resendCalls++
}

// deliver queues frame on this end, reporting false when the queue is full.
// A deaf or closed end swallows the frame without rejecting the send.
func (m *MemoryEnd) deliver(frame []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.listening {
		return true
	}
	if len(m.inbound) >= m.depth {
		return false
	}
	m.inbound = append(m.inbound, frame)
	return true
}

// InboundAvailable reports whether a frame is queued.
func (m *MemoryEnd) InboundAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inbound) > 0
}

// Receive pops the oldest queued frame into buf.
func (m *MemoryEnd) Receive(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if len(m.inbound) == 0 {
		return ErrNoFrame
	}
	frame := m.inbound[0]
	if len(buf) < len(frame) {
		return ErrShortBuf
	}
	m.inbound = m.inbound[1:]
	copy(buf, frame)
	return nil
}

// EnterTransmitMode stops listening.
func (m *MemoryEnd) EnterTransmitMode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listening = false
}

// EnterReceiveMode starts listening.
func (m *MemoryEnd) EnterReceiveMode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listening = true
}

// Close drops queued frames and rejects further sends on this end.
func (m *MemoryEnd) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.inbound = nil
	m.last = nil
	return nil
}
