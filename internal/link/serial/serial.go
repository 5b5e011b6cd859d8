// Package serial carries stream frames over a serial line, for nodes wired
// to a UART radio modem or a null-modem cable. Frames are SLIP-style
// delimited with an XOR trailer so the reader can resynchronize mid-stream.
package serial

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	tarm "github.com/tarm/serial"

	"github.com/airwire/airwire/internal/link"
)

const queueDepth = 64

// Link is a serial transport end.
type Link struct {
	port io.ReadWriteCloser

	mu     sync.Mutex
	closed bool

	listening atomic.Bool
	inbound   chan []byte
	pending   []byte
}

// Open opens the named serial port at the given baud rate.
func Open(name string, baud int) (*Link, error) {
	port, err := tarm.OpenPort(&tarm.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", name, err)
	}
	return newLink(port), nil
}

func newLink(port io.ReadWriteCloser) *Link {
	l := &Link{
		port:    port,
		inbound: make(chan []byte, queueDepth),
	}
	go l.readLoop()
	return l
}

func (l *Link) readLoop() {
	sc := NewScanner(l.port)
	for {
		frame, err := sc.Next()
		if err != nil {
			return
		}
		if !l.listening.Load() {
			continue
		}
		select {
		case l.inbound <- frame:
		default:
			// queue full, frame lost
		}
	}
}

// FlushOutbound is a no-op; writes go straight to the port.
func (l *Link) FlushOutbound() {}

// SendNonblocking writes one framed payload to the line.
func (l *Link) SendNonblocking(frame []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	_, err := l.port.Write(encodeFrame(frame))
	return err == nil
}

// ResendLast is a no-op; a rejected frame is retried with the same bytes
// through SendNonblocking.
func (l *Link) ResendLast() {}

// InboundAvailable reports whether a frame is ready to read.
func (l *Link) InboundAvailable() bool {
	if l.pending != nil {
		return true
	}
	select {
	case f := <-l.inbound:
		l.pending = f
		return true
	default:
		return false
	}
}

// Receive copies the ready frame into buf.
func (l *Link) Receive(buf []byte) error {
	if l.pending == nil {
		select {
		case f := <-l.inbound:
			l.pending = f
		default:
			return link.ErrNoFrame
		}
	}
	if len(buf) < len(l.pending) {
		return link.ErrShortBuf
	}
	copy(buf, l.pending)
	l.pending = nil
	return nil
}

// EnterTransmitMode stops listening; inbound frames are dropped.
func (l *Link) EnterTransmitMode() {
	l.listening.Store(false)
}

// EnterReceiveMode starts listening.
func (l *Link) EnterReceiveMode() {
	l.listening.Store(true)
}

// Close closes the port and stops the reader.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.port.Close()
}
