// Package link defines the half-duplex transport between two paired nodes.
// The streaming engine talks to a Link only through this interface; concrete
// transports (in-memory pair, UDP, WebSocket, serial modem, nRF24 radio) live
// here and in the subpackages.
package link

import "errors"

// Errors shared by link implementations.
var (
	ErrNoFrame  = errors.New("link: no inbound frame ready")
	ErrClosed   = errors.New("link: closed")
	ErrShortBuf = errors.New("link: receive buffer shorter than frame")
)

// Link is the radio/transport collaborator consumed by the streaming engine.
// All calls are non-blocking: a Link never waits for the peer.
type Link interface {
	// FlushOutbound discards any queued unsent frame.
	FlushOutbound()

	// SendNonblocking attempts an immediate send. True means the outbound
	// path accepted the frame; false means it was rejected (FIFO full or the
	// attempt failed). Acceptance is not an acknowledgment of delivery.
	SendNonblocking(frame []byte) bool

	// ResendLast re-arms the most recently attempted frame for another
	// transmit attempt without supplying new bytes.
	ResendLast()

	// InboundAvailable reports whether a received frame is ready to read.
	InboundAvailable() bool

	// Receive copies the ready inbound frame into buf. It is an error to
	// call Receive when InboundAvailable is false.
	Receive(buf []byte) error

	// EnterTransmitMode and EnterReceiveMode toggle the link's listen state.
	EnterTransmitMode()
	EnterReceiveMode()

	// Close releases the underlying transport.
	Close() error
}
