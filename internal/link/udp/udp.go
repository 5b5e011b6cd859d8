// Package udp carries stream frames between two nodes over UDP datagrams.
// Each frame travels in one datagram behind a small header; datagrams that
// fail validation are dropped silently, the way a radio drops frames that
// fail its CRC.
package udp

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/airwire/airwire/internal/link"
)

// Wire constants.
const (
	wireMagic   uint16 = 0x4157 // "AW"
	wireVersion byte   = 1
	hdrSize            = 8 // 2B magic + 1B version + 1B flags + 4B length
	maxPayload         = 65507
	queueDepth         = 64

	sendTimeout = 100 * time.Millisecond
)

// Link is a UDP transport end. The inbound side is pumped by a background
// reader into a bounded queue; frames arriving while the link is not
// listening, or while the queue is full, are lost.
type Link struct {
	conn *net.UDPConn

	mu     sync.Mutex
	remote *net.UDPAddr // nil until configured or learned from the peer
	closed bool

	listening atomic.Bool
	inbound   chan []byte
	pending   []byte
}

// New binds a UDP socket on listenAddr (":0" when empty) and, when peerAddr
// is non-empty, fixes the remote endpoint. With an empty peerAddr the remote
// is learned from the first valid inbound datagram.
func New(listenAddr, peerAddr string) (*Link, error) {
	if listenAddr == "" {
		listenAddr = ":0"
	}
	laddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolving listen addr %s: %w", listenAddr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("binding %s: %w", listenAddr, err)
	}

	l := &Link{
		conn:    conn,
		inbound: make(chan []byte, queueDepth),
	}
	if peerAddr != "" {
		raddr, err := net.ResolveUDPAddr("udp", peerAddr)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("resolving peer addr %s: %w", peerAddr, err)
		}
		l.remote = raddr
	}
	go l.readLoop()
	return l, nil
}

// LocalAddr returns the bound socket address.
func (l *Link) LocalAddr() string {
	return l.conn.LocalAddr().String()
}

func (l *Link) readLoop() {
	buf := make([]byte, maxPayload)
	for {
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		frame, ok := decode(buf[:n])
		if !ok {
			continue
		}
		l.mu.Lock()
		if l.remote == nil {
			l.remote = from
		}
		l.mu.Unlock()
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

// FlushOutbound is a no-op; datagrams go straight to the socket.
func (l *Link) FlushOutbound() {}

// SendNonblocking writes one datagram to the peer. It is rejected when the
// link is closed, no peer is known yet, or the socket write fails.
func (l *Link) SendNonblocking(frame []byte) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	remote := l.remote
	l.mu.Unlock()

	if remote == nil {
		return false
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	_, err := l.conn.WriteToUDP(encode(frame), remote)
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

// EnterTransmitMode stops listening; inbound datagrams are dropped.
func (l *Link) EnterTransmitMode() {
	l.listening.Store(false)
}

// EnterReceiveMode starts listening.
func (l *Link) EnterReceiveMode() {
	l.listening.Store(true)
}

// Close shuts the socket down and stops the reader.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.conn.Close()
}

func encode(frame []byte) []byte {
	pkt := make([]byte, hdrSize+len(frame))
	binary.BigEndian.PutUint16(pkt[0:2], wireMagic)
	pkt[2] = wireVersion
	pkt[3] = 0
	binary.BigEndian.PutUint32(pkt[4:8], uint32(len(frame)))
	copy(pkt[hdrSize:], frame)
	return pkt
}

func decode(pkt []byte) ([]byte, bool) {
	if len(pkt) < hdrSize {
		return nil, false
	}
	if binary.BigEndian.Uint16(pkt[0:2]) != wireMagic || pkt[2] != wireVersion {
		return nil, false
	}
	length := binary.BigEndian.Uint32(pkt[4:8])
	if int(length) != len(pkt)-hdrSize {
		return nil, false
	}
	frame := make([]byte, length)
	copy(frame, pkt[hdrSize:])
	return frame, true
}
