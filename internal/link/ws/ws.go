// Package ws carries stream frames over a WebSocket, one binary message per
// frame. A link either dials a peer's URL or listens for exactly one peer;
// the two paired nodes use one of each.
package ws

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"github.com/airwire/airwire/internal/link"
)

const (
	queueDepth  = 64
	dialTimeout = 10 * time.Second
	sendTimeout = 100 * time.Millisecond
)

// Link is a WebSocket transport end.
type Link struct {
	mu     sync.Mutex
	conn   *websocket.Conn // nil until a peer connects in listen mode
	closed bool

	listening atomic.Bool
	inbound   chan []byte
	pending   []byte

	ctx    context.Context
	cancel context.CancelFunc

	srv  *http.Server
	addr string
}

func newLink() *Link {
	ctx, cancel := context.WithCancel(context.Background())
	return &Link{
		inbound: make(chan []byte, queueDepth),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Dial connects to a listening peer. url must include the /ws path, for
// example ws://host:9710/ws.
func Dial(url string) (*Link, error) {
	l := newLink()
	dialCtx, cancel := context.WithTimeout(l.ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		l.cancel()
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	l.conn = conn
	go l.readLoop(conn)
	return l, nil
}

// Listen serves a WebSocket endpoint at /ws on addr and waits for one peer.
// A second peer is turned away while the first is connected.
func Listen(addr string) (*Link, error) {
	l := newLink()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		l.cancel()
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	l.addr = ln.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", l.handleUpgrade)
	l.srv = &http.Server{Handler: mux}

	go func() { _ = l.srv.Serve(ln) }()
	go func() {
		<-l.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.srv.Shutdown(shutdownCtx)
	}()
	return l, nil
}

// Addr returns the bound listen address. Empty for dialled links.
func (l *Link) Addr() string {
	return l.addr
}

func (l *Link) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	l.mu.Lock()
	if l.conn != nil || l.closed {
		l.mu.Unlock()
		_ = conn.Close(websocket.StatusPolicyViolation, "peer already connected")
		return
	}
	l.conn = conn
	l.mu.Unlock()

	// Serve the peer from the handler goroutine; returning would drop the
	// hijacked connection.
	l.readLoop(conn)
}

func (l *Link) readLoop(conn *websocket.Conn) {
	for {
		typ, data, err := conn.Read(l.ctx)
		if err != nil {
			l.mu.Lock()
			if l.conn == conn {
				l.conn = nil
			}
			l.mu.Unlock()
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}
		if !l.listening.Load() {
			continue
		}
		select {
		case l.inbound <- data:
		default:
			// queue full, frame lost
		}
	}
}

// FlushOutbound is a no-op; messages go straight to the connection.
func (l *Link) FlushOutbound() {}

// SendNonblocking writes one binary message to the peer. Rejected when the
// link is closed, no peer is connected, or the write fails within its
// timeout.
func (l *Link) SendNonblocking(frame []byte) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	conn := l.conn
	l.mu.Unlock()

	if conn == nil {
		return false
	}
	wctx, cancel := context.WithTimeout(l.ctx, sendTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageBinary, frame) == nil
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

// EnterTransmitMode stops listening; inbound messages are dropped.
func (l *Link) EnterTransmitMode() {
	l.listening.Store(false)
}

// EnterReceiveMode starts listening.
func (l *Link) EnterReceiveMode() {
	l.listening.Store(true)
}

// Close tears the connection and listener down.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	conn := l.conn
	l.mu.Unlock()

	l.cancel()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
	return nil
}
