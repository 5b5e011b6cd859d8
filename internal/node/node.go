// Package node runs the cooperative transmit/receive loop that ties the
// stream engines, the console, and the link together.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/airwire/airwire/internal/console"
	"github.com/airwire/airwire/internal/link"
	"github.com/airwire/airwire/internal/metrics"
	"github.com/airwire/airwire/internal/store"
	"github.com/airwire/airwire/internal/stream"
)

// Options configures a Node. Link and Console are required. Store is
// optional (nil disables history); Metrics and Logger fall back to fresh
// defaults when nil.
type Options struct {
	Link    link.Link
	Console console.Console
	Store   store.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	FrameLen         int
	BurstLen         int
	FailureThreshold int
	Pacing           time.Duration
	PollTimeout      time.Duration

	NodeName string
	LinkKind string
}

// Node is one endpoint of the half-duplex stream. A single goroutine drives
// it through Run; everything it owns is confined to that goroutine except
// the metrics counters and the event broadcaster, which are safe to read
// concurrently.
type Node struct {
	link    link.Link
	console console.Console
	store   store.Store
	metrics *metrics.Metrics
	events  *Broadcaster
	logger  *slog.Logger

	role *stream.RoleController
	tx   *stream.TransmitEngine
	rx   *stream.ReceiveEngine

	burstLen    int
	pacing      time.Duration
	pollTimeout time.Duration
	nodeName    string
	linkKind    string

	rxSessionID    string
	rxSessionStart time.Time
}

// New assembles a Node from Options. The node starts in the receiver role
// with the link already listening.
func New(opts Options) *Node {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	gen := stream.NewGenerator(opts.FrameLen, opts.BurstLen)
	rx := stream.NewReceiveEngine(opts.Link, gen.FrameLen)
	n := &Node{
		link:        opts.Link,
		console:     opts.Console,
		store:       opts.Store,
		metrics:     opts.Metrics,
		events:      NewBroadcaster(),
		logger:      opts.Logger,
		role:        stream.NewRoleController(opts.Link, rx),
		tx:          stream.NewTransmitEngine(opts.Link, gen, opts.FailureThreshold),
		rx:          rx,
		burstLen:    gen.BurstLen,
		pacing:      opts.Pacing,
		pollTimeout: opts.PollTimeout,
		nodeName:    opts.NodeName,
		linkKind:    opts.LinkKind,
	}
	n.openReceiveSession(time.Now())
	return n
}

// Events returns the node's event feed for additional viewers.
func (n *Node) Events() *Broadcaster {
	return n.events
}

// Metrics returns the node's counters.
func (n *Node) Metrics() *metrics.Metrics {
	return n.metrics
}

// Run displays a short banner and ticks the loop until the context is
// cancelled or the console asks to stop.
func (n *Node) Run(ctx context.Context) error {
	n.console.Display(fmt.Sprintf("airwire node %s on %s link", n.nodeName, n.linkKind))
	n.console.Display("*** press T to begin transmitting, R to listen")
	n.logger.Info("node started", "node", n.nodeName, "link", n.linkKind, "role", n.role.Role().String())

	for ctx.Err() == nil {
		if stop := n.Tick(ctx); stop {
			break
		}
	}
	n.shutdown(ctx)
	return nil
}

// Tick performs one loop iteration: the role-specific work, then one bounded
// console poll. Returns true when the loop should stop.
func (n *Node) Tick(ctx context.Context) bool {
	if n.role.Role() == stream.RoleTransmitter {
		res := n.tx.RunBurst(n.burstLen)
		n.reportBurst(ctx, res)
		n.sleep(ctx, n.pacing)
	} else if frame, count, ok := n.rx.PollOnce(); ok {
		line := fmt.Sprintf("received: %s - %d", frame, count)
		n.console.Display(line)
		n.metrics.AddFrameReceived()
		n.events.Send(Event{Time: time.Now(), Type: EventFrame, Text: line})
	}

	if cmd, ok := n.console.ReadCommand(n.pollTimeout); ok {
		return n.handleCommand(ctx, cmd)
	}
	return false
}

func (n *Node) reportBurst(ctx context.Context, res stream.BurstResult) {
	if res.Aborted {
		line := fmt.Sprintf("too many failures detected, aborting at frame %c", res.AbortMarker)
		n.console.Display(line)
		n.events.Send(Event{Time: time.Now(), Type: EventBurst, Text: line})
		n.logger.Warn("burst aborted", "frame", string(res.AbortMarker), "sent", res.Sent)
	}
	line := fmt.Sprintf("time to transmit = %d us with %d failures detected", res.Elapsed.Microseconds(), res.Failures)
	n.console.Display(line)
	n.events.Send(Event{Time: time.Now(), Type: EventBurst, Text: line})

	n.metrics.AddBurst(res.Aborted)
	n.metrics.AddFramesSent(res.Sent)
	n.metrics.AddSendFailures(res.Failures)

	if n.store == nil {
		return
	}
	rec := store.BurstRecord{
		Node:       n.nodeName,
		LinkKind:   n.linkKind,
		StartedAt:  time.Now().Add(-res.Elapsed),
		ElapsedUs:  res.Elapsed.Microseconds(),
		FramesSent: res.Sent,
		Failures:   res.Failures,
		Aborted:    res.Aborted,
	}
	if res.Aborted {
		rec.AbortMarker = string(res.AbortMarker)
	}
	if err := n.store.BurstAdd(ctx, rec); err != nil {
		n.logger.Error("recording burst", "err", err)
	}
}

func (n *Node) handleCommand(ctx context.Context, cmd rune) bool {
	if cmd == console.Interrupt {
		n.logger.Info("interrupt received")
		return true
	}

	prev := n.role.Role()
	prevCount := n.rx.Count()
	if !n.role.Apply(cmd) {
		return false
	}

	now := time.Now()
	var line string
	if n.role.Role() == stream.RoleTransmitter {
		n.closeReceiveSession(ctx, now, prevCount)
		line = "*** entering transmit role"
	} else {
		n.openReceiveSession(now)
		line = "*** entering receive role"
	}
	n.console.Display(line)
	n.metrics.AddRoleSwitch()
	n.events.Send(Event{Time: now, Type: EventRole, Text: line})
	n.logger.Info("role change", "from", prev.String(), "to", n.role.Role().String())
	return false
}

func (n *Node) openReceiveSession(at time.Time) {
	n.rxSessionID = uuid.NewString()
	n.rxSessionStart = at
}

func (n *Node) closeReceiveSession(ctx context.Context, at time.Time, frames int) {
	id := n.rxSessionID
	n.rxSessionID = ""
	if n.store == nil || id == "" {
		return
	}
	rec := store.ReceiveSession{
		ID:        id,
		Node:      n.nodeName,
		LinkKind:  n.linkKind,
		StartedAt: n.rxSessionStart,
		EndedAt:   at,
		Frames:    frames,
	}
	if err := n.store.ReceiveSessionAdd(ctx, rec); err != nil {
		n.logger.Error("recording receive session", "err", err)
	}
}

func (n *Node) shutdown(ctx context.Context) {
	if n.role.Role() == stream.RoleReceiver {
		n.closeReceiveSession(ctx, time.Now(), n.rx.Count())
	}
	n.logger.Info("node stopped", "node", n.nodeName)
}

func (n *Node) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
