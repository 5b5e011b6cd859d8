package node

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/airwire/airwire/internal/console"
	"github.com/airwire/airwire/internal/link"
	"github.com/airwire/airwire/internal/store"
	"github.com/airwire/airwire/internal/stream"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), 0)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testOptions(l link.Link, c console.Console, s store.Store) Options {
	return Options{
		Link:             l,
		Console:          c,
		Store:            s,
		Logger:           discardLogger(),
		FrameLen:         32,
		BurstLen:         32,
		FailureThreshold: 100,
		NodeName:         "n1",
		LinkKind:         "memory",
	}
}

func hasLine(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func findPrefix(lines []string, prefix string) (string, bool) {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return l, true
		}
	}
	return "", false
}

func TestTransmitTickReportsBurst(t *testing.T) {
	a, _ := link.NewMemoryPair(0)
	sc := console.NewScript('T')
	st := newTestStore(t)
	n := New(testOptions(a, sc, st))
	_, events := n.Events().Subscribe(16)
	ctx := context.Background()

	if stop := n.Tick(ctx); stop {
		t.Fatal("tick requested stop")
	}
	n.Tick(ctx)

	lines := sc.Lines()
	if !hasLine(lines, "*** entering transmit role") {
		t.Fatalf("missing role notice in %q", lines)
	}
	report, ok := findPrefix(lines, "time to transmit = ")
	if !ok {
		t.Fatalf("missing burst report in %q", lines)
	}
	if !strings.HasSuffix(report, " with 0 failures detected") {
		t.Fatalf("unexpected burst report %q", report)
	}

	snap := n.Metrics().Snapshot()
	if snap["bursts"] != 1 || snap["frames_sent"] != 32 || snap["send_failures"] != 0 {
		t.Fatalf("unexpected metrics %v", snap)
	}
	if snap["role_switches"] != 1 {
		t.Fatalf("expected 1 role switch, got %d", snap["role_switches"])
	}

	recs, err := st.BurstList(ctx, 10)
	if err != nil {
		t.Fatalf("listing bursts: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 burst record, got %d", len(recs))
	}
	if recs[0].FramesSent != 32 || recs[0].Aborted || recs[0].Node != "n1" {
		t.Fatalf("unexpected burst record %+v", recs[0])
	}

	sawRole, sawBurst := false, false
	for len(events) > 0 {
		e := <-events
		switch e.Type {
		case EventRole:
			sawRole = true
		case EventBurst:
			sawBurst = true
		}
	}
	if !sawRole || !sawBurst {
		t.Fatalf("expected role and burst events, got role=%v burst=%v", sawRole, sawBurst)
	}
}

func TestReceiveTickCountsFrames(t *testing.T) {
	a, b := link.NewMemoryPair(0)
	sc := console.NewScript()
	n := New(testOptions(a, sc, nil))
	ctx := context.Background()

	g := stream.NewGenerator(32, 32)
	for i := 0; i < 3; i++ {
		if !b.SendNonblocking(g.Generate(i)) {
			t.Fatalf("send %d rejected", i)
		}
	}
	for i := 0; i < 3; i++ {
		n.Tick(ctx)
	}

	lines := sc.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 display lines, got %d: %q", len(lines), lines)
	}
	for i, l := range lines {
		want := fmt.Sprintf("received: %s - %d", g.Generate(i), i+1)
		if l != want {
			t.Fatalf("line %d = %q, want %q", i, l, want)
		}
	}
	if got := n.Metrics().Snapshot()["frames_received"]; got != 3 {
		t.Fatalf("expected 3 frames received, got %d", got)
	}
}

func TestNodeRoundTrip(t *testing.T) {
	a, b := link.NewMemoryPair(0)
	txc := console.NewScript('T')
	rxc := console.NewScript()
	txOpts := testOptions(a, txc, nil)
	txOpts.NodeName = "tx"
	rxOpts := testOptions(b, rxc, nil)
	rxOpts.NodeName = "rx"
	txn := New(txOpts)
	rxn := New(rxOpts)
	ctx := context.Background()

	txn.Tick(ctx) // consume 'T', become transmitter
	txn.Tick(ctx) // burst
	for i := 0; i < 32; i++ {
		rxn.Tick(ctx)
	}

	lines := rxc.Lines()
	if len(lines) != 32 {
		t.Fatalf("expected 32 received lines, got %d", len(lines))
	}
	g := stream.NewGenerator(32, 32)
	for i, l := range lines {
		want := fmt.Sprintf("received: %s - %d", g.Generate(i), i+1)
		if l != want {
			t.Fatalf("line %d = %q, want %q", i, l, want)
		}
	}
	if got := txn.Metrics().Snapshot()["frames_sent"]; got != 32 {
		t.Fatalf("transmitter sent %d frames", got)
	}
	if got := rxn.Metrics().Snapshot()["frames_received"]; got != 32 {
		t.Fatalf("receiver counted %d frames", got)
	}
}

func TestBurstAbortNotice(t *testing.T) {
	a, _ := link.NewMemoryPair(0)
	a.FailNext(1000)
	sc := console.NewScript('T')
	st := newTestStore(t)
	opts := testOptions(a, sc, st)
	opts.FailureThreshold = 5
	n := New(opts)
	ctx := context.Background()

	n.Tick(ctx)
	n.Tick(ctx)

	if !hasLine(sc.Lines(), "too many failures detected, aborting at frame A") {
		t.Fatalf("missing abort notice in %q", sc.Lines())
	}
	snap := n.Metrics().Snapshot()
	if snap["bursts_aborted"] != 1 || snap["send_failures"] != 5 || snap["frames_sent"] != 0 {
		t.Fatalf("unexpected metrics %v", snap)
	}

	recs, err := st.BurstList(ctx, 10)
	if err != nil {
		t.Fatalf("listing bursts: %v", err)
	}
	if len(recs) != 1 || !recs[0].Aborted || recs[0].AbortMarker != "A" || recs[0].Failures != 5 {
		t.Fatalf("unexpected burst record %+v", recs[0])
	}
}

func TestRoleSwitchRecordsReceiveSession(t *testing.T) {
	a, b := link.NewMemoryPair(0)
	sc := console.NewScript()
	st := newTestStore(t)
	n := New(testOptions(a, sc, st))
	ctx := context.Background()

	g := stream.NewGenerator(32, 32)
	b.SendNonblocking(g.Generate(0))
	b.SendNonblocking(g.Generate(1))
	n.Tick(ctx)
	n.Tick(ctx)

	sc.Push('T')
	n.Tick(ctx)

	sessions, err := st.ReceiveSessionList(ctx, 10)
	if err != nil {
		t.Fatalf("listing sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 receive session, got %d", len(sessions))
	}
	if sessions[0].Frames != 2 || sessions[0].Node != "n1" {
		t.Fatalf("unexpected session %+v", sessions[0])
	}
	if sessions[0].EndedAt.Before(sessions[0].StartedAt) {
		t.Fatalf("session ended before it started: %+v", sessions[0])
	}
}

func TestInterruptStopsRun(t *testing.T) {
	a, _ := link.NewMemoryPair(0)
	sc := console.NewScript(console.Interrupt)
	n := New(testOptions(a, sc, nil))

	done := make(chan error, 1)
	go func() { done <- n.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on interrupt")
	}
	if _, ok := findPrefix(sc.Lines(), "airwire node "); !ok {
		t.Fatalf("missing banner in %q", sc.Lines())
	}
}

func TestCancelStopsRun(t *testing.T) {
	a, _ := link.NewMemoryPair(0)
	sc := console.NewScript()
	opts := testOptions(a, sc, nil)
	opts.PollTimeout = 5 * time.Millisecond
	n := New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on cancel")
	}
}
