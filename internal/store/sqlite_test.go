package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBurstAddAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		rec := BurstRecord{
			Node:       "rig-a",
			LinkKind:   "memory",
			StartedAt:  base.Add(time.Duration(i) * time.Second),
			ElapsedUs:  int64(1000 + i),
			FramesSent: 32,
			Failures:   i,
		}
		if err := s.BurstAdd(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.BurstList(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	// Newest first.
	if recs[0].Failures != 2 || recs[1].Failures != 1 {
		t.Fatalf("expected newest-first ordering, got failures %d, %d", recs[0].Failures, recs[1].Failures)
	}
	if recs[0].ID == "" {
		t.Fatalf("expected an id to be assigned")
	}
	if recs[0].FramesSent != 32 || recs[0].Node != "rig-a" {
		t.Fatalf("record round trip mismatch: %+v", recs[0])
	}
}

func TestBurstAbortFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := BurstRecord{
		Node:        "rig-a",
		LinkKind:    "udp",
		StartedAt:   time.Now().UTC(),
		FramesSent:  10,
		Failures:    100,
		Aborted:     true,
		AbortMarker: "K",
	}
	if err := s.BurstAdd(ctx, rec); err != nil {
		t.Fatal(err)
	}
	recs, err := s.BurstList(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !recs[0].Aborted || recs[0].AbortMarker != "K" {
		t.Fatalf("expected aborted record with marker K, got %+v", recs[0])
	}
}

func TestReceiveSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Second)
	sess := ReceiveSession{
		Node:      "rig-b",
		LinkKind:  "memory",
		StartedAt: start,
		EndedAt:   start.Add(5 * time.Second),
		Frames:    64,
	}
	if err := s.ReceiveSessionAdd(ctx, sess); err != nil {
		t.Fatal(err)
	}

	sessions, err := s.ReceiveSessionList(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Frames != 64 || sessions[0].Node != "rig-b" {
		t.Fatalf("session round trip mismatch: %+v", sessions[0])
	}
	if sessions[0].ID == "" {
		t.Fatalf("expected an id to be assigned")
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	old := BurstRecord{Node: "n", LinkKind: "memory", StartedAt: now.Add(-48 * time.Hour)}
	fresh := BurstRecord{Node: "n", LinkKind: "memory", StartedAt: now}
	if err := s.BurstAdd(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := s.BurstAdd(ctx, fresh); err != nil {
		t.Fatal(err)
	}
	oldSess := ReceiveSession{Node: "n", LinkKind: "memory", StartedAt: now.Add(-48 * time.Hour), EndedAt: now.Add(-47 * time.Hour)}
	if err := s.ReceiveSessionAdd(ctx, oldSess); err != nil {
		t.Fatal(err)
	}

	pruned, err := s.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 2 {
		t.Fatalf("expected 2 pruned records, got %d", pruned)
	}

	recs, err := s.BurstList(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected the fresh record to survive, got %d records", len(recs))
	}
}
