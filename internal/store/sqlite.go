package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using an embedded SQLite database.
// It uses modernc.org/sqlite which is pure Go (no CGO).
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex // serializes writes (SQLite is single-writer)
	retention time.Duration
	closeCh   chan struct{}
}

// NewSQLiteStore opens or creates a SQLite database at path and runs schema
// migrations. Records older than retention are pruned in the background; a
// zero retention keeps everything.
func NewSQLiteStore(path string, retention time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Single connection for writes to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:        db,
		retention: retention,
		closeCh:   make(chan struct{}),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}

	if retention > 0 {
		go s.cleanupLoop()
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS bursts (
			id TEXT PRIMARY KEY,
			node TEXT NOT NULL,
			link_kind TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			elapsed_us INTEGER NOT NULL,
			frames_sent INTEGER NOT NULL,
			failures INTEGER NOT NULL,
			aborted INTEGER NOT NULL DEFAULT 0,
			abort_marker TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bursts_started ON bursts(started_at)`,
		`CREATE TABLE IF NOT EXISTS receive_sessions (
			id TEXT PRIMARY KEY,
			node TEXT NOT NULL,
			link_kind TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			frames INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_receive_sessions_started ON receive_sessions(started_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// cleanupLoop periodically prunes records past the retention window.
func (s *SQLiteStore) cleanupLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			s.Prune(context.Background(), time.Now().UTC().Add(-s.retention))
		}
	}
}

func (s *SQLiteStore) BurstAdd(_ context.Context, rec BurstRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO bursts (id, node, link_kind, started_at, elapsed_us, frames_sent, failures, aborted, abort_marker)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Node, rec.LinkKind, rec.StartedAt.UTC(), rec.ElapsedUs,
		rec.FramesSent, rec.Failures, rec.Aborted, rec.AbortMarker,
	)
	return err
}

func (s *SQLiteStore) BurstList(_ context.Context, limit int) ([]BurstRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, node, link_kind, started_at, elapsed_us, frames_sent, failures, aborted, abort_marker
		 FROM bursts ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []BurstRecord
	for rows.Next() {
		var r BurstRecord
		if err := rows.Scan(&r.ID, &r.Node, &r.LinkKind, &r.StartedAt, &r.ElapsedUs,
			&r.FramesSent, &r.Failures, &r.Aborted, &r.AbortMarker); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) ReceiveSessionAdd(_ context.Context, sess ReceiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO receive_sessions (id, node, link_kind, started_at, ended_at, frames)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Node, sess.LinkKind, sess.StartedAt.UTC(), sess.EndedAt.UTC(), sess.Frames,
	)
	return err
}

func (s *SQLiteStore) ReceiveSessionList(_ context.Context, limit int) ([]ReceiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, node, link_kind, started_at, ended_at, frames
		 FROM receive_sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []ReceiveSession
	for rows.Next() {
		var sess ReceiveSession
		if err := rows.Scan(&sess.ID, &sess.Node, &sess.LinkKind, &sess.StartedAt,
			&sess.EndedAt, &sess.Frames); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	res, err := s.db.Exec("DELETE FROM bursts WHERE started_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = s.db.Exec("DELETE FROM receive_sessions WHERE started_at < ?", cutoff.UTC())
	if err != nil {
		return total, err
	}
	n, _ = res.RowsAffected()
	return total + n, nil
}

// Close shuts down the cleanup goroutine and closes the database.
func (s *SQLiteStore) Close() error {
	close(s.closeCh)
	return s.db.Close()
}
