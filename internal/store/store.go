// Package store persists streaming history for the history command: one
// record per transmit burst and one per receive session. The default
// implementation uses SQLite (pure Go, no CGO).
package store

import (
	"context"
	"time"
)

// BurstRecord is one completed or aborted transmit burst.
type BurstRecord struct {
	ID          string    `json:"id" yaml:"id"`
	Node        string    `json:"node" yaml:"node"`
	LinkKind    string    `json:"link_kind" yaml:"link_kind"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	ElapsedUs   int64     `json:"elapsed_us" yaml:"elapsed_us"`
	FramesSent  int       `json:"frames_sent" yaml:"frames_sent"`
	Failures    int       `json:"failures" yaml:"failures"`
	Aborted     bool      `json:"aborted" yaml:"aborted"`
	AbortMarker string    `json:"abort_marker,omitempty" yaml:"abort_marker,omitempty"`
}

// ReceiveSession is one stretch spent in the receiver role.
type ReceiveSession struct {
	ID        string    `json:"id" yaml:"id"`
	Node      string    `json:"node" yaml:"node"`
	LinkKind  string    `json:"link_kind" yaml:"link_kind"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	EndedAt   time.Time `json:"ended_at" yaml:"ended_at"`
	Frames    int       `json:"frames" yaml:"frames"`
}

// Store records and reads back streaming history.
type Store interface {
	BurstAdd(ctx context.Context, rec BurstRecord) error
	BurstList(ctx context.Context, limit int) ([]BurstRecord, error)
	ReceiveSessionAdd(ctx context.Context, sess ReceiveSession) error
	ReceiveSessionList(ctx context.Context, limit int) ([]ReceiveSession, error)
	// Prune deletes records started before cutoff, returning how many went.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}
