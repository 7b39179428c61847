// Package storage keeps an append-only history of publish attempts.
//
// The history is an audit trail. Nothing reads it back at startup: the
// last-published status always starts empty.
package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file at <path without ext>.history.jsonl
//   - "sqlite": SQLite database file (modernc.org/sqlite)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	MaxRows     int           // sqlite only; 0 means DefaultMaxRows, <0 unlimited
}

const DefaultMaxRows = 10000

const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
)

// HistoryEntry records one publish attempt. Skipped (unchanged) cycles are
// not recorded.
type HistoryEntry struct {
	At      time.Time `json:"at"`
	Source  string    `json:"source"` // wifi, location, hidden
	Key     string    `json:"key,omitempty"`
	Mapped  bool      `json:"mapped"`
	Profile string    `json:"profile"` // canonical JSON
	Outcome string    `json:"outcome"`
	Error   string    `json:"error,omitempty"`
	TookMS  int64     `json:"took_ms"`
}
