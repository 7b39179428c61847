package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wifistatus/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v", d, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "postgres", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFileStoreAppend(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "state", "wifistatus.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := st.AppendHistory(ctx, HistoryEntry{At: at, Source: "wifi", Key: "HomeWiFi", Mapped: true, Profile: `{"status":"home"}`, Outcome: OutcomePublished}); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	if err := st.AppendHistory(ctx, HistoryEntry{Source: "wifi", Key: "Office", Profile: "null", Outcome: OutcomeFailed, Error: "invalid_auth"}); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.AppendHistory(ctx, HistoryEntry{}); err != ErrClosed {
		t.Fatalf("append after close = %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "state", "wifistatus.history.jsonl"))
	if err != nil {
		t.Fatalf("history file: %v", err)
	}
	defer f.Close()
	var got []HistoryEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e HistoryEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("entries = %d", len(got))
	}
	if !got[0].At.Equal(at) || got[0].Key != "HomeWiFi" || !got[0].Mapped {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].At.IsZero() || got[1].Error != "invalid_auth" || got[1].Outcome != OutcomeFailed {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestSQLiteStoreAppendAndPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifistatus.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second, MaxRows: 3}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	s := st.(*sqliteStore)
	s.pruneEvery = 1

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		e := HistoryEntry{Source: "location", Key: "Berlin", Mapped: true, Profile: `{"status_text":"in Berlin"}`, Outcome: OutcomePublished, TookMS: int64(i)}
		if err := st.AppendHistory(ctx, e); err != nil {
			t.Fatalf("AppendHistory %d: %v", i, err)
		}
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("rows = %d, want 3", n)
	}
	var minTook int64
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(took_ms) FROM history`).Scan(&minTook); err != nil {
		t.Fatalf("min: %v", err)
	}
	if minTook != 2 {
		t.Fatalf("oldest kept took_ms = %d, want 2", minTook)
	}
}

func TestSQLiteMigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifistatus.db")
	for i := 0; i < 2; i++ {
		st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		if err := st.AppendHistory(context.Background(), HistoryEntry{Source: "hidden", Profile: "{}", Outcome: OutcomePublished}); err != nil {
			t.Fatalf("AppendHistory #%d: %v", i, err)
		}
		_ = st.Close()
	}
}
