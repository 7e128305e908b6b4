package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bioviz/internal/config"
	"bioviz/internal/history"
)

// MustOpenHistory opens the configured command journal for tests and
// registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	path := cfg.HistoryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir journal dir: %v", err)
	}
	store, err := history.Open(path, history.WithMaxEntries(cfg.History.MaxEntries))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordOutcome inserts one journal entry for tests using the provided store.
func RecordOutcome(t testing.TB, store *history.Store, requestID, command, status string) *history.Entry {
	t.Helper()

	entry, err := store.Record(context.Background(), history.Entry{
		RequestID: requestID,
		Command:   command,
		Status:    status,
		Elapsed:   125 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	return entry
}
