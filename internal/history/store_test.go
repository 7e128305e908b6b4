package history_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"bioviz/internal/history"
)

func openStore(t *testing.T, opts ...history.Option) *history.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path, opts...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	entry, err := store.Record(ctx, history.Entry{
		RequestID: "req-abc",
		Command:   "ANALYZE",
		Status:    history.OutcomeOK,
		Elapsed:   1420 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if entry.ID == 0 {
		t.Fatal("expected entry ID to be assigned")
	}
	if entry.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be filled")
	}

	fetched, err := store.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected entry to exist")
	}
	if fetched.Command != "ANALYZE" || fetched.Status != history.OutcomeOK {
		t.Fatalf("unexpected entry: %#v", fetched)
	}
	if fetched.Elapsed != 1420*time.Millisecond {
		t.Fatalf("elapsed = %v, want 1.42s", fetched.Elapsed)
	}
	if fetched.RequestID != "req-abc" {
		t.Fatalf("request id = %q", fetched.RequestID)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := openStore(t)
	entry, err := store.Get(context.Background(), 12345)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil for missing entry, got %#v", entry)
	}
}

func TestRecordRequiresCommandAndStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.Record(ctx, history.Entry{Status: history.OutcomeOK}); err == nil {
		t.Fatal("expected error for missing command")
	}
	if _, err := store.Record(ctx, history.Entry{Command: "LOAD"}); err == nil {
		t.Fatal("expected error for missing status")
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Record(ctx, history.Entry{
			Command: fmt.Sprintf("CMD_%d", i),
			Status:  history.OutcomeOK,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := store.List(ctx, 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Command != "CMD_4" || entries[2].Command != "CMD_2" {
		t.Fatalf("unexpected ordering: %s, %s", entries[0].Command, entries[2].Command)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(all))
	}
}

func TestMaxEntriesPrunesOldest(t *testing.T) {
	store := openStore(t, history.WithMaxEntries(3))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.Record(ctx, history.Entry{
			Command: fmt.Sprintf("CMD_%d", i),
			Status:  history.OutcomeOK,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected pruned journal of 3, got %d", len(entries))
	}
	if entries[0].Command != "CMD_5" || entries[2].Command != "CMD_3" {
		t.Fatalf("pruning kept wrong rows: %s..%s", entries[0].Command, entries[2].Command)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := store.Record(ctx, history.Entry{Command: "LOAD", Status: history.OutcomeError, ErrorMessage: "boom"}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 4 {
		t.Fatalf("expected 4 removed, got %d", removed)
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty journal, got %d entries", len(entries))
	}
}

func TestStatsGroupsByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	seed := []string{
		history.OutcomeOK, history.OutcomeOK, history.OutcomeOK,
		history.OutcomeError,
		history.OutcomeTimeout, history.OutcomeTimeout,
	}
	for _, status := range seed {
		if _, err := store.Record(ctx, history.Entry{Command: "ANALYZE", Status: status}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[history.OutcomeOK] != 3 || stats[history.OutcomeError] != 1 || stats[history.OutcomeTimeout] != 2 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.Record(ctx, history.Entry{Command: "LOAD_PATHWAY", Status: history.OutcomeOK}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Command != "LOAD_PATHWAY" {
		t.Fatalf("unexpected entries after reopen: %#v", entries)
	}
}
