package main

import (
	"strconv"
	"strings"
	"testing"

	"bioviz/internal/history"
	"bioviz/internal/testsupport"
)

func TestHistoryListShowClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	first := testsupport.RecordOutcome(t, store, "0a1b2c3d-4e5f-6789-abcd-ef0123456789", "ANALYZE", history.OutcomeOK)
	testsupport.RecordOutcome(t, store, "", "LOAD_PATHWAY", history.OutcomeTimeout)
	if err := store.Close(); err != nil {
		t.Fatalf("close seeded store: %v", err)
	}
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"history", "list"}, path)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "Analyze")
	requireContains(t, out, "Load Pathway")
	requireContains(t, out, "timeout")
	requireContains(t, out, "0a1b2c3d")
	if strings.Index(out, "Load Pathway") > strings.Index(out, "Analyze") {
		t.Fatalf("entries not newest first:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"history", "show", strconv.FormatInt(first.ID, 10)}, path)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, `"command": "ANALYZE"`)
	requireContains(t, out, `"outcome": "ok"`)
	requireContains(t, out, `"request_id": "0a1b2c3d-4e5f-6789-abcd-ef0123456789"`)

	if _, _, err := runCLI(t, []string{"history", "show", "9999"}, path); err == nil {
		t.Fatal("history show accepted a missing id")
	}

	out, _, err = runCLI(t, []string{"history", "clear"}, path)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Cleared 2 history entries")

	out, _, err = runCLI(t, []string{"history", "list"}, path)
	if err != nil {
		t.Fatalf("history list after clear: %v", err)
	}
	requireContains(t, out, "Journal is empty")
}

func TestHistoryCommandsRefuseWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled())
	path := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, []string{"history", "list"}, path)
	if err == nil {
		t.Fatal("history list succeeded with the journal disabled")
	}
	requireContains(t, err.Error(), "history is disabled")
}
