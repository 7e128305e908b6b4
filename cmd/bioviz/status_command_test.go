package main

import (
	"testing"

	"bioviz/internal/history"
	"bioviz/internal/testsupport"
)

func TestStatusRendersSectionsWithoutWorker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Engine.Binary = "definitely-not-installed"
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"status"}, path)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Configuration ==")
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "== History ==")
	requireContains(t, out, "one or more checks failed")
	requireContains(t, out, "no commands recorded yet")
}

func TestStatusSummarizesJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedWorker())
	store := testsupport.MustOpenHistory(t, cfg)
	testsupport.RecordOutcome(t, store, "r-1", "ANALYZE", history.OutcomeOK)
	testsupport.RecordOutcome(t, store, "r-2", "CHAT", history.OutcomeOK)
	testsupport.RecordOutcome(t, store, "r-3", "LOAD", history.OutcomeError)
	if err := store.Close(); err != nil {
		t.Fatalf("close seeded store: %v", err)
	}
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"status"}, path)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Outcome")
	requireContains(t, out, "ok")
	requireContains(t, out, "error")
}

func TestBuildOutcomeRows(t *testing.T) {
	rows := buildOutcomeRows(map[string]int{
		history.OutcomeError:   1,
		history.OutcomeOK:      4,
		"weird":                2,
		history.OutcomeTimeout: 0,
	})

	if len(rows) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0][0] != history.OutcomeOK || rows[1][0] != history.OutcomeError {
		t.Fatalf("common outcomes not ordered first: %v", rows)
	}
	if rows[2][0] != "weird" || rows[2][1] != "2" {
		t.Fatalf("unexpected outcome not appended: %v", rows)
	}
}
