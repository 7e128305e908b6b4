package session_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"bioviz/internal/config"
	"bioviz/internal/engine"
	"bioviz/internal/history"
	"bioviz/internal/logging"
	"bioviz/internal/protocol"
	"bioviz/internal/session"
	"bioviz/internal/testsupport"
)

// Scripted stand-ins for the analysis worker. Each announces readiness and
// then implements one reply strategy; request ids are clawed out of the
// inbound line with parameter expansion so the scripts stay plain sh.
const (
	echoWorker = `
printf '%s\n' '{"status":"ready","message":"BioViz Engine initialized","version":"1.4.2"}'
while read -r line; do
  rid=${line##*'"request_id":"'}
  rid=${rid%%'"'*}
  printf '{"status":"ok","request_id":"%s"}\n' "$rid"
done
`
	errorWorker = `
printf '%s\n' '{"status":"ready","message":"BioViz Engine initialized","version":"1.4.2"}'
while read -r line; do
  rid=${line##*'"request_id":"'}
  rid=${rid%%'"'*}
  printf '{"status":"error","request_id":"%s","message":"unknown gene symbol"}\n' "$rid"
done
`
	silentWorker = `
printf '%s\n' '{"status":"ready","message":"BioViz Engine initialized","version":"1.4.2"}'
exec cat >/dev/null
`
	legacyWorker = `
printf '%s\n' '{"status":"ready","message":"BioViz Engine initialized","version":"0.9.0"}'
while read -r line; do :; done
`
	neverReadyWorker = `exec sleep 60`
)

func testConfig(t *testing.T, script string) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, testsupport.WithWorkerScript(script))
}

func startSession(t *testing.T, cfg *config.Config, opts ...session.Option) *session.Session {
	t.Helper()
	s, err := session.Start(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func listEntries(t *testing.T, s *session.Session) []*history.Entry {
	t.Helper()
	entries, err := s.History().List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return entries
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartCallAndJournal(t *testing.T) {
	cfg := testConfig(t, echoWorker)
	s := startSession(t, cfg)

	if s.LockPath() == "" {
		t.Fatal("LockPath is empty")
	}
	if _, err := os.Stat(s.LockPath()); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	resp, err := s.Call(context.Background(), "load", map[string]any{"genes": []string{"TP53"}})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Status != protocol.StatusOK {
		t.Fatalf("Status = %q, want %q", resp.Status, protocol.StatusOK)
	}
	if resp.RequestID == "" {
		t.Fatal("reply carries no request id")
	}

	entries := listEntries(t, s)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Command != "LOAD" {
		t.Errorf("Command = %q, want LOAD", entry.Command)
	}
	if entry.Status != history.OutcomeOK {
		t.Errorf("Status = %q, want %q", entry.Status, history.OutcomeOK)
	}
	if entry.RequestID != resp.RequestID {
		t.Errorf("RequestID = %q, want %q", entry.RequestID, resp.RequestID)
	}
	if entry.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty", entry.ErrorMessage)
	}
}

func TestWorkerErrorJournaled(t *testing.T) {
	cfg := testConfig(t, errorWorker)
	s := startSession(t, cfg)

	_, err := s.Call(context.Background(), "ANALYZE", map[string]any{"method": "ora"})
	var workerErr *engine.WorkerError
	if !errors.As(err, &workerErr) {
		t.Fatalf("Call error = %v, want *engine.WorkerError", err)
	}
	if workerErr.Message != "unknown gene symbol" {
		t.Fatalf("Message = %q, want %q", workerErr.Message, "unknown gene symbol")
	}

	entries := listEntries(t, s)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Status != history.OutcomeError {
		t.Errorf("Status = %q, want %q", entry.Status, history.OutcomeError)
	}
	if !strings.Contains(entry.ErrorMessage, "unknown gene symbol") {
		t.Errorf("ErrorMessage = %q, want the worker detail", entry.ErrorMessage)
	}
	if entry.RequestID == "" {
		t.Error("entry lost the request id")
	}
}

func TestCallTimeoutJournaled(t *testing.T) {
	cfg := testConfig(t, silentWorker)
	s := startSession(t, cfg, session.WithTimeoutPolicy(engine.StaticTimeout(50*time.Millisecond)))

	_, err := s.Call(context.Background(), "SEARCH_PATHWAY", map[string]any{"query": "apoptosis"})
	if !errors.Is(err, engine.ErrTimeout) {
		t.Fatalf("Call error = %v, want timeout", err)
	}

	entries := listEntries(t, s)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Status != history.OutcomeTimeout {
		t.Errorf("Status = %q, want %q", entry.Status, history.OutcomeTimeout)
	}
	if entry.RequestID == "" {
		t.Error("entry lost the request id")
	}
	if !strings.Contains(entry.ErrorMessage, "timed out") {
		t.Errorf("ErrorMessage = %q, want a timeout description", entry.ErrorMessage)
	}
}

func TestSecondSessionBlocked(t *testing.T) {
	cfg := testConfig(t, echoWorker)
	first := startSession(t, cfg)

	_, err := session.Start(context.Background(), cfg)
	if !errors.Is(err, session.ErrSessionActive) {
		t.Fatalf("second Start error = %v, want ErrSessionActive", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := session.Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Start after Close: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("Close second: %v", err)
	}
}

func TestStartFailsWhenWorkerNeverReady(t *testing.T) {
	cfg := testConfig(t, neverReadyWorker)
	cfg.Engine.StartupTimeout = 1

	_, err := session.Start(context.Background(), cfg)
	if err == nil {
		t.Fatal("Start succeeded against a worker that never announced ready")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start error = %v, want deadline exceeded", err)
	}

	// The failed attempt must have released the lock and stopped the worker.
	cfg.Engine.Args = []string{"-c", echoWorker}
	cfg.Engine.StartupTimeout = 10
	s, err := session.Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Start after failed startup: %v", err)
	}
	_ = s.Close()
}

func TestNotifyBypassesJournal(t *testing.T) {
	cfg := testConfig(t, echoWorker)
	s := startSession(t, cfg)

	if err := s.Notify(context.Background(), "chat_reject", nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := s.Heartbeat(context.Background()); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	if entries := listEntries(t, s); len(entries) != 0 {
		t.Fatalf("len(entries) = %d, want 0", len(entries))
	}
}

func TestHistoryDisabled(t *testing.T) {
	cfg := testConfig(t, echoWorker)
	cfg.History.Enabled = false
	s := startSession(t, cfg)

	if s.History() != nil {
		t.Fatal("journal open despite history.enabled = false")
	}

	resp, err := s.Call(context.Background(), "LOAD_PATHWAY", map[string]any{"pathway_id": "hsa04110"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Status != protocol.StatusOK {
		t.Fatalf("Status = %q, want %q", resp.Status, protocol.StatusOK)
	}

	if _, err := os.Stat(cfg.HistoryPath()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("history database exists at %s despite being disabled", cfg.HistoryPath())
	}
}

func TestLegacyWorkerVersionWarns(t *testing.T) {
	cfg := testConfig(t, legacyWorker)
	cfg.Engine.MinProtocolVersion = "1.0.0"

	var buf syncBuffer
	logger, err := logging.New(logging.Options{Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	s := startSession(t, cfg, session.WithLogger(logger))
	if !strings.Contains(buf.String(), "sole-pending matching in effect") {
		t.Fatalf("log output missing legacy worker warning:\n%s", buf.String())
	}
	_ = s.Close()
}

func TestEnvelopeObserverSeesReadyAndReplies(t *testing.T) {
	cfg := testConfig(t, echoWorker)

	var mu sync.Mutex
	var statuses []string
	observer := func(resp *protocol.Response) {
		mu.Lock()
		statuses = append(statuses, resp.Status)
		mu.Unlock()
	}

	s := startSession(t, cfg, session.WithEnvelopeObserver(observer))
	if _, err := s.Call(context.Background(), "COLOR_PATHWAY", nil); err != nil {
		t.Fatalf("Call: %v", err)
	}

	mu.Lock()
	joined := strings.Join(statuses, ",")
	mu.Unlock()
	if !strings.Contains(joined, protocol.StatusReady) {
		t.Errorf("observer missed the ready envelope: %s", joined)
	}
	if !strings.Contains(joined, protocol.StatusOK) {
		t.Errorf("observer missed the terminal reply: %s", joined)
	}
}

func TestCloseRejectsFurtherCalls(t *testing.T) {
	cfg := testConfig(t, echoWorker)
	s := startSession(t, cfg)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := s.Call(context.Background(), "LOAD", nil)
	if !errors.Is(err, engine.ErrClientClosed) {
		t.Fatalf("Call after Close = %v, want ErrClientClosed", err)
	}

	// Closing again is a no-op.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
