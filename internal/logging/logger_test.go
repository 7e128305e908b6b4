package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bioviz/internal/logging"
)

func TestNewConsoleFormatsPrefixAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	scoped := logging.NewComponentLogger(logger, "engine")
	scoped.Info("command dispatched",
		logging.Command("ANALYZE"),
		logging.RequestID("req-42"),
	)

	line := buf.String()
	if !strings.Contains(line, " INFO engine: command dispatched") {
		t.Fatalf("console line missing component prefix: %q", line)
	}
	if !strings.Contains(line, "cmd=ANALYZE") {
		t.Fatalf("console line missing cmd field: %q", line)
	}
	if !strings.Contains(line, "request_id=req-42") {
		t.Fatalf("console line missing request_id field: %q", line)
	}
}

func TestNewConsoleQuotesAwkwardValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Warn("worker stderr", logging.String("line", "Traceback (most recent call last)"))

	if !strings.Contains(buf.String(), `line="Traceback (most recent call last)"`) {
		t.Fatalf("value with spaces not quoted: %q", buf.String())
	}
}

func TestNewConsoleOmitsCallerAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("message without caller")

	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", buf.String())
	}
}

func TestNewConsoleIncludesCallerAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("message with caller")

	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information at debug level, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("New accepted unsupported format")
	}
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "loud", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record emitted at default level: %q", buf.String())
	}
	logger.Info("visible")
	if buf.Len() == 0 {
		t.Fatal("info record suppressed at default level")
	}
}

func TestNewFileSinkWritesJSON(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "bioviz.log")

	logger, err := logging.New(logging.Options{Console: &console, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("engine ready", logging.WorkerPID(4242))

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("file sink is not JSON: %v (%q)", err, content)
	}
	if record["msg"] != "engine ready" {
		t.Fatalf("msg = %v, want engine ready", record["msg"])
	}
	if record["worker_pid"] != float64(4242) {
		t.Fatalf("worker_pid = %v, want 4242", record["worker_pid"])
	}
	if console.Len() == 0 {
		t.Fatal("console sink received nothing")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = logging.WithCommandContext(ctx, "LOAD_PATHWAY")
	ctx = logging.WithRequestIDContext(ctx, "req-xyz")

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logging.WithContext(ctx, logger).Info("contextual log")

	line := buf.String()
	if !strings.Contains(line, "cmd=LOAD_PATHWAY") {
		t.Fatalf("context cmd missing: %q", line)
	}
	if !strings.Contains(line, "request_id=req-xyz") {
		t.Fatalf("context request_id missing: %q", line)
	}
}

func TestWithContextNilLoggerIsSafe(t *testing.T) {
	logger := logging.WithContext(context.Background(), nil)
	logger.Info("must not panic")
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("discarded", logging.Error(os.ErrNotExist))
}
