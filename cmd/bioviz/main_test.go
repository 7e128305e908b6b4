package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRootRegistersSubcommands(t *testing.T) {
	cmd := newRootCommand()

	registered := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		registered[sub.Name()] = true
	}

	for _, want := range []string{"exec", "analyze", "heartbeat", "status", "history", "console", "config"} {
		if !registered[want] {
			t.Fatalf("subcommand %q not registered (have %v)", want, registered)
		}
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantNil bool
		wantErr bool
	}{
		{name: "empty", raw: "", wantNil: true},
		{name: "whitespace only", raw: "   \t", wantNil: true},
		{name: "object", raw: `{"file_path":"x.csv"}`},
		{name: "array", raw: `[1,2,3]`},
		{name: "bare string", raw: `"hello"`},
		{name: "malformed", raw: `{"file_path":`, wantErr: true},
		{name: "not json", raw: `file.csv`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := parsePayload(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parsePayload(%q) succeeded, want error", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePayload(%q): %v", tc.raw, err)
			}
			if tc.wantNil && payload != nil {
				t.Fatalf("parsePayload(%q) = %v, want nil", tc.raw, payload)
			}
			if !tc.wantNil && payload == nil {
				t.Fatalf("parsePayload(%q) returned nil payload", tc.raw)
			}
		})
	}
}

func TestDisplayCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LOAD_PATHWAY", "Load Pathway"},
		{"ANALYZE", "Analyze"},
		{"chat", "Chat"},
		{"  DOWNLOAD_PATHWAY ", "Download Pathway"},
		{"", "(unknown)"},
		{"___", "(unknown)"},
	}
	for _, tc := range tests {
		if got := displayCommand(tc.in); got != tc.want {
			t.Errorf("displayCommand(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{2345 * time.Microsecond, "2ms"},
		{3 * time.Minute, "3m0s"},
		{0, "0s"},
	}
	for _, tc := range tests {
		if got := formatElapsed(tc.in); got != tc.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestShortRequestID(t *testing.T) {
	if got := shortRequestID(""); got != "-" {
		t.Fatalf("empty id = %q, want -", got)
	}
	if got := shortRequestID("abc"); got != "abc" {
		t.Fatalf("short id = %q, want abc", got)
	}
	if got := shortRequestID("0a1b2c3d-4e5f-6789-abcd-ef0123456789"); got != "0a1b2c3d" {
		t.Fatalf("uuid prefix = %q, want 0a1b2c3d", got)
	}
}

func TestOrUnknown(t *testing.T) {
	if got := orUnknown("  "); got != "unknown" {
		t.Fatalf("blank = %q", got)
	}
	if got := orUnknown("1.4.2"); got != "1.4.2" {
		t.Fatalf("value = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	if got := renderTable(nil, nil); got != "" {
		t.Fatalf("empty headers rendered %q", got)
	}

	out := renderTable(
		[]string{"ID", "Command", "Outcome"},
		[][]string{
			{"1", "Analyze", "ok"},
			{"2", "Chat"}, // short row padded
		},
		0,
	)
	for _, cell := range []string{"ID", "Command", "Outcome", "Analyze", "Chat", "ok"} {
		if !strings.Contains(out, cell) {
			t.Fatalf("table missing %q:\n%s", cell, out)
		}
	}
	if lines := strings.Split(out, "\n"); len(lines) < 5 {
		t.Fatalf("table unexpectedly short:\n%s", out)
	}
}

func TestRenderStatusLine(t *testing.T) {
	plain := renderStatusLine("Worker binary", statusOK, "bio-engine 1.4.0", false)
	if !strings.Contains(plain, "Worker binary:") || !strings.Contains(plain, "[OK] bio-engine 1.4.0") {
		t.Fatalf("plain line = %q", plain)
	}
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("plain line carries ANSI codes: %q", plain)
	}

	colored := renderStatusLine("Worker binary", statusError, "missing", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("colored line = %q", colored)
	}

	bare := renderStatusLine("Heartbeat", statusInfo, "", false)
	if !strings.Contains(bare, "[INFO]") || strings.Contains(bare, "[INFO] ") {
		t.Fatalf("empty-message line = %q", bare)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Preflight", false)
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "== Preflight ==" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d != header length %d", len(lines[1]), len(lines[0]))
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers must not be colorized")
	}
}
