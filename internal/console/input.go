package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bioviz/internal/protocol"
)

const wireClip = 160

var commandNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// parseInput splits a typed line into an upper-cased command name and an
// optional JSON payload: `load {"genes":["TP53"]}` or a bare `HEARTBEAT`.
func parseInput(raw string) (string, any, error) {
	raw = strings.TrimSpace(raw)
	name, rest, _ := strings.Cut(raw, " ")
	if name == "" {
		return "", nil, errors.New("empty command")
	}
	if !commandNamePattern.MatchString(name) {
		return "", nil, fmt.Errorf("%q is not a command name", name)
	}
	name = strings.ToUpper(name)

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return name, nil, nil
	}
	var payload any
	if err := json.Unmarshal([]byte(rest), &payload); err != nil {
		return "", nil, fmt.Errorf("payload is not valid JSON: %v", err)
	}
	return name, payload, nil
}

// formatSent renders the transcript line for an outbound command.
func formatSent(cmd string, payload any, await bool) string {
	var b strings.Builder
	b.WriteString("-> ")
	b.WriteString(cmd)
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			b.WriteByte(' ')
			b.WriteString(clipLine(string(data), wireClip))
		}
	}
	if !await {
		b.WriteString(" (no-wait)")
	}
	return b.String()
}

// formatWire renders one decoded envelope exactly as the worker sent it.
func formatWire(resp *protocol.Response) string {
	var b strings.Builder
	b.WriteString("<- ")
	b.WriteString(resp.Status)
	if resp.RequestID != "" {
		b.WriteString(" id=")
		b.WriteString(shortID(resp.RequestID))
	}
	if len(resp.Raw) > 0 {
		b.WriteByte(' ')
		b.WriteString(clipLine(string(resp.Raw), wireClip))
	}
	return b.String()
}

// formatOutcome renders the correlated result of an awaited command.
func formatOutcome(cmd string, resp *protocol.Response, err error, elapsed time.Duration) string {
	if err != nil {
		return fmt.Sprintf("x  %s failed after %s: %s", cmd, roundElapsed(elapsed), clipLine(err.Error(), wireClip))
	}
	status := protocol.StatusOK
	if resp != nil {
		status = resp.Status
	}
	return fmt.Sprintf("ok %s %s in %s", cmd, status, roundElapsed(elapsed))
}

func roundElapsed(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(100 * time.Microsecond)
	default:
		return d.Round(time.Microsecond)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clipLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
