package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Envelope statuses emitted by the worker. The set is open: a worker may emit
// values this list does not cover, and those pass through to observers
// without affecting request resolution.
const (
	// StatusOK marks a successful terminal reply.
	StatusOK = "ok"
	// StatusError marks a failed terminal reply.
	StatusError = "error"
	// StatusReady announces that the worker finished initializing.
	StatusReady = "ready"
	// StatusAlive answers a heartbeat probe.
	StatusAlive = "alive"
)

// Request is a single outbound command line.
type Request struct {
	Cmd       string `json:"cmd"`
	Payload   any    `json:"payload,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// EncodeRequest serializes req as one newline-terminated JSON document ready
// to be written to the worker's stdin.
func EncodeRequest(req Request) ([]byte, error) {
	if strings.TrimSpace(req.Cmd) == "" {
		return nil, errors.New("encode request: empty command name")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request %s: %w", req.Cmd, err)
	}
	return append(data, '\n'), nil
}

// Response is one decoded inbound envelope. Only the correlation header is
// modeled as fields; the full document is retained in Raw so callers can
// decode command-specific payloads themselves.
type Response struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	Cmd       string `json:"cmd,omitempty"`
	Message   string `json:"message,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseResponse decodes a single framed line into a Response. An error here
// condemns only this line; the caller is expected to log it and keep reading.
func ParseResponse(line []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if resp.Status == "" {
		return nil, errors.New("parse envelope: missing status field")
	}
	resp.Raw = append(json.RawMessage(nil), line...)
	return &resp, nil
}

// Terminal reports whether the envelope concludes a pending request. Only ok
// and error do; ready, alive, and unknown statuses leave the request open.
func (r *Response) Terminal() bool {
	return r.Status == StatusOK || r.Status == StatusError
}

// DecodePayload unmarshals the complete envelope into v, giving callers
// access to command-specific fields the header does not model.
func (r *Response) DecodePayload(v any) error {
	if len(r.Raw) == 0 {
		return errors.New("decode payload: envelope has no raw document")
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// ErrorMessage returns the worker-supplied failure detail, falling back to a
// generic description when the worker omitted one.
func (r *Response) ErrorMessage() string {
	if msg := strings.TrimSpace(r.Message); msg != "" {
		return msg
	}
	return "worker reported an unspecified error"
}
