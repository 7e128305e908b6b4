package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClientClosed is returned for operations on a closed client.
	ErrClientClosed = errors.New("engine: client closed")
	// ErrWorkerTerminated marks requests failed because the worker exited.
	ErrWorkerTerminated = errors.New("engine: worker terminated")
	// ErrTimeout marks requests that stayed unanswered past their deadline.
	ErrTimeout = errors.New("engine: command timed out")
	// ErrDuplicateRequestID is returned when a request id is already in flight.
	ErrDuplicateRequestID = errors.New("engine: duplicate request id")
)

// WorkerError is a terminal error reply from the worker.
type WorkerError struct {
	Cmd       string
	RequestID string
	Message   string
}

func (e *WorkerError) Error() string {
	if e.Cmd != "" {
		return fmt.Sprintf("worker rejected %s: %s", e.Cmd, e.Message)
	}
	return fmt.Sprintf("worker error: %s", e.Message)
}

// TimeoutError reports a request whose reply never arrived in time.
type TimeoutError struct {
	Cmd       string
	RequestID string
	// Timeout is the deadline the command was given.
	Timeout time.Duration
	// Elapsed is how long the request actually waited before giving up.
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %s timed out after %s", e.Cmd, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// TerminatedError reports a request failed by worker exit.
type TerminatedError struct {
	Cmd       string
	RequestID string
	Reason    string
}

func (e *TerminatedError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unknown cause"
	}
	if e.Cmd != "" {
		return fmt.Sprintf("command %s failed: worker terminated (%s)", e.Cmd, reason)
	}
	return fmt.Sprintf("worker terminated (%s)", reason)
}

func (e *TerminatedError) Is(target error) bool { return target == ErrWorkerTerminated }
