package engine

import "context"

// EventKind identifies what a Transport delivered.
type EventKind int

const (
	// EventStdout carries a raw chunk of worker stdout in Data. Chunks may
	// split or join JSON lines arbitrarily; the client reassembles them.
	EventStdout EventKind = iota
	// EventStderr carries a raw chunk of worker stderr in Data.
	EventStderr
	// EventExit announces worker termination; Reason describes the cause.
	EventExit
)

// Event is one unit of worker output or the terminal exit notice.
type Event struct {
	Kind   EventKind
	Data   []byte
	Reason string
}

// Transport moves bytes to and from the worker process.
//
// Implementations must close the Events channel once the worker is gone,
// after delivering a final EventExit. Send may be called from multiple
// goroutines; the client serializes writes, but implementations should not
// assume only one caller.
type Transport interface {
	// Send writes one encoded request line to the worker's stdin.
	Send(ctx context.Context, line []byte) error
	// Events streams stdout/stderr chunks and the final exit event.
	Events() <-chan Event
	// Alive reports whether the worker process is still running.
	Alive() bool
	// Close tears the worker down and releases resources.
	Close() error
}
