// Package engine owns the conversation with the analysis worker process:
// dispatching commands over its stdin, correlating line-delimited JSON
// replies from its stdout, and supervising liveness.
//
// Client is the entry point. Each Call tags its request with a fresh request
// id, registers the id in an internal registry, and blocks until the matching
// terminal reply, a per-command timeout, caller cancellation, or worker death
// resolves it. Whichever outcome removes the registry entry first wins; the
// losers find nothing and stand down, so a request resolves exactly once.
// Notify covers fire-and-forget traffic such as heartbeats whose replies are
// non-terminal and must never occupy the registry.
//
// The worker side of the wire is abstracted behind Transport so tests can
// drive the client with scripted byte streams; package sidecar provides the
// real subprocess-backed implementation.
package engine
