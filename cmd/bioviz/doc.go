// Package main hosts the BioViz CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into worker
// sessions: one-shot command execution, liveness probes, preflight and
// configuration reporting, journal inspection, and the interactive console.
// It centralizes configuration resolution and logger construction so the
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: put new behavior in the internal packages first,
// then surface it here as a dedicated command or flag.
package main
