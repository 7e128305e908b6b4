// Package console is the interactive worker console behind `bioviz console`.
// It shows a live transcript of the wire protocol (every envelope the worker
// emits, terminal or not) next to the correlated outcome of each dispatched
// command, which makes uncorrelatable replies and stray envelopes visible at
// a glance.
package console
