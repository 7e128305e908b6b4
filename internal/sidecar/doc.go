// Package sidecar launches and supervises the external analysis worker
// process. It exposes the worker's stdio as an event stream, owns process
// group teardown, and forwards provider credentials into the worker's
// environment.
package sidecar
