// Package history persists a journal of completed worker commands in SQLite.
// Each awaited command produces one entry recording its outcome and latency.
package history
