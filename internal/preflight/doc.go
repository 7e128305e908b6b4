// Package preflight provides readiness checks for the worker launch target
// and the filesystem paths BioViz depends on.
//
// These checks run in two contexts:
//   - Session startup calls RunAll before spawning the worker, failing fast
//     instead of surfacing a confusing mid-command death.
//   - The CLI "bioviz status" command renders the same results as a table.
//
// Checks gated by config toggles are skipped when the feature is off.
package preflight
