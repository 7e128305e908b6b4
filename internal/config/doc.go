// Package config loads, normalizes, and validates BioViz configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// DEEPSEEK_API_KEY or BIOVIZ_USE_SOURCE. The Config type centralizes every
// knob the CLI and engine client need, so worker locations, per-command
// timeouts, and provider credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
