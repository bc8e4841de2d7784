// Package config loads, normalizes, and validates docflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DOCFLOW_POSTGRES_DSN. The Config type centralizes every knob the daemon,
// background workers, and CLI need so the state directory, store driver, and
// worker cadence are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
