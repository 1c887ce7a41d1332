// Package config loads, normalizes, and validates fingergate configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// database connection (FINGERGATE_DATABASE_URL or the DB_* variables) and the
// API token. The Config type centralizes every knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
