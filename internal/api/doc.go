// Package api defines wire-format types, converters, and a client for the
// daemon HTTP API. It translates worker reports and store rows into
// transport-friendly DTOs so the CLI can render them without coupling to
// internal types.
//
// # Key Types
//
// AttemptReport: terminal outcome of one identification or enrollment.
//
// DaemonStatus: running state, session snapshot, storage health, and engine
// dependencies.
//
// RecordSummary/AccessEvent: enrollment listing and access log rows.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds in
// UTC. Templates never leave the daemon; record listings carry only the
// encoded size.
package api
