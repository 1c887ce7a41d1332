// Package store persists enrolled templates and the access log.
//
// Two drivers are supported: SQLite (the default, a single file under the
// data directory) and PostgreSQL for deployments that share one enrollment
// database between several gates. Schemas are applied from embedded
// migrations. Errors are wrapped with ErrConnect or ErrQuery so callers can
// classify failures with errors.Is.
package store
