// Package preflight provides readiness checks for the filesystem paths,
// engine executables, and storage backend that fingergate depends on.
//
// The daemon runs RunAll at startup and logs every failing check without
// refusing to start, since the capture engine or database may come up later.
// The CLI "fingergate deps" command and the /api/status endpoint render the
// same results.
package preflight
