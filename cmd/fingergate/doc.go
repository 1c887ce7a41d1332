// Package main hosts the fingergate CLI entrypoint and command graph.
//
// Attempts, record maintenance, and the access log run against the local store
// and sensor by default; --remote routes them through the daemon HTTP API
// instead. Configuration resolution and logger setup live in commandContext so
// subcommands only render results.
package main
