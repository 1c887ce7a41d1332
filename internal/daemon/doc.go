// Package daemon coordinates the long-running fingergate process.
//
// It wires configuration, the enrollment store, and one worker session into a
// single lifecycle with flock-based locking to prevent multiple instances. The
// HTTP API and the optional continuous-identification poller run under one
// errgroup and share the session, so an API request made while the poller is
// mid-attempt is rejected with 409 rather than queued.
//
// Keep orchestration logic here: attempt semantics live in the worker package
// while the daemon focuses on startup, shutdown, and transport.
package daemon
