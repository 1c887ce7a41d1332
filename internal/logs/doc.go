// Package logs reads the daemon log file for the CLI: the last N lines, then
// optionally every line appended afterwards. Lines can be narrowed to one
// attempt id so a single access decision can be traced end to end.
package logs
