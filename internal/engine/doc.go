// Package engine mediates access to the vendor capture and comparator
// executables.
//
// Capture runs the sensor engine under a bounded timeout and hands back its raw
// stdout for template extraction. Compare runs the one-to-one comparator with
// the probe and candidate encodings as positional arguments and returns its raw
// score text. Both go through an Executor so tests never spawn processes.
//
// Prefer this package over ad-hoc exec.Command usage so timeout handling and
// process error classification stay consistent.
package engine
