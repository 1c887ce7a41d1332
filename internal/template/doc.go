// Package template validates and extracts biometric templates from capture
// engine output.
//
// A template travels through the system in its base64 text form: the capture
// engine prints it, the comparator consumes it as an argument, and the store
// persists it. Extract locates the template line inside engine output that is
// otherwise full of diagnostic chatter. Deduplicator suppresses identical
// probes across polling cycles so a resting finger does not re-trigger a full
// search.
package template
