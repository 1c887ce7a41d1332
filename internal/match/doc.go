// Package match implements 1:N identification: a probe template is compared
// against enrolled candidates one at a time, in repository order, and the
// first candidate scoring above Threshold wins.
//
// Comparator output that does not parse as an integer skips the candidate
// rather than failing the attempt. A candidate listing failure yields an
// Error(storage-unreachable) outcome before any comparison runs.
package match
