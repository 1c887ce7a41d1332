// Package worker runs identification and enrollment attempts.
//
// A Session owns the attempt state machine and admits one attempt at a time;
// a request made while an attempt is in flight fails with ErrBusy. Each
// attempt runs on its own goroutine and delivers exactly one Report over a
// channel that is closed afterwards. Attempts are detached from the caller's
// cancellation so a comparator call is never cut short.
//
// A Poller drives continuous identification through the same Session,
// skipping repeated probes and pacing cycles with the configured retry,
// cooldown, and error delays.
package worker
