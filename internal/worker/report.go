package worker

import (
	"time"

	"fingergate/internal/match"
	"fingergate/internal/store"
)

// EnrollmentOutcome is the terminal result of an enrollment attempt.
type EnrollmentOutcome struct {
	Record  *store.Record
	Failure *match.Failure
}

// Enrolled builds a successful enrollment outcome.
func Enrolled(record store.Record) EnrollmentOutcome {
	return EnrollmentOutcome{Record: &record}
}

// EnrollFailed builds a failed enrollment outcome.
func EnrollFailed(f *match.Failure) EnrollmentOutcome {
	return EnrollmentOutcome{Failure: f}
}

// Succeeded reports whether the template was persisted.
func (o EnrollmentOutcome) Succeeded() bool {
	return o.Failure == nil && o.Record != nil
}

func (o EnrollmentOutcome) String() string {
	if o.Succeeded() {
		return "enrolled " + o.Record.Identifier
	}
	if o.Failure == nil {
		return "not enrolled"
	}
	return "error: " + o.Failure.Error()
}

// Report is delivered once per attempt. Identification is set for identify
// attempts, Enrollment for enroll attempts.
type Report struct {
	AttemptID      string
	Mode           Mode
	Identification match.Outcome
	Enrollment     EnrollmentOutcome
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Failure returns the attempt failure, or nil on success and no-match.
func (r Report) Failure() *match.Failure {
	if r.Mode == ModeEnroll {
		return r.Enrollment.Failure
	}
	return r.Identification.Failure
}

// Failed reports whether the attempt ended in an error.
func (r Report) Failed() bool {
	return r.Failure() != nil
}

// Result is a short label for metrics and access logs.
func (r Report) Result() string {
	if f := r.Failure(); f != nil {
		return string(f.Kind)
	}
	if r.Mode == ModeEnroll {
		return "enrolled"
	}
	return string(r.Identification.Status)
}

// Duration is the wall time of the attempt.
func (r Report) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r Report) String() string {
	if r.Mode == ModeEnroll {
		return r.Enrollment.String()
	}
	return r.Identification.String()
}
