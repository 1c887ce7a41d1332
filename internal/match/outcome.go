package match

import (
	"errors"
	"fmt"
)

// Threshold is the exclusive lower bound a comparator score must exceed.
const Threshold = 60

// ErrorKind classifies attempt failures.
type ErrorKind string

const (
	KindNoTemplate          ErrorKind = "no-template-found"
	KindProcess             ErrorKind = "process-error"
	KindStorageUnreachable  ErrorKind = "storage-unreachable"
	KindConnect             ErrorKind = "connect-failure"
	KindQuery               ErrorKind = "query-failure"
	KindDuplicateIdentifier ErrorKind = "duplicate-identifier"
	KindInvalidIdentifier   ErrorKind = "invalid-identifier"
	KindCancelled           ErrorKind = "cancelled"
)

// Failure is a classified attempt failure.
type Failure struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

// NewFailure builds a Failure wrapping err.
func NewFailure(kind ErrorKind, detail string, err error) *Failure {
	return &Failure{Kind: kind, Detail: detail, Err: err}
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	switch {
	case f.Detail != "" && f.Err != nil:
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Detail, f.Err)
	case f.Detail != "":
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	default:
		return string(f.Kind)
	}
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// KindOf returns the failure kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var failure *Failure
	if errors.As(err, &failure) && failure != nil {
		return failure.Kind, true
	}
	return "", false
}

// Result is one comparator verdict.
type Result struct {
	Identifier string
	Score      int
}

// Status is the variant tag of an Outcome.
type Status string

const (
	StatusMatched Status = "matched"
	StatusNoMatch Status = "no_match"
	StatusError   Status = "error"
)

// Outcome is the terminal result of an identification attempt.
type Outcome struct {
	Status     Status
	Identifier string
	Score      int
	Failure    *Failure
	// Checked counts comparator calls made; Total is the candidate count.
	Checked int
	Total   int
}

// Matched builds a successful outcome.
func Matched(identifier string, score int) Outcome {
	return Outcome{Status: StatusMatched, Identifier: identifier, Score: score}
}

// NoMatch builds an exhausted outcome.
func NoMatch() Outcome {
	return Outcome{Status: StatusNoMatch}
}

// Errored builds a failed outcome.
func Errored(f *Failure) Outcome {
	return Outcome{Status: StatusError, Failure: f}
}

// Granted reports whether access should be granted.
func (o Outcome) Granted() bool {
	return o.Status == StatusMatched
}

// Kind returns the failure kind for error outcomes.
func (o Outcome) Kind() ErrorKind {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Kind
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusMatched:
		return fmt.Sprintf("matched %s (score %d)", o.Identifier, o.Score)
	case StatusNoMatch:
		return "no match"
	case StatusError:
		return "error: " + o.Failure.Error()
	default:
		return string(o.Status)
	}
}
