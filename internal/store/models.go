package store

import (
	"context"
	"time"

	"fingergate/internal/template"
)

// Record is one enrolled template. Records are never mutated after insert.
type Record struct {
	ID         int64
	Identifier string
	Template   template.Template
	Size       int
	CreatedAt  time.Time
}

// RecordSummary describes an enrollment without its template payload.
type RecordSummary struct {
	ID         int64
	Identifier string
	Size       int
	CreatedAt  time.Time
}

// AccessEvent is one row of the append-only access log.
type AccessEvent struct {
	ID         int64
	AttemptID  string
	Identifier string
	Granted    bool
	Outcome    string
	ErrorKind  string
	Detail     string
	Score      int
	OccurredAt time.Time
}

// Repository is the enrollment store contract used by the pipeline.
type Repository interface {
	Insert(ctx context.Context, identifier string, tpl template.Template) (Record, error)
	ListAll(ctx context.Context) ([]Record, error)
}

// AccessLog records identification outcomes.
type AccessLog interface {
	RecordAccess(ctx context.Context, event AccessEvent) (AccessEvent, error)
}
