package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// AttemptReport describes the terminal outcome of one attempt.
type AttemptReport struct {
	AttemptID  string `json:"attemptId"`
	Mode       string `json:"mode"`
	Result     string `json:"result"`
	Granted    bool   `json:"granted"`
	Identifier string `json:"identifier,omitempty"`
	Score      int    `json:"score,omitempty"`
	RecordID   int64  `json:"recordId,omitempty"`
	ErrorKind  string `json:"errorKind,omitempty"`
	Error      string `json:"error,omitempty"`
	Checked    int    `json:"checked"`
	Total      int    `json:"total"`
	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// SessionStatus mirrors the worker session snapshot.
type SessionStatus struct {
	State      string         `json:"state"`
	Mode       string         `json:"mode,omitempty"`
	AttemptID  string         `json:"attemptId,omitempty"`
	Checked    int            `json:"checked"`
	Total      int            `json:"total"`
	LastReport *AttemptReport `json:"lastReport,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult is one readiness check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	LockFilePath   string             `json:"lockFilePath"`
	StorageDriver  string             `json:"storageDriver"`
	StorageTarget  string             `json:"storageTarget"`
	StorageHealthy bool               `json:"storageHealthy"`
	Polling        bool               `json:"polling"`
	Session        SessionStatus      `json:"session"`
	Dependencies   []DependencyStatus `json:"dependencies"`
}

// EnrollRequest is the body of POST /api/enroll.
type EnrollRequest struct {
	Identifier string `json:"identifier"`
}

// RecordSummary describes an enrollment without its template.
type RecordSummary struct {
	ID           int64  `json:"id"`
	Identifier   string `json:"identifier"`
	TemplateSize int    `json:"templateSize"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// RecordListResponse wraps a collection of enrollments.
type RecordListResponse struct {
	Records []RecordSummary `json:"records"`
}

// AccessEvent is one access log row.
type AccessEvent struct {
	ID         int64  `json:"id"`
	AttemptID  string `json:"attemptId"`
	Identifier string `json:"identifier,omitempty"`
	Granted    bool   `json:"granted"`
	Outcome    string `json:"outcome"`
	ErrorKind  string `json:"errorKind,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Score      int    `json:"score,omitempty"`
	OccurredAt string `json:"occurredAt,omitempty"`
}

// EventListResponse wraps access log rows, newest first.
type EventListResponse struct {
	Events []AccessEvent `json:"events"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
