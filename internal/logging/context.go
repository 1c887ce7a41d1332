package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldAttemptID identifies one identification or enrollment attempt.
	FieldAttemptID = "attempt_id"
	// FieldMode is the attempt mode (identify or enroll).
	FieldMode = "mode"
	// FieldState is the worker state at the time of the log line.
	FieldState = "state"
	// FieldIdentifier is the enrolled identifier a log line refers to.
	FieldIdentifier = "identifier"
	// FieldEventType classifies the log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

type contextKey string

const (
	attemptIDKey  contextKey = "attempt_id"
	modeKey       contextKey = "mode"
	identifierKey contextKey = "identifier"
	requestIDKey  contextKey = "request_id"
)

// WithAttemptID tags ctx with an attempt identifier.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptIDKey, id)
}

// AttemptIDFromContext returns the attempt identifier stored in ctx.
func AttemptIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, attemptIDKey)
}

// WithMode tags ctx with the attempt mode.
func WithMode(ctx context.Context, mode string) context.Context {
	return context.WithValue(ctx, modeKey, mode)
}

// ModeFromContext returns the attempt mode stored in ctx.
func ModeFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, modeKey)
}

// WithIdentifier tags ctx with the identifier an enrollment targets.
func WithIdentifier(ctx context.Context, identifier string) context.Context {
	return context.WithValue(ctx, identifierKey, identifier)
}

// IdentifierFromContext returns the identifier stored in ctx.
func IdentifierFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, identifierKey)
}

// WithRequestID tags ctx with an API request correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request identifier stored in ctx.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, requestIDKey)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := AttemptIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAttemptID, id))
	}
	if mode, ok := ModeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldMode, mode))
	}
	if identifier, ok := IdentifierFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldIdentifier, identifier))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
