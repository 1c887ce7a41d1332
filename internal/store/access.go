package store

import (
	"context"
)

const defaultAccessLimit = 50

// RecordAccess appends an access log row.
func (s *Store) RecordAccess(ctx context.Context, event AccessEvent) (AccessEvent, error) {
	if err := s.ready(ctx); err != nil {
		return AccessEvent{}, err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	event.OccurredAt = event.OccurredAt.UTC()

	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, s.rebind(`
			INSERT INTO access_events (attempt_id, user_id, granted, outcome, error_kind, detail, score, occurred_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			event.AttemptID, event.Identifier, event.Granted, event.Outcome,
			event.ErrorKind, event.Detail, event.Score, s.bindTime(event.OccurredAt),
		)
		return row.Scan(&event.ID)
	})
	if err != nil {
		return AccessEvent{}, classify("record access", err)
	}
	return event, nil
}

// ListAccess returns the most recent access log rows, newest first.
func (s *Store) ListAccess(ctx context.Context, limit int) ([]AccessEvent, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultAccessLimit
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, attempt_id, user_id, granted, outcome, error_kind, detail, score, occurred_at
		FROM access_events
		ORDER BY id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, classify("list access events", err)
	}
	defer rows.Close()

	var events []AccessEvent
	for rows.Next() {
		var (
			event    AccessEvent
			occurred timestamp
		)
		if err := rows.Scan(&event.ID, &event.AttemptID, &event.Identifier, &event.Granted,
			&event.Outcome, &event.ErrorKind, &event.Detail, &event.Score, &occurred); err != nil {
			return nil, classify("scan access event", err)
		}
		event.OccurredAt = occurred.Time
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate access events", err)
	}
	return events, nil
}
