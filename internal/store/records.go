package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fingergate/internal/logging"
	"fingergate/internal/template"
)

// Insert persists a new enrollment. The template is stored as its encoded text
// and template_size records the encoded length.
func (s *Store) Insert(ctx context.Context, identifier string, tpl template.Template) (Record, error) {
	if tpl.IsZero() {
		return Record{}, fmt.Errorf("insert enrollment: %w", template.ErrInvalidTemplate)
	}
	if err := s.ready(ctx); err != nil {
		return Record{}, err
	}
	createdAt := s.now().UTC()
	rec := Record{
		Identifier: identifier,
		Template:   tpl,
		Size:       tpl.Size(),
		CreatedAt:  createdAt,
	}

	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, s.rebind(`
			INSERT INTO fingerprints (user_id, template, template_size, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id`),
			identifier, []byte(tpl.Encoded()), rec.Size, s.bindTime(createdAt),
		)
		return row.Scan(&rec.ID)
	})
	if err != nil {
		return Record{}, classify("insert enrollment", err)
	}
	return rec, nil
}

// ListAll returns every enrollment in insertion order. Rows whose stored
// template no longer validates are skipped and logged.
func (s *Store) ListAll(ctx context.Context) ([]Record, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, template, template_size, created_at
		FROM fingerprints
		ORDER BY id`)
	if err != nil {
		return nil, classify("list enrollments", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			payload []byte
			created timestamp
		)
		if err := rows.Scan(&rec.ID, &rec.Identifier, &payload, &rec.Size, &created); err != nil {
			return nil, classify("scan enrollment", err)
		}
		tpl, err := template.Parse(string(payload))
		if err != nil {
			logging.WarnWithContext(s.logger, "stored template unreadable; record skipped", "stored_template_invalid",
				logging.Any("record_id", rec.ID),
				logging.String(logging.FieldIdentifier, rec.Identifier),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete and re-enroll the record"),
				logging.String(logging.FieldImpact, "record cannot match during identification"),
			)
			continue
		}
		rec.Template = tpl
		rec.CreatedAt = created.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate enrollments", err)
	}
	return records, nil
}

// ListSummaries returns enrollments newest first without template payloads.
// A non-empty filter keeps identifiers containing it, case-insensitively.
func (s *Store) ListSummaries(ctx context.Context, filter string) ([]RecordSummary, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, user_id, template_size, created_at FROM fingerprints`
	var args []any
	if filter = strings.TrimSpace(filter); filter != "" {
		query += ` WHERE LOWER(user_id) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(filter))+"%")
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, classify("list summaries", err)
	}
	defer rows.Close()

	var summaries []RecordSummary
	for rows.Next() {
		var (
			summary RecordSummary
			created timestamp
		)
		if err := rows.Scan(&summary.ID, &summary.Identifier, &summary.Size, &created); err != nil {
			return nil, classify("scan summary", err)
		}
		summary.CreatedAt = created.Time
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate summaries", err)
	}
	return summaries, nil
}

// HasIdentifier reports whether any enrollment uses identifier.
func (s *Store) HasIdentifier(ctx context.Context, identifier string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var count int
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(1) FROM fingerprints WHERE user_id = ?`), identifier)
	if err := row.Scan(&count); err != nil {
		return false, classify("count identifier", err)
	}
	return count > 0, nil
}

// Get returns one enrollment by id.
func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	if err := s.ready(ctx); err != nil {
		return Record{}, err
	}
	var (
		rec     Record
		payload []byte
		created timestamp
	)
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, user_id, template, template_size, created_at
		FROM fingerprints WHERE id = ?`), id)
	if err := row.Scan(&rec.ID, &rec.Identifier, &payload, &rec.Size, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("get enrollment %d: %w", id, ErrNotFound)
		}
		return Record{}, classify("get enrollment", err)
	}
	tpl, err := template.Parse(string(payload))
	if err != nil {
		return Record{}, fmt.Errorf("get enrollment %d: %w", id, err)
	}
	rec.Template = tpl
	rec.CreatedAt = created.Time
	return rec, nil
}

// Delete removes one enrollment.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM fingerprints WHERE id = ?`, id)
	if err != nil {
		return classify("delete enrollment", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify("delete enrollment", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete enrollment %d: %w", id, ErrNotFound)
	}
	return nil
}

// Count returns the number of enrollments.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM fingerprints`).Scan(&count); err != nil {
		return 0, classify("count enrollments", err)
	}
	return count, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
