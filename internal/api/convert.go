package api

import (
	"time"

	"fingergate/internal/deps"
	"fingergate/internal/store"
	"fingergate/internal/worker"
)

// FromReport converts a worker report to its API representation.
func FromReport(report worker.Report) AttemptReport {
	dto := AttemptReport{
		AttemptID:  report.AttemptID,
		Mode:       string(report.Mode),
		Result:     report.Result(),
		StartedAt:  formatTime(report.StartedAt),
		FinishedAt: formatTime(report.FinishedAt),
		DurationMS: report.Duration().Milliseconds(),
	}
	switch report.Mode {
	case worker.ModeEnroll:
		if rec := report.Enrollment.Record; rec != nil {
			dto.Identifier = rec.Identifier
			dto.RecordID = rec.ID
		}
	default:
		out := report.Identification
		dto.Granted = out.Granted()
		dto.Identifier = out.Identifier
		dto.Score = out.Score
		dto.Checked = out.Checked
		dto.Total = out.Total
	}
	if f := report.Failure(); f != nil {
		dto.ErrorKind = string(f.Kind)
		dto.Error = f.Error()
	}
	return dto
}

// FromSession converts a session snapshot.
func FromSession(status worker.Status) SessionStatus {
	dto := SessionStatus{
		State:     string(status.State),
		Mode:      string(status.Mode),
		AttemptID: status.AttemptID,
		Checked:   status.Checked,
		Total:     status.Total,
	}
	if status.LastReport != nil {
		last := FromReport(*status.LastReport)
		dto.LastReport = &last
	}
	return dto
}

// FromDependencies converts binary availability results.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromRecordSummaries converts enrollment summaries.
func FromRecordSummaries(records []store.RecordSummary) []RecordSummary {
	out := make([]RecordSummary, len(records))
	for i, rec := range records {
		out[i] = RecordSummary{
			ID:           rec.ID,
			Identifier:   rec.Identifier,
			TemplateSize: rec.Size,
			CreatedAt:    formatTime(rec.CreatedAt),
		}
	}
	return out
}

// FromAccessEvents converts access log rows.
func FromAccessEvents(events []store.AccessEvent) []AccessEvent {
	out := make([]AccessEvent, len(events))
	for i, ev := range events {
		out[i] = AccessEvent{
			ID:         ev.ID,
			AttemptID:  ev.AttemptID,
			Identifier: ev.Identifier,
			Granted:    ev.Granted,
			Outcome:    ev.Outcome,
			ErrorKind:  ev.ErrorKind,
			Detail:     ev.Detail,
			Score:      ev.Score,
			OccurredAt: formatTime(ev.OccurredAt),
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
