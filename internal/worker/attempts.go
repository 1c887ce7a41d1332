package worker

import (
	"context"
	"errors"

	"fingergate/internal/engine"
	"fingergate/internal/logging"
	"fingergate/internal/match"
	"fingergate/internal/store"
	"fingergate/internal/template"
)

// identifierChecker is implemented by repositories that can answer an
// existence query without listing every template.
type identifierChecker interface {
	HasIdentifier(ctx context.Context, identifier string) (bool, error)
}

// runIdentify executes one identification. With dedup set the attempt is a
// polled one: a missing template or a repeated probe ends it without a report
// and reported is false.
func (s *Session) runIdentify(ctx context.Context, a *attempt, dedup *template.Deduplicator) (report Report, reported bool) {
	report = Report{AttemptID: a.id, Mode: ModeIdentify, StartedAt: a.started}
	polled := dedup != nil

	probe, failure := s.capture(ctx, a, engine.PurposeIdentify)
	if failure != nil {
		if polled && failure.Kind == match.KindNoTemplate {
			return report, false
		}
		report.Identification = match.Errored(failure)
		return s.finishIdentify(ctx, report), true
	}

	if polled {
		s.transition(a, StateDeduping)
		if !dedup.Accept(probe) {
			s.metrics.IncrementDuplicateProbe()
			logging.WithContext(ctx, s.logger).Debug("probe matches previous capture; skipped")
			return report, false
		}
	}

	s.transition(a, StateMatching)
	logger := logging.WithContext(ctx, s.logger)
	sampler := logging.NewProgressSampler(25)
	eng := match.NewEngine(s.gateway,
		match.WithLogger(s.logger),
		match.WithMetrics(s.metrics),
		match.WithProgress(func(checked, total int) {
			s.setProgress(checked, total)
			if sampler.ShouldLog(checked, total) {
				logger.Debug("checking enrollments",
					logging.Int("checked", checked),
					logging.Int("total", total),
				)
			}
		}),
	)
	report.Identification = eng.Identify(ctx, probe, s.repo)
	return s.finishIdentify(ctx, report), true
}

func (s *Session) finishIdentify(ctx context.Context, report Report) Report {
	report.FinishedAt = s.now()
	s.observe(report)
	s.recordAccess(ctx, report)
	return report
}

// recordAccess appends the outcome to the access log. Failures are logged and
// do not change the report.
func (s *Session) recordAccess(ctx context.Context, report Report) {
	if s.accessLog == nil {
		return
	}
	out := report.Identification
	event := store.AccessEvent{
		AttemptID:  report.AttemptID,
		Identifier: out.Identifier,
		Granted:    out.Granted(),
		Outcome:    string(out.Status),
		Score:      out.Score,
		OccurredAt: report.FinishedAt,
	}
	if out.Failure != nil {
		event.ErrorKind = string(out.Failure.Kind)
		event.Detail = out.Failure.Error()
	}
	if _, err := s.accessLog.RecordAccess(ctx, event); err != nil {
		s.metrics.IncrementStorageError("record_access")
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "access event not recorded", "access_log_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcome missing from access log"),
			logging.String(logging.FieldErrorHint, "check storage availability"),
		)
	}
}

func (s *Session) runEnroll(ctx context.Context, a *attempt, raw string) Report {
	report := Report{AttemptID: a.id, Mode: ModeEnroll, StartedAt: a.started}
	finish := func(out EnrollmentOutcome) Report {
		report.Enrollment = out
		report.FinishedAt = s.now()
		s.observe(report)
		return report
	}

	identifier, err := NormalizeIdentifier(raw)
	if err != nil {
		return finish(EnrollFailed(match.NewFailure(match.KindInvalidIdentifier, err.Error(), nil)))
	}
	ctx = logging.WithIdentifier(ctx, identifier)

	if !s.allowDuplicate {
		if f := s.checkDuplicate(ctx, identifier); f != nil {
			return finish(EnrollFailed(f))
		}
	}

	tpl, failure := s.capture(ctx, a, engine.PurposeEnroll)
	if failure != nil {
		return finish(EnrollFailed(failure))
	}

	s.transition(a, StateSaving)
	record, err := s.repo.Insert(ctx, identifier, tpl)
	if err != nil {
		s.metrics.IncrementStorageError("insert")
		f := storageFailure("save enrollment", err)
		logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "enrollment not saved", "enroll_save_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage settings and database availability"),
		)
		return finish(EnrollFailed(f))
	}
	logging.WithContext(ctx, s.logger).Info("enrollment saved",
		logging.Int64("record_id", record.ID),
		logging.Int("template_size", record.Size),
	)
	return finish(Enrolled(record))
}

func (s *Session) checkDuplicate(ctx context.Context, identifier string) *match.Failure {
	var (
		exists bool
		err    error
	)
	if checker, ok := s.repo.(identifierChecker); ok {
		exists, err = checker.HasIdentifier(ctx, identifier)
	} else {
		var records []store.Record
		records, err = s.repo.ListAll(ctx)
		for _, r := range records {
			if r.Identifier == identifier {
				exists = true
				break
			}
		}
	}
	if err != nil {
		s.metrics.IncrementStorageError("has_identifier")
		return storageFailure("check identifier", err)
	}
	if exists {
		return match.NewFailure(match.KindDuplicateIdentifier, identifier+" is already enrolled", nil)
	}
	return nil
}

func storageFailure(detail string, err error) *match.Failure {
	if errors.Is(err, store.ErrConnect) {
		return match.NewFailure(match.KindConnect, detail, err)
	}
	return match.NewFailure(match.KindQuery, detail, err)
}

func (s *Session) observe(report Report) {
	s.metrics.IncrementOutcome(string(report.Mode), report.Result())
	s.metrics.ObserveAttemptLatency(string(report.Mode), report.Duration())

	logger := s.logger.With(
		logging.String(logging.FieldAttemptID, report.AttemptID),
		logging.String(logging.FieldMode, string(report.Mode)),
	)
	if f := report.Failure(); f != nil {
		logger.Info("attempt failed",
			logging.String("error_kind", string(f.Kind)),
			logging.String("detail", f.Error()),
			logging.Duration("duration", report.Duration()),
		)
		return
	}
	logger.Info("attempt finished",
		logging.String("result", report.String()),
		logging.Duration("duration", report.Duration()),
	)
}
