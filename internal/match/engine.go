package match

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fingergate/internal/engine"
	"fingergate/internal/logging"
	"fingergate/internal/metrics"
	"fingergate/internal/store"
	"fingergate/internal/template"
)

// Comparator scores a probe against one candidate.
type Comparator interface {
	Compare(ctx context.Context, probe, candidate template.Template) (string, error)
}

// CandidateSource lists the enrolled templates to search.
type CandidateSource interface {
	ListAll(ctx context.Context) ([]store.Record, error)
}

// ProgressFunc receives (checked, total) before each comparison and once the
// search resolves.
type ProgressFunc func(checked, total int)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// Engine performs 1:N identification with a first-match-wins policy.
type Engine struct {
	comparator Comparator
	logger     *slog.Logger
	metrics    *metrics.Metrics
	progress   ProgressFunc
}

// NewEngine constructs an Engine around comparator.
func NewEngine(comparator Comparator, opts ...Option) *Engine {
	e := &Engine{
		comparator: comparator,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Identify lists candidates from source and searches them. A listing failure
// yields Error(storage-unreachable) without invoking the comparator.
func (e *Engine) Identify(ctx context.Context, probe template.Template, source CandidateSource) Outcome {
	candidates, err := source.ListAll(ctx)
	if err != nil {
		e.metrics.IncrementStorageError("list_all")
		logging.ErrorWithContext(logging.WithContext(ctx, e.logger), "candidate listing failed", "storage_unreachable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage settings and database availability"),
		)
		return Errored(NewFailure(KindStorageUnreachable, "list enrolled templates", err))
	}
	return e.Search(ctx, probe, candidates)
}

// Search compares probe against candidates in the given order and returns the
// first candidate scoring above Threshold. Unreadable comparator output skips
// the candidate.
func (e *Engine) Search(ctx context.Context, probe template.Template, candidates []store.Record) Outcome {
	logger := logging.WithContext(ctx, e.logger)
	total := len(candidates)
	logger.Info("checking enrolled records", logging.Int("total", total))

	outcome := e.search(ctx, logger, probe, candidates)
	outcome.Total = total
	e.report(outcome.Checked, total)
	e.metrics.ObserveCandidatesScanned(outcome.Checked)
	return outcome
}

func (e *Engine) search(ctx context.Context, logger *slog.Logger, probe template.Template, candidates []store.Record) Outcome {
	total := len(candidates)
	checked := 0
	for _, candidate := range candidates {
		e.report(checked, total)
		if err := ctx.Err(); err != nil {
			out := Errored(NewFailure(KindCancelled, "identification cancelled", err))
			out.Checked = checked
			return out
		}

		start := time.Now()
		raw, err := e.comparator.Compare(ctx, probe, candidate.Template)
		elapsed := time.Since(start)
		checked++

		if err != nil {
			e.metrics.ObserveCompare("error", elapsed)
			if errors.Is(err, engine.ErrStart) {
				out := Errored(NewFailure(KindProcess, "comparator could not be started", err))
				out.Checked = checked
				return out
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				out := Errored(NewFailure(KindCancelled, "identification cancelled", ctxErr))
				out.Checked = checked
				return out
			}
			logging.WarnWithContext(logger, "comparator failed; candidate skipped", "compare_failed",
				logging.Any("record_id", candidate.ID),
				logging.String(logging.FieldIdentifier, candidate.Identifier),
				logging.Error(err),
				logging.String(logging.FieldImpact, "candidate not considered"),
				logging.String(logging.FieldErrorHint, "check the comparator executable and engine.compare_timeout"),
			)
			continue
		}

		score, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			e.metrics.ObserveCompare("unparsable", elapsed)
			logging.WarnWithContext(logger, "comparator output unreadable; candidate skipped", "compare_parse_failed",
				logging.Any("record_id", candidate.ID),
				logging.String(logging.FieldIdentifier, candidate.Identifier),
				logging.String("output", truncate(raw, 64)),
				logging.String(logging.FieldImpact, "candidate not considered"),
				logging.String(logging.FieldErrorHint, "comparator must print an integer score"),
			)
			continue
		}
		e.metrics.ObserveCompare("scored", elapsed)

		result := Result{Identifier: candidate.Identifier, Score: score}
		logger.Debug("candidate scored",
			logging.Any("record_id", candidate.ID),
			logging.String(logging.FieldIdentifier, result.Identifier),
			logging.Int("score", result.Score),
		)
		if result.Score > Threshold {
			out := Matched(result.Identifier, result.Score)
			out.Checked = checked
			logger.Info("identification matched",
				logging.String(logging.FieldIdentifier, result.Identifier),
				logging.Int("score", result.Score),
				logging.Int("checked", checked),
				logging.Int("total", total),
			)
			return out
		}
	}

	out := NoMatch()
	out.Checked = checked
	logger.Info("identification found no match", logging.Int("checked", checked), logging.Int("total", total))
	return out
}

func (e *Engine) report(checked, total int) {
	if e.progress != nil {
		e.progress(checked, total)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
