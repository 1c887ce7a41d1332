package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fingergate/internal/config"
	"fingergate/internal/logging"
	"fingergate/internal/template"
)

// Handler receives every report produced by a Poller.
type Handler func(ctx context.Context, report Report)

// PollerConfig holds the delays of the polling loop.
type PollerConfig struct {
	// RetryDelay follows a cycle that produced no report.
	RetryDelay time.Duration
	// Cooldown follows a reported outcome.
	Cooldown time.Duration
	// ErrorDelay follows a reported failure.
	ErrorDelay time.Duration
	Handler    Handler
	Logger     *slog.Logger
}

// PollerConfigFrom reads the polling delays from cfg.
func PollerConfigFrom(cfg *config.Config) PollerConfig {
	return PollerConfig{
		RetryDelay: cfg.RetryDelay(),
		Cooldown:   cfg.Cooldown(),
		ErrorDelay: cfg.ErrorDelay(),
	}
}

// Poller drives continuous identification through a Session. It owns the
// deduplicator for its loop, so one Poller must not be run twice at once.
type Poller struct {
	session *Session
	cfg     PollerConfig
	dedup   template.Deduplicator
	logger  *slog.Logger
}

// NewPoller constructs a Poller over session.
func NewPoller(session *Session, cfg PollerConfig) *Poller {
	return &Poller{
		session: session,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(cfg.Logger, "poller"),
	}
}

// Run loops until ctx is cancelled. Cancellation is observed between cycles;
// an attempt already started always runs to its report. Run returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("continuous identification started",
		logging.Duration("retry_delay", p.cfg.RetryDelay),
		logging.Duration("cooldown", p.cfg.Cooldown),
		logging.Duration("error_delay", p.cfg.ErrorDelay),
	)
	defer p.logger.Info("continuous identification stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := wait(ctx, p.cycle(ctx)); err != nil {
			return err
		}
	}
}

// cycle runs one attempt and returns the delay before the next.
func (p *Poller) cycle(ctx context.Context) time.Duration {
	report, reported, err := p.session.poll(ctx, &p.dedup)
	if err != nil {
		if !errors.Is(err, ErrBusy) {
			p.logger.Warn("poll cycle failed", logging.Error(err))
		}
		return p.cfg.RetryDelay
	}
	if !reported {
		return p.cfg.RetryDelay
	}
	if p.cfg.Handler != nil {
		p.cfg.Handler(ctx, report)
	}
	if report.Failed() {
		return p.cfg.ErrorDelay
	}
	return p.cfg.Cooldown
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
