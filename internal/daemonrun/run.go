package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"fingergate/internal/config"
	"fingergate/internal/daemon"
	"fingergate/internal/engine"
	"fingergate/internal/logging"
	"fingergate/internal/metrics"
	"fingergate/internal/preflight"
	"fingergate/internal/store"
	"fingergate/internal/worker"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Runtime bundles the components one worker session needs. Close releases the
// store.
type Runtime struct {
	Store   *store.Store
	Engine  *engine.Client
	Metrics *metrics.Metrics
	Session *worker.Session
}

// Open builds the store, engine gateway, metrics, and worker session for cfg.
func Open(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	st, err := store.Open(cfg, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	gw, err := engine.NewFromConfig(cfg, engine.WithLogger(logger))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create engine gateway: %w", err)
	}
	m := metrics.New()
	session, err := worker.NewSession(worker.Config{
		Gateway:                   gw,
		Repository:                st,
		AccessLog:                 st,
		AllowDuplicateIdentifiers: cfg.Enrollment.AllowDuplicateIdentifiers,
		Logger:                    logger,
		Metrics:                   m,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return &Runtime{Store: st, Engine: gw, Metrics: m, Session: session}, nil
}

// Close releases runtime resources.
func (r *Runtime) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

// Run starts the fingergate daemon and blocks until SIGINT/SIGTERM or cmdCtx
// ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:       firstNonEmpty(opts.LogLevel, cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	rt, err := Open(cfg, logger)
	if err != nil {
		logger.Error("open runtime", logging.Error(err))
		return err
	}
	defer rt.Close()

	logPreflight(signalCtx, logger, cfg, rt.Store)

	d, err := daemon.New(cfg, rt.Store, rt.Session, rt.Metrics, logger, nil)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Run(signalCtx); err != nil {
		return err
	}
	logger.Info("fingergate daemon shutting down")
	return nil
}

// logPreflight records readiness without refusing to start; storage and
// sensors often come up after the daemon.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config, pinger preflight.Pinger) {
	results := preflight.RunAll(ctx, cfg, pinger)
	failed := preflight.Failed(results)
	logger.Info("preflight snapshot",
		logging.String(logging.FieldEventType, "preflight_snapshot"),
		logging.Int("checks", len(results)),
		logging.Int("failed", len(failed)),
	)
	for _, r := range failed {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run fingergate deps and fingergate status for details"),
			logging.String(logging.FieldImpact, "attempts may fail until resolved"),
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
