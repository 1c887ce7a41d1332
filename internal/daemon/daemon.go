package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"fingergate/internal/config"
	"fingergate/internal/deps"
	"fingergate/internal/logging"
	"fingergate/internal/metrics"
	"fingergate/internal/preflight"
	"fingergate/internal/store"
	"fingergate/internal/worker"
)

// drainTimeout bounds how long shutdown waits for an in-flight attempt.
const drainTimeout = 30 * time.Second

// Store is the persistence surface the daemon serves.
type Store interface {
	store.Repository
	store.AccessLog
	ListSummaries(ctx context.Context, filter string) ([]store.RecordSummary, error)
	Delete(ctx context.Context, id int64) error
	ListAccess(ctx context.Context, limit int) ([]store.AccessEvent, error)
	Ping(ctx context.Context) error
	Driver() string
	Target() string
}

// Daemon coordinates the HTTP API and the optional poller around one worker
// session, and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   Store
	session *worker.Session
	metrics *metrics.Metrics
	poller  *worker.Poller

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	mu      sync.Mutex
	addr    net.Addr
	ready   chan struct{}
	once    sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	LockFilePath   string
	StorageDriver  string
	StorageTarget  string
	StorageHealthy bool
	Polling        bool
	Session        worker.Status
	Dependencies   []deps.Status
}

// New constructs a daemon with initialized dependencies. onReport, when set,
// receives every report produced by the poller.
func New(cfg *config.Config, st Store, session *worker.Session, m *metrics.Metrics, logger *slog.Logger, onReport worker.Handler) (*Daemon, error) {
	if cfg == nil || st == nil || session == nil {
		return nil, errors.New("daemon requires config, store, and session")
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		session:  session,
		metrics:  m,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		ready:    make(chan struct{}),
	}
	if cfg.Polling.Enabled {
		pcfg := worker.PollerConfigFrom(cfg)
		pcfg.Logger = logger
		pcfg.Handler = func(ctx context.Context, report worker.Report) {
			d.logReport(report)
			if onReport != nil {
				onReport(ctx, report)
			}
		}
		d.poller = worker.NewPoller(session, pcfg)
	}
	return d, nil
}

// Run acquires the instance lock, serves the API, and runs the poller when
// enabled. It returns after ctx is cancelled and in-flight attempts drain.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fingergate daemon instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	pidPath := d.cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	srv, err := d.listen()
	if err != nil {
		return err
	}

	address := "disabled"
	if srv != nil {
		address = srv.addr().String()
	}
	d.logger.Info("fingergate daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", address),
		logging.Bool("polling", d.poller != nil),
	)

	group, gctx := errgroup.WithContext(ctx)
	if srv != nil {
		group.Go(func() error {
			return srv.serve(gctx)
		})
	} else {
		group.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}
	if d.poller != nil {
		group.Go(func() error {
			if err := d.poller.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	runErr := group.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.session.Wait(drainCtx); err != nil {
		logging.WarnWithContext(d.logger, "in-flight attempt did not finish before shutdown", "drain_timeout",
			logging.Duration("timeout", drainTimeout),
			logging.String(logging.FieldImpact, "attempt report lost"),
		)
	}
	d.logger.Info("fingergate daemon stopped")
	return runErr
}

// listen binds the API listener. It returns nil when the API is disabled.
func (d *Daemon) listen() (*apiServer, error) {
	defer d.once.Do(func() { close(d.ready) })
	if strings.TrimSpace(d.cfg.Paths.APIBind) == "" {
		return nil, nil
	}
	srv, err := newAPIServer(d.cfg.Paths.APIBind, d.Handler(), d.logger)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.addr = srv.addr()
	d.mu.Unlock()
	return srv, nil
}

// Ready is closed once the API listener is bound.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Addr returns the bound API address, or nil before Ready or when the API is
// disabled.
func (d *Daemon) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addr
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	pingCtx, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout())
	defer cancel()
	healthy := d.store.Ping(pingCtx) == nil

	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		LockFilePath:   d.lockPath,
		StorageDriver:  d.store.Driver(),
		StorageTarget:  d.store.Target(),
		StorageHealthy: healthy,
		Polling:        d.poller != nil,
		Session:        d.session.Status(),
		Dependencies:   preflight.CheckSystemDeps(d.cfg),
	}
}

func writePIDFile(path string) error {
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func (d *Daemon) logReport(report worker.Report) {
	out := report.Identification
	attrs := []logging.Attr{
		logging.String(logging.FieldAttemptID, report.AttemptID),
		logging.String(logging.FieldEventType, "access_decision"),
		logging.Bool("granted", out.Granted()),
	}
	if strings.TrimSpace(out.Identifier) != "" {
		attrs = append(attrs, logging.String(logging.FieldIdentifier, out.Identifier), logging.Int("score", out.Score))
	}
	d.logger.Info("access decision: "+report.String(), logging.Args(attrs...)...)
}
