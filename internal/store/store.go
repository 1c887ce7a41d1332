package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"fingergate/internal/config"
	"fingergate/internal/logging"
)

// Store persists enrollments and the access log in SQLite or PostgreSQL.
type Store struct {
	db      *sql.DB
	driver  string
	target  string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	schemaMu    sync.Mutex
	schemaReady bool
}

var (
	_ Repository = (*Store)(nil)
	_ AccessLog  = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger for skipped rows and schema diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the timestamp source (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open connects to the store selected by cfg.Storage.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	timeout := cfg.ConnectTimeout()
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return OpenPostgres(cfg.Storage.DSN, timeout, opts...)
	case config.DriverSQLite, "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		return OpenSQLite(cfg.Storage.SQLitePath, opts...)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// OpenSQLite opens (creating if needed) a SQLite database at path and applies
// pending migrations.
func OpenSQLite(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w: %w", ErrConnect, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w: %w", ErrConnect, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w: %w", pragma, ErrConnect, execErr)
		}
	}

	s := newStore(db, config.DriverSQLite, path, 0, opts...)
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres prepares a PostgreSQL store. No connection is held between
// operations; the schema is applied on the first operation that reaches the
// server, so a database that is down at startup only fails individual calls.
func OpenPostgres(dsn string, connectTimeout time.Duration, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w: %w", ErrConnect, err)
	}
	db.SetMaxIdleConns(0)
	db.SetMaxOpenConns(4)

	s := newStore(db, config.DriverPostgres, redactTarget(dsn), connectTimeout, opts...)
	if err := s.ensureSchema(context.Background()); err != nil {
		s.logger.Warn("postgres schema not applied at startup; will retry on first use",
			logging.String(logging.FieldEventType, "storage_schema_deferred"),
			logging.Error(err),
		)
	}
	return s, nil
}

func newStore(db *sql.DB, driver, target string, timeout time.Duration, opts ...Option) *Store {
	s := &Store{
		db:      db,
		driver:  driver,
		target:  target,
		timeout: timeout,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver reports the active storage driver.
func (s *Store) Driver() string {
	return s.driver
}

// Target describes where the store lives, with credentials removed.
func (s *Store) Target() string {
	return s.target
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.connectContext(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w: %w", s.driver, ErrConnect, err)
	}
	return nil
}

func (s *Store) connectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// ready applies the schema once the database is reachable.
func (s *Store) ready(ctx context.Context) error {
	s.schemaMu.Lock()
	done := s.schemaReady
	s.schemaMu.Unlock()
	if done {
		return nil
	}
	return s.ensureSchema(ctx)
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if err := s.Ping(ctx); err != nil {
		return err
	}
	if err := s.applyMigrations(ctx); err != nil {
		return classify("apply migrations", err)
	}
	s.schemaReady = true
	return nil
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// bindTime formats timestamps for SQLite as fixed-width text so they sort
// lexically; PostgreSQL receives native values.
func (s *Store) bindTime(t time.Time) any {
	if s.driver == config.DriverSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != config.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, s.rebind(query), args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func redactTarget(dsn string) string {
	fields := strings.Fields(dsn)
	if len(fields) <= 1 {
		if i := strings.Index(dsn, "@"); i >= 0 {
			if j := strings.Index(dsn, "://"); j >= 0 && j < i {
				return dsn[:j+3] + "***" + dsn[i:]
			}
		}
		return dsn
	}
	kept := fields[:0]
	for _, field := range fields {
		if strings.HasPrefix(field, "password=") {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}
