package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fingergate/internal/engine"
	"fingergate/internal/logging"
	"fingergate/internal/match"
	"fingergate/internal/metrics"
	"fingergate/internal/store"
	"fingergate/internal/template"
)

// ErrBusy is returned when an attempt is requested while another is in flight.
var ErrBusy = errors.New("attempt already in progress")

// State is the session's position in the attempt state machine.
type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateExtracting State = "extracting"
	StateDeduping   State = "deduping"
	StateMatching   State = "matching"
	StateSaving     State = "saving"
	StateReporting  State = "reporting"
)

// Mode distinguishes identification from enrollment attempts.
type Mode string

const (
	ModeIdentify Mode = "identify"
	ModeEnroll   Mode = "enroll"
)

// Transition describes one state change, delivered to the state hook.
type Transition struct {
	AttemptID string
	Mode      Mode
	From      State
	To        State
	Checked   int
	Total     int
}

// Status is a point-in-time view of the session.
type Status struct {
	State      State
	Mode       Mode
	AttemptID  string
	Checked    int
	Total      int
	LastReport *Report
}

// Config carries the dependencies of a Session.
type Config struct {
	Gateway    engine.Gateway
	Repository store.Repository
	// AccessLog, when set, receives one event per identification report.
	AccessLog store.AccessLog
	// AllowDuplicateIdentifiers permits several enrollments per identifier.
	AllowDuplicateIdentifiers bool
	Logger                    *slog.Logger
	Metrics                   *metrics.Metrics
	// OnTransition is invoked synchronously on every state change.
	OnTransition func(Transition)
	Now          func() time.Time
}

// Session owns the attempt state machine. At most one attempt is in flight;
// further requests are rejected with ErrBusy rather than queued.
type Session struct {
	gateway        engine.Gateway
	repo           store.Repository
	accessLog      store.AccessLog
	allowDuplicate bool
	logger         *slog.Logger
	metrics        *metrics.Metrics
	onTransition   func(Transition)
	now            func() time.Time

	busy atomic.Bool
	wg   sync.WaitGroup

	mu     sync.RWMutex
	status Status
}

// NewSession constructs a Session.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("gateway required")
	}
	if cfg.Repository == nil {
		return nil, errors.New("repository required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		gateway:        cfg.Gateway,
		repo:           cfg.Repository,
		accessLog:      cfg.AccessLog,
		allowDuplicate: cfg.AllowDuplicateIdentifiers,
		logger:         logging.NewComponentLogger(cfg.Logger, "worker"),
		metrics:        cfg.Metrics,
		onTransition:   cfg.OnTransition,
		now:            now,
		status:         Status{State: StateIdle},
	}, nil
}

// Identify starts an identification attempt in the background. The returned
// channel delivers exactly one report and is then closed. The attempt is not
// interrupted when ctx is cancelled.
func (s *Session) Identify(ctx context.Context) (<-chan Report, error) {
	return s.start(ctx, ModeIdentify, func(actx context.Context, a *attempt) Report {
		report, _ := s.runIdentify(actx, a, nil)
		return report
	})
}

// Enroll starts an enrollment attempt for identifier in the background. The
// returned channel delivers exactly one report and is then closed.
func (s *Session) Enroll(ctx context.Context, identifier string) (<-chan Report, error) {
	return s.start(ctx, ModeEnroll, func(actx context.Context, a *attempt) Report {
		return s.runEnroll(actx, a, identifier)
	})
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := s.status
	if status.LastReport != nil {
		last := *status.LastReport
		status.LastReport = &last
	}
	return status
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.State
}

// Busy reports whether an attempt is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Wait blocks until in-flight attempts have reported or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) start(ctx context.Context, mode Mode, run func(context.Context, *attempt) Report) (<-chan Report, error) {
	a, actx, err := s.acquire(ctx, mode)
	if err != nil {
		return nil, err
	}
	out := make(chan Report, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(out)
		report := run(actx, a)
		s.release(a, &report)
		out <- report
	}()
	return out, nil
}

// poll runs one synchronous polled identification on the caller's goroutine.
func (s *Session) poll(ctx context.Context, dedup *template.Deduplicator) (Report, bool, error) {
	a, actx, err := s.acquire(ctx, ModeIdentify)
	if err != nil {
		return Report{}, false, err
	}
	s.wg.Add(1)
	defer s.wg.Done()

	report, reported := s.runIdentify(actx, a, dedup)
	if !reported {
		s.release(a, nil)
		return Report{}, false, nil
	}
	s.release(a, &report)
	return report, true, nil
}

// acquire claims the session and prepares a detached attempt context.
func (s *Session) acquire(ctx context.Context, mode Mode) (*attempt, context.Context, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, nil, ErrBusy
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a := &attempt{id: uuid.NewString(), mode: mode, started: s.now()}
	actx := context.WithoutCancel(ctx)
	actx = logging.WithAttemptID(actx, a.id)
	actx = logging.WithMode(actx, string(mode))

	s.mu.Lock()
	s.status.Mode = mode
	s.status.AttemptID = a.id
	s.status.Checked = 0
	s.status.Total = 0
	s.mu.Unlock()
	return a, actx, nil
}

// release records the report and returns the session to idle. A nil report
// means the attempt ended without one (polling discard).
func (s *Session) release(a *attempt, report *Report) {
	if report != nil {
		s.transition(a, StateReporting)
		s.mu.Lock()
		last := *report
		s.status.LastReport = &last
		s.mu.Unlock()
	}
	s.transition(a, StateIdle)
	s.busy.Store(false)
}

func (s *Session) transition(a *attempt, to State) {
	s.mu.Lock()
	from := s.status.State
	s.status.State = to
	checked, total := s.status.Checked, s.status.Total
	s.mu.Unlock()

	if from == to {
		return
	}
	s.logger.Debug("state changed",
		logging.String(logging.FieldAttemptID, a.id),
		logging.String(logging.FieldMode, string(a.mode)),
		logging.String("from", string(from)),
		logging.String(logging.FieldState, string(to)),
	)
	if s.onTransition != nil {
		s.onTransition(Transition{AttemptID: a.id, Mode: a.mode, From: from, To: to, Checked: checked, Total: total})
	}
}

func (s *Session) setProgress(checked, total int) {
	s.mu.Lock()
	s.status.Checked = checked
	s.status.Total = total
	s.mu.Unlock()
}

// capture runs the capture engine and extracts a template. A failure is
// returned as a classified Failure.
func (s *Session) capture(ctx context.Context, a *attempt, purpose engine.Purpose) (template.Template, *match.Failure) {
	logger := logging.WithContext(ctx, s.logger)
	s.transition(a, StateCapturing)
	result, err := s.gateway.Capture(ctx, purpose)
	if err != nil {
		s.metrics.IncrementCapture(string(purpose), "error")
		logging.WarnWithContext(logger, "capture engine failed", "capture_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "attempt reported as process-error"),
			logging.String(logging.FieldErrorHint, "check the capture executable and sensor connection"),
		)
		return template.Template{}, match.NewFailure(match.KindProcess, "capture failed", err)
	}

	s.transition(a, StateExtracting)
	tpl, ok := template.Extract(result.Stdout)
	if !ok {
		s.metrics.IncrementCapture(string(purpose), "no_template")
		logger.Info("no template in capture output",
			logging.Int("exit_code", result.ExitCode),
			logging.Duration("duration", result.Duration),
		)
		return template.Template{}, match.NewFailure(match.KindNoTemplate, "capture output contained no template", nil)
	}
	s.metrics.IncrementCapture(string(purpose), "ok")
	logger.Debug("template extracted", logging.Int("encoded_length", tpl.Size()), logging.String("preview", tpl.Preview()))
	return tpl, nil
}

type attempt struct {
	id      string
	mode    Mode
	started time.Time
}
