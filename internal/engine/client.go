package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"fingergate/internal/config"
	"fingergate/internal/logging"
	"fingergate/internal/template"
)

// DefaultCaptureTimeout bounds a capture invocation when none is configured.
const DefaultCaptureTimeout = 15 * time.Second

var (
	// ErrProcess marks failures to run an engine executable to completion.
	ErrProcess = errors.New("engine process error")
	// ErrTimeout marks an engine invocation that exceeded its time bound.
	ErrTimeout = errors.New("engine process timed out")
	// ErrStart marks an executable that could not be launched at all.
	ErrStart = errors.New("engine process could not be started")
)

// Purpose selects which capture executable serves a capture request.
type Purpose string

const (
	PurposeIdentify Purpose = "identify"
	PurposeEnroll   Purpose = "enroll"
)

// CaptureResult is the raw outcome of one capture invocation.
type CaptureResult struct {
	Stdout   string
	ExitCode int
	Duration time.Duration
}

// Gateway abstracts the capture and comparator engines.
type Gateway interface {
	Capture(ctx context.Context, purpose Purpose) (CaptureResult, error)
	Compare(ctx context.Context, probe, candidate template.Template) (string, error)
}

// Command describes one executable invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
}

// Output captures what a finished process produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// Binaries names the engine executables.
type Binaries struct {
	Capture string
	Enroll  string
	Compare string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithCaptureTimeout overrides the capture bound. Non-positive values keep the default.
func WithCaptureTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.captureTimeout = timeout
		}
	}
}

// WithCompareTimeout bounds comparator calls. Zero leaves them unbounded.
func WithCompareTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.compareTimeout = timeout
		}
	}
}

// WithWorkDir runs engine executables from dir.
func WithWorkDir(dir string) Option {
	return func(c *Client) {
		c.workDir = strings.TrimSpace(dir)
	}
}

// WithLogger attaches a logger for invocation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client runs the vendor executables as subprocesses.
type Client struct {
	binaries       Binaries
	workDir        string
	captureTimeout time.Duration
	compareTimeout time.Duration
	exec           Executor
	logger         *slog.Logger
}

var _ Gateway = (*Client)(nil)

// New constructs an engine client.
func New(bins Binaries, opts ...Option) (*Client, error) {
	bins.Capture = strings.TrimSpace(bins.Capture)
	bins.Enroll = strings.TrimSpace(bins.Enroll)
	bins.Compare = strings.TrimSpace(bins.Compare)
	if bins.Capture == "" {
		return nil, errors.New("capture binary required")
	}
	if bins.Compare == "" {
		return nil, errors.New("compare binary required")
	}
	if bins.Enroll == "" {
		bins.Enroll = bins.Capture
	}
	client := &Client{
		binaries:       bins,
		captureTimeout: DefaultCaptureTimeout,
		exec:           commandExecutor{},
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the [engine] configuration section.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	base := []Option{
		WithCaptureTimeout(time.Duration(cfg.Engine.CaptureTimeout) * time.Second),
		WithCompareTimeout(time.Duration(cfg.Engine.CompareTimeout) * time.Second),
		WithWorkDir(cfg.Engine.WorkDir),
	}
	return New(Binaries{
		Capture: cfg.Engine.CaptureBinary,
		Enroll:  cfg.Engine.EnrollBinary,
		Compare: cfg.Engine.CompareBinary,
	}, append(base, opts...)...)
}

// Binaries returns the configured executables.
func (c *Client) Binaries() Binaries {
	return c.binaries
}

// Capture invokes the capture engine with no arguments and returns its stdout.
func (c *Client) Capture(ctx context.Context, purpose Purpose) (CaptureResult, error) {
	binary := c.binaries.Capture
	if purpose == PurposeEnroll {
		binary = c.binaries.Enroll
	}

	captureCtx, cancel := context.WithTimeout(ctx, c.captureTimeout)
	defer cancel()

	start := time.Now()
	out, err := c.exec.Run(captureCtx, Command{Binary: binary, Dir: c.workDir})
	result := CaptureResult{Stdout: out.Stdout, ExitCode: out.ExitCode, Duration: time.Since(start)}
	if err != nil {
		return result, classify(captureCtx, "capture", binary, err)
	}
	if out.ExitCode != 0 {
		c.logger.Debug("capture engine exited non-zero",
			logging.String("binary", binary),
			logging.Int("exit_code", out.ExitCode),
			logging.String("stderr", truncate(out.Stderr, 200)),
		)
	}
	return result, nil
}

// Compare invokes the comparator with the probe and candidate encodings as
// positional arguments and returns its trimmed stdout.
func (c *Client) Compare(ctx context.Context, probe, candidate template.Template) (string, error) {
	compareCtx := ctx
	if c.compareTimeout > 0 {
		var cancel context.CancelFunc
		compareCtx, cancel = context.WithTimeout(ctx, c.compareTimeout)
		defer cancel()
	}

	binary := c.binaries.Compare
	out, err := c.exec.Run(compareCtx, Command{
		Binary: binary,
		Args:   []string{probe.Encoded(), candidate.Encoded()},
		Dir:    c.workDir,
	})
	if err != nil {
		return strings.TrimSpace(out.Stdout), classify(compareCtx, "compare", binary, err)
	}
	c.logger.Debug("comparator finished",
		logging.String("stdout", truncate(strings.TrimSpace(out.Stdout), 64)),
		logging.String("stderr", truncate(strings.TrimSpace(out.Stderr), 200)),
		logging.Int("exit_code", out.ExitCode),
	)
	return strings.TrimSpace(out.Stdout), nil
}

func classify(ctx context.Context, op, binary string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s %s: %w", ErrProcess, op, binary, ErrTimeout)
	}
	if errors.Is(err, ErrProcess) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %w", ErrProcess, op, binary, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, command Command) (Output, error) {
	cmd := exec.CommandContext(ctx, command.Binary, command.Args...) //nolint:gosec
	cmd.Dir = command.Dir
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return out, fmt.Errorf("run command: %w", ctx.Err())
	}
	if cmd.ProcessState == nil {
		return out, fmt.Errorf("run command: %w: %w", ErrStart, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		// A regular non-zero exit still produced output worth inspecting.
		return out, nil
	}
	return out, fmt.Errorf("run command: %w", err)
}
