package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"fingergate/internal/api"
)

// ErrNotRunning is returned by Stop when no live daemon owns the pid file.
var ErrNotRunning = errors.New("daemon is not running")

// pollInterval paces readiness and shutdown polling.
var pollInterval = 200 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult describes how the daemon was stopped.
type StopResult struct {
	PID    int
	Forced bool
}

// Prober reports daemon status; *api.Client satisfies it.
type Prober interface {
	Status(ctx context.Context) (*api.DaemonStatus, error)
}

// Launch starts a detached `<executable> daemon` process in its own session
// and returns its pid.
func Launch(executablePath string, opts LaunchOptions) (int, error) {
	if strings.TrimSpace(executablePath) == "" {
		return 0, fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return 0, fmt.Errorf("launch daemon: %w", err)
	}
	pid := proc.Process.Pid
	return pid, proc.Process.Release()
}

// WaitForReady polls prober until the daemon reports running or timeout
// elapses.
func WaitForReady(ctx context.Context, prober Prober, timeout time.Duration) (*api.DaemonStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for {
		status, err := prober.Status(ctx)
		if err == nil && status != nil && status.Running {
			return status, nil
		}
		if err != nil {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			if lastErr == nil {
				lastErr = ctx.Err()
			}
			return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
		case <-time.After(pollInterval):
		}
	}
}

// EnsureStarted launches the daemon unless prober already reaches a running
// instance.
func EnsureStarted(ctx context.Context, prober Prober, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if status, err := prober.Status(ctx); err == nil && status != nil && status.Running {
		return StartResult{State: StartStateAlreadyRunning, PID: status.PID}, nil
	}
	if _, err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	status, err := WaitForReady(ctx, prober, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, PID: status.PID}, nil
}

// ReadPID parses a daemon pid file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", path)
	}
	return pid, nil
}

// ProcessAlive reports whether pid names a live process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Stop sends SIGTERM to the daemon recorded in pidPath and waits for it to
// exit. In-flight attempts drain before the daemon exits, so callers should
// allow at least the capture timeout. When force is set, a daemon still alive
// at the deadline receives SIGKILL.
func Stop(ctx context.Context, pidPath string, timeout time.Duration, force bool) (StopResult, error) {
	pid, err := ReadPID(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return StopResult{}, ErrNotRunning
	}
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid}
	if !ProcessAlive(pid) {
		_ = os.Remove(pidPath)
		return result, ErrNotRunning
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return result, fmt.Errorf("signal daemon (pid %d): %w", pid, err)
	}
	if waitForExit(ctx, pid, timeout) {
		return result, nil
	}
	if !force {
		return result, fmt.Errorf("daemon (pid %d) did not stop within %s", pid, timeout)
	}
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("kill daemon (pid %d): %w", pid, err)
	}
	result.Forced = true
	_ = os.Remove(pidPath)
	return result, nil
}

func waitForExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !ProcessAlive(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
	return !ProcessAlive(pid)
}
