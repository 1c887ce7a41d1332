package daemonctl

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"fingergate/internal/api"
	"fingergate/internal/testsupport"
)

type fakeProber struct {
	calls     atomic.Int32
	readyFrom int32
}

func (f *fakeProber) Status(context.Context) (*api.DaemonStatus, error) {
	n := f.calls.Add(1)
	if f.readyFrom > 0 && n >= f.readyFrom {
		return &api.DaemonStatus{Running: true, PID: 4242}, nil
	}
	return nil, errors.New("connection refused")
}

func init() {
	pollInterval = 5 * time.Millisecond
}

func TestEnsureStartedAlreadyRunning(t *testing.T) {
	prober := &fakeProber{readyFrom: 1}
	result, err := EnsureStarted(context.Background(), prober, "/nonexistent/fingergate", LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateAlreadyRunning || result.PID != 4242 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestEnsureStartedLaunchesAndWaits(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	exe := testsupport.WriteScript(t, dir, "fingergate", `echo "$@" > `+argsFile)

	prober := &fakeProber{readyFrom: 3}
	result, err := EnsureStarted(context.Background(), prober, exe, LaunchOptions{ConfigPath: "/etc/fg.toml", LogLevel: "debug"}, 5*time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateStarted {
		t.Fatalf("expected started, got %+v", result)
	}

	var args []byte
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if args, err = os.ReadFile(argsFile); err == nil && len(args) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := string(args); got != "daemon --config /etc/fg.toml --log-level debug\n" {
		t.Fatalf("launch args = %q", got)
	}
}

func TestWaitForReadyTimesOut(t *testing.T) {
	_, err := WaitForReady(context.Background(), &fakeProber{}, 30*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if _, err := Launch(" ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}

func TestStopTerminatesProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("sleep unavailable: %v", err)
	}
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	pidPath := filepath.Join(t.TempDir(), "fingergated.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	result, err := Stop(context.Background(), pidPath, 5*time.Second, false)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if result.PID != cmd.Process.Pid || result.Forced {
		t.Fatalf("unexpected result %+v", result)
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("process still running")
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	dir := t.TempDir()
	if _, err := Stop(context.Background(), filepath.Join(dir, "missing.pid"), time.Second, false); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}

	done := exec.Command("true")
	if err := done.Run(); err != nil {
		t.Skipf("true unavailable: %v", err)
	}
	stale := filepath.Join(dir, "stale.pid")
	if err := os.WriteFile(stale, []byte(strconv.Itoa(done.Process.Pid)), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := Stop(context.Background(), stale, time.Second, false); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning for stale pid, got %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale pid file removed, got %v", err)
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pid")
	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadPID(path); err == nil {
		t.Fatal("expected error for invalid pid file")
	}
}
