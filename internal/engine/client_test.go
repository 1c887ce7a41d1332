package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"fingergate/internal/config"
	"fingergate/internal/engine"
	"fingergate/internal/template"
)

type stubExecutor struct {
	out      engine.Output
	err      error
	commands []engine.Command
}

func (s *stubExecutor) Run(ctx context.Context, cmd engine.Command) (engine.Output, error) {
	cmd.Args = append([]string(nil), cmd.Args...)
	s.commands = append(s.commands, cmd)
	return s.out, s.err
}

func testTemplate(t *testing.T, fill string) template.Template {
	t.Helper()
	tpl, err := template.Parse(strings.Repeat(fill, 120))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tpl
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable on windows")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestNewRequiresBinaries(t *testing.T) {
	if _, err := engine.New(engine.Binaries{Compare: "cmp"}); err == nil {
		t.Fatal("expected error without capture binary")
	}
	if _, err := engine.New(engine.Binaries{Capture: "cap"}); err == nil {
		t.Fatal("expected error without compare binary")
	}
	client, err := engine.New(engine.Binaries{Capture: "cap", Compare: "cmp"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if client.Binaries().Enroll != "cap" {
		t.Fatalf("expected enroll binary to default to capture binary, got %q", client.Binaries().Enroll)
	}
}

func TestCaptureSelectsBinaryByPurpose(t *testing.T) {
	exec := &stubExecutor{out: engine.Output{Stdout: "ok"}}
	client, err := engine.New(engine.Binaries{Capture: "verify", Enroll: "save", Compare: "compare"},
		engine.WithExecutor(exec), engine.WithWorkDir("/opt/sdk"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.Capture(context.Background(), engine.PurposeIdentify); err != nil {
		t.Fatalf("Capture identify: %v", err)
	}
	if _, err := client.Capture(context.Background(), engine.PurposeEnroll); err != nil {
		t.Fatalf("Capture enroll: %v", err)
	}
	if len(exec.commands) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(exec.commands))
	}
	if exec.commands[0].Binary != "verify" || exec.commands[1].Binary != "save" {
		t.Fatalf("unexpected binaries: %+v", exec.commands)
	}
	if len(exec.commands[0].Args) != 0 {
		t.Fatalf("capture must run without arguments, got %v", exec.commands[0].Args)
	}
	if exec.commands[0].Dir != "/opt/sdk" {
		t.Fatalf("expected work dir to propagate, got %q", exec.commands[0].Dir)
	}
}

func TestCaptureWrapsExecutorError(t *testing.T) {
	exec := &stubExecutor{err: errors.New("boom")}
	client, err := engine.New(engine.Binaries{Capture: "cap", Compare: "cmp"}, engine.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Capture(context.Background(), engine.PurposeIdentify)
	if !errors.Is(err, engine.ErrProcess) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
}

func TestComparePassesProbeThenCandidate(t *testing.T) {
	exec := &stubExecutor{out: engine.Output{Stdout: " 72\n"}}
	client, err := engine.New(engine.Binaries{Capture: "cap", Compare: "cmp"}, engine.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	probe := testTemplate(t, "P")
	candidate := testTemplate(t, "C")

	out, err := client.Compare(context.Background(), probe, candidate)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if out != "72" {
		t.Fatalf("expected trimmed output, got %q", out)
	}
	args := exec.commands[0].Args
	if len(args) != 2 || args[0] != probe.Encoded() || args[1] != candidate.Encoded() {
		t.Fatalf("unexpected comparator args: %v", args)
	}
}

func TestNewFromConfigAppliesEngineSection(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.CaptureBinary = "verify"
	cfg.Engine.EnrollBinary = ""
	cfg.Engine.CompareBinary = "compare"

	client, err := engine.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	bins := client.Binaries()
	if bins.Capture != "verify" || bins.Enroll != "verify" || bins.Compare != "compare" {
		t.Fatalf("unexpected binaries: %+v", bins)
	}
}

func TestCaptureRealProcessReturnsStdoutOnNonZeroExit(t *testing.T) {
	line := strings.Repeat("Q", 110)
	script := writeScript(t, "capture", "echo 'SDK_LOG: ready'\necho '"+line+"'\nexit 3")
	client, err := engine.New(engine.Binaries{Capture: script, Compare: script})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := client.Capture(context.Background(), engine.PurposeIdentify)
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Stdout, line) {
		t.Fatalf("expected stdout to contain template line, got %q", result.Stdout)
	}
}

func TestCaptureRealProcessTimeout(t *testing.T) {
	script := writeScript(t, "capture", "exec sleep 5")
	client, err := engine.New(engine.Binaries{Capture: script, Compare: script},
		engine.WithCaptureTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	_, err = client.Capture(context.Background(), engine.PurposeIdentify)
	if !errors.Is(err, engine.ErrProcess) || !errors.Is(err, engine.ErrTimeout) {
		t.Fatalf("expected timeout process error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("capture was not bounded: took %s", elapsed)
	}
}

func TestCaptureRealProcessKilledBySignal(t *testing.T) {
	script := writeScript(t, "capture", "kill -9 $$")
	client, err := engine.New(engine.Binaries{Capture: script, Compare: script})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Capture(context.Background(), engine.PurposeIdentify)
	if !errors.Is(err, engine.ErrProcess) {
		t.Fatalf("expected process error for signalled capture, got %v", err)
	}
	if errors.Is(err, engine.ErrStart) {
		t.Fatalf("signalled capture started fine, got %v", err)
	}
}

func TestCaptureMissingBinary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	client, err := engine.New(engine.Binaries{Capture: missing, Compare: missing})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Capture(context.Background(), engine.PurposeIdentify)
	if !errors.Is(err, engine.ErrProcess) || !errors.Is(err, engine.ErrStart) {
		t.Fatalf("expected start failure for missing binary, got %v", err)
	}
}

func TestCompareRealProcessEchoesArguments(t *testing.T) {
	script := writeScript(t, "compare", `if [ "$#" -ne 2 ]; then echo bad; exit 1; fi
echo 88`)
	client, err := engine.New(engine.Binaries{Capture: script, Compare: script})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := client.Compare(context.Background(), testTemplate(t, "A"), testTemplate(t, "B"))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if out != "88" {
		t.Fatalf("expected 88, got %q", out)
	}
}

func TestCompareTimeoutWhenConfigured(t *testing.T) {
	script := writeScript(t, "compare", "exec sleep 5")
	client, err := engine.New(engine.Binaries{Capture: script, Compare: script},
		engine.WithCompareTimeout(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Compare(context.Background(), testTemplate(t, "A"), testTemplate(t, "B"))
	if !errors.Is(err, engine.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
