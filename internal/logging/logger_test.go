package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fingergate/internal/config"
	"fingergate/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon started", logging.String(logging.FieldComponent, "daemon"))

	content, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon: daemon started") {
		t.Fatalf("expected component prefix in console output, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") || !strings.Contains(string(content), "visible") {
		t.Fatalf("expected info level filtering, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "context.json")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = logging.WithAttemptID(ctx, "attempt-1")
	ctx = logging.WithMode(ctx, "identify")
	ctx = logging.WithRequestID(ctx, "req-xyz")

	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", content, err)
	}
	for key, want := range map[string]string{
		logging.FieldAttemptID:     "attempt-1",
		logging.FieldMode:          "identify",
		logging.FieldCorrelationID: "req-xyz",
		"msg":                      "contextual log",
		"level":                    "info",
	} {
		if got, _ := entry[key].(string); got != want {
			t.Fatalf("field %s = %q, want %q", key, got, want)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.json")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "comparator output unreadable", "compare_parse_failed",
		logging.String(logging.FieldImpact, "candidate skipped"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry[logging.FieldEventType] != "compare_parse_failed" {
		t.Fatalf("unexpected event type: %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldImpact] != "candidate skipped" {
		t.Fatalf("expected caller impact to win, got %v", entry[logging.FieldImpact])
	}
	if entry[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error hint")
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	sampler := logging.NewProgressSampler(25)
	var emitted []int
	for checked := 0; checked <= 8; checked++ {
		if sampler.ShouldLog(checked, 8) {
			emitted = append(emitted, checked)
		}
	}
	want := []int{0, 2, 4, 6, 8}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted %v, want %v", emitted, want)
		}
	}

	if !sampler.ShouldLog(0, 3) {
		t.Fatal("expected a new total to restart sampling")
	}
	if sampler.ShouldLog(0, 0) {
		t.Fatal("expected empty scans to stay quiet")
	}
}

func TestConsoleLineLiftsAttemptFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "attempt.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithAttemptID(context.Background(), "3f2a9c")
	ctx = logging.WithMode(ctx, "enroll")
	ctx = logging.WithIdentifier(ctx, "alice")
	worker := logging.NewComponentLogger(logger, "worker")
	logging.WithContext(ctx, worker).Info("enrollment saved", logging.Int64("record_id", 7))
	logging.NewComponentLogger(worker, "engine").Info("capture finished", logging.String("stdout", "two words"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", content)
	}
	if !strings.Contains(lines[0], "INFO  worker [3f2a9c alice]: enrollment saved mode=enroll record_id=7") {
		t.Fatalf("unexpected attempt line %q", lines[0])
	}
	for _, key := range []string{"attempt_id=", "identifier=", "component="} {
		if strings.Contains(lines[0], key) {
			t.Fatalf("expected %s lifted out of the fields, got %q", key, lines[0])
		}
	}
	if !strings.Contains(lines[1], "worker: capture finished stdout=\"two words\"") {
		t.Fatalf("expected outer component and quoted value, got %q", lines[1])
	}
}

func TestConsoleLineQualifiesGroupedFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "group.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.WithGroup("compare").Info("comparator finished",
		logging.Int("exit_code", 0),
		logging.String(logging.FieldIdentifier, "bob"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(content))
	if !strings.HasSuffix(line, "comparator finished compare.exit_code=0 compare.identifier=bob") {
		t.Fatalf("expected group-qualified fields, got %q", line)
	}
}
