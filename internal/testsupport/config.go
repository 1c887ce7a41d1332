package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"fingergate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.Driver = config.DriverSQLite
	cfgVal.Storage.SQLitePath = filepath.Join(base, "data", "fingergate.db")
	cfgVal.Polling.RetryDelayMS = 1
	cfgVal.Polling.CooldownMS = 1
	cfgVal.Polling.ErrorDelayMS = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithDuplicateIdentifiers toggles the enrollment duplicate policy.
func WithDuplicateIdentifiers(allow bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrollment.AllowDuplicateIdentifiers = allow
	}
}

// WithPolling enables the daemon poller with the given delays in milliseconds.
func WithPolling(retryMS, cooldownMS, errorMS int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Polling.Enabled = true
		b.cfg.Polling.RetryDelayMS = retryMS
		b.cfg.Polling.CooldownMS = cooldownMS
		b.cfg.Polling.ErrorDelayMS = errorMS
	}
}

// WithEngineScripts writes capture and compare shell scripts and points the
// engine section at them.
func WithEngineScripts(captureBody, compareBody string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		b.cfg.Engine.CaptureBinary = WriteScript(b.t, binDir, "fp-verify", captureBody)
		b.cfg.Engine.EnrollBinary = b.cfg.Engine.CaptureBinary
		b.cfg.Engine.CompareBinary = WriteScript(b.t, binDir, "fp-compare", compareBody)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default engine binaries are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Engine.CaptureBinary, b.cfg.Engine.EnrollBinary, b.cfg.Engine.CompareBinary}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0")
		}
		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// WriteScript writes an executable /bin/sh script named name into dir and
// returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	content := []byte("#!/bin/sh\n" + body + "\n")
	if err := os.WriteFile(target, content, 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return target
}
