package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"fingergate/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("FINGERGATE_API_TOKEN", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "fingergate")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Storage.Driver != config.DriverSQLite {
		t.Fatalf("expected sqlite driver by default, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.SQLitePath != filepath.Join(wantData, "fingergate.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Storage.SQLitePath)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7590" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.CaptureTimeout() != 15*time.Second {
		t.Fatalf("unexpected capture timeout: %s", cfg.CaptureTimeout())
	}
	if cfg.CompareTimeout() != 0 {
		t.Fatalf("expected unbounded compare timeout, got %s", cfg.CompareTimeout())
	}
	if cfg.RetryDelay() != 500*time.Millisecond || cfg.Cooldown() != time.Second || cfg.ErrorDelay() != time.Second {
		t.Fatalf("unexpected polling delays: %s %s %s", cfg.RetryDelay(), cfg.Cooldown(), cfg.ErrorDelay())
	}
	if !cfg.Enrollment.AllowDuplicateIdentifiers {
		t.Fatal("expected duplicate identifiers to be allowed by default")
	}
	if cfg.Polling.Enabled {
		t.Fatal("expected polling disabled by default")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if filepath.Dir(cfg.LockPath()) != cfg.Paths.LogDir {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "fingergate.toml")

	type payload struct {
		Engine struct {
			CaptureBinary  string `toml:"capture_binary"`
			CompareBinary  string `toml:"compare_binary"`
			CaptureTimeout int    `toml:"capture_timeout"`
			CompareTimeout int    `toml:"compare_timeout"`
		} `toml:"engine"`
		Storage struct {
			SQLitePath string `toml:"sqlite_path"`
		} `toml:"storage"`
		Polling struct {
			Enabled    bool `toml:"enabled"`
			CooldownMS int  `toml:"cooldown_ms"`
		} `toml:"polling"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Engine.CaptureBinary = "  /opt/sdk/verify  "
	custom.Engine.CompareBinary = "/opt/sdk/compare"
	custom.Engine.CaptureTimeout = 30
	custom.Engine.CompareTimeout = 2
	custom.Storage.SQLitePath = filepath.Join(tempDir, "db", "templates.db")
	custom.Polling.Enabled = true
	custom.Polling.CooldownMS = 2500
	custom.Logging.Format = "JSON"
	custom.Logging.Level = "Debug"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Engine.CaptureBinary != "/opt/sdk/verify" {
		t.Fatalf("expected trimmed capture binary, got %q", cfg.Engine.CaptureBinary)
	}
	if cfg.Engine.EnrollBinary != config.Default().Engine.EnrollBinary {
		t.Fatalf("expected default enroll binary, got %q", cfg.Engine.EnrollBinary)
	}
	if cfg.CaptureTimeout() != 30*time.Second || cfg.CompareTimeout() != 2*time.Second {
		t.Fatalf("unexpected timeouts: %s %s", cfg.CaptureTimeout(), cfg.CompareTimeout())
	}
	if cfg.Storage.SQLitePath != custom.Storage.SQLitePath {
		t.Fatalf("unexpected sqlite path: %q", cfg.Storage.SQLitePath)
	}
	if !cfg.Polling.Enabled || cfg.Cooldown() != 2500*time.Millisecond {
		t.Fatalf("unexpected polling config: %+v", cfg.Polling)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging config, got %+v", cfg.Logging)
	}
}

func TestLoadRejectsMalformedConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[engine\ncapture_binary ="), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestEnrollBinaryFallsBackToCaptureBinary(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "fingergate.toml")
	content := "[engine]\ncapture_binary = \"/sdk/capture\"\nenroll_binary = \"\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Engine.EnrollBinary != "/sdk/capture" {
		t.Fatalf("expected enroll binary to fall back to capture binary, got %q", cfg.Engine.EnrollBinary)
	}
}

func TestPostgresDSNFromDiscreteEnvironment(t *testing.T) {
	t.Setenv("FINGERGATE_DATABASE_URL", "")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_NAME", "access")
	t.Setenv("DB_USER", "gate")
	t.Setenv("DB_PASSWORD", "s3cret pass")

	configPath := filepath.Join(t.TempDir(), "fingergate.toml")
	if err := os.WriteFile(configPath, []byte("[storage]\ndriver = \"PostgreSQL\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Storage.Driver)
	}
	want := "host=db.internal port=5432 dbname=access user=gate password='s3cret pass' sslmode=disable"
	if cfg.Storage.DSN != want {
		t.Fatalf("unexpected dsn:\n got %q\nwant %q", cfg.Storage.DSN, want)
	}
}

func TestPostgresDSNPrefersDatabaseURL(t *testing.T) {
	t.Setenv("FINGERGATE_DATABASE_URL", "postgres://gate:pw@localhost:5432/access")
	t.Setenv("DB_HOST", "ignored")

	configPath := filepath.Join(t.TempDir(), "fingergate.toml")
	if err := os.WriteFile(configPath, []byte("[storage]\ndriver = \"postgres\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	loaded, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Storage.DSN != "postgres://gate:pw@localhost:5432/access" {
		t.Fatalf("unexpected dsn: %q", loaded.Storage.DSN)
	}

	encoded, err := loaded.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if strings.Contains(string(encoded), ":pw@") {
		t.Fatalf("expected password to be redacted, got:\n%s", encoded)
	}
}

func TestPostgresWithoutDSNFailsValidation(t *testing.T) {
	t.Setenv("FINGERGATE_DATABASE_URL", "")
	t.Setenv("DB_HOST", "")

	configPath := filepath.Join(t.TempDir(), "fingergate.toml")
	if err := os.WriteFile(configPath, []byte("[storage]\ndriver = \"postgres\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "storage.dsn") {
		t.Fatalf("expected dsn validation error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing capture binary", func(c *config.Config) { c.Engine.CaptureBinary = "" }, "engine.capture_binary"},
		{"missing compare binary", func(c *config.Config) { c.Engine.CompareBinary = "" }, "engine.compare_binary"},
		{"negative compare timeout", func(c *config.Config) { c.Engine.CompareTimeout = -1 }, "engine.compare_timeout"},
		{"unknown driver", func(c *config.Config) { c.Storage.Driver = "mysql" }, "storage.driver"},
		{"negative retry delay", func(c *config.Config) { c.Polling.RetryDelayMS = -5 }, "polling.retry_delay_ms"},
		{"negative cooldown", func(c *config.Config) { c.Polling.CooldownMS = -5 }, "polling.cooldown_ms"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "fingergate.db")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	configPath := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(configPath); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Engine.CompareBinary != config.Default().Engine.CompareBinary {
		t.Fatalf("unexpected compare binary from sample: %q", cfg.Engine.CompareBinary)
	}
	if cfg.Storage.SQLitePath != filepath.Join(tempHome, ".local", "share", "fingergate", "fingergate.db") {
		t.Fatalf("unexpected sqlite path from sample: %q", cfg.Storage.SQLitePath)
	}
}

func TestEncodeRedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIToken = "top-secret"
	cfg.Storage.DSN = "host=db user=gate password=hunter2 sslmode=disable"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "top-secret") || strings.Contains(text, "hunter2") {
		t.Fatalf("expected secrets redacted, got:\n%s", text)
	}
	if !strings.Contains(text, "password=xxxxx") {
		t.Fatalf("expected redacted password marker, got:\n%s", text)
	}
}
