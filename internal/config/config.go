package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Engine names the vendor executables and their time bounds.
type Engine struct {
	CaptureBinary string `toml:"capture_binary"`
	EnrollBinary  string `toml:"enroll_binary"`
	CompareBinary string `toml:"compare_binary"`
	WorkDir       string `toml:"work_dir"`
	// CaptureTimeout in seconds. Default: 15
	CaptureTimeout int `toml:"capture_timeout"`
	// CompareTimeout in seconds. 0 leaves comparator calls unbounded.
	CompareTimeout int `toml:"compare_timeout"`
}

// Storage selects the enrollment store backend.
type Storage struct {
	Driver     string `toml:"driver"` // "sqlite" or "postgres"
	SQLitePath string `toml:"sqlite_path"`
	DSN        string `toml:"dsn"`
	// ConnectTimeout in seconds for the initial connectivity check.
	ConnectTimeout int `toml:"connect_timeout"`
}

// Enrollment contains enrollment policy.
type Enrollment struct {
	AllowDuplicateIdentifiers bool `toml:"allow_duplicate_identifiers"`
}

// Polling contains continuous identification timing.
type Polling struct {
	Enabled      bool `toml:"enabled"`
	RetryDelayMS int  `toml:"retry_delay_ms"`
	CooldownMS   int  `toml:"cooldown_ms"`
	ErrorDelayMS int  `toml:"error_delay_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for fingergate.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Engine: capture and comparator executables
//   - Storage: SQLite or PostgreSQL enrollment store
//   - Enrollment: identifier policy
//   - Polling: continuous identification delays
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Engine     Engine     `toml:"engine"`
	Storage    Storage    `toml:"storage"`
	Enrollment Enrollment `toml:"enrollment"`
	Polling    Polling    `toml:"polling"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fingergate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("fingergate.toml")
	if err != nil {
		return "", false, fmt.Errorf("resolve project config: %w", err)
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Storage.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	return nil
}

// CaptureTimeout returns the capture bound as a duration.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Engine.CaptureTimeout) * time.Second
}

// CompareTimeout returns the comparator bound; zero means unbounded.
func (c *Config) CompareTimeout() time.Duration {
	return time.Duration(c.Engine.CompareTimeout) * time.Second
}

// ConnectTimeout bounds storage connectivity checks.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Storage.ConnectTimeout) * time.Second
}

// RetryDelay is the pause after a cycle that produced no new probe.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Polling.RetryDelayMS) * time.Millisecond
}

// Cooldown is the pause after a reported outcome in polling mode.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Polling.CooldownMS) * time.Millisecond
}

// ErrorDelay is the pause after a failed cycle in polling mode.
func (c *Config) ErrorDelay() time.Duration {
	return time.Duration(c.Polling.ErrorDelayMS) * time.Millisecond
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "fingergated.lock")
}

// PIDPath returns the file the daemon records its process id in.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "fingergated.pid")
}

// LogPath returns the daemon log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "fingergate.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML with the API token and DSN password redacted.
func (c *Config) Encode() ([]byte, error) {
	clone := *c
	if clone.Paths.APIToken != "" {
		clone.Paths.APIToken = "<redacted>"
	}
	clone.Storage.DSN = redactDSN(clone.Storage.DSN)
	data, err := toml.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
		return "<redacted>"
	}
	fields := strings.Fields(dsn)
	for i, field := range fields {
		if strings.HasPrefix(field, "password=") {
			fields[i] = "password=xxxxx"
		}
	}
	return strings.Join(fields, " ")
}
