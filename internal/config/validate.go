package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.CaptureBinary == "" {
		return errors.New("engine.capture_binary must be set")
	}
	if c.Engine.CompareBinary == "" {
		return errors.New("engine.compare_binary must be set")
	}
	if c.Engine.CaptureTimeout < 0 {
		return errors.New("engine.capture_timeout must be positive")
	}
	if c.Engine.CompareTimeout < 0 {
		return errors.New("engine.compare_timeout must be zero (unbounded) or positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path must be set for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver. Set FINGERGATE_DATABASE_URL or DB_HOST/DB_NAME/DB_USER/DB_PASSWORD")
		}
	default:
		return fmt.Errorf("storage.driver: unsupported value %q (expected sqlite or postgres)", c.Storage.Driver)
	}
	return nil
}

func (c *Config) validatePolling() error {
	if c.Polling.RetryDelayMS < 0 {
		return errors.New("polling.retry_delay_ms must be non-negative")
	}
	if c.Polling.CooldownMS < 0 {
		return errors.New("polling.cooldown_ms must be non-negative")
	}
	if c.Polling.ErrorDelayMS < 0 {
		return errors.New("polling.error_delay_ms must be non-negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
