package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("FINGERGATE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeEngine() error {
	c.Engine.CaptureBinary = strings.TrimSpace(c.Engine.CaptureBinary)
	c.Engine.EnrollBinary = strings.TrimSpace(c.Engine.EnrollBinary)
	c.Engine.CompareBinary = strings.TrimSpace(c.Engine.CompareBinary)
	if c.Engine.EnrollBinary == "" {
		c.Engine.EnrollBinary = c.Engine.CaptureBinary
	}
	if c.Engine.CaptureTimeout == 0 {
		c.Engine.CaptureTimeout = defaultCaptureTimeout
	}
	if strings.TrimSpace(c.Engine.WorkDir) != "" {
		var err error
		if c.Engine.WorkDir, err = expandPath(c.Engine.WorkDir); err != nil {
			return fmt.Errorf("engine.work_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "", "sqlite3":
		c.Storage.Driver = DriverSQLite
	case "postgresql", "pg":
		c.Storage.Driver = DriverPostgres
	}
	if c.Storage.ConnectTimeout <= 0 {
		c.Storage.ConnectTimeout = defaultConnectTimeout
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			c.Storage.SQLitePath = filepath.Join(c.Paths.DataDir, defaultSQLiteFile)
		}
		var err error
		if c.Storage.SQLitePath, err = expandPath(c.Storage.SQLitePath); err != nil {
			return fmt.Errorf("storage.sqlite_path: %w", err)
		}
	case DriverPostgres:
		c.Storage.DSN = strings.TrimSpace(c.Storage.DSN)
		if c.Storage.DSN == "" {
			c.Storage.DSN = postgresDSNFromEnv()
		}
	}
	return nil
}

// postgresDSNFromEnv honours FINGERGATE_DATABASE_URL, then the discrete
// DB_HOST/DB_NAME/DB_USER/DB_PASSWORD/DB_PORT variables.
func postgresDSNFromEnv() string {
	if value, ok := os.LookupEnv("FINGERGATE_DATABASE_URL"); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	host := strings.TrimSpace(os.Getenv("DB_HOST"))
	if host == "" {
		return ""
	}
	parts := []string{"host=" + host}
	port := strings.TrimSpace(os.Getenv("DB_PORT"))
	if port == "" {
		port = defaultPostgresPort
	}
	parts = append(parts, "port="+port)
	if name := strings.TrimSpace(os.Getenv("DB_NAME")); name != "" {
		parts = append(parts, "dbname="+name)
	}
	if user := strings.TrimSpace(os.Getenv("DB_USER")); user != "" {
		parts = append(parts, "user="+user)
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		parts = append(parts, "password="+quoteDSNValue(password))
	}
	parts = append(parts, "sslmode="+defaultPostgresSSL)
	return strings.Join(parts, " ")
}

func quoteDSNValue(value string) string {
	if !strings.ContainsAny(value, " '\\") {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
