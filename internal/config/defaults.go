package config

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultDataDir        = "~/.local/share/fingergate"
	defaultLogDir         = "~/.local/share/fingergate/logs"
	defaultAPIBind        = "127.0.0.1:7590"
	defaultCaptureBinary  = "fp-verify"
	defaultEnrollBinary   = "fp-save"
	defaultCompareBinary  = "fp-compare"
	defaultCaptureTimeout = 15
	defaultConnectTimeout = 5
	defaultRetryDelayMS   = 500
	defaultCooldownMS     = 1000
	defaultErrorDelayMS   = 1000
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultSQLiteFile     = "fingergate.db"
	defaultPostgresPort   = "5432"
	defaultPostgresSSL    = "disable"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Engine: Engine{
			CaptureBinary:  defaultCaptureBinary,
			EnrollBinary:   defaultEnrollBinary,
			CompareBinary:  defaultCompareBinary,
			CaptureTimeout: defaultCaptureTimeout,
		},
		Storage: Storage{
			Driver:         DriverSQLite,
			ConnectTimeout: defaultConnectTimeout,
		},
		Enrollment: Enrollment{
			AllowDuplicateIdentifiers: true,
		},
		Polling: Polling{
			RetryDelayMS: defaultRetryDelayMS,
			CooldownMS:   defaultCooldownMS,
			ErrorDelayMS: defaultErrorDelayMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
