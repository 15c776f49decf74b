package config

import "time"

// Mode values for SecretConfig.Mode.
const (
	// ModeProduction reads the secret from the mounted file and reports
	// read failures as the unavailable sentinel.
	ModeProduction = ""

	// ModeTest disables the live watcher and resolves read failures to a
	// fixed placeholder value instead of the unavailable sentinel.
	ModeTest = "test"
)

// Config is the root configuration structure for secretd.
type Config struct {
	// Server contains HTTP server configuration including listen address
	// and timeouts.
	Server ServerConfig `yaml:"server"`

	// Secret contains the secret source configuration: file path and
	// execution mode.
	Secret SecretConfig `yaml:"secret"`

	// Watcher contains filesystem watcher configuration.
	Watcher WatcherConfig `yaml:"watcher"`

	// Reconcile contains the scheduled reconciliation configuration used
	// as a fallback on platforms with unreliable change notification.
	Reconcile ReconcileConfig `yaml:"reconcile"`

	// History contains the rotation audit store configuration.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// SecretConfig contains configuration for the secret source.
type SecretConfig struct {
	// Path is the mounted secret file. The parent directory is expected to
	// follow the CSI atomic-swap convention (a "..data" indirection entry
	// repointed on rotation).
	// Default: "/mnt/secrets-store/my-secret"
	Path string `yaml:"path"`

	// Mode selects the execution mode. When set to "test" the live watcher
	// is disabled and read failures resolve to a fixed placeholder.
	// Default: "" (production)
	Mode string `yaml:"mode"`
}

// WatcherConfig contains configuration for the filesystem watcher.
type WatcherConfig struct {
	// Enabled controls whether the directory watch is installed. When
	// disabled, reads remain correct but staleness is bounded only by
	// request frequency and the reconcile schedule.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// DebounceInterval is how long to wait after a qualifying filesystem
	// event before reloading, letting a multi-step atomic swap settle.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// ReconcileConfig contains configuration for scheduled reconciliation.
type ReconcileConfig struct {
	// Schedule is a standard cron expression (e.g. "*/5 * * * *"). Empty
	// disables scheduled reconciliation.
	// Default: "" (disabled)
	Schedule string `yaml:"schedule"`
}

// HistoryConfig contains configuration for the rotation audit store.
type HistoryConfig struct {
	// Enabled controls whether observed rotations are persisted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file path.
	// Default: "data/rotations.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the Prometheus metric namespace.
	// Default: "secretd"
	Namespace string `yaml:"namespace"`
}
