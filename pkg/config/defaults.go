package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultSecretPath      = "/mnt/secrets-store/my-secret"
	DefaultDebounce        = 100 * time.Millisecond
	DefaultHistoryPath     = "data/rotations.db"
	DefaultMetricsPath     = "/metrics"
	DefaultMetricsNS       = "secretd"
	DefaultShutdownTimeout = 15 * time.Second
)

// NewDefault returns a configuration populated entirely from defaults.
// Boolean fields that default to true are set here rather than in
// ApplyDefaults: the loader unmarshals YAML into a NewDefault config so an
// explicit `enabled: false` survives, while a missing key keeps the default.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Watcher.Enabled = true
	cfg.Telemetry.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20
	}

	if cfg.Secret.Path == "" {
		cfg.Secret.Path = DefaultSecretPath
	}

	if cfg.Watcher.DebounceInterval == 0 {
		cfg.Watcher.DebounceInterval = DefaultDebounce
	}

	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.MaxOpenConns == 0 {
		cfg.History.MaxOpenConns = 4
	}
	if cfg.History.BusyTimeout == 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNS
	}
}
