package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first problem found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		return fmt.Errorf("invalid server.listen_address %q: %w", cfg.Server.ListenAddress, err)
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}

	if !filepath.IsAbs(cfg.Secret.Path) {
		return fmt.Errorf("secret.path must be absolute, got %q", cfg.Secret.Path)
	}
	switch cfg.Secret.Mode {
	case ModeProduction, ModeTest:
	default:
		return fmt.Errorf("invalid secret.mode %q (expected empty or %q)", cfg.Secret.Mode, ModeTest)
	}

	if cfg.Watcher.DebounceInterval <= 0 {
		return fmt.Errorf("watcher.debounce_interval must be positive")
	}

	if cfg.Reconcile.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Reconcile.Schedule); err != nil {
			return fmt.Errorf("invalid reconcile.schedule %q: %w", cfg.Reconcile.Schedule, err)
		}
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}

	switch strings.ToLower(cfg.Telemetry.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid telemetry.logging.level %q", cfg.Telemetry.Logging.Level)
	}
	switch strings.ToLower(cfg.Telemetry.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid telemetry.logging.format %q", cfg.Telemetry.Logging.Format)
	}

	if cfg.Telemetry.Metrics.Enabled && !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
		return fmt.Errorf("telemetry.metrics.path must start with '/', got %q", cfg.Telemetry.Metrics.Path)
	}

	return nil
}
