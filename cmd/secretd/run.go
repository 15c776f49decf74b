package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"kestrel-hq/secretd/pkg/config"
	"kestrel-hq/secretd/pkg/history"
	"kestrel-hq/secretd/pkg/secret"
	"kestrel-hq/secretd/pkg/server"
	"kestrel-hq/secretd/pkg/telemetry/health"
	"kestrel-hq/secretd/pkg/telemetry/logging"
	"kestrel-hq/secretd/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	secretPath    string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the secret daemon",
	Long: `Start the secret daemon with the specified configuration.

The daemon reads the mounted secret file on every request, watches the
mount directory for rotation swaps, and serves the HTTP surface on the
configured address.

Examples:
  # Start with default config
  secretd run

  # Start with custom config
  secretd run --config /etc/secretd/config.yaml

  # Override the secret path
  secretd run --secret-path /mnt/secrets-store/api-token

  # Validate config without starting
  secretd run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.secretPath, "secret-path", "", "override secret file path")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.secretPath != "" {
		cfg.Secret.Path = runFlags.secretPath
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration invalid after flag overrides: %w", err)
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	logger.Info("starting secretd",
		"version", Version,
		"config_file", cfgFile,
		"secret_path", cfg.Secret.Path,
		"test_mode", cfg.Secret.Mode == config.ModeTest,
	)

	// Metrics
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	// Secret cache
	cacheOpts := secret.Options{
		Path:     cfg.Secret.Path,
		TestMode: cfg.Secret.Mode == config.ModeTest,
		Logger:   logger,
	}
	if collector != nil {
		cacheOpts.Metrics = collector
	}
	cache := secret.NewCache(cacheOpts)

	// Rotation history
	var historyStore *history.Store
	if cfg.History.Enabled {
		historyStore, err = history.NewStore(&history.Config{
			Path:         cfg.History.Path,
			MaxOpenConns: cfg.History.MaxOpenConns,
			BusyTimeout:  cfg.History.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to open rotation history store: %w", err)
		}
		defer historyStore.Close()

		cache.OnRotation(func(result secret.ReloadResult) {
			_, err := historyStore.Record(context.Background(), history.Event{
				Trigger:        result.Trigger,
				OldFingerprint: secret.Fingerprint(result.OldValue),
				NewFingerprint: secret.Fingerprint(result.NewValue),
				ObservedAt:     result.Timestamp,
			})
			if err != nil {
				logger.Error("failed to record rotation", "error", err)
			}
		})

		logger.Info("rotation history enabled", "path", cfg.History.Path)
	}

	// Filesystem watcher. Setup failures degrade, never abort.
	if cfg.Watcher.Enabled {
		watcher := secret.NewWatcher(cache, &secret.WatcherConfig{
			DebounceInterval: cfg.Watcher.DebounceInterval,
		}, logger)
		if err := watcher.Start(); err != nil {
			logger.Warn("watcher failed to start, continuing without live updates", "error", err)
		}
		defer watcher.Close()
	} else {
		logger.Info("filesystem watcher disabled by configuration")
	}

	// Scheduled reconciliation
	var scheduler *secret.Scheduler
	if cfg.Reconcile.Schedule != "" {
		scheduler = secret.NewScheduler(cache, cfg.Reconcile.Schedule, logger)
		if err := scheduler.Start(cmd.Context()); err != nil {
			return fmt.Errorf("failed to start reconcile scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	// Health checks
	checker := health.New(0)
	checker.RegisterCheck("secret_source", func(ctx context.Context) error {
		status := cache.Status()
		if !status.Exists && !status.TestMode {
			return fmt.Errorf("secret file %s does not exist", cfg.Secret.Path)
		}
		return nil
	})
	if historyStore != nil {
		checker.RegisterCheck("rotation_history", historyStore.Ping)
	}

	// Prime the cache so the first request never pays for a cold start and
	// startup logs show the initial state.
	initial := cache.Status()
	logger.Debug("initial secret state",
		"exists", initial.Exists,
		"fingerprint", secret.Fingerprint(cache.Get()),
	)

	srv := server.New(server.Options{
		Config:       &cfg.Server,
		Cache:        cache,
		HistoryStore: historyStore,
		Scheduler:    scheduler,
		Metrics:      collector,
		MetricsPath:  cfg.Telemetry.Metrics.Path,
		Checker:      checker,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
		Logger: logger,
	})

	// Blocks until signal, context cancellation, or server error.
	return srv.Start(cmd.Context())
}
