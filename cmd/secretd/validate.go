package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kestrel-hq/secretd/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file without starting the daemon.

Environment variable overrides (SECRETD_*) are applied before validation,
so the result reflects the configuration the daemon would actually run
with.

Examples:
  # Validate the default config file
  secretd validate

  # Validate a specific file
  secretd validate --config /etc/secretd/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Println("✓ Configuration valid")
	if verbose {
		fmt.Printf("  secret path:       %s\n", cfg.Secret.Path)
		fmt.Printf("  listen address:    %s\n", cfg.Server.ListenAddress)
		fmt.Printf("  watcher enabled:   %t\n", cfg.Watcher.Enabled)
		fmt.Printf("  debounce interval: %s\n", cfg.Watcher.DebounceInterval)
		if cfg.Reconcile.Schedule != "" {
			fmt.Printf("  reconcile schedule: %s\n", cfg.Reconcile.Schedule)
		}
		fmt.Printf("  history enabled:   %t\n", cfg.History.Enabled)
	}
	return nil
}
