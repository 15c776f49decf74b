package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "secretd",
	Short: "secretd - rotation-aware secret file daemon",
	Long: `Secretd serves a file-mounted secret with rotation awareness.

It keeps a read-through cache over a secret file delivered by a CSI-style
mount, watches the mount directory for atomic rotation swaps, and exposes
an HTTP surface providing:
  - Secret retrieval with deterministic fallbacks
  - Rotation detection via filesystem events and scheduled reconciliation
  - Manual reload and diagnostic endpoints
  - A persistent rotation audit history`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
