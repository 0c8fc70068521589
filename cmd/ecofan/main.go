// Ecofan controls Matt's Gadgets eCO ceiling fans over the local network.
//
// It validates fan addresses, keeps a registry of configured fans, sends
// power and speed commands, and can run as a long-lived bridge that polls
// every fan and exposes them over HTTP, WebSocket, MQTT and Prometheus.
//
// Usage:
//
//	ecofan [command] [flags]
//
// Running without arguments launches the interactive setup wizard.
// See 'ecofan --help' for available commands.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/ecofan/internal/config"
	"github.com/muurk/ecofan/internal/logging"
	"github.com/muurk/ecofan/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "ecofan",
	Short: "Matt's Gadgets eCO ceiling fan controller",
	Long: `Control Matt's Gadgets eCO ceiling fans on your local network.

Each fan exposes a small HTTP API at <host>/api/state. This tool checks
that an address answers like a fan, remembers the fans you add, and
switches them on, off, or between the low, medium and high presets.

If no command is specified, the interactive setup wizard will launch.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runWizard,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the fan registry (default: $XDG_CONFIG_HOME/ecofan/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout for each fan (default: from config, 10s)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ecofan %s (commit: %s)\n", version.Version, version.Commit)
	},
}

// loadRegistry reads the registry from --config or the default location.
func loadRegistry() (*config.Registry, error) {
	var (
		reg *config.Registry
		err error
	)
	if configPath != "" {
		reg, err = config.LoadRegistryFrom(configPath)
	} else {
		reg, err = config.LoadRegistry()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return reg, nil
}

// requestTimeout returns --timeout, falling back to the registry preference.
func requestTimeout(reg *config.Registry) time.Duration {
	if timeout > 0 {
		return timeout
	}
	if reg != nil && reg.Preferences != nil && reg.Preferences.Timeout > 0 {
		return reg.Preferences.Timeout
	}
	return config.DefaultTimeout
}
