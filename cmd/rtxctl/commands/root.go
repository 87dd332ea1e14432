package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath   string
	logLevel     string
	outputFormat string
	hosts        []string
	groups       []string
	checkMode    bool
	parallel     int
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rtxctl",
		Short: "rtxctl - configuration management for Yamaha RTX routers",
		Long: `rtxctl drives Yamaha RTX routers over their SSH command line.

Features:
  - Run commands and wait for conditions over their output
  - Reconcile configuration lines against the running configuration
  - Diff the running configuration against an intended one
  - Back up configurations and keep a history of every run
  - Gate pushed commands through Rego policies`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default ~/.config/rtxctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, yaml)")
	rootCmd.PersistentFlags().StringSliceVarP(&hosts, "host", "H", nil, "target device names or addresses")
	rootCmd.PersistentFlags().StringSliceVarP(&groups, "group", "g", nil, "target device groups")
	rootCmd.PersistentFlags().BoolVar(&checkMode, "check", false, "compute changes without applying them")
	rootCmd.PersistentFlags().IntVar(&parallel, "parallel", 0, "maximum concurrent device sessions (default from config)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newCommandCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newBackupCommand())
	rootCmd.AddCommand(newFactsCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newPolicyCommand())

	return rootCmd
}
