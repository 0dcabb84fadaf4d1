package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/arenalog/arenalog-go/internal/config"
	"github.com/arenalog/arenalog-go/internal/logging"
)

var (
	// Version information (set by ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	verbose    bool
	configPath string

	// settings is loaded once by the root command before any subcommand runs.
	settings *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arenalog",
	Short: "MTG Arena log parser and monitor",
	Long: `arenalog follows the log files written by the MTG Arena client and turns
them into match, draft and game-play events.

Events are output as JSON Lines by default, one object per line, so they
can be processed with tools like jq.

Settings are read from an optional YAML file (--config or $ARENALOG_CONFIG)
and from ARENALOG_* environment variables. Flags override both.

This is an unofficial tool and is not affiliated with Wizards of the Coast.`,
	SilenceUsage:      true, // Don't show usage on error
	PersistentPreRunE: setup,
}

func init() {
	// Global flags (inherited by all subcommands)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML config file")

	// Add subcommands
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration and initializes the global logger.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	if _, err := logging.Init(logging.Config{Level: level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()}); err != nil {
		return err
	}
	settings = cfg
	return nil
}

// currentSettings returns the loaded configuration, or the defaults when a
// command runs without the root pre-run (as in tests).
func currentSettings() *config.Config {
	if settings == nil {
		return config.Default()
	}
	return settings
}

// logger is only non-discarding once setup has run.
func logger() *slog.Logger {
	if settings == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logging.Slog()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "arenalog %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
