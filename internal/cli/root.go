// Package cli implements the focusmru command line.
package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"focusmru/internal/config"
)

var (
	configFile string
	logLevel   string

	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	// RootCmd is the root command for focusmru
	RootCmd = &cobra.Command{
		Use:   "focusmru",
		Short: "Most-recently-used application tracker",
		Long: `focusmru follows which application is in the foreground and keeps a
most-recently-used ordering of the running applications.

On start the ordering is seeded from the applications already running: the
frontmost one is KNOWN, every other one is a GUESS. Live activations then move
applications to the front and terminations remove them.

Supported sessions: X11 (EWMH window managers), sway, macOS, and a procfs
fallback that only tracks launches and exits.`,
		Example: `  # Print MRU changes as they happen
  focusmru watch

  # Show the running applications once
  focusmru snapshot

  # Record in the background and serve the web API
  focusmru serve --daemon

  # Activation counts for this week
  focusmru report week`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ~/.config/focusmru/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(snapshotCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(stopCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(reportCmd)
	RootCmd.AddCommand(clearCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// SetVersion records build information shown by `focusmru version`.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid --log-level")
		}
	}
	return cfg, nil
}
