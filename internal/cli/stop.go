package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"focusmru/internal/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a background focusmru serve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dm := daemon.New(cfg.Daemon.PIDFile)
		running, pid, err := dm.IsRunning()
		if err != nil {
			return errors.Wrap(err, "failed to check daemon status")
		}

		out := cmd.OutOrStdout()
		if !running {
			fmt.Fprintln(out, "Daemon is not running")
			return nil
		}

		fmt.Fprintf(out, "Stopping daemon (PID: %d)...\n", pid)
		if err := dm.Stop(); err != nil {
			return errors.Wrap(err, "failed to stop daemon")
		}

		fmt.Fprintln(out, "Daemon stopped successfully")
		return nil
	},
}
