package cli

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"focusmru/internal/daemon"
	"focusmru/internal/models"
	"focusmru/pkg/host"
	"focusmru/pkg/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and the latest activation",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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
		fmt.Fprintln(out, "Status: Not running")
	} else {
		fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
		fmt.Fprintf(out, "Web API: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}

	fmt.Fprintf(out, "Display server: %s (configured: %s)\n", host.DetectDisplayServer(), cfg.Tracker.DisplayServer)
	fmt.Fprintf(out, "Poll interval: %v\n", cfg.Tracker.PollInterval)

	db, repo, err := openRepository(cfg)
	if err != nil {
		fmt.Fprintf(out, "\nJournal unavailable: %v\n", err)
		return nil
	}
	defer db.Close()

	count, err := repo.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Journaled events: %d\n", count)

	latest, err := repo.GetLatest(models.KindActivation)
	if err != nil {
		return err
	}
	if latest != nil {
		ago := int64(time.Since(latest.Timestamp).Seconds())
		fmt.Fprintf(out, "\nLatest activation:\n")
		fmt.Fprintf(out, "  App: %s\n", utils.OrDash(latest.AppName))
		fmt.Fprintf(out, "  Bundle: %s\n", utils.OrDash(latest.BundleID))
		fmt.Fprintf(out, "  PID: %d\n", latest.PID)
		fmt.Fprintf(out, "  When: %s ago\n", utils.FormatRoundedUnit(ago))
	}

	errs, err := repo.GetRecentErrors(1)
	if err == nil && len(errs) > 0 {
		fmt.Fprintf(out, "\nLast error (%s): %s\n", errs[0].Component, errs[0].ErrorMsg)
	}
	return nil
}
