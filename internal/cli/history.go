package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"focusmru/pkg/utils"
)

var (
	historyLimit int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List the most recent journaled events",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "number of events (default from config)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit := cfg.Report.HistoryLimit
	if historyLimit > 0 {
		limit = historyLimit
	}

	db, repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	events, err := repo.GetRecent(limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No events recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tPID\tCONFIDENCE\tNAME\tBUNDLE")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Kind,
			e.PID,
			utils.OrDash(e.Confidence),
			utils.Truncate(utils.OrDash(e.AppName), 30),
			utils.OrDash(e.BundleID))
	}
	return w.Flush()
}
