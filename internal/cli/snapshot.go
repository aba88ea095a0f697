package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"focusmru/internal/logging"
	"focusmru/pkg/focus"
	"focusmru/pkg/utils"
)

var (
	snapshotJSON bool

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "List the running applications once",
		Long: `Enumerate the running regular applications once, in the order the
session reports them. The frontmost application is tagged KNOWN; every other
application is a GUESS whose recency is unknown.`,
		Args: cobra.NoArgs,
		RunE: runSnapshot,
	}
)

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "output JSON")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Close()

	h, err := newHost(cfg, logger)
	if err != nil {
		return errors.Wrap(err, "failed to initialize focus source")
	}

	tracker := focus.New(h.Source, h.Resolver, h.Workspace, focus.WithLogger(logger.Logger))
	defer tracker.Close()

	var entries []focus.PrepopulationEntry
	if err := tracker.Prepopulate(func(e focus.PrepopulationEntry) {
		entries = append(entries, e)
	}); err != nil {
		return errors.Wrap(err, "failed to enumerate applications")
	}

	if snapshotJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal JSON")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	printEntries(cmd.OutOrStdout(), h.DisplayServer, entries)
	return nil
}

func printEntries(out io.Writer, displayServer string, entries []focus.PrepopulationEntry) {
	fmt.Fprintf(out, "Display server: %s\n\n", displayServer)
	if len(entries) == 0 {
		fmt.Fprintln(out, "No running applications found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONFIDENCE\tPID\tNAME\tBUNDLE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.Confidence, e.PID, utils.Truncate(utils.OrDash(e.Name), 30), utils.OrDash(e.BundleID))
	}
	w.Flush()
}
