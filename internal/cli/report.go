package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"focusmru/internal/reporter"
)

var (
	reportJSON bool

	reportCmd = &cobra.Command{
		Use:       "report [day|week|month]",
		Short:     "Count activations per application",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "today", "week", "month"},
		RunE:      runReport,
	}
)

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "output JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	periodType := "day"
	if len(args) > 0 {
		periodType = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rep := reporter.New(cfg, repo)
	report, err := rep.GenerateReport(periodType)
	if err != nil {
		return errors.Wrap(err, "failed to generate report")
	}

	out := cmd.OutOrStdout()
	if reportJSON {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, jsonStr)
		return nil
	}

	fmt.Fprint(out, rep.FormatReportText(report))
	return nil
}
