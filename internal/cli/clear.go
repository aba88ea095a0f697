package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	clearYes bool

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every journaled event and error",
		Args:  cobra.NoArgs,
		RunE:  runClear,
	}
)

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !clearYes {
		fmt.Fprint(out, "This will delete all tracking data. Are you sure? (yes/no): ")
		response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "yes" && response != "y" {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}
	}

	db, repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Clear(); err != nil {
		return errors.Wrap(err, "failed to clear database")
	}

	fmt.Fprintln(out, "Database cleared successfully")
	return nil
}
