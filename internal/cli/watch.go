package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"focusmru/internal/models"
	"focusmru/internal/mru"
	"focusmru/internal/recorder"
	"focusmru/pkg/utils"
)

var (
	watchJSON      bool
	watchTop       int
	watchNoJournal bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print MRU changes as applications are activated",
		Long: `Seed the MRU ordering from the running applications, then print the
ordering every time an application is activated or terminates.

Press Ctrl+C to stop.`,
		Example: `  focusmru watch
  focusmru watch --top 5
  focusmru watch --json | jq .`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print one JSON object per change")
	watchCmd.Flags().IntVar(&watchTop, "top", 10, "number of stack entries to print (0 for all)")
	watchCmd.Flags().BoolVar(&watchNoJournal, "no-journal", false, "do not store events in the database")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchNoJournal {
		cfg.Tracker.Journal = false
	}

	printer := &changePrinter{out: cmd.OutOrStdout(), json: watchJSON, top: watchTop}

	s, err := openSession(cfg, printer.print)
	if err != nil {
		return err
	}
	defer s.close()

	return s.run(cmd.Context())
}

// changePrinter writes recorder changes; it is called from the delivery
// goroutine and the prepopulation path.
type changePrinter struct {
	mu   sync.Mutex
	out  io.Writer
	json bool
	top  int
}

type changeLine struct {
	Time  time.Time   `json:"time"`
	Kind  string      `json:"kind"`
	Entry mru.Entry   `json:"entry"`
	Stack []mru.Entry `json:"stack"`
}

func (p *changePrinter) print(c recorder.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stack := c.Stack
	if p.top > 0 && len(stack) > p.top {
		stack = stack[:p.top]
	}

	if p.json {
		data, err := json.Marshal(changeLine{Time: time.Now(), Kind: c.Kind, Entry: c.Entry, Stack: stack})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode change: %v\n", err)
			return
		}
		fmt.Fprintln(p.out, string(data))
		return
	}

	fmt.Fprintf(p.out, "%s %-13s %s\n", time.Now().Format("15:04:05"), c.Kind, describeEntry(c.Kind, c.Entry))
	fmt.Fprintln(p.out, formatStack(stack))
}

func describeEntry(kind string, e mru.Entry) string {
	if kind == models.KindTermination {
		return fmt.Sprintf("pid %d", e.PID)
	}
	name := e.Name
	if name == "" {
		name = utils.OrDash(e.BundleID)
	}
	desc := fmt.Sprintf("%s (pid %d)", name, e.PID)
	if kind == models.KindPrepopulation {
		desc += " " + e.Confidence.String()
	}
	return desc
}

// formatStack renders entries on one line, most recent first.
func formatStack(entries []mru.Entry) string {
	if len(entries) == 0 {
		return "  (empty)"
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		name := e.Name
		if name == "" {
			name = utils.OrDash(e.BundleID)
		}
		parts[i] = fmt.Sprintf("%d:%s", i+1, utils.Truncate(name, 24))
	}
	return "  " + strings.Join(parts, "  ")
}
