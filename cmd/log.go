package cmd

import (
	"fmt"
	"strings"

	"github.com/Ay7ot/ctx-sync-sub001/internal/audit"
	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"
	"github.com/Ay7ot/ctx-sync-sub001/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logReverse   bool
	logOperation string
	logFormat    string
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation (comma-separated)")
	logCmd.Flags().StringVar(&logFormat, "format", "text", "output format: text, json or yaml")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logReverse = false
	logOperation = ""
	logFormat = "text"
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View this device's audit log",
	Long: `Displays the operations run on this device. The log stays on this device
and is never synced.

Examples:
  ctx-sync log                         # View full log
  ctx-sync log -n 10                   # Last 10 entries
  ctx-sync log --reverse               # Most recent first
  ctx-sync log --operation rotate,sync # Filter by operation
  ctx-sync log --format json           # JSON output`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(logFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting log command")

		filter := workflows.LogOptions{Limit: logLimit, Reverse: logReverse}
		if logOperation != "" {
			for _, op := range strings.Split(logOperation, ",") {
				if op = strings.TrimSpace(op); op != "" {
					filter.Operations = append(filter.Operations, op)
				}
			}
		}

		entries, err := workflows.ReadLog(workflows.OpenOptions{Logger: Logger}, filter)
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}

		if entries == nil {
			entries = []audit.Entry{}
		}
		if done, err := printStructured(cmd.OutOrStdout(), logFormat, entries); done {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No audit log entries found")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s  %-12s %-14s %s\n", e.Timestamp, e.Device, ui.Highlight.Sprint(e.Operation), describeEntry(e))
		}
		return nil
	},
}

func describeEntry(e audit.Entry) string {
	var parts []string
	if e.Member != "" {
		parts = append(parts, e.Member)
	}
	if e.Fingerprint != "" {
		parts = append(parts, ui.Fingerprint.Sprint(e.Fingerprint))
	}
	if len(e.Buckets) > 0 {
		parts = append(parts, strings.Join(e.Buckets, ", "))
	}
	if e.Recipients > 0 {
		parts = append(parts, fmt.Sprintf("%d recipient(s)", e.Recipients))
	}
	if e.Committed {
		parts = append(parts, "committed")
	}
	if e.Pushed {
		parts = append(parts, "pushed")
	}
	if len(e.Conflicts) > 0 {
		parts = append(parts, fmt.Sprintf("%d conflict(s)", len(e.Conflicts)))
	}
	if e.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", e.Warnings))
	}
	return strings.Join(parts, "  ")
}
