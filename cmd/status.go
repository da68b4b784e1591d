package cmd

import (
	"fmt"
	"strings"

	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"
	"github.com/Ay7ot/ctx-sync-sub001/internal/workflows"

	"github.com/spf13/cobra"
)

var statusFormat string

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "text", "output format: text, json or yaml")
}

func resetStatusCommandState() {
	statusFormat = "text"
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show identity, team, bucket and repository state",
	Long: `Shows this device's identity, the team size, every bucket with the time
it last changed, local changes waiting to be synced, and the remote.

Bucket contents are never shown. Use --format json or yaml for
machine-readable output.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(statusFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		result, err := workflows.Status(cmd.Context(), workflows.OpenOptions{Logger: Logger})
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}

		if done, err := printStructured(cmd.OutOrStdout(), statusFormat, result); done {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), formatStatus(result))
		return nil
	},
}

func formatStatus(result *workflows.StatusResult) string {
	var b strings.Builder

	if !result.Initialized {
		b.WriteString(ui.Error.Sprint("✗") + " ctx-sync has not been initialized on this device\n")
		b.WriteString(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("ctx-sync init") + " first\n")
		return b.String()
	}

	if result.RotationPending {
		b.WriteString(ui.Warning.Sprint("⚠") + " A key rotation was interrupted. Run " + ui.Code.Sprint("ctx-sync rotate --resume") + "\n\n")
	}

	b.WriteString("Device:      " + ui.Highlight.Sprint(result.Device) + "\n")
	b.WriteString("Fingerprint: " + ui.Fingerprint.Sprint(result.Fingerprint) + "\n")
	b.WriteString(fmt.Sprintf("Team:        %d member(s) besides you\n", result.Members))
	b.WriteString("Sync repo:   " + ui.Path.Sprint(result.SyncDir) + "\n")

	switch {
	case result.RemoteError != "":
		b.WriteString("Remote:      " + ui.Error.Sprint(result.RemoteError) + "\n")
	case result.Remote != "":
		b.WriteString("Remote:      " + ui.Path.Sprint(result.Remote) + "\n")
	default:
		b.WriteString("Remote:      " + ui.Muted.Sprint("none") + "\n")
	}
	if result.LastSync != "" {
		b.WriteString("Last sync:   " + result.LastSync + "\n")
	}

	b.WriteString("\n")
	if len(result.Buckets) == 0 {
		b.WriteString("No buckets yet\n")
	} else {
		b.WriteString("Buckets:\n")
		for _, bucket := range result.Buckets {
			b.WriteString(fmt.Sprintf("    %-24s %s\n", ui.Bucket.Sprint(bucket.Name), ui.Muted.Sprint(orNever(bucket.Modified))))
		}
	}

	if !result.Repository {
		b.WriteString("\n" + ui.Warning.Sprint("⚠") + " The sync directory is not a git repository yet\n")
	} else if len(result.Pending) > 0 {
		b.WriteString("\nNot yet synced:\n")
		b.WriteString(ui.List(result.Pending, ui.Path))
		b.WriteString(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("ctx-sync sync") + "\n")
	}
	return b.String()
}

func orNever(s string) string {
	if s == "" {
		return "never"
	}
	return s
}
