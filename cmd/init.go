package cmd

import (
	"strings"

	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"
	"github.com/Ay7ot/ctx-sync-sub001/internal/workflows"

	"github.com/spf13/cobra"
)

var initRemote string

func init() {
	initCmd.Flags().StringVar(&initRemote, "remote", "", "git remote to sync with (ssh, https or user@host:path)")
}

func resetInitCommandState() {
	initRemote = ""
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up ctx-sync on this device",
	Long: `Creates this device's identity, an empty team with this device as owner,
and the local sync repository.

When --remote points at a repository that already holds state, it is
pulled. Its buckets stay unreadable on this device until an existing team
member adds the public key printed by this command.

Examples:
  # Local only, add a remote later with 'ctx-sync remote set'
  ctx-sync init

  # Join existing state
  ctx-sync init --remote git@github.com:me/context.git`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		spinner, cleanup := startSpinner("Initializing ctx-sync...")
		defer cleanup()

		result, err := workflows.Init(cmd.Context(), workflows.InitOptions{
			OpenOptions: workflows.OpenOptions{Logger: Logger},
			Remote:      initRemote,
		})
		if err != nil {
			return fail(spinner, err)
		}
		Logger.Infof("Init completed for device %s", result.DeviceName)

		var b strings.Builder
		b.WriteString(ui.Success.Sprint("✓") + " ctx-sync initialized for " + ui.Highlight.Sprint(result.DeviceName) + "\n\n")
		b.WriteString("Your public key:\n  " + result.PublicKey + "\n")
		b.WriteString("Fingerprint: " + ui.Fingerprint.Sprint(result.Fingerprint) + "\n\n")
		b.WriteString("Identity:  " + ui.Path.Sprint(result.ConfigDir) + "\n")
		b.WriteString("Sync repo: " + ui.Path.Sprint(result.SyncDir) + "\n")
		if result.Remote != "" {
			b.WriteString("Remote:    " + ui.Path.Sprint(result.Remote) + "\n")
		}
		for _, w := range result.Warnings {
			b.WriteString("\n" + ui.Warning.Sprint("⚠") + " " + w)
		}
		if result.Pulled {
			b.WriteString("\n" + ui.Info.Sprint("→") + " Existing state was pulled. Share your public key with a team member so they can run " +
				ui.Code.Sprint("ctx-sync team add <name> <key>"))
		} else {
			b.WriteString("\n" + ui.Info.Sprint("→") + " Store something with " + ui.Code.Sprint("ctx-sync state set <bucket> <key> <value>"))
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}
