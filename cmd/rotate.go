package cmd

import (
	"fmt"
	"strings"

	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"
	"github.com/Ay7ot/ctx-sync-sub001/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	rotateForce       bool
	rotateResume      bool
	rotateKeepHistory bool
)

func init() {
	rotateCmd.Flags().BoolVar(&rotateForce, "force", false, "skip confirmation prompt")
	rotateCmd.Flags().BoolVar(&rotateResume, "resume", false, "finish a rotation that was interrupted")
	rotateCmd.Flags().BoolVar(&rotateKeepHistory, "keep-history", false, "do not rewrite the sync repository history")
}

// resetRotateCommandState resets the rotate command's global state for testing.
func resetRotateCommandState() {
	rotateForce = false
	rotateResume = false
	rotateKeepHistory = false
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Replace this device's key and re-encrypt every bucket",
	Long: `Generates a new identity and rewrites every bucket for it and for the
current team members.

The command will:
  1. Generate a new identity
  2. Decrypt every bucket with your current key
  3. Re-encrypt every bucket for the new key and the team
  4. Replace your identity and update the team file
  5. Rewrite the sync history to a single commit and force-push it

If any bucket cannot be decrypted nothing is changed. If the command is
interrupted after step 2, run it again with --resume.

After running this command:
  - Your old private key can no longer decrypt anything in the repository
  - Share your new public key with every device that adds you
  - Other devices should run 'ctx-sync sync' to pick up the new history

Examples:
  # Rotate your key (with confirmation prompt)
  ctx-sync rotate

  # Rotate without rewriting history
  ctx-sync rotate --force --keep-history

  # Finish an interrupted rotation
  ctx-sync rotate --resume`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting rotate command")
		spinner, cleanup := startSpinner("Rotating keys...")
		defer cleanup()

		opts := workflows.RotateOptions{KeepHistory: rotateKeepHistory}

		if rotateResume {
			result, err := workflows.ResumeRotation(cmd.Context(), workflows.ResumeOptions{
				OpenOptions:   workflows.OpenOptions{Logger: Logger},
				RotateOptions: opts,
			})
			if err != nil {
				return fail(spinner, err)
			}
			spinner.FinalMSG = rotateMessage(result, "Interrupted rotation finished")
			return nil
		}

		sess, err := openSession(cmd.Context())
		if err != nil {
			return fail(spinner, err)
		}
		defer sess.Close()

		if !rotateForce {
			warning := "This generates a new key and re-encrypts every bucket.\n" +
				"  Your old private key will no longer work."
			if !rotateKeepHistory {
				warning += "\n  The sync history is rewritten and force-pushed."
			}
			if !confirm(spinner, warning, "Do you want to continue?") {
				spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Key rotation cancelled."
				return nil
			}
		}

		result, err := workflows.Rotate(cmd.Context(), sess, opts)
		if err != nil {
			return fail(spinner, err)
		}
		Logger.Infof("Key rotation completed successfully")

		spinner.FinalMSG = rotateMessage(result, "Keys rotated successfully")
		return nil
	},
}

func rotateMessage(result *workflows.RotateResult, headline string) string {
	var b strings.Builder
	b.WriteString(ui.Success.Sprint("✓") + " " + headline + "\n\n")
	b.WriteString("New public key:\n  " + result.NewPublicKey + "\n")
	b.WriteString("Fingerprint: " + ui.Fingerprint.Sprint(result.NewFingerprint) + "\n")
	b.WriteString(fmt.Sprintf("Re-encrypted %d bucket(s)\n", len(result.Buckets)))

	if len(result.Skipped) > 0 {
		b.WriteString(ui.Warning.Sprint("⚠") + " Skipped empty bucket files:\n")
		b.WriteString(ui.List(result.Skipped, ui.Bucket))
	}
	if result.HistoryRewritten {
		b.WriteString("Sync history rewritten")
		if result.Pushed {
			b.WriteString(" and force-pushed")
		}
		b.WriteString("\n")
	}
	for _, w := range result.Warnings {
		b.WriteString(ui.Warning.Sprint("⚠") + " " + w + "\n")
	}

	b.WriteString("\n" + ui.Info.Sprint("→") + " Share your new public key with teammates who add you to their state")
	return b.String()
}
