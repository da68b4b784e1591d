package cmd

import (
	"fmt"
	"strings"

	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"
	"github.com/Ay7ot/ctx-sync-sub001/internal/workflows"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	teamDryRun bool
	teamForce  bool
	teamFormat string
)

func init() {
	for _, c := range []*cobra.Command{teamAddCmd, teamRemoveCmd, teamRevokeCmd} {
		c.Flags().BoolVar(&teamDryRun, "dry-run", false, "show which buckets would be re-encrypted without changing anything")
	}
	teamRemoveCmd.Flags().BoolVar(&teamForce, "force", false, "skip confirmation prompt")
	teamRevokeCmd.Flags().BoolVar(&teamForce, "force", false, "skip confirmation prompt")
	teamListCmd.Flags().StringVar(&teamFormat, "format", "text", "output format: text, json or yaml")

	teamCmd.AddCommand(teamAddCmd)
	teamCmd.AddCommand(teamRemoveCmd)
	teamCmd.AddCommand(teamRevokeCmd)
	teamCmd.AddCommand(teamListCmd)
}

func resetTeamCommandState() {
	teamDryRun = false
	teamForce = false
	teamFormat = "text"
}

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage who can decrypt your state",
	Long: `Adds and removes the public keys every bucket is encrypted for.

Each change re-encrypts every bucket for the new set of recipients before
the team file is saved. Run 'ctx-sync sync' afterwards to publish it.`,
}

var teamAddCmd = &cobra.Command{
	Use:   "add <name> <public-key>",
	Short: "Give a device or teammate access to every bucket",
	Example: `  ctx-sync team add alice ctxsync1...
  ctx-sync team add work-laptop ctxsync1... --dry-run`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting team add command")
		spinner, cleanup := startSpinner("Adding team member...")
		defer cleanup()

		sess, err := openSession(cmd.Context())
		if err != nil {
			return fail(spinner, err)
		}
		defer sess.Close()

		result, err := workflows.AddMember(cmd.Context(), sess, args[0], args[1], teamDryRun)
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = teamMessage(result, "added", "can now decrypt")
		return nil
	},
}

var teamRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a team member by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting team remove command")
		spinner, cleanup := startSpinner("Removing team member...")
		defer cleanup()

		sess, err := openSession(cmd.Context())
		if err != nil {
			return fail(spinner, err)
		}
		defer sess.Close()

		if !teamDryRun && !teamForce && !confirmRevocation(spinner, args[0]) {
			spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Removal cancelled."
			return nil
		}

		result, err := workflows.RemoveMember(cmd.Context(), sess, args[0], teamDryRun)
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = teamMessage(result, "removed", "can no longer decrypt")
		return nil
	},
}

var teamRevokeCmd = &cobra.Command{
	Use:   "revoke <public-key>",
	Short: "Revoke a team member by public key",
	Long: `Removes the member holding the given public key and re-encrypts every
bucket without it.

Copies the member already synced, including older commits, stay readable to
them. Run 'ctx-sync rotate' afterwards to rewrite the repository history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting team revoke command")
		spinner, cleanup := startSpinner("Revoking team member...")
		defer cleanup()

		sess, err := openSession(cmd.Context())
		if err != nil {
			return fail(spinner, err)
		}
		defer sess.Close()

		if !teamDryRun && !teamForce && !confirmRevocation(spinner, args[0]) {
			spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Revocation cancelled."
			return nil
		}

		result, err := workflows.RevokeMember(cmd.Context(), sess, args[0], teamDryRun)
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = teamMessage(result, "revoked", "can no longer decrypt") + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("ctx-sync rotate") + " to drop their access to older commits"
		return nil
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the owner and every team member",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(teamFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}
		defer sess.Close()

		members := workflows.ListMembers(sess)
		if done, err := printStructured(cmd.OutOrStdout(), teamFormat, members); done {
			return err
		}

		out := cmd.OutOrStdout()
		for _, m := range members {
			role := ""
			if m.Owner {
				role = " " + ui.Muted.Sprint("owner")
			}
			fmt.Fprintf(out, "%s%s\n", ui.Highlight.Sprint(m.Name), role)
			fmt.Fprintf(out, "    key:         %s\n", m.PublicKey)
			fmt.Fprintf(out, "    fingerprint: %s\n", ui.Fingerprint.Sprint(m.Fingerprint))
			if m.AddedAt != "" {
				fmt.Fprintf(out, "    added:       %s\n", m.AddedAt)
			}
		}
		return nil
	},
}

func confirmRevocation(s *spinner.Spinner, who string) bool {
	return confirm(s, who+" will lose access to every bucket written from now on.",
		"Do you want to continue?")
}

func teamMessage(result *workflows.TeamResult, verb, access string) string {
	var b strings.Builder
	name := ui.Highlight.Sprint(result.Member.Name)

	if result.DryRun {
		b.WriteString(ui.Warning.Sprint("[dry-run]") + " " + name + " would be " + verb + "\n")
		b.WriteString(fmt.Sprintf("Fingerprint: %s\n", ui.Fingerprint.Sprint(result.Fingerprint)))
		b.WriteString(fmt.Sprintf("%d bucket(s) would be re-encrypted for %d recipient(s):\n", len(result.Buckets), result.Recipients))
		b.WriteString(ui.List(result.Buckets, ui.Bucket))
		b.WriteString("\nNo changes made.")
		return b.String()
	}

	b.WriteString(ui.Success.Sprint("✓") + " " + name + " " + verb + " and " + access + " your state\n")
	b.WriteString(fmt.Sprintf("Fingerprint: %s\n", ui.Fingerprint.Sprint(result.Fingerprint)))
	b.WriteString(fmt.Sprintf("Re-encrypted %d bucket(s) for %d recipient(s)\n", len(result.Buckets), result.Recipients))
	if len(result.Skipped) > 0 {
		b.WriteString(ui.Warning.Sprint("⚠") + " Skipped empty bucket files:\n")
		b.WriteString(ui.List(result.Skipped, ui.Bucket))
	}
	b.WriteString("\n" + ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("ctx-sync sync") + " to publish the change")
	return b.String()
}
