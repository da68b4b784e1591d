package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Ay7ot/ctx-sync-sub001/internal/gitsync"
	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"
	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"
	"github.com/Ay7ot/ctx-sync-sub001/internal/workflows"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	syncNoPush         bool
	syncNonInteractive bool
	syncMessage        string
	syncDryRun         bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncNoPush, "no-push", false, "commit and pull but do not push")
	syncCmd.Flags().BoolVar(&syncNonInteractive, "non-interactive", false, "keep the local version of every conflicted file without asking")
	syncCmd.Flags().StringVarP(&syncMessage, "message", "m", "", "commit message")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "list local changes without committing or contacting the remote")

	remoteCmd.AddCommand(remoteSetCmd)
	remoteCmd.AddCommand(remoteShowCmd)
}

func resetSyncCommandState() {
	syncNoPush = false
	syncNonInteractive = false
	syncMessage = ""
	syncDryRun = false
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull, resolve, commit and push encrypted state",
	Long: `Synchronizes the sync repository with its remote.

Local changes are committed first, then the remote branch is fetched and
merged. When a bucket changed on both sides you choose which whole file to
keep; ciphertext is never merged. Without a terminal, or with
--non-interactive, the local version is kept.

Examples:
  ctx-sync sync
  ctx-sync sync --dry-run
  ctx-sync sync --non-interactive --message "nightly"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting sync command")
		spinner, cleanup := startSpinner("Syncing...")
		defer cleanup()

		sess, err := openSession(cmd.Context())
		if err != nil {
			return fail(spinner, err)
		}
		defer sess.Close()

		result, err := workflows.Sync(cmd.Context(), sess, workflows.SyncOptions{
			Message:  syncMessage,
			NoPush:   syncNoPush,
			Resolver: syncResolver(spinner),
			DryRun:   syncDryRun,
		})
		if err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = syncSummary(result)
		return nil
	},
}

// syncResolver prompts on a terminal and keeps local versions otherwise.
func syncResolver(s *spinner.Spinner) gitsync.Resolver {
	if syncNonInteractive || !utils.IsTerminal() {
		Logger.Debugf("Conflicts will keep the local version")
		return gitsync.NonInteractiveResolver{}
	}
	return pausingResolver{
		Resolver: gitsync.NewPromptResolver(os.Stdin, os.Stdout),
		spinner:  s,
	}
}

// pausingResolver stops the spinner while the user is asked.
type pausingResolver struct {
	gitsync.Resolver
	spinner *spinner.Spinner
}

func (p pausingResolver) Resolve(ctx context.Context, conflicts []gitsync.Conflict) (map[string]gitsync.Decision, error) {
	p.spinner.Stop()
	defer p.spinner.Restart()
	return p.Resolver.Resolve(ctx, conflicts)
}

func syncSummary(result *workflows.SyncResult) string {
	var b strings.Builder

	if result.DryRun {
		b.WriteString(ui.Warning.Sprint("[dry-run]") + " ")
		if len(result.Pending) == 0 {
			b.WriteString("Nothing to commit\n")
		} else {
			b.WriteString(fmt.Sprintf("%d file(s) would be committed:\n", len(result.Pending)))
			b.WriteString(ui.List(result.Pending, ui.Path))
		}
		if result.Remote != "" {
			b.WriteString("Remote: " + ui.Path.Sprint(result.Remote) + "\n")
		}
		b.WriteString("\nNo changes made.")
		return b.String()
	}

	if result.Pull != nil && len(result.Pull.Conflicts) > 0 {
		b.WriteString(ui.Warning.Sprint("⚠") + " Resolved conflicts:\n")
		for _, c := range result.Pull.Conflicts {
			b.WriteString(fmt.Sprintf("    - %s: %s\n", ui.Path.Sprint(c.Path), result.Decisions[c.Path]))
		}
	}

	switch {
	case result.Committed && result.Pushed:
		b.WriteString(ui.Success.Sprint("✓") + " Changes committed and pushed")
	case result.Committed:
		b.WriteString(ui.Success.Sprint("✓") + " Changes committed")
	case result.Pushed:
		b.WriteString(ui.Success.Sprint("✓") + " Up to date with the remote")
	default:
		b.WriteString(ui.Success.Sprint("✓") + " Nothing to sync")
	}
	if result.Remote != "" {
		b.WriteString(" " + ui.Muted.Sprint(result.Remote))
	}
	b.WriteString("\n")

	if result.Pull != nil && result.Pull.Merged && result.Pull.Fetched {
		b.WriteString("Pulled remote changes\n")
	}
	if result.PushErr != nil {
		b.WriteString(ui.Warning.Sprint("⚠") + " Push failed, changes are committed locally: " + result.PushErr.Error() + "\n")
		b.WriteString(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("ctx-sync sync") + " again once the remote is reachable")
	} else if result.Remote == "" {
		b.WriteString(ui.Info.Sprint("→") + " No remote configured. Run " + ui.Code.Sprint("ctx-sync remote set <url>") + " to share state")
	}
	return b.String()
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Configure the git remote used by sync",
}

var remoteSetCmd = &cobra.Command{
	Use:   "set <url>",
	Short: "Set the remote to sync with",
	Long: `Sets the git remote. Only ssh://, https://, git+ssh://, file:// and
user@host:path remotes, or local paths, are accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting remote set command")
		spinner, cleanup := startSpinner("Setting remote...")
		defer cleanup()

		sess, err := openSession(cmd.Context())
		if err != nil {
			return fail(spinner, err)
		}
		defer sess.Close()

		if err := workflows.SetRemote(cmd.Context(), sess, args[0]); err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Remote set to " + ui.Path.Sprint(gitsync.RedactRemote(args[0])) + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("ctx-sync sync") + " to pull and push"
		return nil
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configured remote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}
		defer sess.Close()

		remote, err := sess.Engine.Remote(cmd.Context())
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}
		if remote == "" {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Sprint("no remote"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), gitsync.RedactRemote(remote))
		return nil
	},
}
