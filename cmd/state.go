package cmd

import (
	"fmt"

	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"
	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"
	"github.com/Ay7ot/ctx-sync-sub001/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	stateFormat string
	stateReveal bool
	stateForce  bool
)

func init() {
	stateShowCmd.Flags().StringVar(&stateFormat, "format", "text", "output format: text, json or yaml")
	stateShowCmd.Flags().BoolVar(&stateReveal, "reveal", false, "print values instead of masking them")
	stateBucketsCmd.Flags().StringVar(&stateFormat, "format", "text", "output format: text, json or yaml")
	stateDeleteCmd.Flags().BoolVar(&stateForce, "force", false, "skip confirmation prompt")

	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateSetCmd)
	stateCmd.AddCommand(stateUnsetCmd)
	stateCmd.AddCommand(stateBucketsCmd)
	stateCmd.AddCommand(stateDeleteCmd)
}

func resetStateCommandState() {
	stateFormat = "text"
	stateReveal = false
	stateForce = false
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Read and write encrypted state buckets",
	Long: `Reads and writes the encrypted buckets in the sync repository.

A bucket is a JSON object encrypted for every team member. Values given on
the command line are stored as JSON when they parse as JSON and as strings
otherwise.

Examples:
  ctx-sync state set secrets STRIPE_KEY sk_test_123
  ctx-sync state set env PORT 8080
  ctx-sync state show secrets --reveal
  ctx-sync state show env --format yaml`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show <bucket>",
	Short: "Decrypt and print a bucket",
	Long: `Decrypts and prints a bucket. In text format values are masked unless
--reveal is given. JSON and YAML output always contain the values.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(stateFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting state show command for %s", args[0])
		sess, err := openSession(cmd.Context())
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}
		defer sess.Close()

		doc, err := workflows.GetBucket(sess, args[0])
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}

		if done, err := printStructured(cmd.OutOrStdout(), stateFormat, doc); done {
			return err
		}

		out := cmd.OutOrStdout()
		if len(doc) == 0 {
			fmt.Fprintln(out, ui.Bucket.Sprint(args[0])+" is empty")
			return nil
		}
		for _, key := range workflows.SortedKeys(doc) {
			value := fmt.Sprint(doc[key])
			if !stateReveal {
				value = utils.Redact(value)
			}
			fmt.Fprintf(out, "%s=%s\n", key, value)
		}
		return nil
	},
}

var stateSetCmd = &cobra.Command{
	Use:   "set <bucket> <key> <value>",
	Short: "Store a value in a bucket",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting state set command for %s", args[0])
		spinner, cleanup := startSpinner("Encrypting...")
		defer cleanup()

		sess, err := openSession(cmd.Context())
		if err != nil {
			return fail(spinner, err)
		}
		defer sess.Close()

		bucket, key := args[0], args[1]
		if err := workflows.SetValue(sess, bucket, key, workflows.ParseValue(args[2])); err != nil {
			return fail(spinner, err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Set " + ui.Highlight.Sprint(key) + " in " + ui.Bucket.Sprint(bucket) + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("ctx-sync sync") + " to publish it"
		return nil
	},
}

var stateUnsetCmd = &cobra.Command{
	Use:   "unset <bucket> <key>",
	Short: "Remove a key from a bucket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting state unset command for %s", args[0])
		spinner, cleanup := startSpinner("Encrypting...")
		defer cleanup()

		sess, err := openSession(cmd.Context())
		if err != nil {
			return fail(spinner, err)
		}
		defer sess.Close()

		bucket, key := args[0], args[1]
		removed, err := workflows.UnsetValue(sess, bucket, key)
		if err != nil {
			return fail(spinner, err)
		}

		if !removed {
			spinner.FinalMSG = ui.Warning.Sprint("⚠") + " " + ui.Highlight.Sprint(key) + " is not set in " + ui.Bucket.Sprint(bucket)
			return nil
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + " Removed " + ui.Highlight.Sprint(key) + " from " + ui.Bucket.Sprint(bucket)
		return nil
	},
}

var stateBucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List buckets without decrypting them",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(stateFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}
		defer sess.Close()

		buckets, err := workflows.ListBuckets(sess)
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}

		if done, err := printStructured(cmd.OutOrStdout(), stateFormat, buckets); done {
			return err
		}

		out := cmd.OutOrStdout()
		if len(buckets) == 0 {
			fmt.Fprintln(out, "No buckets yet")
			return nil
		}
		for _, bucket := range buckets {
			fmt.Fprintf(out, "%-24s %8d bytes  %s\n", ui.Bucket.Sprint(bucket.Name), bucket.Size, ui.Muted.Sprint(orNever(bucket.Modified)))
		}
		return nil
	},
}

var stateDeleteCmd = &cobra.Command{
	Use:   "delete <bucket>",
	Short: "Delete a whole bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting state delete command for %s", args[0])
		spinner, cleanup := startSpinner("Deleting bucket...")
		defer cleanup()

		sess, err := openSession(cmd.Context())
		if err != nil {
			return fail(spinner, err)
		}
		defer sess.Close()

		if !stateForce && !confirm(spinner, "Every value in "+args[0]+" will be deleted on all devices after the next sync.", "Do you want to continue?") {
			spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Deletion cancelled."
			return nil
		}

		if err := workflows.DeleteBucket(sess, args[0]); err != nil {
			return fail(spinner, err)
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + " Deleted " + ui.Bucket.Sprint(args[0])
		return nil
	},
}
