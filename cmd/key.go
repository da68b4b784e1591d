package cmd

import (
	"fmt"

	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"
	"github.com/Ay7ot/ctx-sync-sub001/internal/workflows"

	"github.com/spf13/cobra"
)

var keyFormat string

func init() {
	keyShowCmd.Flags().StringVar(&keyFormat, "format", "text", "output format: text, json or yaml")

	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyFingerprintCmd)
}

func resetKeyCommandState() {
	keyFormat = "text"
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Show this device's public key",
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the public key to share with your team",
	Long: `Prints this device's public key and its fingerprint. The private key is
never printed.

Compare the fingerprint out of band before a teammate adds your key.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(keyFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting key show command")
		sess, err := openSession(cmd.Context())
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}
		defer sess.Close()

		info := workflows.ShowKey(sess)
		if done, err := printStructured(cmd.OutOrStdout(), keyFormat, info); done {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), info.PublicKey)
		fmt.Fprintln(cmd.OutOrStdout(), "Fingerprint: "+ui.Fingerprint.Sprint(info.Fingerprint))
		return nil
	},
}

var keyFingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Print the fingerprint of this device's public key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			fmt.Println(describeError(err))
			return reportedError{err: err}
		}
		defer sess.Close()

		fmt.Fprintln(cmd.OutOrStdout(), workflows.ShowKey(sess).Fingerprint)
		return nil
	},
}
