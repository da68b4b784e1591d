package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	logger "github.com/Ay7ot/ctx-sync-sub001/internal/logging"
	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:   "ctx-sync",
		Short: "Sync encrypted development context between devices and teammates",
		Long: `ctx-sync keeps your development context (environment values, notes,
directories and other small state) encrypted at rest and synchronized
through a git remote you control.

Every bucket is encrypted for your own key and for each team member you
add. Nothing is ever written to the sync repository in plaintext.

Examples:
  # Set up this device and sync with an existing remote
  ctx-sync init --remote git@github.com:me/context.git

  # Store a value and push it
  ctx-sync state set secrets STRIPE_KEY sk_test_123
  ctx-sync sync

  # Give a teammate access
  ctx-sync team add alice ctxsync1...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
		},
		Run: func(cmd *cobra.Command, args []string) {
			printBanner(cmd.OutOrStdout())
			_ = cmd.Help()
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(keyCmd)
	RootCmd.AddCommand(teamCmd)
	RootCmd.AddCommand(rotateCmd)
	RootCmd.AddCommand(syncCmd)
	RootCmd.AddCommand(remoteCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(stateCmd)
	RootCmd.AddCommand(logCmd)
}

// Execute runs the root command. Errors already shown to the user are not
// printed again.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, ui.Error.Sprint("✗")+" "+err.Error())
		}
	}
	return err
}

func printBanner(w io.Writer) {
	banner := figure.NewFigure("ctx-sync", "small", true)
	fmt.Fprintln(w, banner.String())
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	resetInitCommandState()
	resetKeyCommandState()
	resetTeamCommandState()
	resetRotateCommandState()
	resetSyncCommandState()
	resetStatusCommandState()
	resetStateCommandState()
	resetLogCommandState()
	resetCobraFlagState(RootCmd)
}

// resetCobraFlagState clears the Changed mark on every flag so one test's
// arguments do not leak into the next.
func resetCobraFlagState(cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		flag.Changed = false
		_ = flag.Value.Set(flag.DefValue)
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetCobraFlagState(sub)
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
