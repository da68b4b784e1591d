package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/ui"
	"github.com/Ay7ot/ctx-sync-sub001/internal/workflows"

	"github.com/briandowns/spinner"
	"gopkg.in/yaml.v3"
)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verbose && !debug
	if quiet {
		s.Start()
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Cleared so s.Stop() does not print it as well.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		// Printed to stdout so tests can capture it.
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// confirm stops the spinner, asks question and restarts the spinner.
// Anything but y or yes is a no.
func confirm(s *spinner.Spinner, warning, question string) bool {
	s.Stop()
	defer s.Restart()

	fmt.Printf("\n%s %s\n\n", ui.Warning.Sprint("Warning:"), warning)
	fmt.Printf("%s [y/N]: ", question)

	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		Logger.Errorf("Failed to read response: %v", err)
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// openSession opens the workflows session with the command's logger.
func openSession(ctx context.Context) (*workflows.Session, error) {
	return workflows.Open(ctx, workflows.OpenOptions{Logger: Logger})
}

// reportedError marks an error whose message was already shown through
// the spinner's final message.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() error { return e.err }

// fail shows err to the user as the spinner's final message and returns it
// so the process exits non-zero.
func fail(s *spinner.Spinner, err error) error {
	Logger.Errorf("%v", err)
	s.FinalMSG = describeError(err)
	return reportedError{err: err}
}

// describeError turns a workflow error into the message and hint shown to
// the user.
func describeError(err error) string {
	cross := ui.Error.Sprint("✗") + " "
	arrow := "\n" + ui.Info.Sprint("→") + " "

	switch {
	case errors.Is(err, kerrors.ErrNotInitialized):
		return cross + "ctx-sync has not been initialized on this device" +
			arrow + "Run " + ui.Code.Sprint("ctx-sync init") + " first"
	case errors.Is(err, kerrors.ErrAlreadyInitialized):
		return cross + "ctx-sync is already initialized on this device" +
			arrow + "Run " + ui.Code.Sprint("ctx-sync key show") + " to see your public key"
	case errors.Is(err, kerrors.ErrRotationInProgress):
		return cross + "A key rotation was interrupted" +
			arrow + "Run " + ui.Code.Sprint("ctx-sync rotate --resume") + " to finish it"
	case errors.Is(err, kerrors.ErrNoRotationInProgress):
		return cross + "There is no interrupted rotation to resume"
	case errors.Is(err, kerrors.ErrRotationAborted):
		return cross + "Rotation aborted, nothing was changed\n\n" +
			ui.Error.Sprint("Error: ") + err.Error() +
			arrow + "Every bucket must be readable by your current key before rotating"
	case errors.Is(err, kerrors.ErrDecryption):
		return cross + "This device cannot decrypt the requested state" +
			arrow + "Share the output of " + ui.Code.Sprint("ctx-sync key show") + " with a team member and ask them to add you"
	case errors.Is(err, kerrors.ErrInsecureTransport):
		return cross + "The remote was rejected\n\n" +
			ui.Error.Sprint("Error: ") + err.Error() +
			arrow + "Use an " + ui.Code.Sprint("ssh://") + ", " + ui.Code.Sprint("https://") + " or " + ui.Code.Sprint("user@host:path") + " remote"
	case errors.Is(err, kerrors.ErrConflictUnresolved):
		return cross + "Conflicts were left unresolved:\n" +
			ui.List(kerrors.ConflictPaths(err), ui.Path) +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("ctx-sync sync") + " again and choose a version for each file"
	case errors.Is(err, kerrors.ErrPermission):
		return cross + "Refusing to use files other users can read\n\n" +
			ui.Error.Sprint("Error: ") + err.Error() +
			arrow + "Restrict the config directory to " + ui.Code.Sprint("0700") + " and key files to " + ui.Code.Sprint("0600")
	case errors.Is(err, kerrors.ErrNoRemote):
		return cross + "No remote is configured" +
			arrow + "Run " + ui.Code.Sprint("ctx-sync remote set <url>") + " first"
	case errors.Is(err, kerrors.ErrGitOperationFailed):
		return cross + "A git operation failed\n\n" + ui.Error.Sprint("Error: ") + err.Error()
	default:
		return cross + err.Error()
	}
}

// validateFormat accepts the values of the --format flag.
func validateFormat(format string) error {
	switch format {
	case "", "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use text, json or yaml", format)
	}
}

// printStructured writes v as JSON or YAML. It reports false for the text
// format, leaving the output to the caller.
func printStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(out))
		return true, nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}
