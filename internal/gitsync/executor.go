package gitsync

import (
	"bytes"
	"os/exec"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
)

// CommandExecutor runs prepared git commands.
type CommandExecutor interface {
	// Execute runs a command and discards its output.
	Execute(cmd *exec.Cmd) error

	// ExecuteWithOutput runs a command and returns its standard output.
	ExecuteWithOutput(cmd *exec.Cmd) (string, error)
}

// ExecExecutor is the CommandExecutor backed by os/exec.
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor.
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

func (e *ExecExecutor) Execute(cmd *exec.Cmd) error {
	_, err := e.ExecuteWithOutput(cmd)
	return err
}

func (e *ExecExecutor) ExecuteWithOutput(cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		operation, args := describe(cmd.Args)
		return stdout.String(), kerrors.NewGitError(operation, args, err, stderr.String())
	}
	return stdout.String(), nil
}

// describe returns the git subcommand and its arguments, skipping the global
// options placed before it.
func describe(argv []string) (string, []string) {
	if len(argv) == 0 {
		return "", nil
	}
	args := argv[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-C", "-c":
			i++
		default:
			return args[i], args[i+1:]
		}
	}
	return argv[0], nil
}
