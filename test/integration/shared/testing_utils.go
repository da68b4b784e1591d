// Package shared contains testing utilities shared between integration tests.
// This file provides common functions for setting up device environments,
// capturing output, and running the CLI.
package shared

import (
	"bytes"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/Ay7ot/ctx-sync-sub001/cmd"
	logger "github.com/Ay7ot/ctx-sync-sub001/internal/logging"
)

// Device is one simulated machine: its own config and sync directories.
type Device struct {
	ConfigDir string
	SyncDir   string
}

// NewDevice creates the directories for a device under a temp root.
func NewDevice(t *testing.T, name string) Device {
	t.Helper()
	root := filepath.Join(t.TempDir(), name)
	return Device{
		ConfigDir: filepath.Join(root, "config"),
		SyncDir:   filepath.Join(root, "sync"),
	}
}

// Use points ctx-sync at the device for the rest of the test or until
// another device is used.
func (d Device) Use(t *testing.T) {
	t.Helper()
	t.Setenv("CTX_SYNC_HOME", d.ConfigDir)
	t.Setenv("CTX_SYNC_DIR", d.SyncDir)
	t.Setenv("NO_COLOR", "1")
}

// RequireGit skips the test when git is not installed.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// NewBareRemote creates an empty bare repository to sync through.
func NewBareRemote(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "remote.git")
	if out, err := exec.Command("git", "init", "--bare", "--quiet", dir).CombinedOutput(); err != nil {
		t.Fatalf("Failed to create bare remote: %v\n%s", err, out)
	}
	return dir
}

// CaptureOutput captures both stdout and stderr during function execution.
func CaptureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	outputChan := make(chan string, 2)

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// RunCLI runs the ctx-sync root command with args against the device in
// use and returns everything it printed.
func RunCLI(args ...string) (string, error) {
	cmd.ResetGlobalState()
	cmd.SetLogger(logger.Logger{})

	root := cmd.GetRootCmd()
	root.SetArgs(args)
	return CaptureOutput(func() error {
		root.SetOut(os.Stdout)
		root.SetErr(os.Stderr)
		return cmd.Execute()
	})
}

// MustRunCLI is RunCLI failing the test on error.
func MustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	output, err := RunCLI(args...)
	if err != nil {
		t.Fatalf("ctx-sync %v failed: %v\nOutput: %s", args, err, output)
	}
	return output
}
