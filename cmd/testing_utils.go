// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments
// and capturing output.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	logger "github.com/Ay7ot/ctx-sync-sub001/internal/logging"
)

// setupTestEnvironment points ctx-sync at temporary config and sync
// directories and returns them.
func setupTestEnvironment(t *testing.T) (configDir, syncDir string) {
	t.Helper()
	root := t.TempDir()
	configDir = filepath.Join(root, "config")
	syncDir = filepath.Join(root, "sync")

	t.Setenv("CTX_SYNC_HOME", configDir)
	t.Setenv("CTX_SYNC_DIR", syncDir)
	t.Setenv("NO_COLOR", "1")

	ResetGlobalState()
	t.Cleanup(ResetGlobalState)
	return configDir, syncDir
}

// requireGit skips tests that create a sync repository.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
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

// runCLI runs the root command with args and returns everything it
// printed.
func runCLI(args ...string) (string, error) {
	ResetGlobalState()
	SetLogger(logger.Logger{})
	RootCmd.SetArgs(args)
	return captureOutput(func() error {
		RootCmd.SetOut(os.Stdout)
		RootCmd.SetErr(os.Stderr)
		return Execute()
	})
}
