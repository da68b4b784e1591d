package workflows

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Ay7ot/ctx-sync-sub001/internal/configs"
	logger "github.com/Ay7ot/ctx-sync-sub001/internal/logging"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"

	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func testOptions(t *testing.T) OpenOptions {
	t.Helper()
	root := t.TempDir()
	return OpenOptions{
		Settings: &configs.Settings{
			ConfigDir: filepath.Join(root, "config"),
			SyncDir:   filepath.Join(root, "sync"),
		},
		Logger: logger.Logger{Out: &bytes.Buffer{}, Err: &bytes.Buffer{}},
		Now:    time.Now,
	}
}

// initDevice runs init and opens a session for a fresh device.
func initDevice(t *testing.T, remote string) (OpenOptions, *Session) {
	t.Helper()
	requireGit(t)

	opts := testOptions(t)
	_, err := Init(context.Background(), InitOptions{OpenOptions: opts, Remote: remote})
	require.NoError(t, err)

	sess, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return opts, sess
}

func reopen(t *testing.T, opts OpenOptions) *Session {
	t.Helper()
	sess, err := Open(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func newIdentity(t *testing.T) *secrets.Identity {
	t.Helper()
	id, err := secrets.GenerateIdentity()
	require.NoError(t, err)
	return id
}

func newBareRemote(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "remote.git")
	out, err := exec.Command("git", "init", "--bare", "--quiet", dir).CombinedOutput()
	require.NoError(t, err, string(out))
	return dir
}

func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}
