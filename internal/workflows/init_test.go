package workflows

import (
	"context"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/Ay7ot/ctx-sync-sub001/internal/audit"
	"github.com/Ay7ot/ctx-sync-sub001/internal/configs"
	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/gitsync"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	requireGit(t)
	opts := testOptions(t)
	ctx := context.Background()

	result, err := Init(ctx, InitOptions{OpenOptions: opts})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.PublicKey, secrets.RecipientPrefix))
	assert.Len(t, result.Fingerprint, 19)
	assert.True(t, gitsync.IsRepository(opts.Settings.SyncDir))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(opts.Settings.IdentityPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		info, err = os.Stat(opts.Settings.ConfigDir)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}

	reg, err := configs.LoadRegistry(opts.Settings)
	require.NoError(t, err)
	assert.Equal(t, result.PublicKey, reg.Owner.PublicKey.String())
	assert.Empty(t, reg.Members)

	_, err = Init(ctx, InitOptions{OpenOptions: opts})
	assert.ErrorIs(t, err, kerrors.ErrAlreadyInitialized)

	entries, err := audit.New(opts.Settings, configs.Device{}).ReadEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "init", entries[0].Operation)
}

func TestInitRejectsInsecureRemoteBeforeWriting(t *testing.T) {
	opts := testOptions(t)

	_, err := Init(context.Background(), InitOptions{OpenOptions: opts, Remote: "http://example.com/ctx.git"})
	require.ErrorIs(t, err, kerrors.ErrInsecureTransport)

	_, statErr := os.Stat(opts.Settings.IdentityPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestInitWithRemote(t *testing.T) {
	requireGit(t)
	remote := newBareRemote(t)

	_, sess := initDevice(t, remote)

	url, err := sess.Engine.Remote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remote, url)
	assert.Equal(t, remote, sess.Config.Sync.Remote)
}

func TestOpenNotInitialized(t *testing.T) {
	_, err := Open(context.Background(), testOptions(t))
	assert.ErrorIs(t, err, kerrors.ErrNotInitialized)
}

func TestOpenRefusesLoosePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX modes not available")
	}
	opts, _ := initDevice(t, "")

	require.NoError(t, os.Chmod(opts.Settings.IdentityPath(), 0644))
	_, err := Open(context.Background(), opts)
	assert.ErrorIs(t, err, kerrors.ErrPermission)

	require.NoError(t, os.Chmod(opts.Settings.IdentityPath(), 0600))
	require.NoError(t, os.Chmod(opts.Settings.ConfigDir, 0755))
	_, err = Open(context.Background(), opts)
	assert.ErrorIs(t, err, kerrors.ErrPermission)
}

func TestOpenRejectsMismatchedIdentity(t *testing.T) {
	opts, _ := initDevice(t, "")

	require.NoError(t, secrets.SaveIdentity(opts.Settings.IdentityPath(), newIdentity(t)))
	_, err := Open(context.Background(), opts)
	assert.ErrorIs(t, err, kerrors.ErrInvalidIdentity)
}

func TestStatus(t *testing.T) {
	opts := testOptions(t)

	result, err := Status(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, result.Initialized)

	_, sess := initDeviceWith(t, opts)
	require.NoError(t, SetValue(sess, "notes", "todo", "ship it"))

	result, err = Status(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, result.Initialized)
	assert.True(t, result.Repository)
	assert.Equal(t, ShowKey(sess).Fingerprint, result.Fingerprint)
	require.Len(t, result.Buckets, 1)
	assert.Equal(t, "notes", result.Buckets[0].Name)
	assert.NotEmpty(t, result.Buckets[0].Modified)
	assert.Equal(t, []string{"manifest.json", "notes.enc"}, result.Pending)
	assert.False(t, result.RotationPending)
}

func initDeviceWith(t *testing.T, opts OpenOptions) (OpenOptions, *Session) {
	t.Helper()
	requireGit(t)
	_, err := Init(context.Background(), InitOptions{OpenOptions: opts})
	require.NoError(t, err)
	return opts, reopen(t, opts)
}
