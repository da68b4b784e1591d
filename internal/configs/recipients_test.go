package configs

import (
	"os"
	"runtime"
	"testing"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecipient(t *testing.T) secrets.Recipient {
	t.Helper()
	id, err := secrets.GenerateIdentity()
	require.NoError(t, err)
	return id.Recipient()
}

func TestRegistryAdd(t *testing.T) {
	owner := newRecipient(t)
	alice := newRecipient(t)
	bob := newRecipient(t)

	reg := NewRegistry(owner)
	require.NoError(t, reg.Add("alice", alice))
	require.NoError(t, reg.Add("bob", bob))

	recipients := reg.Recipients()
	require.Len(t, recipients, 3)
	assert.True(t, recipients[0].Equal(owner))
	assert.True(t, recipients[1].Equal(alice))
	assert.True(t, recipients[2].Equal(bob))

	testCases := []struct {
		name    string
		member  string
		key     secrets.Recipient
		wantErr error
	}{
		{"duplicate name", "alice", newRecipient(t), kerrors.ErrDuplicateRecipient},
		{"duplicate key", "carol", alice, kerrors.ErrDuplicateRecipient},
		{"owner key", "me", owner, kerrors.ErrOwnerAsMember},
		{"invalid name", "-bad name", newRecipient(t), kerrors.ErrInvalidRecipientName},
		{"empty name", "", newRecipient(t), kerrors.ErrInvalidRecipientName},
		{"zero key", "dave", secrets.Recipient{}, kerrors.ErrInvalidPublicKey},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := reg.Add(tc.member, tc.key)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Len(t, reg.Members, 2)
		})
	}
}

func TestRegistryRemoveAndRevoke(t *testing.T) {
	owner := newRecipient(t)
	alice := newRecipient(t)
	bob := newRecipient(t)

	reg := NewRegistry(owner)
	require.NoError(t, reg.Add("alice", alice))
	require.NoError(t, reg.Add("bob", bob))

	removed, err := reg.Remove("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", removed.Name)
	assert.Len(t, reg.Recipients(), 2)

	_, err = reg.Remove("alice")
	assert.ErrorIs(t, err, kerrors.ErrRecipientNotFound)

	revoked, err := reg.Revoke(bob)
	require.NoError(t, err)
	assert.Equal(t, "bob", revoked.Name)
	assert.Len(t, reg.Recipients(), 1)

	_, err = reg.Revoke(bob)
	assert.ErrorIs(t, err, kerrors.ErrRecipientNotFound)
}

func TestRegistryCloneIsIndependent(t *testing.T) {
	reg := NewRegistry(newRecipient(t))
	require.NoError(t, reg.Add("alice", newRecipient(t)))

	clone := reg.Clone()
	_, err := clone.Remove("alice")
	require.NoError(t, err)

	assert.Len(t, reg.Members, 1)
	assert.Empty(t, clone.Members)
}

func TestSaveAndLoadRegistry(t *testing.T) {
	s := testSettings(t)
	owner := newRecipient(t)
	alice := newRecipient(t)

	reg := NewRegistry(owner)
	require.NoError(t, reg.Add("alice@laptop", alice))
	require.NoError(t, SaveRegistry(s, reg))

	loaded, err := LoadRegistry(s)
	require.NoError(t, err)
	assert.True(t, loaded.Owner.PublicKey.Equal(owner))
	require.Len(t, loaded.Members, 1)
	assert.Equal(t, "alice@laptop", loaded.Members[0].Name)
	assert.True(t, loaded.Members[0].PublicKey.Equal(alice))
	assert.False(t, loaded.Members[0].AddedAt.IsZero())
}

func TestLoadRegistryErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := LoadRegistry(testSettings(t))
		assert.ErrorIs(t, err, kerrors.ErrNotInitialized)
	})

	t.Run("bad key", func(t *testing.T) {
		s := testSettings(t)
		data := "[owner]\npublic_key = \"ssh-ed25519 AAAA\"\n"
		require.NoError(t, os.WriteFile(s.RecipientsPath(), []byte(data), 0600))

		_, err := LoadRegistry(s)
		assert.Error(t, err)
	})

	t.Run("loose permissions", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("POSIX modes not available")
		}
		s := testSettings(t)
		require.NoError(t, SaveRegistry(s, NewRegistry(newRecipient(t))))
		require.NoError(t, os.Chmod(s.RecipientsPath(), 0644))

		_, err := LoadRegistry(s)
		assert.ErrorIs(t, err, kerrors.ErrPermission)
	})
}

func TestCheckPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX modes not available")
	}

	s := testSettings(t)
	assert.NoError(t, s.CheckPermissions())

	require.NoError(t, os.Chmod(s.ConfigDir, 0755))
	assert.ErrorIs(t, s.CheckPermissions(), kerrors.ErrPermission)

	require.NoError(t, s.EnsureConfigDir())
	assert.NoError(t, s.CheckPermissions())
}

func TestRotationMarker(t *testing.T) {
	s := testSettings(t)

	marker, err := LoadRotationMarker(s)
	require.NoError(t, err)
	assert.Nil(t, marker)

	want := &RotationMarker{OldPublicKey: newRecipient(t), NewPublicKey: newRecipient(t), StartedAt: now()}
	require.NoError(t, SaveRotationMarker(s, want))

	marker, err = LoadRotationMarker(s)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.True(t, marker.OldPublicKey.Equal(want.OldPublicKey))
	assert.True(t, marker.NewPublicKey.Equal(want.NewPublicKey))

	require.NoError(t, ClearRotationMarker(s))
	require.NoError(t, ClearRotationMarker(s))

	marker, err = LoadRotationMarker(s)
	require.NoError(t, err)
	assert.Nil(t, marker)
}
