package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientEncoding(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)

	encoded := id.Recipient().String()
	assert.True(t, strings.HasPrefix(encoded, RecipientPrefix))
	assert.Equal(t, strings.ToLower(encoded), encoded)

	parsed, err := ParseRecipient(encoded)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(id.Recipient()))
}

func TestParseRecipientErrors(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)
	valid := id.Recipient().String()

	testCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong prefix", "age1" + strings.TrimPrefix(valid, RecipientPrefix)},
		{"uppercase body", RecipientPrefix + strings.ToUpper(strings.TrimPrefix(valid, RecipientPrefix))},
		{"truncated", valid[:len(valid)-4]},
		{"not base32", RecipientPrefix + "!!!!"},
		{"zero key", RecipientPrefix + strings.ToLower(b32.EncodeToString(make([]byte, keySize)))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRecipient(tc.input)
			assert.ErrorIs(t, err, kerrors.ErrInvalidPublicKey)
		})
	}
}

func TestRecipientTextMarshaling(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)

	text, err := id.Recipient().MarshalText()
	require.NoError(t, err)

	var r Recipient
	require.NoError(t, r.UnmarshalText(text))
	assert.True(t, r.Equal(id.Recipient()))

	assert.Error(t, r.UnmarshalText([]byte("garbage")))
}

func TestFingerprint(t *testing.T) {
	ids := newIdentities(t, 2)

	fp := Fingerprint(ids[0].Recipient())
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`), fp)
	assert.Equal(t, fp, Fingerprint(ids[0].Recipient()))
	assert.NotEqual(t, fp, Fingerprint(ids[1].Recipient()))
}

func TestParseIdentity(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)

	parsed, err := ParseIdentity(id.encode())
	require.NoError(t, err)
	assert.True(t, parsed.Recipient().Equal(id.Recipient()))

	for _, bad := range []string{"", "CTXSYNC-SECRET-KEY-1", "CTXSYNC-SECRET-KEY-1!!!", "ctxsync1abc"} {
		_, err := ParseIdentity(bad)
		assert.ErrorIs(t, err, kerrors.ErrInvalidIdentity, "input %q", bad)
	}
}

func TestIdentityNeverPrintsPrivateKey(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)

	secret := strings.TrimPrefix(id.encode(), identityPrefix)

	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%q", "%x"} {
		out := fmt.Sprintf(verb, id)
		assert.NotContains(t, out, secret, "verb %s", verb)
		assert.NotContains(t, out, identityPrefix, "verb %s", verb)
	}
	assert.Contains(t, fmt.Sprint(id), id.Recipient().String())
}

func TestSaveAndLoadIdentity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "identity.key")

	id, err := GenerateIdentity()
	require.NoError(t, err)
	require.NoError(t, SaveIdentity(path, id))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadIdentity(path)
	require.NoError(t, err)
	assert.True(t, loaded.Recipient().Equal(id.Recipient()))
}

func TestLoadIdentityErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := LoadIdentity(filepath.Join(dir, "absent.key"))
		assert.ErrorIs(t, err, kerrors.ErrIdentityNotFound)
	})

	t.Run("only comments", func(t *testing.T) {
		path := filepath.Join(dir, "comments.key")
		require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0600))
		_, err := LoadIdentity(path)
		assert.ErrorIs(t, err, kerrors.ErrInvalidIdentity)
	})

	t.Run("loose permissions", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("POSIX modes not available")
		}
		id, err := GenerateIdentity()
		require.NoError(t, err)
		path := filepath.Join(dir, "loose.key")
		require.NoError(t, SaveIdentity(path, id))
		require.NoError(t, os.Chmod(path, 0644))

		_, err = LoadIdentity(path)
		assert.ErrorIs(t, err, kerrors.ErrPermission)
	})
}

func TestCheckPrivateDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX modes not available")
	}

	dir := filepath.Join(t.TempDir(), "cfg")
	require.NoError(t, os.Mkdir(dir, 0700))
	assert.NoError(t, CheckPrivateDir(dir))

	require.NoError(t, os.Chmod(dir, 0755))
	assert.ErrorIs(t, CheckPrivateDir(dir), kerrors.ErrPermission)

	assert.NoError(t, CheckPrivateDir(filepath.Join(dir, "missing")))

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0600))
	assert.ErrorIs(t, CheckPrivateDir(file), kerrors.ErrPermission)

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(file, link))
	assert.ErrorIs(t, CheckPrivateFile(link), kerrors.ErrPermission)
}
