package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("reading secrets: %w", Decryption("read bucket", "secrets"))

	assert.True(t, errors.Is(err, ErrDecryption))
	assert.False(t, errors.Is(err, ErrPermission))
	assert.Equal(t, ErrDecryption, KindOf(err))
}

func TestDecryptionMessageIsOpaque(t *testing.T) {
	err := Decryption("read bucket", "secrets")

	assert.Equal(t, "read bucket: decryption failed (secrets)", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestConflictPaths(t *testing.T) {
	paths := []string{"secrets.enc", "notes.enc"}
	err := fmt.Errorf("sync: %w", ConflictUnresolved(paths))

	require.True(t, errors.Is(err, ErrConflictUnresolved))
	assert.Equal(t, paths, ConflictPaths(err))

	paths[0] = "mutated"
	assert.Equal(t, "secrets.enc", ConflictPaths(err)[0])

	assert.Nil(t, ConflictPaths(errors.New("other")))
}

func TestRotationAbortedWrapsCause(t *testing.T) {
	cause := Decryption("read bucket", "docker")
	err := RotationAborted("docker", cause)

	assert.True(t, errors.Is(err, ErrRotationAborted))
	assert.True(t, errors.Is(err, ErrDecryption))
}

func TestKindOfBareKind(t *testing.T) {
	assert.Equal(t, ErrPermission, KindOf(fmt.Errorf("x: %w", ErrPermission)))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestGitErrorWrapsSentinel(t *testing.T) {
	err := NewGitError("push", []string{"origin", "main"}, errors.New("exit status 128"), "fatal: unreachable\n")

	assert.True(t, errors.Is(err, ErrGitOperationFailed))
	assert.Contains(t, err.Error(), "git push failed: fatal: unreachable")
}
