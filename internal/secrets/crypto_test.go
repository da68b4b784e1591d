package secrets

import (
	"bytes"
	"encoding/pem"
	"errors"
	"testing"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdentities(t *testing.T, n int) []*Identity {
	t.Helper()
	ids := make([]*Identity, n)
	for i := range ids {
		id, err := GenerateIdentity()
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func recipientsOf(ids ...*Identity) []Recipient {
	out := make([]Recipient, len(ids))
	for i, id := range ids {
		out[i] = id.Recipient()
	}
	return out
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ids := newIdentities(t, 3)
	outsider := newIdentities(t, 1)[0]

	testCases := []struct {
		name string
		data []byte
	}{
		{"Simple string", []byte("This is a secret message")},
		{"JSON document", []byte(`{"STRIPE_KEY":"sk_live_x"}`)},
		{"Binary data", []byte{0x00, 0x01, 0x02, 0xFF, 0xFE}},
		{"Empty data", []byte{}},
		{"Large data", bytes.Repeat([]byte("ctx"), 100000)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := Encrypt(tc.data, recipientsOf(ids...))
			require.NoError(t, err)

			for _, id := range ids {
				plaintext, err := Decrypt(ciphertext, id)
				require.NoError(t, err)
				assert.Equal(t, tc.data, plaintext)
			}

			_, err = Decrypt(ciphertext, outsider)
			assert.True(t, errors.Is(err, kerrors.ErrDecryption))
		})
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	id := newIdentities(t, 1)[0]

	a, err := Encrypt([]byte("same"), recipientsOf(id))
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), recipientsOf(id))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEncryptRequiresRecipients(t *testing.T) {
	_, err := Encrypt([]byte("x"), nil)
	assert.ErrorIs(t, err, kerrors.ErrNoRecipients)

	_, err = Encrypt([]byte("x"), []Recipient{{}})
	assert.ErrorIs(t, err, kerrors.ErrNoRecipients)
}

func TestEncryptDeduplicatesRecipients(t *testing.T) {
	id := newIdentities(t, 1)[0]

	ciphertext, err := Encrypt([]byte("x"), recipientsOf(id, id, id))
	require.NoError(t, err)

	block, _ := pem.Decode(ciphertext)
	require.NotNil(t, block)
	assert.Equal(t, preambleSize+stanzaSize+nonceSize+1+16, len(block.Bytes))
}

func TestDecryptRejectsTampering(t *testing.T) {
	ids := newIdentities(t, 2)
	ciphertext, err := Encrypt([]byte(`{"token":"abc"}`), recipientsOf(ids...))
	require.NoError(t, err)

	block, _ := pem.Decode(ciphertext)
	require.NotNil(t, block)

	reencode := func(raw []byte) []byte {
		return pem.EncodeToMemory(&pem.Block{Type: armorType, Bytes: raw})
	}

	t.Run("flipped payload byte", func(t *testing.T) {
		raw := append([]byte(nil), block.Bytes...)
		raw[len(raw)-1] ^= 0x01
		_, err := Decrypt(reencode(raw), ids[0])
		assert.ErrorIs(t, err, kerrors.ErrDecryption)
	})

	t.Run("dropped recipient stanza", func(t *testing.T) {
		raw := append([]byte(nil), block.Bytes[:preambleSize]...)
		raw[6] = 1
		raw = append(raw, block.Bytes[preambleSize:preambleSize+stanzaSize]...)
		raw = append(raw, block.Bytes[preambleSize+2*stanzaSize:]...)
		_, err := Decrypt(reencode(raw), ids[0])
		assert.ErrorIs(t, err, kerrors.ErrDecryption)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Decrypt(reencode(block.Bytes[:preambleSize+10]), ids[0])
		assert.ErrorIs(t, err, kerrors.ErrDecryption)
	})

	t.Run("not armored", func(t *testing.T) {
		_, err := Decrypt([]byte(`{"token":"abc"}`), ids[0])
		assert.ErrorIs(t, err, kerrors.ErrDecryption)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Decrypt(nil, ids[0])
		assert.ErrorIs(t, err, kerrors.ErrDecryption)
	})

	t.Run("wrong armor type", func(t *testing.T) {
		other := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: block.Bytes})
		_, err := Decrypt(other, ids[0])
		assert.ErrorIs(t, err, kerrors.ErrDecryption)
	})
}

func TestDecryptErrorsAreIndistinguishable(t *testing.T) {
	ids := newIdentities(t, 2)
	ciphertext, err := Encrypt([]byte("x"), recipientsOf(ids[0]))
	require.NoError(t, err)

	_, wrongKey := Decrypt(ciphertext, ids[1])

	damaged := bytes.Replace(ciphertext, []byte("A"), []byte("B"), 1)
	_, corrupted := Decrypt(damaged, ids[0])

	require.Error(t, wrongKey)
	require.Error(t, corrupted)
	assert.Equal(t, wrongKey.Error(), corrupted.Error())
}
