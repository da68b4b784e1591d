package secrets

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"io"
	"math"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	armorType = "CTXSYNC ENCRYPTED FILE"

	formatVersion byte = 1
	fileKeySize        = 32
	stanzaSize         = fileKeySize + box.AnonymousOverhead
	nonceSize          = 24

	// magic(4) + version(1) + recipient count(2)
	preambleSize = 7
)

var (
	magic       = []byte("ctxs")
	payloadInfo = []byte("ctx-sync payload key v1")
)

// Encrypt seals plaintext so that the private key of any one recipient can
// open it on its own.
//
// A random file key is wrapped for every recipient with an anonymous NaCl
// box. The payload is sealed with secretbox under a key derived from the file
// key and the full header, so adding, removing or reordering recipient
// stanzas breaks decryption. The result is PEM armored.
func Encrypt(plaintext []byte, recipients []Recipient) ([]byte, error) {
	recipients = uniqueRecipients(recipients)
	if len(recipients) == 0 {
		return nil, kerrors.ErrNoRecipients
	}
	if len(recipients) > math.MaxUint16 {
		return nil, fmt.Errorf("too many recipients: %d", len(recipients))
	}

	fileKey := make([]byte, fileKeySize)
	if _, err := io.ReadFull(rand.Reader, fileKey); err != nil {
		return nil, fmt.Errorf("failed to generate file key: %w", err)
	}
	defer wipe(fileKey)

	header := make([]byte, preambleSize, preambleSize+len(recipients)*stanzaSize)
	copy(header, magic)
	header[4] = formatVersion
	binary.BigEndian.PutUint16(header[5:7], uint16(len(recipients)))

	for _, r := range recipients {
		key := r.key
		stanza, err := box.SealAnonymous(nil, fileKey, &key, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to wrap file key for %s: %w", r, err)
		}
		header = append(header, stanza...)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	payloadKey, err := derivePayloadKey(fileKey, header, nonce[:])
	if err != nil {
		return nil, err
	}
	defer wipe(payloadKey[:])

	body := make([]byte, 0, len(header)+nonceSize+len(plaintext)+secretbox.Overhead)
	body = append(body, header...)
	body = append(body, nonce[:]...)
	body = secretbox.Seal(body, plaintext, &nonce, &payloadKey)

	return pem.EncodeToMemory(&pem.Block{Type: armorType, Bytes: body}), nil
}

// Decrypt opens data produced by Encrypt. Every failure, whether the
// identity is not a recipient or the file is damaged, returns the same
// kerrors.ErrDecryption value.
func Decrypt(data []byte, id *Identity) ([]byte, error) {
	block, rest := pem.Decode(data)
	if block == nil || block.Type != armorType || len(bytes.TrimSpace(rest)) != 0 {
		return nil, kerrors.ErrDecryption
	}
	raw := block.Bytes

	if len(raw) < preambleSize || !bytes.Equal(raw[:4], magic) || raw[4] != formatVersion {
		return nil, kerrors.ErrDecryption
	}

	count := int(binary.BigEndian.Uint16(raw[5:7]))
	headerSize := preambleSize + count*stanzaSize
	if count == 0 || len(raw) < headerSize+nonceSize+secretbox.Overhead {
		return nil, kerrors.ErrDecryption
	}
	header := raw[:headerSize]

	pub := id.recipient.key
	priv := id.private
	defer wipe(priv[:])

	var fileKey []byte
	for i := 0; i < count; i++ {
		offset := preambleSize + i*stanzaSize
		if key, ok := box.OpenAnonymous(nil, raw[offset:offset+stanzaSize], &pub, &priv); ok {
			fileKey = key
			break
		}
	}
	if fileKey == nil {
		return nil, kerrors.ErrDecryption
	}
	defer wipe(fileKey)

	var nonce [nonceSize]byte
	copy(nonce[:], raw[headerSize:headerSize+nonceSize])

	payloadKey, err := derivePayloadKey(fileKey, header, nonce[:])
	if err != nil {
		return nil, kerrors.ErrDecryption
	}
	defer wipe(payloadKey[:])

	plaintext, ok := secretbox.Open(nil, raw[headerSize+nonceSize:], &nonce, &payloadKey)
	if !ok {
		return nil, kerrors.ErrDecryption
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// derivePayloadKey binds the payload key to the header so the recipient list
// cannot be altered without detection.
func derivePayloadKey(fileKey, header, nonce []byte) ([32]byte, error) {
	var key [32]byte

	info := make([]byte, 0, len(payloadInfo)+sha256.Size)
	info = append(info, payloadInfo...)
	headerSum := sha256.Sum256(header)
	info = append(info, headerSum[:]...)

	if _, err := io.ReadFull(hkdf.New(sha256.New, fileKey, nonce, info), key[:]); err != nil {
		return key, fmt.Errorf("failed to derive payload key: %w", err)
	}
	return key, nil
}

func uniqueRecipients(recipients []Recipient) []Recipient {
	out := make([]Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.IsZero() {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen.Equal(r) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}
