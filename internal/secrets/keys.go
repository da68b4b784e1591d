package secrets

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

const (
	// RecipientPrefix starts every encoded public key.
	RecipientPrefix = "ctxsync1"

	identityPrefix = "CTXSYNC-SECRET-KEY-1"
	keySize        = 32
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Recipient is a public encryption key.
type Recipient struct {
	key [keySize]byte
}

// ParseRecipient decodes a ctxsync1... public key.
func ParseRecipient(s string) (Recipient, error) {
	var r Recipient

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, RecipientPrefix) {
		return r, fmt.Errorf("%w: expected a key starting with %q", kerrors.ErrInvalidPublicKey, RecipientPrefix)
	}

	body := strings.TrimPrefix(s, RecipientPrefix)
	if body != strings.ToLower(body) {
		return r, fmt.Errorf("%w: public keys are lowercase", kerrors.ErrInvalidPublicKey)
	}

	raw, err := b32.DecodeString(strings.ToUpper(body))
	if err != nil || len(raw) != keySize {
		return r, fmt.Errorf("%w: malformed key body", kerrors.ErrInvalidPublicKey)
	}

	copy(r.key[:], raw)
	if r.IsZero() {
		return r, fmt.Errorf("%w: all-zero key", kerrors.ErrInvalidPublicKey)
	}
	return r, nil
}

func (r Recipient) String() string {
	return RecipientPrefix + strings.ToLower(b32.EncodeToString(r.key[:]))
}

// Equal reports whether both values hold the same key.
func (r Recipient) Equal(other Recipient) bool {
	return r.key == other.key
}

// IsZero reports whether r was never set.
func (r Recipient) IsZero() bool {
	return r.key == [keySize]byte{}
}

// MarshalText lets recipients be stored directly in TOML documents.
func (r Recipient) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Recipient) UnmarshalText(text []byte) error {
	parsed, err := ParseRecipient(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Fingerprint returns a short, stable digest of the public key for comparing
// over a separate channel before trusting a new member.
func Fingerprint(r Recipient) string {
	sum := blake2b.Sum256(r.key[:])
	digest := strings.ToUpper(hex.EncodeToString(sum[:8]))

	groups := make([]string, 0, 4)
	for i := 0; i < len(digest); i += 4 {
		groups = append(groups, digest[i:i+4])
	}
	return strings.Join(groups, "-")
}

// Identity is a device's private key together with its derived public key.
// It never prints its private half.
type Identity struct {
	private   [keySize]byte
	recipient Recipient
}

// GenerateIdentity creates a new X25519 identity.
func GenerateIdentity() (*Identity, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity: %w", err)
	}

	id := &Identity{private: *priv, recipient: Recipient{key: *pub}}
	wipe(priv[:])
	return id, nil
}

func identityFromScalar(scalar []byte) (*Identity, error) {
	if len(scalar) != keySize {
		return nil, kerrors.ErrInvalidIdentity
	}

	pub, err := curve25519.X25519(scalar, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidIdentity, err)
	}

	id := &Identity{}
	copy(id.private[:], scalar)
	copy(id.recipient.key[:], pub)
	return id, nil
}

// ParseIdentity decodes a CTXSYNC-SECRET-KEY-1... string.
func ParseIdentity(s string) (*Identity, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, identityPrefix) {
		return nil, kerrors.ErrInvalidIdentity
	}

	raw, err := b32.DecodeString(strings.TrimPrefix(s, identityPrefix))
	if err != nil {
		return nil, kerrors.ErrInvalidIdentity
	}
	defer wipe(raw)

	return identityFromScalar(raw)
}

// Recipient returns the public key of the identity.
func (id *Identity) Recipient() Recipient {
	return id.recipient
}

func (id *Identity) String() string {
	return "Identity(" + id.recipient.String() + ")"
}

// GoString keeps %#v from dumping the private key.
func (id *Identity) GoString() string {
	return id.String()
}

// Format keeps every fmt verb from dumping the private key.
func (id *Identity) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, id.String())
}

func (id *Identity) encode() string {
	return identityPrefix + b32.EncodeToString(id.private[:])
}

// Wipe zeroes the private key. The identity is unusable afterwards.
func (id *Identity) Wipe() {
	wipe(id.private[:])
}

// LoadIdentity reads an identity file. The file must be readable and
// writable by its owner only.
func LoadIdentity(path string) (*Identity, error) {
	if err := CheckPrivateFile(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", kerrors.ErrIdentityNotFound, path)
		}
		return nil, fmt.Errorf("failed to read identity file %s: %w", path, err)
	}
	defer wipe(data)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := ParseIdentity(line)
		if err != nil {
			return nil, fmt.Errorf("identity file %s: %w", path, err)
		}
		return id, nil
	}

	return nil, fmt.Errorf("identity file %s: %w: no key found", path, kerrors.ErrInvalidIdentity)
}

// SaveIdentity writes the identity atomically with mode 0600, creating the
// parent directory with mode 0700 when missing.
func SaveIdentity(path string, id *Identity) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory for identity at %s: %w", dir, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# created: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "# public key: %s\n", id.Recipient())
	buf.WriteString(id.encode())
	buf.WriteString("\n")

	data := buf.Bytes()
	defer wipe(data)

	if err := utils.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
