package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"

	"github.com/bmatcuk/doublestar/v4"
)

// BucketExt is the extension of every encrypted bucket file.
const BucketExt = ".enc"

// Known bucket names. Any name matching the bucket name pattern is accepted.
const (
	BucketProjects    = "projects"
	BucketSecrets     = "secrets"
	BucketDocker      = "docker"
	BucketNotes       = "notes"
	BucketServices    = "services"
	BucketDirectories = "directories"
)

// KnownBuckets lists the buckets ctx-sync itself writes.
var KnownBuckets = []string{
	BucketProjects,
	BucketSecrets,
	BucketDocker,
	BucketNotes,
	BucketServices,
	BucketDirectories,
}

var bucketNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// Document is the decrypted contents of a bucket.
type Document map[string]any

// Options configures a Store.
type Options struct {
	// Now returns the time recorded in the manifest. Defaults to time.Now.
	Now func() time.Time
}

// Store reads and writes encrypted buckets in the sync directory.
type Store struct {
	dir string
	now func() time.Time
}

// Open returns a Store rooted at dir, creating the directory when missing.
func Open(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sync directory %s: %w", dir, err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{dir: dir, now: now}, nil
}

// Dir returns the sync directory.
func (s *Store) Dir() string {
	return s.dir
}

// ManifestPath returns the path of manifest.json.
func (s *Store) ManifestPath() string {
	return filepath.Join(s.dir, ManifestFile)
}

// Manifest loads the current manifest.
func (s *Store) Manifest() (*Manifest, error) {
	return LoadManifest(s.ManifestPath())
}

// ValidateBucketName rejects names that could not be stored as a bucket.
func ValidateBucketName(name string) error {
	if !bucketNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", kerrors.ErrInvalidBucketName, name)
	}
	return nil
}

// FileName returns the on-disk name of a bucket.
func FileName(name string) string {
	return name + BucketExt
}

// BucketPath returns the path of the bucket file.
func (s *Store) BucketPath(name string) string {
	return filepath.Join(s.dir, FileName(name))
}

// ReadBucket decrypts a bucket with id. A bucket that does not exist yet is
// an empty document. A file that fails to decrypt for any reason, including
// an empty file, yields a decryption error; a file that decrypts but is not
// a JSON object yields kerrors.ErrCorruptState.
func (s *Store) ReadBucket(name string, id *secrets.Identity) (Document, error) {
	if err := ValidateBucketName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.BucketPath(name))
	if os.IsNotExist(err) {
		return Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket %s: %w", name, err)
	}

	return decodeBucket(name, data, id)
}

// WriteBucket encrypts doc for every recipient and replaces the bucket file
// atomically. The manifest entry is updated only after the bucket is in
// place.
func (s *Store) WriteBucket(name string, doc Document, recipients []secrets.Recipient) error {
	if err := ValidateBucketName(name); err != nil {
		return err
	}

	ciphertext, err := encodeBucket(doc, recipients)
	if err != nil {
		return fmt.Errorf("failed to encrypt bucket %s: %w", name, err)
	}

	return s.writeCiphertext(name, ciphertext)
}

func (s *Store) writeFile(name string, ciphertext []byte) error {
	if err := utils.WriteFileAtomic(s.BucketPath(name), ciphertext, 0600); err != nil {
		return fmt.Errorf("failed to write bucket %s: %w", name, err)
	}
	return nil
}

// ListBuckets returns the names of every bucket file in sorted order.
func (s *Store) ListBuckets() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(s.dir), "*"+BucketExt)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		name := strings.TrimSuffix(match, BucketExt)
		if ValidateBucketName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteBucket removes a bucket file and its manifest entry. Deleting a
// bucket that does not exist is not an error.
func (s *Store) DeleteBucket(name string) error {
	if err := ValidateBucketName(name); err != nil {
		return err
	}

	if err := os.Remove(s.BucketPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete bucket %s: %w", name, err)
	}
	if err := utils.SyncDir(s.dir); err != nil {
		return err
	}

	return s.updateManifest(func(m *Manifest) {
		m.Remove(FileName(name))
	})
}

// MarkSynced records a completed sync in the manifest.
func (s *Store) MarkSynced() error {
	return s.updateManifest(func(m *Manifest) {
		m.MarkSynced(s.now())
	})
}

func (s *Store) updateManifest(mutate func(*Manifest)) error {
	m, err := s.Manifest()
	if err != nil {
		return err
	}
	mutate(m)
	return m.Save(s.ManifestPath())
}

func encodeBucket(doc Document, recipients []secrets.Recipient) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return secrets.Encrypt(plaintext, recipients)
}

func decodeBucket(name string, data []byte, ids ...*secrets.Identity) (Document, error) {
	var plaintext []byte
	for _, id := range ids {
		if id == nil {
			continue
		}
		if p, err := secrets.Decrypt(data, id); err == nil {
			plaintext = p
			break
		}
	}
	if plaintext == nil {
		return nil, kerrors.Decryption("read bucket", name)
	}

	doc := Document{}
	dec := json.NewDecoder(bytes.NewReader(plaintext))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return nil, fmt.Errorf("%w: bucket %s does not contain a JSON object", kerrors.ErrCorruptState, name)
	}
	return doc, nil
}
