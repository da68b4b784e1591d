package state

import (
	"fmt"
	"os"
	"sort"

	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
)

// Snapshot is every bucket of a store decrypted into memory.
type Snapshot struct {
	Documents map[string]Document

	// Skipped lists bucket files that were empty and so held no document.
	Skipped []string
}

// Names returns the decrypted bucket names in sorted order.
func (snap *Snapshot) Names() []string {
	names := make([]string, 0, len(snap.Documents))
	for name := range snap.Documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadAll decrypts every bucket using whichever of ids opens it. It returns
// the first failure, leaving the store untouched. Empty files are skipped
// and reported rather than treated as failures.
func (s *Store) LoadAll(ids ...*secrets.Identity) (*Snapshot, error) {
	names, err := s.ListBuckets()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Documents: make(map[string]Document, len(names))}
	for _, name := range names {
		data, err := os.ReadFile(s.BucketPath(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read bucket %s: %w", name, err)
		}
		if len(data) == 0 {
			snap.Skipped = append(snap.Skipped, name)
			continue
		}

		doc, err := decodeBucket(name, data, ids...)
		if err != nil {
			return nil, err
		}
		snap.Documents[name] = doc
	}
	return snap, nil
}

// WriteAll encrypts every document of snap for recipients. Encryption runs
// for all buckets before the first file is replaced.
func (s *Store) WriteAll(snap *Snapshot, recipients []secrets.Recipient) ([]string, error) {
	names := snap.Names()

	ciphertexts := make(map[string][]byte, len(names))
	for _, name := range names {
		ciphertext, err := encodeBucket(snap.Documents[name], recipients)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt bucket %s: %w", name, err)
		}
		ciphertexts[name] = ciphertext
	}

	written := make([]string, 0, len(names))
	for _, name := range names {
		if err := s.writeCiphertext(name, ciphertexts[name]); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

// Reencrypt rewrites every bucket for recipients. Every bucket is decrypted
// with one of ids before anything is written, so a bucket that cannot be
// opened aborts the whole operation with nothing changed on disk.
func (s *Store) Reencrypt(recipients []secrets.Recipient, ids ...*secrets.Identity) (*Snapshot, []string, error) {
	snap, err := s.LoadAll(ids...)
	if err != nil {
		return nil, nil, err
	}

	written, err := s.WriteAll(snap, recipients)
	if err != nil {
		return snap, written, err
	}
	return snap, written, nil
}

func (s *Store) writeCiphertext(name string, ciphertext []byte) error {
	if err := s.writeFile(name, ciphertext); err != nil {
		return err
	}
	return s.updateManifest(func(m *Manifest) {
		m.Touch(FileName(name), s.now())
	})
}
