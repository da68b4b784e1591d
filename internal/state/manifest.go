package state

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"
)

const (
	// ManifestFile is the plaintext index kept next to the buckets.
	ManifestFile = "manifest.json"

	// ManifestVersion is written into every manifest.
	ManifestVersion = "1.0.0"
)

// Manifest lists each encrypted file with the time it was last written. It
// holds no secret values and no key material.
type Manifest struct {
	Version  string            `json:"version"`
	LastSync string            `json:"lastSync"`
	Files    map[string]string `json:"files"`
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{Version: ManifestVersion, Files: map[string]string{}}
}

// ParseManifest decodes manifest.json contents.
func ParseManifest(data []byte) (*Manifest, error) {
	m := NewManifest()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Files == nil {
		m.Files = map[string]string{}
	}
	if m.Version == "" {
		m.Version = ManifestVersion
	}
	return m, nil
}

// LoadManifest reads path. A missing file yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// Marshal encodes the manifest with stable key order.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Save writes the manifest atomically.
func (m *Manifest) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

// Touch records file as written at t.
func (m *Manifest) Touch(file string, t time.Time) {
	m.Files[file] = formatTime(t)
}

// Remove drops file from the manifest.
func (m *Manifest) Remove(file string) {
	delete(m.Files, file)
}

// MarkSynced sets lastSync to t.
func (m *Manifest) MarkSynced(t time.Time) {
	m.LastSync = formatTime(t)
}

// FileNames returns the listed files in sorted order.
func (m *Manifest) FileNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MergeManifests combines two versions of a manifest, keeping the newest
// timestamp for every file and the later lastSync. Files listed on only one
// side are kept.
func MergeManifests(local, remote *Manifest) *Manifest {
	merged := NewManifest()
	merged.LastSync = newest(local.LastSync, remote.LastSync)

	for _, side := range []*Manifest{local, remote} {
		for file, ts := range side.Files {
			merged.Files[file] = newest(merged.Files[file], ts)
		}
	}
	return merged
}

func newest(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if parseTime(b).After(parseTime(a)) {
		return b
	}
	return a
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
