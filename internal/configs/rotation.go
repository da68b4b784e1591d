package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
)

// RotationMarker records a key rotation that has started writing buckets
// but not yet promoted the new identity. While it exists every bucket is
// readable by at least one of the two keys.
type RotationMarker struct {
	OldPublicKey secrets.Recipient `toml:"old_public_key"`
	NewPublicKey secrets.Recipient `toml:"new_public_key"`
	StartedAt    time.Time         `toml:"started_at"`
	DeviceID     string            `toml:"device_uuid,omitempty"`
}

// LoadRotationMarker returns the pending rotation, or nil when there is none.
func LoadRotationMarker(s *Settings) (*RotationMarker, error) {
	if _, err := os.Stat(s.RotationMarkerPath()); os.IsNotExist(err) {
		return nil, nil
	}

	marker := &RotationMarker{}
	if err := LoadTOML(s.RotationMarkerPath(), marker); err != nil {
		return nil, fmt.Errorf("failed to load rotation marker: %w", err)
	}
	return marker, nil
}

// SaveRotationMarker writes the marker atomically.
func SaveRotationMarker(s *Settings, marker *RotationMarker) error {
	if err := SaveTOML(s.RotationMarkerPath(), marker, 0600); err != nil {
		return fmt.Errorf("failed to save rotation marker: %w", err)
	}
	return nil
}

// ClearRotationMarker removes the marker. A missing marker is not an error.
func ClearRotationMarker(s *Settings) error {
	if err := os.Remove(s.RotationMarkerPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove rotation marker: %w", err)
	}
	return nil
}
