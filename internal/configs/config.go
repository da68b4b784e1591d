package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"

	"github.com/google/uuid"
)

// DefaultBranch is the branch the sync repository is created on.
const DefaultBranch = "main"

type UserConfig struct {
	Device Device     `toml:"device"`
	Sync   SyncConfig `toml:"sync"`
}

// Device identifies this machine in commit messages and the audit trail.
type Device struct {
	ID        string    `toml:"device_uuid"`
	Name      string    `toml:"name"`
	CreatedAt time.Time `toml:"created_at"`
}

type SyncConfig struct {
	Remote string `toml:"remote,omitempty"`
	Branch string `toml:"branch"`
}

// LoadUserConfig loads config.toml. A missing file yields an empty config.
func LoadUserConfig(s *Settings) (*UserConfig, error) {
	config := &UserConfig{Sync: SyncConfig{Branch: DefaultBranch}}

	if _, err := os.Stat(s.ConfigPath()); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(s.ConfigPath(), config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if config.Sync.Branch == "" {
		config.Sync.Branch = DefaultBranch
	}

	return config, nil
}

// SaveUserConfig saves config.toml.
func SaveUserConfig(s *Settings, config *UserConfig) error {
	if err := SaveTOML(s.ConfigPath(), config, 0600); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}
	return nil
}

// NewDeviceID generates a new UUID for a device.
func NewDeviceID() string {
	return uuid.New().String()
}

// EnsureUserConfig loads config.toml and fills in the device identity on
// first use.
func EnsureUserConfig(s *Settings) (*UserConfig, error) {
	config, err := LoadUserConfig(s)
	if err != nil {
		return nil, err
	}

	if config.Device.ID != "" {
		return config, nil
	}

	config.Device = Device{
		ID:        NewDeviceID(),
		Name:      utils.DeviceName(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := SaveUserConfig(s, config); err != nil {
		return nil, err
	}

	return config, nil
}
