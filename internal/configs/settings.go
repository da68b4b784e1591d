package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
)

const (
	// HomeEnv overrides the local config directory.
	HomeEnv = "CTX_SYNC_HOME"

	// SyncDirEnv overrides the synchronized repository directory.
	SyncDirEnv = "CTX_SYNC_DIR"

	identityFile        = "identity.key"
	pendingIdentityFile = "identity.key.pending"
	recipientsFile      = "recipients.toml"
	configFile          = "config.toml"
	auditFile           = "audit.jsonl"
	rotationFile        = "rotation.toml"
)

// Settings holds the two directories ctx-sync works with. The config
// directory is local to the machine and never synced. The sync directory is
// the Git working tree holding ciphertext only.
type Settings struct {
	ConfigDir string
	SyncDir   string
}

// DefaultSettings resolves the directories from the environment, falling
// back to <UserConfigDir>/ctx-sync and ~/.context-sync.
func DefaultSettings() (*Settings, error) {
	configDir := os.Getenv(HomeEnv)
	if configDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("error getting config directory: %w", err)
		}
		configDir = filepath.Join(base, "ctx-sync")
	}

	syncDir := os.Getenv(SyncDirEnv)
	if syncDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("error getting home directory: %w", err)
		}
		syncDir = filepath.Join(home, ".context-sync")
	}

	return &Settings{ConfigDir: configDir, SyncDir: syncDir}, nil
}

func (s *Settings) IdentityPath() string {
	return filepath.Join(s.ConfigDir, identityFile)
}

// PendingIdentityPath is where a rotation parks the new identity until every
// bucket has been rewritten for it.
func (s *Settings) PendingIdentityPath() string {
	return filepath.Join(s.ConfigDir, pendingIdentityFile)
}

func (s *Settings) RecipientsPath() string {
	return filepath.Join(s.ConfigDir, recipientsFile)
}

func (s *Settings) ConfigPath() string {
	return filepath.Join(s.ConfigDir, configFile)
}

func (s *Settings) AuditPath() string {
	return filepath.Join(s.ConfigDir, auditFile)
}

func (s *Settings) RotationMarkerPath() string {
	return filepath.Join(s.ConfigDir, rotationFile)
}

// EnsureConfigDir creates the config directory with mode 0700, tightening
// the mode of an existing directory.
func (s *Settings) EnsureConfigDir() error {
	if err := os.MkdirAll(s.ConfigDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", s.ConfigDir, err)
	}
	if err := os.Chmod(s.ConfigDir, 0700); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", s.ConfigDir, err)
	}
	return nil
}

// CheckPermissions verifies the config directory and every key file in it
// are private to the owner. It must pass before anything is decrypted or
// encrypted.
func (s *Settings) CheckPermissions() error {
	if err := secrets.CheckPrivateDir(s.ConfigDir); err != nil {
		return err
	}
	for _, path := range []string{s.IdentityPath(), s.PendingIdentityPath(), s.RecipientsPath()} {
		if err := secrets.CheckPrivateFile(path); err != nil {
			return err
		}
	}
	return nil
}
