package configs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"

	"github.com/BurntSushi/toml"
)

// SaveTOML encodes data and writes it atomically to filePath with the given
// mode. The parent directory is created with mode 0700 when missing.
func SaveTOML(filePath string, data interface{}, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(filePath), err)
	}

	return utils.WriteFileAtomic(filePath, buf.Bytes(), perm)
}

// LoadTOML loads a TOML file into a struct.
func LoadTOML(filePath string, data interface{}) error {
	_, err := toml.DecodeFile(filePath, data)
	return err
}
