package secrets

import (
	"fmt"
	"os"
	"runtime"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
)

// CheckPrivateFile fails with a permission error unless path is accessible
// by its owner only. A missing file is not a permission problem and is
// reported by the caller that reads it.
func CheckPrivateFile(path string) error {
	return checkOwnerOnly(path, false)
}

// CheckPrivateDir fails with a permission error unless path is a directory
// accessible by its owner only.
func CheckPrivateDir(path string) error {
	return checkOwnerOnly(path, true)
}

func checkOwnerOnly(path string, wantDir bool) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return kerrors.Permission(path, "must not be a symlink")
	}
	if wantDir && !info.IsDir() {
		return kerrors.Permission(path, "expected a directory")
	}
	if !wantDir && !info.Mode().IsRegular() {
		return kerrors.Permission(path, "expected a regular file")
	}

	// Windows does not expose POSIX modes.
	if runtime.GOOS == "windows" {
		return nil
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		want := "0600"
		if wantDir {
			want = "0700"
		}
		return kerrors.Permission(path, fmt.Sprintf("mode is %04o, expected %s", perm, want))
	}
	return nil
}
