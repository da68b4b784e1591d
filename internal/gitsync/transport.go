package gitsync

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
)

var (
	schemePattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.-]*)://`)
	scpPattern    = regexp.MustCompile(`^[^@/\s:]+@[^@/\s:]+:[^\s]+$`)
	drivePattern  = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

	allowedSchemes = map[string]bool{
		"ssh":     true,
		"git+ssh": true,
		"ssh+git": true,
		"https":   true,
		"file":    true,
	}
)

// ValidateRemote checks a remote against the transport allow-list: SSH in
// URL or scp-like form, HTTPS, file URLs and local paths. Anything else,
// including plain HTTP, the git protocol and remote helpers, fails with
// errors.ErrInsecureTransport. No network call is made.
func ValidateRemote(remote string) error {
	shown := RedactRemote(remote)
	remote = strings.TrimSpace(remote)

	switch {
	case remote == "":
		return kerrors.InsecureTransport(shown, "remote is empty")
	case strings.HasPrefix(remote, "-"):
		return kerrors.InsecureTransport(shown, "remote must not start with '-'")
	case strings.Contains(remote, "::"):
		return kerrors.InsecureTransport(shown, "remote helpers are not allowed")
	}

	if m := schemePattern.FindStringSubmatch(remote); m != nil {
		scheme := strings.ToLower(m[1])
		if !allowedSchemes[scheme] {
			return kerrors.InsecureTransport(shown, "scheme "+scheme+" is not allowed, use ssh or https")
		}
		u, err := url.Parse(remote)
		if err != nil {
			return kerrors.InsecureTransport(shown, "remote is not a valid URL")
		}
		if scheme != "file" && u.Host == "" {
			return kerrors.InsecureTransport(shown, "remote has no host")
		}
		return nil
	}

	if scpPattern.MatchString(remote) {
		return nil
	}

	if isLocalPath(remote) {
		return nil
	}

	return kerrors.InsecureTransport(shown, "use ssh://, user@host:path, https:// or a local path")
}

func isLocalPath(remote string) bool {
	if filepath.IsAbs(remote) || drivePattern.MatchString(remote) {
		return true
	}
	for _, prefix := range []string{"./", "../", "~/", ".\\", "..\\"} {
		if strings.HasPrefix(remote, prefix) {
			return true
		}
	}
	return !strings.Contains(remote, ":") && !strings.Contains(remote, "@")
}

// RedactRemote hides a password embedded in a remote URL.
func RedactRemote(remote string) string {
	if !schemePattern.MatchString(remote) {
		return remote
	}
	u, err := url.Parse(remote)
	if err != nil {
		return "<invalid remote>"
	}
	return u.Redacted()
}
