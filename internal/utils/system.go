package utils

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

var (
	invalidDeviceChars = regexp.MustCompile(`[^a-z0-9\-_]`)
	repeatedHyphens    = regexp.MustCompile(`-+`)
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// SanitizeDeviceName lowercases name, turns spaces into hyphens and drops
// everything that is not alphanumeric, a hyphen or an underscore.
func SanitizeDeviceName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = invalidDeviceChars.ReplaceAllString(name, "")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if name == "" {
		name = "device"
	}
	return name
}

// DeviceName derives a stable device name from the hostname, falling back
// to the username.
func DeviceName() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return SanitizeDeviceName(hostname)
	}
	if username, err := GetUsername(); err == nil {
		return SanitizeDeviceName(username)
	}
	return "device"
}
