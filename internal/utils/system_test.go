package utils

import (
	"testing"
)

func TestSanitizeDeviceName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"LowercaseSimple", "MacBook", "macbook"},
		{"SpacesToHyphens", "My Device", "my-device"},
		{"RemoveSpecialChars", "My@Device#123!", "mydevice123"},
		{"RemoveConsecutiveHyphens", "my--device", "my-device"},
		{"TrimHyphens", "-my-device-", "my-device"},
		{"EmptyToDefault", "", "device"},
		{"OnlySpecialChars", "@#$%", "device"},
		{"PreserveUnderscores", "my_device", "my_device"},
		{"DottedHostname", "dev-box.local", "dev-boxlocal"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := SanitizeDeviceName(tc.input)
			if result != tc.expected {
				t.Errorf("SanitizeDeviceName(%q) = %q, expected %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestDeviceName(t *testing.T) {
	name := DeviceName()
	if name == "" {
		t.Fatal("Expected non-empty device name")
	}
	if SanitizeDeviceName(name) != name {
		t.Errorf("DeviceName() = %q is not sanitized", name)
	}
}
