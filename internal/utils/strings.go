package utils

import (
	"regexp"
	"strings"
)

var recipientNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._@-]{0,63}$`)

// IsValidRecipientName reports whether name can label a team member.
func IsValidRecipientName(name string) bool {
	return recipientNamePattern.MatchString(name)
}

// Redact masks a value before it is shown in a message. Short values are
// fully masked; longer ones keep a four character prefix so the user can
// tell values apart without seeing them.
func Redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return strings.Repeat("*", 8)
	}
	return value[:4] + strings.Repeat("*", 8)
}
