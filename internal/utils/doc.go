// Package utils provides small helpers shared across ctx-sync packages.
//
// # Filesystem
//
//   - WriteFileAtomic: temp file, fsync, rename, directory fsync
//   - FileExists
//
// # System
//
//   - DeviceName / SanitizeDeviceName: stable device labels for commits
//
// # Strings
//
//   - Redact: masks values before they reach a message or log line
//   - IsValidRecipientName
//
// # Terminal
//
//   - IsTerminal, PromptChoice
package utils
