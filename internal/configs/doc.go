// Package configs manages the local, never-synced configuration of ctx-sync.
//
// Everything lives in one directory, $CTX_SYNC_HOME or
// <UserConfigDir>/ctx-sync, which must have mode 0700:
//
//   - identity.key: this device's private key (0600, see package secrets)
//   - recipients.toml: the recipient registry (0600)
//   - config.toml: device identity and sync remote
//   - rotation.toml and identity.key.pending: present only while a key
//     rotation is incomplete
//   - audit.jsonl: local operation log (see package audit)
//
// # Settings
//
// Settings is an explicit value resolved once by DefaultSettings and passed
// down. There are no package-level globals, so tests point a Settings at a
// temporary directory.
//
// # Recipient Registry
//
// The Registry holds the owner key followed by team members in the order
// they were added. Recipients returns the set every bucket is encrypted
// for. The registry rejects duplicate names, duplicate keys and the owner's
// own key as a member.
//
// Mutating the registry does not re-encrypt anything by itself. Workflows
// re-encrypt every bucket for the new set first and only then save the
// registry, so a failure leaves recipients.toml unchanged.
package configs
