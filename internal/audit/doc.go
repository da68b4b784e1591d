// Package audit records what ctx-sync did on this device.
//
// Entries are appended as JSON Lines to audit.jsonl in the local config
// directory with mode 0600. The trail is never synced and never contains
// secret values or key material: only operation names, bucket names,
// member names and key fingerprints.
//
// # Usage
//
//	trail := audit.New(settings, userConfig.Device)
//	entry := trail.Entry("team.add")
//	entry.Member = "alice"
//	trail.Log(entry)
//
// # Failure Handling
//
// Logging is best-effort. If the file cannot be written the operation
// continues without error.
package audit
