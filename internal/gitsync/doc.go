// Package gitsync synchronizes the sync directory through Git.
//
// The Engine drives a VCS, normally Git which runs the git binary, through
// one sync cycle:
//
//	idle -> validating-remote -> pulling -> [conflicted -> resolving -> resolved]
//	     -> committing -> pushing -> idle
//
// Any error moves the cycle to failed. SyncResult.States records the path
// taken.
//
// # Transport
//
// ValidateRemote accepts SSH (ssh://, git+ssh://, ssh+git:// and
// user@host:path), HTTPS, file:// URLs and local paths. Everything else is
// rejected with errors.ErrInsecureTransport before git is invoked.
//
// # Pulling
//
// Local changes are committed as a snapshot first, so both sides of a merge
// are committed versions. The remote branch is then fetched and merged with
// unrelated histories allowed. Conflicted bucket files are reported and left
// alone. The manifest is plaintext derived state and is merged
// automatically, keeping the newest timestamp per file.
//
// # Conflicts
//
// Encrypted files cannot be merged by content. Init marks *.enc as binary
// in the clone's info/attributes, so git never writes conflict markers into
// them. Each conflicted file is resolved by keeping one whole version:
// KeepLocal checks out the local side, AcceptRemote the remote side.
// Resolve refuses to change anything while any conflicted file lacks a
// decision.
//
// A sync that fails with files still conflicted leaves the merge open. The
// next Pull reports the same conflicts without fetching, and Commit refuses
// to stage anything until they are resolved.
//
// # Commits
//
// Only top-level *.enc files and manifest.json are ever staged. Commit
// reports false and creates nothing when there are no changes.
package gitsync
