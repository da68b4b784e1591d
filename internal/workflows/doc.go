// Package workflows provides high-level orchestration for ctx-sync commands.
//
// Workflows coordinate the identity, registry, state store and sync engine
// to implement complete user-facing features. Each workflow handles a
// single command's business logic, independent of CLI concerns like flag
// parsing, spinners and output formatting.
//
// # Sessions
//
// A Session holds the settings, identity, registry, store and sync engine
// for one invocation. Open builds it after checking that the config
// directory and key files are private to the owner and that no rotation is
// pending. It is passed explicitly to every workflow; nothing is global.
//
// # Available Workflows
//
//   - Init: creates the identity, registry and sync repository
//   - AddMember, RemoveMember, RevokeMember: change the recipient set and
//     re-encrypt every bucket for it
//   - Rotate, ResumeRotation: replace this device's identity
//   - Sync: pull, resolve, commit and push
//   - GetBucket, SetValue, UnsetValue, DeleteBucket, ListBuckets: edit state
//   - Status, ShowKey: report without decrypting anything
//   - ReadLog: filter this device's audit trail
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package so the CLI
// layer can pick a message without string matching:
//
//	_, err := workflows.Rotate(ctx, sess, opts)
//	if errors.Is(err, kerrors.ErrRotationAborted) {
//	    // nothing was rewritten
//	}
package workflows
