// Package state is the encrypted state store of ctx-sync.
//
// Development context is kept in named buckets (projects, secrets, docker,
// notes, services, directories, or any name matching
// ^[a-z][a-z0-9_-]{0,63}$). Each bucket is a JSON object stored as one
// <name>.enc file in the sync directory, encrypted once for every
// recipient. Plaintext never touches the sync directory.
//
// # Writes
//
// WriteBucket serializes and encrypts the document, writes it to a
// temporary file, syncs it and renames it into place. Only after that is
// manifest.json updated, using the same procedure. A crash leaves either
// the old or the new bucket, never a partial one.
//
// # Reads
//
//   - A missing bucket is an empty document.
//   - Any decryption failure is reported as errors.ErrDecryption with no
//     further detail.
//   - Ciphertext that decrypts to something other than a JSON object is
//     errors.ErrCorruptState.
//
// # Re-encryption
//
// Reencrypt, used when the recipient set changes, and LoadAll/WriteAll,
// used by key rotation, decrypt every bucket into memory before writing
// any of them. If one bucket cannot be opened nothing is rewritten.
package state
