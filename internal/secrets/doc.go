// Package secrets provides the cryptographic core of ctx-sync: device
// identities, public key handling and multi-recipient file encryption.
//
// # Keys
//
// An Identity is an X25519 key pair. Public keys (recipients) are encoded as
// ctxsync1 followed by lowercase unpadded base32; private keys as
// CTXSYNC-SECRET-KEY-1 followed by uppercase base32. Identity values never
// print their private half through fmt, so they are safe to pass to a logger.
//
// The identity file lives in the local config directory and must have mode
// 0600. LoadIdentity refuses anything looser.
//
// # Encryption Architecture
//
// Every encrypted file targets all recipients at once:
//
//  1. A random 256-bit file key is generated per write
//  2. The file key is sealed for each recipient with an anonymous NaCl box
//  3. The payload is sealed with NaCl secretbox under a key derived (HKDF)
//     from the file key, the nonce and a hash of the whole header
//
// Any single recipient's private key opens the file independently. Because
// the header feeds the payload key, tampering with the recipient list is
// detected. Encryption is non-deterministic: re-encrypting the same
// document produces different output.
//
// # Failure Reporting
//
// Decrypt reports every failure as errors.ErrDecryption. Callers cannot and
// must not learn whether the key was wrong or the file damaged.
//
// # Fingerprints
//
// Fingerprint returns a short BLAKE2b digest of a public key, grouped as
// XXXX-XXXX-XXXX-XXXX, for verifying a new member's key out of band.
package secrets
