// Package errors provides typed error values for ctx-sync.
//
// Two shapes are used. Recoverable failures of the core carry a closed Kind
// (ErrDecryption, ErrInsecureTransport, ErrConflictUnresolved,
// ErrRotationAborted, ErrPermission) inside an *Error built where the failure
// happens. Everything else is a plain sentinel.
//
// Both are matched with errors.Is:
//
//	doc, err := store.ReadBucket("secrets", id)
//	if errors.Is(err, kerrors.ErrDecryption) {
//	    // wrong identity or damaged file, the caller cannot tell which
//	}
//
// Conflicts carry the files that still need a decision:
//
//	if errors.Is(err, kerrors.ErrConflictUnresolved) {
//	    paths := kerrors.ConflictPaths(err)
//	}
//
// ErrDecryption never wraps its cause, so no detail about why decryption
// failed can leak through an error message.
package errors
