package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the recoverable failures of the core. A Kind is itself an
// error so it can be used as an errors.Is target.
type Kind uint8

const (
	// ErrDecryption covers a wrong identity and corrupted or tampered
	// ciphertext alike. The two cases are deliberately not distinguished.
	ErrDecryption Kind = iota + 1

	// ErrInsecureTransport indicates the remote scheme is not allow-listed.
	ErrInsecureTransport

	// ErrConflictUnresolved indicates conflicting files still need a decision.
	ErrConflictUnresolved

	// ErrRotationAborted indicates a bucket failed to decrypt under the old
	// identity during rotation. Nothing was rewritten.
	ErrRotationAborted

	// ErrPermission indicates the identity file or config directory has
	// unsafe permissions.
	ErrPermission
)

func (k Kind) Error() string {
	switch k {
	case ErrDecryption:
		return "decryption failed"
	case ErrInsecureTransport:
		return "insecure transport"
	case ErrConflictUnresolved:
		return "unresolved sync conflict"
	case ErrRotationAborted:
		return "key rotation aborted"
	case ErrPermission:
		return "unsafe permissions"
	default:
		return "unknown error"
	}
}

// Error is the tagged error returned at the point of failure.
type Error struct {
	Kind Kind

	// Op names the operation that failed, e.g. "read bucket".
	Op string

	// Path is the file or remote the failure concerns, if any.
	Path string

	// Paths lists every file involved, used for conflicts.
	Paths []string

	// Detail is a short, already-redacted explanation.
	Detail string

	// Err is the underlying cause. It is never set for ErrDecryption.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if len(e.Paths) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Paths, ", "))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches an Error against its Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Decryption builds the opaque decryption failure for path.
func Decryption(op, path string) *Error {
	return &Error{Kind: ErrDecryption, Op: op, Path: path}
}

// InsecureTransport builds the failure for a rejected remote.
func InsecureTransport(remote, detail string) *Error {
	return &Error{Kind: ErrInsecureTransport, Op: "validate remote", Path: remote, Detail: detail}
}

// ConflictUnresolved builds the failure listing files without a decision.
func ConflictUnresolved(paths []string) *Error {
	return &Error{Kind: ErrConflictUnresolved, Op: "resolve conflicts", Paths: append([]string(nil), paths...)}
}

// RotationAborted builds the failure for a bucket that did not decrypt
// under the old identity.
func RotationAborted(bucket string, err error) *Error {
	return &Error{Kind: ErrRotationAborted, Op: "rotate", Path: bucket, Detail: "bucket could not be decrypted with the current identity, nothing was rewritten", Err: err}
}

// Permission builds the failure for an unsafe file or directory mode.
func Permission(path, detail string) *Error {
	return &Error{Kind: ErrPermission, Op: "check permissions", Path: path, Detail: detail}
}

// KindOf returns the Kind carried by err, or zero if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

// ConflictPaths returns the unresolved files carried by err.
func ConflictPaths(err error) []string {
	var e *Error
	if errors.As(err, &e) && e.Kind == ErrConflictUnresolved {
		return e.Paths
	}
	return nil
}

// Setup errors indicate the local installation is missing or incomplete.
var (
	// ErrNotInitialized indicates init has not been run on this device.
	ErrNotInitialized = errors.New("ctx-sync has not been initialized on this device")

	// ErrAlreadyInitialized indicates an identity already exists.
	ErrAlreadyInitialized = errors.New("ctx-sync is already initialized on this device")

	// ErrIdentityNotFound indicates the identity file is missing.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrRotationInProgress indicates an interrupted rotation must be resumed first.
	ErrRotationInProgress = errors.New("a key rotation was interrupted and must be resumed")

	// ErrNoRotationInProgress indicates there is nothing to resume.
	ErrNoRotationInProgress = errors.New("no key rotation in progress")
)

// Key and recipient errors.
var (
	// ErrInvalidPublicKey indicates a public key does not match the expected format.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidIdentity indicates the identity file is malformed.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrDuplicateRecipient indicates the name or key is already registered.
	ErrDuplicateRecipient = errors.New("recipient already registered")

	// ErrRecipientNotFound indicates no recipient matches the name or key.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrOwnerAsMember indicates the owner's key was offered as a team member.
	ErrOwnerAsMember = errors.New("the owner's key cannot be added as a team member")

	// ErrInvalidRecipientName indicates a recipient name is empty or malformed.
	ErrInvalidRecipientName = errors.New("invalid recipient name")

	// ErrNoRecipients indicates an encryption was requested for nobody.
	ErrNoRecipients = errors.New("no recipients")
)

// State errors.
var (
	// ErrCorruptState indicates a bucket decrypted but its content is unusable.
	// This is fatal and must never be swallowed.
	ErrCorruptState = errors.New("state is corrupted")

	// ErrInvalidBucketName indicates a bucket name outside the allowed pattern.
	ErrInvalidBucketName = errors.New("invalid bucket name")
)

// Sync errors.
var (
	// ErrGitOperationFailed indicates a git command returned an error.
	ErrGitOperationFailed = errors.New("git operation failed")

	// ErrNotRepository indicates the sync directory is not a git working tree.
	ErrNotRepository = errors.New("sync directory is not a git repository")

	// ErrNoRemote indicates an operation needs a remote but none is configured.
	ErrNoRemote = errors.New("no remote configured")
)

// GitError represents a failed git invocation.
type GitError struct {
	Operation string
	Args      []string
	Err       error
	Output    string
}

func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Operation)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg = fmt.Sprintf("%s: %s", msg, out)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// NewGitError creates a GitError wrapping ErrGitOperationFailed.
func NewGitError(operation string, args []string, err error, output string) *GitError {
	return &GitError{
		Operation: operation,
		Args:      args,
		Err:       fmt.Errorf("%w: %v", ErrGitOperationFailed, err),
		Output:    output,
	}
}
