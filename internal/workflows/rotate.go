package workflows

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Ay7ot/ctx-sync-sub001/internal/configs"
	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/gitsync"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
	"github.com/Ay7ot/ctx-sync-sub001/internal/state"
	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"
)

const rotateCommitMessage = "ctx-sync: rotate keys"

// RotateOptions configures the rotate workflow.
type RotateOptions struct {
	// KeepHistory skips rewriting the sync repository history.
	KeepHistory bool
}

// RotateResult contains the outcome of a key rotation.
type RotateResult struct {
	OldPublicKey   string
	NewPublicKey   string
	NewFingerprint string

	// Buckets lists every bucket rewritten under the new key.
	Buckets []string

	// Skipped lists empty bucket files that held nothing to rewrite.
	Skipped []string

	HistoryRewritten bool
	Pushed           bool

	// Warnings lists failures of the best-effort history cleanup. The
	// rotation itself succeeded.
	Warnings []string
}

// Rotate replaces this device's identity and rewrites every bucket for the
// new key and the current team members.
//
// The workflow:
//  1. Generates a new identity
//  2. Decrypts every bucket with the current identity into memory
//  3. Saves the new identity as pending and writes a rotation marker
//  4. Rewrites every bucket for the new identity and the members
//  5. Promotes the new identity, updates the registry, removes the marker
//  6. Rewrites the sync history to one commit and force-pushes
//
// If any bucket fails to decrypt in step 2 nothing is written and the
// error is a RotationAborted error. Step 6 is best-effort: its failures are
// returned as warnings and never undo steps 1 to 5.
func Rotate(ctx context.Context, sess *Session, opts RotateOptions) (*RotateResult, error) {
	newID, err := secrets.GenerateIdentity()
	if err != nil {
		return nil, err
	}

	snap, err := sess.Store.LoadAll(sess.Identity)
	if err != nil {
		newID.Wipe()
		return nil, abortRotation(err)
	}

	oldKey := sess.Identity.Recipient()

	if err := secrets.SaveIdentity(sess.Settings.PendingIdentityPath(), newID); err != nil {
		newID.Wipe()
		return nil, err
	}
	marker := &configs.RotationMarker{
		OldPublicKey: oldKey,
		NewPublicKey: newID.Recipient(),
		StartedAt:    time.Now().UTC().Truncate(time.Second),
		DeviceID:     sess.Config.Device.ID,
	}
	if err := configs.SaveRotationMarker(sess.Settings, marker); err != nil {
		_ = os.Remove(sess.Settings.PendingIdentityPath())
		newID.Wipe()
		return nil, err
	}

	result, err := completeRotation(ctx, sess, snap, newID, opts)
	if err != nil {
		return nil, err
	}
	result.OldPublicKey = oldKey.String()
	return result, nil
}

// ResumeOptions configures ResumeRotation.
type ResumeOptions struct {
	OpenOptions
	RotateOptions
}

// ResumeRotation finishes a rotation that was interrupted after the
// rotation marker was written. Each bucket is opened with whichever of the
// old and new identities can read it and rewritten uniformly under the new
// one.
//
// Returns ErrNoRotationInProgress when there is no marker.
func ResumeRotation(ctx context.Context, opts ResumeOptions) (*RotateResult, error) {
	settings, err := resolveSettings(opts.Settings)
	if err != nil {
		return nil, err
	}
	opts.Settings = settings

	marker, err := checkedMarker(settings)
	if err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, kerrors.ErrNoRotationInProgress
	}

	current, err := secrets.LoadIdentity(settings.IdentityPath())
	if err != nil {
		return nil, err
	}

	newID, oldID, err := rotationIdentities(settings, marker, current)
	if err != nil {
		current.Wipe()
		return nil, err
	}

	sess, err := newSession(settings, current, opts.OpenOptions)
	if err != nil {
		current.Wipe()
		newID.Wipe()
		return nil, err
	}
	defer sess.Close()

	snap, err := sess.Store.LoadAll(newID, oldID)
	if err != nil {
		newID.Wipe()
		return nil, abortRotation(err)
	}

	result, err := completeRotation(ctx, sess, snap, newID, opts.RotateOptions)
	if err != nil {
		return nil, err
	}
	result.OldPublicKey = marker.OldPublicKey.String()
	return result, nil
}

// rotationIdentities returns the new and old identity of an interrupted
// rotation. When the crash happened after promotion the current identity
// already is the new one and there is no old identity left.
func rotationIdentities(settings *configs.Settings, marker *configs.RotationMarker, current *secrets.Identity) (*secrets.Identity, *secrets.Identity, error) {
	pending, err := secrets.LoadIdentity(settings.PendingIdentityPath())
	if err == nil {
		if !pending.Recipient().Equal(marker.NewPublicKey) {
			pending.Wipe()
			return nil, nil, fmt.Errorf("%w: pending identity does not match the rotation marker", kerrors.ErrInvalidIdentity)
		}
		return pending, current, nil
	}
	if !errors.Is(err, kerrors.ErrIdentityNotFound) {
		return nil, nil, err
	}

	if current.Recipient().Equal(marker.NewPublicKey) {
		promoted, err := secrets.LoadIdentity(settings.IdentityPath())
		if err != nil {
			return nil, nil, err
		}
		return promoted, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: pending identity is missing", kerrors.ErrIdentityNotFound)
}

// completeRotation runs steps 4 to 6. The pending identity and marker must
// already be on disk.
func completeRotation(ctx context.Context, sess *Session, snap *state.Snapshot, newID *secrets.Identity, opts RotateOptions) (*RotateResult, error) {
	next := sess.Registry.Clone()
	next.SetOwner(newID.Recipient())

	written, err := sess.Store.WriteAll(snap, next.Recipients())
	if err != nil {
		newID.Wipe()
		return nil, fmt.Errorf("rotation interrupted, run rotate --resume: %w", err)
	}

	if err := promoteIdentity(sess.Settings); err != nil {
		newID.Wipe()
		return nil, fmt.Errorf("rotation interrupted, run rotate --resume: %w", err)
	}
	if err := configs.SaveRegistry(sess.Settings, next); err != nil {
		newID.Wipe()
		return nil, fmt.Errorf("rotation interrupted, run rotate --resume: %w", err)
	}
	if err := configs.ClearRotationMarker(sess.Settings); err != nil {
		newID.Wipe()
		return nil, err
	}

	sess.Identity.Wipe()
	sess.Identity = newID
	sess.Registry = next

	result := &RotateResult{
		NewPublicKey:   newID.Recipient().String(),
		NewFingerprint: secrets.Fingerprint(newID.Recipient()),
		Buckets:        written,
		Skipped:        snap.Skipped,
	}
	sess.Logger.Infof("Rewrote %d bucket(s) under the new identity", len(written))

	if !opts.KeepHistory {
		rewriteHistory(ctx, sess, result)
	}

	entry := sess.Trail.Entry("rotate")
	entry.Fingerprint = result.NewFingerprint
	entry.Recipients = len(next.Recipients())
	entry.Buckets = written
	entry.Warnings = len(result.Warnings)
	sess.Trail.Log(entry)

	return result, nil
}

// promoteIdentity moves the pending identity over the current one. A
// missing pending file means it was already promoted.
func promoteIdentity(settings *configs.Settings) error {
	pending := settings.PendingIdentityPath()
	if _, err := os.Stat(pending); os.IsNotExist(err) {
		return nil
	}
	if err := os.Rename(pending, settings.IdentityPath()); err != nil {
		return fmt.Errorf("failed to promote new identity: %w", err)
	}
	return utils.SyncDir(settings.ConfigDir)
}

// rewriteHistory drops every older commit so ciphertext readable by the old
// key is no longer kept in the repository.
func rewriteHistory(ctx context.Context, sess *Session, result *RotateResult) {
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		result.Warnings = append(result.Warnings, msg)
		sess.Logger.Warnf("%s", msg)
	}

	if gitsync.IsMissingRepository(sess.Settings.SyncDir) {
		warn("sync directory is not a git repository, history was not rewritten")
		return
	}

	if _, err := sess.Engine.Commit(ctx, rotateCommitMessage); err != nil {
		warn("could not commit rotated buckets: %v", err)
		return
	}
	if err := sess.Engine.RewriteHistory(ctx, rotateCommitMessage); err != nil {
		warn("%v", err)
		return
	}
	result.HistoryRewritten = true

	remote, err := sess.Engine.Remote(ctx)
	if err != nil {
		warn("remote not pushed: %v", err)
		return
	}
	if remote == "" {
		return
	}
	if err := sess.Engine.ForcePush(ctx); err != nil {
		warn("could not force-push rewritten history: %v", err)
		return
	}
	result.Pushed = true
}

func abortRotation(err error) error {
	var kerr *kerrors.Error
	if errors.As(err, &kerr) && kerr.Kind == kerrors.ErrDecryption {
		return kerrors.RotationAborted(kerr.Path, err)
	}
	return err
}
