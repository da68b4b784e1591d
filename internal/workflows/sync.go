package workflows

import (
	"context"
	"fmt"

	"github.com/Ay7ot/ctx-sync-sub001/internal/gitsync"
)

// SyncOptions configures the sync workflow.
type SyncOptions struct {
	Message string
	NoPush  bool

	// Resolver decides conflicts. Conflicts keep the local version when nil.
	Resolver gitsync.Resolver

	// DryRun reports what would be committed without touching anything.
	DryRun bool
}

// SyncResult contains the outcome of a sync.
type SyncResult struct {
	*gitsync.SyncResult

	// Pending lists the files with local changes before the sync started.
	Pending []string

	DryRun bool
}

// Sync pulls, resolves, commits and pushes the sync repository.
//
// The manifest's lastSync is refreshed only when there are local changes
// to commit. A sync that only pulls, or has nothing to do, leaves lastSync
// at the value last committed by any device and creates no commit, so
// repeated syncs do not bounce empty commits between devices.
//
// A sync that stopped on unresolved conflicts leaves the merge open; the
// next Sync asks the resolver about the same files again.
//
// Returns ErrInsecureTransport if the configured remote is not allowed.
// Returns ErrConflictUnresolved if the resolver leaves a file undecided.
// A failed push is reported in SyncResult.PushErr; the local commit stands.
func Sync(ctx context.Context, sess *Session, opts SyncOptions) (*SyncResult, error) {
	if err := sess.Engine.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare sync repository: %w", err)
	}

	pending, err := sess.Engine.Pending(ctx)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		remote, err := sess.Engine.Remote(ctx)
		if err != nil {
			return nil, err
		}
		return &SyncResult{
			SyncResult: &gitsync.SyncResult{Remote: gitsync.RedactRemote(remote)},
			Pending:    pending,
			DryRun:     true,
		}, nil
	}

	if len(pending) > 0 {
		if err := sess.Store.MarkSynced(); err != nil {
			return nil, err
		}
	}

	result, err := sess.Engine.Sync(ctx, gitsync.Options{
		Message:  opts.Message,
		NoPush:   opts.NoPush,
		Resolver: opts.Resolver,
	})

	entry := sess.Trail.Entry("sync")
	if result != nil {
		entry.Committed = result.Committed
		entry.Pushed = result.Pushed
		if result.Pull != nil {
			entry.Conflicts = result.Pull.ConflictPaths()
		}
	}
	sess.Trail.Log(entry)

	if err != nil {
		return &SyncResult{SyncResult: result, Pending: pending}, err
	}
	if result.PushErr != nil {
		sess.Logger.Warnf("Push failed, changes are committed locally: %v", result.PushErr)
	}
	return &SyncResult{SyncResult: result, Pending: pending}, nil
}

// SetRemote validates remote and configures it for syncing.
//
// Returns ErrInsecureTransport if the remote is not allowed.
func SetRemote(ctx context.Context, sess *Session, remote string) error {
	if err := gitsync.ValidateRemote(remote); err != nil {
		return err
	}
	if err := sess.Engine.Init(ctx); err != nil {
		return err
	}
	if err := sess.Engine.SetRemote(ctx, remote); err != nil {
		return err
	}

	sess.Config.Sync.Remote = remote
	return saveConfig(sess)
}
