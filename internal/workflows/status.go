package workflows

import (
	"context"
	"errors"
	"os"

	"github.com/Ay7ot/ctx-sync-sub001/internal/configs"
	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/gitsync"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
	"github.com/Ay7ot/ctx-sync-sub001/internal/state"
)

// StatusResult summarizes this device's ctx-sync state. It never contains
// bucket contents.
type StatusResult struct {
	Initialized     bool         `json:"initialized" yaml:"initialized"`
	Device          string       `json:"device,omitempty" yaml:"device,omitempty"`
	PublicKey       string       `json:"public_key,omitempty" yaml:"public_key,omitempty"`
	Fingerprint     string       `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Members         int          `json:"members" yaml:"members"`
	ConfigDir       string       `json:"config_dir" yaml:"config_dir"`
	SyncDir         string       `json:"sync_dir" yaml:"sync_dir"`
	Repository      bool         `json:"repository" yaml:"repository"`
	Remote          string       `json:"remote,omitempty" yaml:"remote,omitempty"`
	RemoteError     string       `json:"remote_error,omitempty" yaml:"remote_error,omitempty"`
	LastSync        string       `json:"last_sync,omitempty" yaml:"last_sync,omitempty"`
	Buckets         []BucketInfo `json:"buckets" yaml:"buckets"`
	Pending         []string     `json:"pending,omitempty" yaml:"pending,omitempty"`
	RotationPending bool         `json:"rotation_pending" yaml:"rotation_pending"`
}

// Status reports identity, team, manifest and repository state. It works
// while a rotation is pending so the user can see that it needs resuming.
func Status(ctx context.Context, opts OpenOptions) (*StatusResult, error) {
	settings, err := resolveSettings(opts.Settings)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{ConfigDir: settings.ConfigDir, SyncDir: settings.SyncDir}

	marker, err := checkedMarker(settings)
	if errors.Is(err, kerrors.ErrNotInitialized) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Initialized = true
	result.RotationPending = marker != nil

	id, err := secrets.LoadIdentity(settings.IdentityPath())
	if err != nil {
		return nil, err
	}
	sess, err := newSession(settings, id, opts)
	if err != nil {
		id.Wipe()
		return nil, err
	}
	defer sess.Close()

	result.Device = sess.Config.Device.Name
	result.PublicKey = id.Recipient().String()
	result.Fingerprint = secrets.Fingerprint(id.Recipient())
	result.Members = len(sess.Registry.Members)

	manifest, err := sess.Store.Manifest()
	if err != nil {
		return nil, err
	}
	result.LastSync = manifest.LastSync

	if result.Buckets, err = ListBuckets(sess); err != nil {
		return nil, err
	}

	result.Repository = !gitsync.IsMissingRepository(settings.SyncDir)
	if !result.Repository {
		result.Remote = gitsync.RedactRemote(sess.Config.Sync.Remote)
		return result, nil
	}

	if remote, err := sess.Engine.Remote(ctx); err != nil {
		result.RemoteError = err.Error()
	} else {
		result.Remote = gitsync.RedactRemote(remote)
	}

	if result.Pending, err = sess.Engine.Pending(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// KeyInfo is this device's public key.
type KeyInfo struct {
	PublicKey   string `json:"public_key" yaml:"public_key"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
}

// ShowKey returns the public key and fingerprint to share with the team.
func ShowKey(sess *Session) KeyInfo {
	r := sess.Identity.Recipient()
	return KeyInfo{PublicKey: r.String(), Fingerprint: secrets.Fingerprint(r)}
}

// KnownBuckets returns the bucket names ctx-sync writes itself.
func KnownBuckets() []string {
	return append([]string(nil), state.KnownBuckets...)
}

// PendingRotation returns the rotation marker, or nil.
func PendingRotation(settings *configs.Settings) (*configs.RotationMarker, error) {
	return configs.LoadRotationMarker(settings)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
