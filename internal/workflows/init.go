package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/Ay7ot/ctx-sync-sub001/internal/audit"
	"github.com/Ay7ot/ctx-sync-sub001/internal/configs"
	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/gitsync"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
	"github.com/Ay7ot/ctx-sync-sub001/internal/state"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	OpenOptions

	// Remote is the git remote to sync with. Optional.
	Remote string
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	PublicKey   string
	Fingerprint string
	DeviceName  string
	ConfigDir   string
	SyncDir     string

	// Remote is the configured remote with credentials redacted.
	Remote string

	// Pulled is true when existing state was fetched from the remote.
	Pulled bool

	// Warnings lists non-fatal problems, such as an unreachable remote.
	Warnings []string
}

// Init creates this device's identity, an empty recipient registry with
// the device as owner, and the sync repository.
//
// The remote is validated before anything is written. When the remote
// already holds state it is pulled; its buckets stay unreadable to this
// device until an existing member adds its public key.
//
// Returns ErrAlreadyInitialized if an identity already exists.
// Returns ErrInsecureTransport if the remote is not allow-listed.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	settings, err := resolveSettings(opts.Settings)
	if err != nil {
		return nil, err
	}
	opts.Settings = settings

	if _, err := os.Stat(settings.IdentityPath()); err == nil {
		return nil, kerrors.ErrAlreadyInitialized
	}
	if opts.Remote != "" {
		if err := gitsync.ValidateRemote(opts.Remote); err != nil {
			return nil, err
		}
	}

	if err := settings.EnsureConfigDir(); err != nil {
		return nil, err
	}

	id, err := secrets.GenerateIdentity()
	if err != nil {
		return nil, err
	}
	defer id.Wipe()

	if err := secrets.SaveIdentity(settings.IdentityPath(), id); err != nil {
		return nil, err
	}
	opts.Logger.Infof("Saved identity to %s", settings.IdentityPath())

	if err := configs.SaveRegistry(settings, configs.NewRegistry(id.Recipient())); err != nil {
		return nil, err
	}

	config, err := configs.EnsureUserConfig(settings)
	if err != nil {
		return nil, err
	}
	if opts.Remote != "" {
		config.Sync.Remote = opts.Remote
		if err := configs.SaveUserConfig(settings, config); err != nil {
			return nil, err
		}
	}

	if _, err := state.Open(settings.SyncDir, state.Options{Now: opts.Now}); err != nil {
		return nil, err
	}

	result := &InitResult{
		PublicKey:   id.Recipient().String(),
		Fingerprint: secrets.Fingerprint(id.Recipient()),
		DeviceName:  config.Device.Name,
		ConfigDir:   settings.ConfigDir,
		SyncDir:     settings.SyncDir,
		Remote:      gitsync.RedactRemote(opts.Remote),
	}

	engine := newEngine(settings, config, opts.OpenOptions)
	if err := engine.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to create sync repository: %w", err)
	}

	if opts.Remote != "" {
		if err := engine.SetRemote(ctx, opts.Remote); err != nil {
			return nil, err
		}
		pull, err := engine.Pull(ctx)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("could not pull from remote: %v", err))
		} else {
			result.Pulled = pull.Fetched
		}
	}

	trail := audit.New(settings, config.Device)
	entry := trail.Entry("init")
	entry.Fingerprint = result.Fingerprint
	trail.Log(entry)

	return result, nil
}
