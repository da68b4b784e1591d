package workflows

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Ay7ot/ctx-sync-sub001/internal/audit"
	"github.com/Ay7ot/ctx-sync-sub001/internal/configs"
	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	"github.com/Ay7ot/ctx-sync-sub001/internal/gitsync"
	logger "github.com/Ay7ot/ctx-sync-sub001/internal/logging"
	"github.com/Ay7ot/ctx-sync-sub001/internal/secrets"
	"github.com/Ay7ot/ctx-sync-sub001/internal/state"
)

// Session is everything a workflow needs, loaded once and passed
// explicitly.
type Session struct {
	Settings *configs.Settings
	Config   *configs.UserConfig
	Identity *secrets.Identity
	Registry *configs.Registry
	Store    *state.Store
	Engine   *gitsync.Engine
	Trail    *audit.Trail
	Logger   logger.Logger
}

// OpenOptions configures how a session is opened.
type OpenOptions struct {
	// Settings defaults to configs.DefaultSettings.
	Settings *configs.Settings

	Logger logger.Logger

	// VCS replaces the git binary, mainly for tests.
	VCS gitsync.VCS

	// Now defaults to time.Now.
	Now func() time.Time
}

// Open loads the identity, registry and stores for this device.
//
// Returns ErrNotInitialized if init has not been run.
// Returns a permission error if the config directory or a key file is
// readable by anyone but the owner.
// Returns ErrRotationInProgress if an interrupted rotation must be resumed
// first.
func Open(ctx context.Context, opts OpenOptions) (*Session, error) {
	settings, err := resolveSettings(opts.Settings)
	if err != nil {
		return nil, err
	}

	marker, err := checkedMarker(settings)
	if err != nil {
		return nil, err
	}
	if marker != nil {
		return nil, kerrors.ErrRotationInProgress
	}

	id, err := secrets.LoadIdentity(settings.IdentityPath())
	if err != nil {
		return nil, err
	}

	sess, err := newSession(settings, id, opts)
	if err != nil {
		id.Wipe()
		return nil, err
	}

	if !sess.Registry.Owner.PublicKey.Equal(id.Recipient()) {
		sess.Close()
		return nil, fmt.Errorf("%w: identity does not match the registry owner key", kerrors.ErrInvalidIdentity)
	}
	return sess, nil
}

// Close wipes the private key held by the session.
func (s *Session) Close() {
	if s != nil && s.Identity != nil {
		s.Identity.Wipe()
	}
}

// Recipients returns the full recipient set, owner first.
func (s *Session) Recipients() []secrets.Recipient {
	return s.Registry.Recipients()
}

func resolveSettings(settings *configs.Settings) (*configs.Settings, error) {
	if settings != nil {
		return settings, nil
	}
	return configs.DefaultSettings()
}

// checkedMarker verifies the config directory exists with safe permissions
// and returns any pending rotation.
func checkedMarker(settings *configs.Settings) (*configs.RotationMarker, error) {
	if _, err := os.Stat(settings.IdentityPath()); os.IsNotExist(err) {
		return nil, kerrors.ErrNotInitialized
	}
	if err := settings.CheckPermissions(); err != nil {
		return nil, err
	}
	return configs.LoadRotationMarker(settings)
}

func newSession(settings *configs.Settings, id *secrets.Identity, opts OpenOptions) (*Session, error) {
	registry, err := configs.LoadRegistry(settings)
	if err != nil {
		return nil, err
	}

	config, err := configs.EnsureUserConfig(settings)
	if err != nil {
		return nil, err
	}

	store, err := state.Open(settings.SyncDir, state.Options{Now: opts.Now})
	if err != nil {
		return nil, err
	}

	return &Session{
		Settings: settings,
		Config:   config,
		Identity: id,
		Registry: registry,
		Store:    store,
		Engine:   newEngine(settings, config, opts),
		Trail:    audit.New(settings, config.Device),
		Logger:   opts.Logger,
	}, nil
}

func newEngine(settings *configs.Settings, config *configs.UserConfig, opts OpenOptions) *gitsync.Engine {
	vcs := opts.VCS
	if vcs == nil {
		vcs = gitsync.NewGit(settings.SyncDir, "ctx-sync ("+config.Device.Name+")", config.Device.Name+"@ctx-sync.local")
	}
	return gitsync.NewEngine(vcs, gitsync.Config{
		Dir:    settings.SyncDir,
		Branch: config.Sync.Branch,
		Device: config.Device.Name,
		Logger: opts.Logger,
		Now:    opts.Now,
	})
}
