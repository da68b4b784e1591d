package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	kerrors "github.com/Ay7ot/ctx-sync-sub001/internal/errors"
	logger "github.com/Ay7ot/ctx-sync-sub001/internal/logging"
	"github.com/Ay7ot/ctx-sync-sub001/internal/state"
)

// State is a step of a sync.
type State string

const (
	StateIdle             State = "idle"
	StateValidatingRemote State = "validating-remote"
	StatePulling          State = "pulling"
	StateConflicted       State = "conflicted"
	StateResolving        State = "resolving"
	StateResolved         State = "resolved"
	StateCommitting       State = "committing"
	StatePushing          State = "pushing"
	StateFailed           State = "failed"
)

// Config configures an Engine.
type Config struct {
	Dir    string
	Branch string

	// Device names this machine in generated commit messages.
	Device string

	Logger logger.Logger
	Now    func() time.Time
}

// Engine synchronizes the sync directory with its remote.
type Engine struct {
	vcs    VCS
	dir    string
	branch string
	device string
	log    logger.Logger
	now    func() time.Time
}

// NewEngine creates an Engine over vcs.
func NewEngine(vcs VCS, cfg Config) *Engine {
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{vcs: vcs, dir: cfg.Dir, branch: branch, device: cfg.Device, log: cfg.Logger, now: now}
}

// Options tunes a single Sync.
type Options struct {
	// Message is the commit message for local changes. A default naming
	// the device is used when empty.
	Message string

	// NoPush keeps the result local.
	NoPush bool

	// Resolver decides conflicts. NonInteractiveResolver is used when nil.
	Resolver Resolver
}

// PullResult reports what a pull did.
type PullResult struct {
	// Resumed is set when a merge left open by an earlier sync was picked
	// up instead of fetching again.
	Resumed bool

	Snapshot       bool
	Fetched        bool
	Merged         bool
	ManifestMerged bool
	Conflicts      []Conflict
}

// ConflictPaths returns the conflicted files.
func (p *PullResult) ConflictPaths() []string {
	paths := make([]string, len(p.Conflicts))
	for i, c := range p.Conflicts {
		paths[i] = c.Path
	}
	return paths
}

// SyncResult reports a completed or failed sync.
type SyncResult struct {
	States    []State
	Remote    string
	Pull      *PullResult
	Decisions map[string]Decision
	Committed bool
	Head      string
	Pushed    bool

	// PushErr is set when pushing failed. The local commit stands.
	PushErr error
}

func (r *SyncResult) enter(s State) {
	r.States = append(r.States, s)
}

// Final returns the last state reached.
func (r *SyncResult) Final() State {
	if len(r.States) == 0 {
		return StateIdle
	}
	return r.States[len(r.States)-1]
}

// Init creates the repository on the configured branch.
func (e *Engine) Init(ctx context.Context) error {
	return e.vcs.Init(ctx, e.branch)
}

// Remote returns the validated remote URL, or an empty string when none is
// configured.
func (e *Engine) Remote(ctx context.Context) (string, error) {
	remote, err := e.vcs.RemoteURL(ctx)
	if err != nil {
		return "", err
	}
	if remote == "" {
		return "", nil
	}
	if err := ValidateRemote(remote); err != nil {
		return "", err
	}
	return remote, nil
}

// SetRemote validates remote and configures it as origin.
func (e *Engine) SetRemote(ctx context.Context, remote string) error {
	if err := ValidateRemote(remote); err != nil {
		return err
	}
	return e.vcs.SetRemote(ctx, strings.TrimSpace(remote))
}

// Pending lists changed files that a commit would include.
func (e *Engine) Pending(ctx context.Context) ([]string, error) {
	changed, err := e.vcs.Status(ctx)
	if err != nil {
		return nil, err
	}
	return stageable(changed), nil
}

// Pull commits any local changes, then fetches and merges the remote
// branch. Conflicted buckets are reported without touching their content.
// A conflicted manifest is merged on the spot.
//
// When an earlier sync stopped with conflicts still open, Pull reports
// those conflicts again and neither commits nor fetches.
func (e *Engine) Pull(ctx context.Context) (*PullResult, error) {
	remote, err := e.Remote(ctx)
	if err != nil {
		return nil, err
	}
	if remote == "" {
		return nil, kerrors.ErrNoRemote
	}

	result := &PullResult{}

	unresolved, err := e.vcs.Conflicts(ctx)
	if err != nil {
		return nil, err
	}
	if len(unresolved) > 0 {
		e.log.Debugf("Resuming unfinished merge with %d conflicted file(s)", len(unresolved))
		result.Resumed = true
		return e.collectConflicts(ctx, result, unresolved)
	}

	result.Snapshot, err = e.commitPending(ctx, e.message("snapshot"))
	if err != nil {
		return nil, err
	}

	result.Fetched, err = e.vcs.Fetch(ctx, e.branch)
	if err != nil {
		return nil, err
	}
	if !result.Fetched {
		e.log.Debugf("Remote has no %s branch yet", e.branch)
		return result, nil
	}

	conflicted, err := e.vcs.Merge(ctx)
	if err != nil {
		return nil, err
	}
	if !conflicted {
		result.Merged = true
		return result, nil
	}

	paths, err := e.vcs.Conflicts(ctx)
	if err != nil {
		return nil, err
	}
	return e.collectConflicts(ctx, result, paths)
}

// collectConflicts merges a conflicted manifest and records every other
// conflicted file in result.
func (e *Engine) collectConflicts(ctx context.Context, result *PullResult, paths []string) (*PullResult, error) {
	var err error
	var local, remoteManifest *state.Manifest
	for _, path := range paths {
		if path == state.ManifestFile {
			local, remoteManifest, err = e.mergeManifest(ctx)
			if err != nil {
				return nil, err
			}
			result.ManifestMerged = true
		}
	}
	if local == nil {
		local, remoteManifest = e.manifestSides(ctx)
	}

	for _, path := range paths {
		if path == state.ManifestFile {
			continue
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Path:           path,
			LocalModified:  local.Files[path],
			RemoteModified: remoteManifest.Files[path],
		})
	}

	if len(result.Conflicts) == 0 {
		result.Merged = true
	}
	return result, nil
}

// Resolve applies a whole-file decision to every conflicted file. If any
// file has no decision nothing is changed and the error lists the files
// still outstanding.
func (e *Engine) Resolve(ctx context.Context, decisions map[string]Decision) error {
	paths, err := e.vcs.Conflicts(ctx)
	if err != nil {
		return err
	}

	var pending, missing []string
	for _, path := range paths {
		if path == state.ManifestFile {
			if _, _, err := e.mergeManifest(ctx); err != nil {
				return err
			}
			continue
		}
		pending = append(pending, path)
		if d := decisions[path]; d != KeepLocal && d != AcceptRemote {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return kerrors.ConflictUnresolved(missing)
	}

	for _, path := range pending {
		side := Ours
		if decisions[path] == AcceptRemote {
			side = Theirs
		}

		if _, err := e.vcs.ShowStage(ctx, side, path); err != nil {
			// The chosen side deleted the file.
			if err := e.vcs.Remove(ctx, path); err != nil {
				return err
			}
			e.log.Debugf("Resolved %s as %s (deleted)", path, decisions[path])
			continue
		}

		if err := e.vcs.Checkout(ctx, side, path); err != nil {
			return err
		}
		if err := e.vcs.Stage(ctx, path); err != nil {
			return err
		}
		e.log.Debugf("Resolved %s as %s", path, decisions[path])
	}
	return nil
}

// Commit stages only bucket files and the manifest and commits them. It
// returns false when there was nothing to commit. A merge in progress is
// concluded once every conflict is resolved; until then Commit returns
// ErrConflictUnresolved and stages nothing.
func (e *Engine) Commit(ctx context.Context, message string) (bool, error) {
	if message == "" {
		message = e.message("update")
	}
	return e.commitPending(ctx, message)
}

// Push sends the current branch to origin. It does nothing when no remote
// is configured.
func (e *Engine) Push(ctx context.Context) (bool, error) {
	remote, err := e.Remote(ctx)
	if err != nil {
		return false, err
	}
	if remote == "" {
		return false, nil
	}

	head, err := e.vcs.Head(ctx)
	if err != nil {
		return false, err
	}
	if head == "" {
		return false, nil
	}

	if err := e.vcs.Push(ctx, e.branch, false); err != nil {
		return false, err
	}
	return true, nil
}

// ForcePush replaces the remote branch with the local one.
func (e *Engine) ForcePush(ctx context.Context) error {
	remote, err := e.Remote(ctx)
	if err != nil {
		return err
	}
	if remote == "" {
		return nil
	}
	return e.vcs.Push(ctx, e.branch, true)
}

// RewriteHistory collapses the branch into one commit and drops every
// unreachable object, so older ciphertext no longer exists locally.
func (e *Engine) RewriteHistory(ctx context.Context, message string) error {
	if err := e.vcs.RewriteHistory(ctx, e.branch, message); err != nil {
		return fmt.Errorf("failed to rewrite history: %w", err)
	}
	if err := e.vcs.CollectGarbage(ctx); err != nil {
		return fmt.Errorf("failed to prune old objects: %w", err)
	}
	return nil
}

// Sync runs a full cycle: validate the remote, pull, resolve conflicts,
// commit and push. Without a remote it only commits.
func (e *Engine) Sync(ctx context.Context, opts Options) (*SyncResult, error) {
	result := &SyncResult{}
	result.enter(StateIdle)

	fail := func(err error) (*SyncResult, error) {
		result.enter(StateFailed)
		return result, err
	}

	result.enter(StateValidatingRemote)
	remote, err := e.Remote(ctx)
	if err != nil {
		return fail(err)
	}
	result.Remote = RedactRemote(remote)

	if remote != "" {
		result.enter(StatePulling)
		pull, err := e.Pull(ctx)
		if err != nil {
			return fail(err)
		}
		result.Pull = pull

		if len(pull.Conflicts) > 0 {
			result.enter(StateConflicted)
			result.enter(StateResolving)

			resolver := opts.Resolver
			if resolver == nil {
				resolver = NonInteractiveResolver{}
			}
			decisions, err := resolver.Resolve(ctx, pull.Conflicts)
			if err != nil {
				return fail(err)
			}
			result.Decisions = decisions

			if err := e.Resolve(ctx, decisions); err != nil {
				return fail(err)
			}
			result.enter(StateResolved)
		}
	}

	result.enter(StateCommitting)
	committed, err := e.Commit(ctx, opts.Message)
	if err != nil {
		return fail(err)
	}
	result.Committed = committed || (result.Pull != nil && result.Pull.Snapshot)

	if remote != "" && !opts.NoPush {
		result.enter(StatePushing)
		pushed, err := e.Push(ctx)
		if err != nil {
			e.log.Debugf("Push failed: %v", err)
			result.PushErr = err
		}
		result.Pushed = pushed
	}

	if result.Head, err = e.vcs.Head(ctx); err != nil {
		return fail(err)
	}

	result.enter(StateIdle)
	return result, nil
}

func (e *Engine) commitPending(ctx context.Context, message string) (bool, error) {
	// Staging an unmerged bucket would mark it resolved as is.
	unresolved, err := e.vcs.Conflicts(ctx)
	if err != nil {
		return false, err
	}
	if len(unresolved) > 0 {
		return false, kerrors.ConflictUnresolved(unresolved)
	}

	changed, err := e.Pending(ctx)
	if err != nil {
		return false, err
	}
	if err := e.vcs.Stage(ctx, changed...); err != nil {
		return false, err
	}

	staged, err := e.vcs.HasStagedChanges(ctx)
	if err != nil {
		return false, err
	}
	merging, err := e.vcs.InMerge(ctx)
	if err != nil {
		return false, err
	}
	if !staged && !merging {
		return false, nil
	}

	if err := e.vcs.Commit(ctx, message); err != nil {
		return false, err
	}
	return true, nil
}

// mergeManifest writes the union of both manifest versions, newest
// timestamp per file, and stages it.
func (e *Engine) mergeManifest(ctx context.Context) (*state.Manifest, *state.Manifest, error) {
	local, remote := e.manifestSides(ctx)
	merged := state.MergeManifests(local, remote)

	if err := merged.Save(filepath.Join(e.dir, state.ManifestFile)); err != nil {
		return nil, nil, err
	}
	if err := e.vcs.Stage(ctx, state.ManifestFile); err != nil {
		return nil, nil, err
	}
	return local, remote, nil
}

func (e *Engine) manifestSides(ctx context.Context) (*state.Manifest, *state.Manifest) {
	load := func(side Side) *state.Manifest {
		data, err := e.vcs.ShowStage(ctx, side, state.ManifestFile)
		if err != nil {
			return e.fallbackManifest(side)
		}
		m, err := state.ParseManifest(data)
		if err != nil {
			return state.NewManifest()
		}
		return m
	}
	return load(Ours), load(Theirs)
}

func (e *Engine) fallbackManifest(side Side) *state.Manifest {
	if side != Ours {
		return state.NewManifest()
	}
	m, err := state.LoadManifest(filepath.Join(e.dir, state.ManifestFile))
	if err != nil {
		return state.NewManifest()
	}
	return m
}

func (e *Engine) message(kind string) string {
	device := e.device
	if device == "" {
		device = "unknown device"
	}
	return fmt.Sprintf("ctx-sync: %s from %s at %s", kind, device, e.now().UTC().Format(time.RFC3339))
}

// stageable keeps top-level bucket files and the manifest.
func stageable(paths []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range paths {
		p = strings.Trim(p, `"`)
		if strings.ContainsAny(p, `/\`) || seen[p] {
			continue
		}
		if p == state.ManifestFile || (strings.HasSuffix(p, state.BucketExt) && state.ValidateBucketName(strings.TrimSuffix(p, state.BucketExt)) == nil) {
			out = append(out, p)
			seen[p] = true
		}
	}
	sort.Strings(out)
	return out
}

// IsMissingRepository reports whether dir does not hold a git repository
// yet.
func IsMissingRepository(dir string) bool {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return true
	}
	return !IsRepository(dir)
}
