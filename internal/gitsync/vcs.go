package gitsync

import "context"

// Side selects one version of a conflicted file.
type Side int

const (
	// Ours is the local version, index stage 2.
	Ours Side = 2

	// Theirs is the incoming version, index stage 3.
	Theirs Side = 3
)

func (s Side) flag() string {
	if s == Theirs {
		return "--theirs"
	}
	return "--ours"
}

// VCS is the version control surface the engine needs. Git implements it
// by running the git binary.
type VCS interface {
	Init(ctx context.Context, branch string) error
	Status(ctx context.Context) ([]string, error)
	Stage(ctx context.Context, paths ...string) error
	Remove(ctx context.Context, path string) error
	HasStagedChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string) error
	Head(ctx context.Context) (string, error)

	// Fetch retrieves branch from origin and reports whether it exists there.
	Fetch(ctx context.Context, branch string) (bool, error)

	// Merge merges the fetched branch. It reports conflicts instead of
	// failing when the merge stops on them.
	Merge(ctx context.Context) (bool, error)
	Conflicts(ctx context.Context) ([]string, error)
	Checkout(ctx context.Context, side Side, path string) error
	ShowStage(ctx context.Context, side Side, path string) ([]byte, error)
	InMerge(ctx context.Context) (bool, error)

	Push(ctx context.Context, branch string, force bool) error
	RemoteURL(ctx context.Context) (string, error)
	SetRemote(ctx context.Context, url string) error

	// RewriteHistory replaces the history of branch with one commit holding
	// the current tree.
	RewriteHistory(ctx context.Context, branch, message string) error
	CollectGarbage(ctx context.Context) error
}
