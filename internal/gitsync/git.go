package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Ay7ot/ctx-sync-sub001/internal/state"
	"github.com/Ay7ot/ctx-sync-sub001/internal/utils"
)

const (
	remoteName    = "origin"
	fetchedRef    = "FETCH_HEAD"
	rewriteBranch = "ctx-sync-rewrite"

	// ciphertextAttributes keeps git from line-merging or diffing buckets.
	// A conflicted bucket keeps the local version in the working tree.
	ciphertextAttributes = "*" + state.BucketExt + " binary"
)

// Git runs the git binary against one working tree.
type Git struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
	executor    CommandExecutor
}

// NewGit creates a Git for dir using the os/exec executor.
func NewGit(dir, authorName, authorEmail string) *Git {
	return NewGitWithExecutor(dir, authorName, authorEmail, NewExecExecutor())
}

// NewGitWithExecutor creates a Git with a custom executor.
func NewGitWithExecutor(dir, authorName, authorEmail string, executor CommandExecutor) *Git {
	return &Git{Dir: dir, AuthorName: authorName, AuthorEmail: authorEmail, executor: executor}
}

// IsRepository reports whether path is the root of a git working tree.
func IsRepository(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// Available reports whether the git binary can be found.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Init creates the repository when missing and marks bucket files as
// binary for this clone. Existing repositories only get the attributes.
func (g *Git) Init(ctx context.Context, branch string) error {
	if err := os.MkdirAll(g.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", g.Dir, err)
	}
	if !IsRepository(g.Dir) {
		if err := g.run(ctx, "init", "--quiet"); err != nil {
			return err
		}
		if err := g.run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+branch); err != nil {
			return err
		}
	}
	return g.protectCiphertext(ctx)
}

// protectCiphertext adds the bucket rule to info/attributes, which is
// never committed and wins over any tracked .gitattributes.
func (g *Git) protectCiphertext(ctx context.Context) error {
	path, err := g.gitPath(ctx, "info/attributes")
	if err != nil {
		return err
	}

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == ciphertextAttributes {
			return nil
		}
	}

	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += ciphertextAttributes + "\n"

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	return utils.WriteFileAtomic(path, []byte(content), 0600)
}

// Status lists changed and untracked files relative to the working tree.
func (g *Git) Status(ctx context.Context) ([]string, error) {
	out, err := g.output(ctx, "status", "--porcelain", "--untracked-files=all", "-z")
	if err != nil {
		return nil, err
	}

	var paths []string
	entries := strings.Split(out, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		paths = append(paths, entry[3:])
		// Renames and copies are followed by the original path.
		if entry[0] == 'R' || entry[0] == 'C' {
			i++
		}
	}
	return paths, nil
}

func (g *Git) Stage(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	return g.run(ctx, append([]string{"add", "-A", "--"}, paths...)...)
}

func (g *Git) Remove(ctx context.Context, path string) error {
	return g.run(ctx, "rm", "--quiet", "--force", "--ignore-unmatch", "--", path)
}

func (g *Git) HasStagedChanges(ctx context.Context) (bool, error) {
	out, err := g.output(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (g *Git) Commit(ctx context.Context, message string) error {
	return g.run(ctx, "commit", "--quiet", "--no-verify", "-m", message)
}

// Head returns the current commit, or an empty string on an unborn branch.
func (g *Git) Head(ctx context.Context) (string, error) {
	out, err := g.output(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

func (g *Git) Fetch(ctx context.Context, branch string) (bool, error) {
	out, err := g.output(ctx, "ls-remote", "--heads", remoteName, "refs/heads/"+branch)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(out) == "" {
		return false, nil
	}
	if err := g.run(ctx, "fetch", "--quiet", remoteName, branch); err != nil {
		return false, err
	}
	return true, nil
}

func (g *Git) Merge(ctx context.Context) (bool, error) {
	mergeErr := g.run(ctx, "merge", "--no-edit", "--allow-unrelated-histories", fetchedRef)
	if mergeErr == nil {
		return false, nil
	}

	conflicts, err := g.Conflicts(ctx)
	if err != nil || len(conflicts) == 0 {
		return false, mergeErr
	}
	return true, nil
}

func (g *Git) Conflicts(ctx context.Context) ([]string, error) {
	out, err := g.output(ctx, "diff", "--name-only", "--diff-filter=U", "-z")
	if err != nil {
		return nil, err
	}
	return splitNul(out), nil
}

func (g *Git) Checkout(ctx context.Context, side Side, path string) error {
	return g.run(ctx, "checkout", side.flag(), "--", path)
}

// ShowStage returns the content of one side of a conflicted file. It fails
// when that side does not have the file, for example after a deletion.
func (g *Git) ShowStage(ctx context.Context, side Side, path string) ([]byte, error) {
	out, err := g.output(ctx, "show", fmt.Sprintf(":%d:%s", int(side), path))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (g *Git) InMerge(ctx context.Context) (bool, error) {
	path, err := g.gitPath(ctx, "MERGE_HEAD")
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	return err == nil, nil
}

// gitPath resolves a path inside the repository's git directory.
func (g *Git) gitPath(ctx context.Context, name string) (string, error) {
	out, err := g.output(ctx, "rev-parse", "--git-path", name)
	if err != nil {
		return "", err
	}
	path := strings.TrimSpace(out)
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.Dir, path)
	}
	return path, nil
}

func (g *Git) Push(ctx context.Context, branch string, force bool) error {
	args := []string{"push", "--quiet", "--set-upstream"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remoteName, "HEAD:refs/heads/"+branch)
	return g.run(ctx, args...)
}

// RemoteURL returns the URL of origin, or an empty string when there is no
// remote.
func (g *Git) RemoteURL(ctx context.Context) (string, error) {
	out, err := g.output(ctx, "remote")
	if err != nil {
		return "", err
	}
	for _, name := range strings.Fields(out) {
		if name == remoteName {
			url, err := g.output(ctx, "remote", "get-url", remoteName)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(url), nil
		}
	}
	return "", nil
}

func (g *Git) SetRemote(ctx context.Context, url string) error {
	current, err := g.RemoteURL(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		return g.run(ctx, "remote", "add", remoteName, url)
	}
	return g.run(ctx, "remote", "set-url", remoteName, url)
}

// RewriteHistory commits the current tree on an orphan branch and moves
// branch onto it. If that fails, HEAD goes back to branch and the orphan
// branch is removed.
func (g *Git) RewriteHistory(ctx context.Context, branch, message string) error {
	// Left over by an interrupted rewrite.
	_ = g.run(ctx, "branch", "--quiet", "-D", rewriteBranch)

	if err := g.run(ctx, "checkout", "--quiet", "--orphan", rewriteBranch); err != nil {
		return err
	}

	restore := func(cause error) error {
		if err := g.run(ctx, "checkout", "--quiet", branch); err != nil {
			return errors.Join(cause, fmt.Errorf("failed to return to %s: %w", branch, err))
		}
		_ = g.run(ctx, "branch", "--quiet", "-D", rewriteBranch)
		return cause
	}

	if err := g.run(ctx, "commit", "--quiet", "--no-verify", "--allow-empty", "-m", message); err != nil {
		return restore(err)
	}
	if err := g.run(ctx, "branch", "-M", branch); err != nil {
		return restore(err)
	}
	return g.run(ctx, "reflog", "expire", "--expire=now", "--all")
}

func (g *Git) CollectGarbage(ctx context.Context) error {
	return g.run(ctx, "gc", "--quiet", "--prune=now")
}

func (g *Git) command(ctx context.Context, args ...string) *exec.Cmd {
	base := []string{"-C", g.Dir, "-c", "commit.gpgsign=false"}
	if g.AuthorName != "" {
		base = append(base, "-c", "user.name="+g.AuthorName)
	}
	if g.AuthorEmail != "" {
		base = append(base, "-c", "user.email="+g.AuthorEmail)
	}

	cmd := exec.CommandContext(ctx, "git", append(base, args...)...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	return cmd
}

func (g *Git) run(ctx context.Context, args ...string) error {
	return g.executor.Execute(g.command(ctx, args...))
}

func (g *Git) output(ctx context.Context, args ...string) (string, error) {
	return g.executor.ExecuteWithOutput(g.command(ctx, args...))
}

func splitNul(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "\x00") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
