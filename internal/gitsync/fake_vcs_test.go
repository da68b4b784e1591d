package gitsync

import (
	"context"
	"errors"
	"fmt"
)

// fakeVCS is an in-memory VCS recording what the engine asked for.
type fakeVCS struct {
	remote         string
	changed        []string
	staged         map[string]bool
	commits        []string
	fetched        bool
	mergeConflicts []string
	conflicts      []string
	stages         map[Side]map[string][]byte
	checkedOut     map[string]Side
	removed        []string
	inMerge        bool
	pushErr        error
	fetchErr       error
	pushes         int
	forcePushes    int
	fetchCalls     int
	gcCalls        int
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{
		staged:     map[string]bool{},
		stages:     map[Side]map[string][]byte{Ours: {}, Theirs: {}},
		checkedOut: map[string]Side{},
	}
}

func (f *fakeVCS) Init(context.Context, string) error { return nil }

func (f *fakeVCS) Status(context.Context) ([]string, error) {
	return append([]string(nil), f.changed...), nil
}

func (f *fakeVCS) Stage(_ context.Context, paths ...string) error {
	for _, p := range paths {
		f.staged[p] = true
		f.changed = without(f.changed, p)
		f.conflicts = without(f.conflicts, p)
	}
	return nil
}

func (f *fakeVCS) Remove(_ context.Context, path string) error {
	f.removed = append(f.removed, path)
	f.staged[path] = true
	f.conflicts = without(f.conflicts, path)
	return nil
}

func (f *fakeVCS) HasStagedChanges(context.Context) (bool, error) {
	return len(f.staged) > 0, nil
}

func (f *fakeVCS) Commit(_ context.Context, message string) error {
	if len(f.conflicts) > 0 {
		return errors.New("unmerged files")
	}
	f.commits = append(f.commits, message)
	f.staged = map[string]bool{}
	f.inMerge = false
	return nil
}

func (f *fakeVCS) Head(context.Context) (string, error) {
	if len(f.commits) == 0 {
		return "", nil
	}
	return fmt.Sprintf("c%d", len(f.commits)), nil
}

func (f *fakeVCS) Fetch(context.Context, string) (bool, error) {
	f.fetchCalls++
	return f.fetched, f.fetchErr
}

func (f *fakeVCS) Merge(context.Context) (bool, error) {
	if len(f.mergeConflicts) == 0 {
		return false, nil
	}
	f.conflicts = append([]string(nil), f.mergeConflicts...)
	f.inMerge = true
	return true, nil
}

func (f *fakeVCS) Conflicts(context.Context) ([]string, error) {
	return append([]string(nil), f.conflicts...), nil
}

func (f *fakeVCS) Checkout(_ context.Context, side Side, path string) error {
	f.checkedOut[path] = side
	return nil
}

func (f *fakeVCS) ShowStage(_ context.Context, side Side, path string) ([]byte, error) {
	data, ok := f.stages[side][path]
	if !ok {
		return nil, fmt.Errorf("no stage %d for %s", side, path)
	}
	return data, nil
}

func (f *fakeVCS) InMerge(context.Context) (bool, error) { return f.inMerge, nil }

func (f *fakeVCS) Push(_ context.Context, _ string, force bool) error {
	if force {
		f.forcePushes++
	} else {
		f.pushes++
	}
	return f.pushErr
}

func (f *fakeVCS) RemoteURL(context.Context) (string, error) { return f.remote, nil }

func (f *fakeVCS) SetRemote(_ context.Context, url string) error {
	f.remote = url
	return nil
}

func (f *fakeVCS) RewriteHistory(_ context.Context, _, message string) error {
	f.commits = []string{message}
	return nil
}

func (f *fakeVCS) CollectGarbage(context.Context) error {
	f.gcCalls++
	return nil
}

func without(list []string, item string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}
