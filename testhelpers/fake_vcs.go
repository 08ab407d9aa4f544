package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/git"
)

// FakeVCS is an in-memory commit graph with branch refs, reflogs and a
// rebase-style replay. Commit ids are readable labels; a replayed commit gets
// the label of the original plus a sequence number ("b1" -> "b1.3").
type FakeVCS struct {
	mu sync.Mutex

	parents   map[string][]string
	branches  map[string]string
	reflogs   map[string][]string // newest first
	conflicts map[string]bool     // labels that conflict when replayed
	seq       int
	rebase    *fakeRebase
	head      string

	// ReflogErr makes Reflog fail, as with a pruned or disabled reflog
	ReflogErr error
	// TipErr makes Tip fail for the named branch
	TipErr map[string]error
	// ReplayErr makes Replay fail without leaving a rebase in progress
	ReplayErr error

	Replays []git.ReplayRequest
	Moves   []string
}

type fakeRebase struct {
	branch    string
	onto      string
	current   string
	remaining []string
}

// NewFakeVCS creates a repository holding a single root commit on main
func NewFakeVCS(root string) *FakeVCS {
	f := &FakeVCS{
		parents:   map[string][]string{root: nil},
		branches:  make(map[string]string),
		reflogs:   make(map[string][]string),
		conflicts: make(map[string]bool),
		TipErr:    make(map[string]error),
	}
	f.setBranch("main", root)
	f.head = "main"
	return f
}

// Commit adds commit id on top of branch
func (f *FakeVCS) Commit(branch, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tip, ok := f.branches[branch]
	if !ok {
		panic(fmt.Sprintf("fake vcs: unknown branch %s", branch))
	}
	f.parents[id] = []string{tip}
	f.setBranch(branch, id)
}

// Branch creates branch at the tip of from
func (f *FakeVCS) Branch(branch, from string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tip, ok := f.branches[from]
	if !ok {
		tip = from
	}
	f.setBranch(branch, tip)
}

// Amend replaces the tip of branch with id, keeping the tip's parent
func (f *FakeVCS) Amend(branch, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tip := f.branches[branch]
	f.parents[id] = append([]string(nil), f.parents[tip]...)
	f.setBranch(branch, id)
}

// ConflictOn makes replaying any commit with this label conflict
func (f *FakeVCS) ConflictOn(label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflicts[label] = true
}

// ResolveConflict finishes the in-progress replay the way a user running
// `git rebase --continue` after fixing conflicts would
func (f *FakeVCS) ResolveConflict() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rebase == nil {
		return errors.New("no replay in progress")
	}
	cur := f.rebase.current
	for _, c := range f.rebase.remaining {
		delete(f.conflicts, label(c))
		cur = f.replayCommit(c, cur)
	}
	f.setBranch(f.rebase.branch, cur)
	f.rebase = nil
	return nil
}

// RebaseInProgress reports whether a replay is halted
func (f *FakeVCS) RebaseInProgress() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rebase != nil
}

// Log returns the labels of base..tip, oldest first, without sequence numbers
func (f *FakeVCS) Log(base, tip string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	commits := f.unique(f.resolve(base), f.resolve(tip))
	labels := make([]string, len(commits))
	for i, c := range commits {
		labels[i] = label(c)
	}
	return labels
}

// Checkout makes branch the current branch
func (f *FakeVCS) Checkout(branch string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = branch
}

// CurrentBranch returns the checked out branch. It fails while a replay is
// halted, like a detached HEAD during a rebase.
func (f *FakeVCS) CurrentBranch() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rebase != nil {
		return "", cascadeerrors.ErrNotOnBranch
	}
	return f.head, nil
}

// Tip returns the commit a branch points at
func (f *FakeVCS) Tip(branch string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.TipErr[branch]; err != nil {
		return "", err
	}
	tip, ok := f.branches[branch]
	if !ok {
		return "", cascadeerrors.NewBranchNotFoundError(branch)
	}
	return tip, nil
}

// MustTip returns the tip of branch, panicking when it does not exist
func (f *FakeVCS) MustTip(branch string) string {
	tip, err := f.Tip(branch)
	if err != nil {
		panic(err)
	}
	return tip
}

func (f *FakeVCS) Reflog(_ context.Context, branch string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReflogErr != nil {
		return nil, f.ReflogErr
	}
	return append([]string(nil), f.reflogs[branch]...), nil
}

func (f *FakeVCS) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ancestors(f.resolve(descendant))[f.resolve(ancestor)], nil
}

func (f *FakeVCS) MergeBase(_ context.Context, a, b string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ofA := f.ancestors(f.resolve(a))
	queue := []string{f.resolve(b)}
	seen := make(map[string]bool)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if seen[c] {
			continue
		}
		seen[c] = true
		if ofA[c] {
			return c, nil
		}
		queue = append(queue, f.parents[c]...)
	}
	return "", fmt.Errorf("no merge base found between %s and %s", a, b)
}

func (f *FakeVCS) CountCommits(_ context.Context, base, head string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.unique(f.resolve(base), f.resolve(head))), nil
}

func (f *FakeVCS) UniqueCommits(_ context.Context, base, tip string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unique(f.resolve(base), f.resolve(tip)), nil
}

func (f *FakeVCS) MoveBranch(_ context.Context, branch, commit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.branches[branch]; !ok {
		return cascadeerrors.NewBranchNotFoundError(branch)
	}
	f.Moves = append(f.Moves, branch)
	f.setBranch(branch, commit)
	return nil
}

func (f *FakeVCS) Replay(_ context.Context, req git.ReplayRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replays = append(f.Replays, req)

	if f.rebase != nil {
		return "", errors.New("a rebase is already in progress")
	}
	if f.ReplayErr != nil {
		return "", f.ReplayErr
	}
	tip, ok := f.branches[req.Branch]
	if !ok {
		return "", cascadeerrors.NewBranchNotFoundError(req.Branch)
	}

	commits := f.unique(f.resolve(req.Upstream), tip)
	cur := req.Onto
	for i, c := range commits {
		if f.conflicts[label(c)] {
			f.rebase = &fakeRebase{
				branch:    req.Branch,
				onto:      req.Onto,
				current:   cur,
				remaining: commits[i:],
			}
			return "", cascadeerrors.NewReplayConflictError(req.Branch, c, i)
		}
		cur = f.replayCommit(c, cur)
	}
	f.setBranch(req.Branch, cur)
	return cur, nil
}

func (f *FakeVCS) ReplayResolved(_ context.Context, branch, onto string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rebase != nil {
		return "", false, nil
	}
	tip, ok := f.branches[branch]
	if !ok {
		return "", false, cascadeerrors.NewBranchNotFoundError(branch)
	}
	if !f.ancestors(tip)[onto] {
		return "", false, nil
	}
	return tip, true, nil
}

func (f *FakeVCS) AbortReplay(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebase = nil
	return nil
}

func (f *FakeVCS) replayCommit(commit, onto string) string {
	f.seq++
	id := fmt.Sprintf("%s.%d", label(commit), f.seq)
	f.parents[id] = []string{onto}
	return id
}

func (f *FakeVCS) setBranch(branch, commit string) {
	f.branches[branch] = commit
	f.reflogs[branch] = append([]string{commit}, f.reflogs[branch]...)
}

// resolve maps a branch name to its tip; anything else is a commit id
func (f *FakeVCS) resolve(rev string) string {
	if tip, ok := f.branches[rev]; ok {
		return tip
	}
	return rev
}

// ancestors returns every commit reachable from c, c included
func (f *FakeVCS) ancestors(c string) map[string]bool {
	seen := make(map[string]bool)
	stack := []string{c}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, f.parents[n]...)
	}
	return seen
}

// unique walks first parents from tip down to base's history, oldest first
func (f *FakeVCS) unique(base, tip string) []string {
	ofBase := f.ancestors(base)
	var result []string
	for c := tip; c != "" && !ofBase[c]; {
		result = append(result, c)
		parents := f.parents[c]
		if len(parents) == 0 {
			break
		}
		c = parents[0]
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	if result == nil {
		result = []string{}
	}
	return result
}

func label(commit string) string {
	if i := strings.IndexByte(commit, '.'); i >= 0 {
		return commit[:i]
	}
	return commit
}
