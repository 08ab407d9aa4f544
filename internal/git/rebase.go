package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	cascadeerrors "cascade.dev/cascade/internal/errors"
)

// ReplayRequest describes moving the commits of Branch that sit on top of
// Upstream onto Onto
type ReplayRequest struct {
	Branch   string
	Onto     string
	Upstream string
	// Commits are the commits being replayed, oldest first. Used to locate the
	// failing commit on conflict.
	Commits []string
}

// Replay rebases the branch and returns its new tip. A conflict leaves the
// rebase in progress and returns a *errors.ReplayConflictError.
func (r *Repository) Replay(ctx context.Context, req ReplayRequest) (string, error) {
	// Rebasing by branch name keeps the ref attached so a manual
	// `git rebase --continue` finishes on the branch.
	_, err := r.runner.Run(ctx, "rebase", "--onto", req.Onto, req.Upstream, req.Branch)
	if err != nil {
		if r.IsRebaseInProgress() {
			conflict := cascadeerrors.NewReplayConflictError(req.Branch, "", -1)
			if head, headErr := r.RebaseHead(); headErr == nil {
				conflict.Commit = head
				for i, c := range req.Commits {
					if c == head {
						conflict.Index = i
						break
					}
				}
			}
			return "", conflict
		}
		return "", fmt.Errorf("failed to rebase %s onto %s: %w", req.Branch, cascadeerrors.ShortSHA(req.Onto), err)
	}

	return r.Tip(req.Branch)
}

// ReplayResolved reports whether an externally finished replay of branch
// onto onto is complete, returning the branch tip when it is
func (r *Repository) ReplayResolved(ctx context.Context, branch, onto string) (string, bool, error) {
	if r.IsRebaseInProgress() {
		return "", false, nil
	}
	tip, err := r.Tip(branch)
	if err != nil {
		return "", false, err
	}
	contains, err := r.IsAncestor(ctx, onto, tip)
	if err != nil {
		return "", false, err
	}
	if !contains {
		return "", false, nil
	}
	return tip, true, nil
}

// AbortReplay aborts an in-progress rebase, if any
func (r *Repository) AbortReplay(ctx context.Context) error {
	if !r.IsRebaseInProgress() {
		return nil
	}
	return r.RebaseAbort(ctx)
}

// IsRebaseInProgress checks for the rebase-merge or rebase-apply directories
func (r *Repository) IsRebaseInProgress() bool {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(r.gitDir, dir)); err == nil {
			return true
		}
	}
	return false
}

// RebaseContinue continues an in-progress rebase without opening an editor.
// It returns errors.ErrReplayConflict when the rebase stops again.
func (r *Repository) RebaseContinue(ctx context.Context) error {
	_, err := r.runner.Run(ctx, "-c", "core.editor=true", "rebase", "--continue")
	if err != nil {
		if r.IsRebaseInProgress() {
			branch, _ := r.rebasingBranch()
			conflict := cascadeerrors.NewReplayConflictError(branch, "", -1)
			if head, headErr := r.RebaseHead(); headErr == nil {
				conflict.Commit = head
			}
			return conflict
		}
		return fmt.Errorf("rebase continue failed: %w", err)
	}
	return nil
}

// RebaseAbort aborts an in-progress rebase
func (r *Repository) RebaseAbort(ctx context.Context) error {
	if _, err := r.runner.Run(ctx, "rebase", "--abort"); err != nil {
		return fmt.Errorf("rebase abort failed: %w", err)
	}
	return nil
}

// RebaseHead returns the commit being replayed when the rebase stopped
func (r *Repository) RebaseHead() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range []plumbing.ReferenceName{"REBASE_HEAD", "refs/rebase-merge/head", "refs/rebase-apply/head"} {
		if ref, err := r.repo.Reference(name, true); err == nil {
			return ref.Hash().String(), nil
		}
	}
	return "", errors.New("rebase head not found")
}

// rebasingBranch reads the branch an in-progress rebase will update
func (r *Repository) rebasingBranch() (string, error) {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		data, err := os.ReadFile(filepath.Join(r.gitDir, dir, "head-name"))
		if err == nil {
			return plumbing.ReferenceName(strings.TrimSpace(string(data))).Short(), nil
		}
	}
	return "", errors.New("no rebase in progress")
}
