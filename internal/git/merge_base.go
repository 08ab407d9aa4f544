package git

import (
	"context"
	"fmt"
	"strconv"
)

// MergeBase returns the best common ancestor of two revisions
func (r *Repository) MergeBase(_ context.Context, rev1, rev2 string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hash1, err := r.resolveRefHash(rev1)
	if err != nil {
		return "", err
	}
	hash2, err := r.resolveRefHash(rev2)
	if err != nil {
		return "", err
	}

	commit1, err := r.repo.CommitObject(hash1)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", rev1, err)
	}
	commit2, err := r.repo.CommitObject(hash2)
	if err != nil {
		return "", fmt.Errorf("failed to get commit %s: %w", rev2, err)
	}

	mergeBases, err := commit1.MergeBase(commit2)
	if err != nil {
		return "", fmt.Errorf("failed to find merge base: %w", err)
	}
	if len(mergeBases) == 0 {
		return "", fmt.Errorf("no merge base found between %s and %s", rev1, rev2)
	}
	return mergeBases[0].Hash.String(), nil
}

// IsAncestor reports whether ancestor is reachable from descendant. A commit
// is its own ancestor.
func (r *Repository) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ancestorHash, err := r.resolveRefHash(ancestor)
	if err != nil {
		return false, err
	}
	descendantHash, err := r.resolveRefHash(descendant)
	if err != nil {
		return false, err
	}
	if ancestorHash == descendantHash {
		return true, nil
	}

	ancestorCommit, err := r.repo.CommitObject(ancestorHash)
	if err != nil {
		return false, fmt.Errorf("failed to get ancestor commit: %w", err)
	}
	descendantCommit, err := r.repo.CommitObject(descendantHash)
	if err != nil {
		return false, fmt.Errorf("failed to get descendant commit: %w", err)
	}
	return ancestorCommit.IsAncestor(descendantCommit)
}

// UniqueCommits returns the commits reachable from tip but not from base,
// oldest first
func (r *Repository) UniqueCommits(ctx context.Context, base, tip string) ([]string, error) {
	lines, err := r.runner.RunLines(ctx, "rev-list", "--reverse", "--topo-order", base+".."+tip)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits %s..%s: %w", base, tip, err)
	}
	return lines, nil
}

// CountCommits returns the number of commits reachable from head but not base
func (r *Repository) CountCommits(ctx context.Context, base, head string) (int, error) {
	out, err := r.runner.Run(ctx, "rev-list", "--count", base+".."+head)
	if err != nil {
		return 0, fmt.Errorf("failed to count commits %s..%s: %w", base, head, err)
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("failed to parse commit count %q: %w", out, err)
	}
	return n, nil
}

// Reflog returns the commits refs/heads/<branch> pointed at, newest first,
// without duplicates
func (r *Repository) Reflog(ctx context.Context, branch string) ([]string, error) {
	lines, err := r.runner.RunLines(ctx, "reflog", "show", "--format=%H", "refs/heads/"+branch, "--")
	if err != nil {
		return nil, fmt.Errorf("failed to read reflog of %s: %w", branch, err)
	}
	seen := make(map[string]bool, len(lines))
	result := make([]string, 0, len(lines))
	for _, sha := range lines {
		if sha == "" || seen[sha] {
			continue
		}
		seen[sha] = true
		result = append(result, sha)
	}
	return result, nil
}
