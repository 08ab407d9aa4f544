// Package forkpoint computes the commit a stacked branch last diverged from
// its parent.
//
// The resolver checks the branch's own history (the fork point recorded by
// the last cascade step, then the branch reflog) against the plain merge-base
// of the branch and its parent. A candidate older than the merge-base yields
// the merge-base, since the commits in between already belong to the parent.
// When the two disagree in a way that could drop or duplicate commits it
// refuses to guess.
package forkpoint

import (
	"context"

	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/graph"
)

// History is the read-only commit history the resolver needs
type History interface {
	// Reflog returns the commits the branch ref pointed at, newest first.
	Reflog(ctx context.Context, branch string) ([]string, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	MergeBase(ctx context.Context, a, b string) (string, error)
	// CountCommits returns the number of commits reachable from head but not from base.
	CountCommits(ctx context.Context, base, head string) (int, error)
}

// Source says which strategy produced a fork point
type Source string

const (
	SourceRecorded  Source = "recorded"
	SourceReflog    Source = "reflog"
	SourceMergeBase Source = "merge-base"
)

// Resolution is a resolved fork point
type Resolution struct {
	Commit string
	Source Source
}

// Policy tunes the disagreement check
type Policy struct {
	// MaxDrift is the largest number of commits the heuristic result may sit
	// behind the merge-base before the result is treated as ambiguous. Zero
	// disables the check.
	MaxDrift int
}

// Resolver computes fork points
type Resolver struct {
	history History
	policy  Policy
}

// NewResolver creates a resolver over history
func NewResolver(history History, policy Policy) *Resolver {
	return &Resolver{history: history, policy: policy}
}

// Resolve returns the fork point of node relative to parentTip
func (r *Resolver) Resolve(ctx context.Context, node graph.Node, parentTip string) (Resolution, error) {
	fallback, err := r.history.MergeBase(ctx, node.Tip, parentTip)
	if err != nil {
		return Resolution{}, err
	}

	heuristic, source, err := r.heuristic(ctx, node, parentTip)
	if err != nil {
		return Resolution{}, err
	}
	if heuristic == "" {
		return Resolution{Commit: fallback, Source: SourceMergeBase}, nil
	}
	if heuristic == fallback {
		return Resolution{Commit: heuristic, Source: source}, nil
	}

	// A candidate reachable from parentTip that is also a fork point of the
	// branch lies on the merge-base's history.
	contained, err := r.history.IsAncestor(ctx, heuristic, fallback)
	if err != nil {
		return Resolution{}, err
	}
	if !contained {
		return Resolution{}, cascadeerrors.NewAmbiguousForkPointError(node.Name, heuristic, fallback)
	}
	if r.policy.MaxDrift > 0 {
		drift, err := r.history.CountCommits(ctx, heuristic, fallback)
		if err != nil {
			return Resolution{}, err
		}
		if drift > r.policy.MaxDrift {
			return Resolution{}, cascadeerrors.NewAmbiguousForkPointError(node.Name, heuristic, fallback)
		}
	}
	// Commits between the candidate and the merge-base are already in the
	// parent, so the merge-base is the later fork point.
	return Resolution{Commit: fallback, Source: SourceMergeBase}, nil
}

func (r *Resolver) heuristic(ctx context.Context, node graph.Node, parentTip string) (string, Source, error) {
	type candidate struct {
		commit string
		source Source
	}
	var candidates []candidate
	if node.ForkPoint != "" {
		candidates = append(candidates, candidate{node.ForkPoint, SourceRecorded})
	}
	// An unreadable reflog just means fewer candidates.
	if reflog, err := r.history.Reflog(ctx, node.Name); err == nil {
		for _, c := range reflog {
			candidates = append(candidates, candidate{c, SourceReflog})
		}
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.commit == "" || seen[c.commit] {
			continue
		}
		seen[c.commit] = true
		ok, err := r.history.IsAncestor(ctx, c.commit, parentTip)
		if err != nil {
			// Pruned or unknown objects cannot be fork points.
			continue
		}
		if ok {
			return c.commit, c.source, nil
		}
	}
	return "", "", nil
}
