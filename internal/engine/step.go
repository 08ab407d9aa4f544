package engine

import (
	"context"
	"errors"
	"fmt"

	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/git"
	"cascade.dev/cascade/internal/graph"
)

type haltInfo struct {
	reason HaltReason
	commit string
	onto   string
	base   string
	err    error
}

func haltWithError(onto string, err error) *haltInfo {
	return &haltInfo{reason: HaltError, onto: onto, err: err}
}

// processNode brings one branch up to date with its parent's current tip.
// The graph is updated in place on success.
func (e *engineImpl) processNode(ctx context.Context, g *graph.Graph, name string, trunkTips map[string]string) (StepRecord, *haltInfo) {
	node, ok := g.Get(name)
	if !ok {
		return StepRecord{}, haltWithError("", cascadeerrors.NewBranchNotFoundError(name))
	}

	tip, err := e.vcs.Tip(name)
	if err != nil {
		return StepRecord{}, haltWithError("", err)
	}
	if err := g.SetTip(name, tip); err != nil {
		return StepRecord{}, haltWithError("", err)
	}
	node.Tip = tip

	parentTip, err := e.parentTip(g, node.Parent, trunkTips)
	if err != nil {
		return StepRecord{}, haltWithError("", err)
	}
	step := StepRecord{Branch: name, OldTip: tip, ForkPoint: parentTip}

	upToDate := node.ForkPoint == parentTip
	if !upToDate {
		upToDate, err = e.vcs.IsAncestor(ctx, parentTip, tip)
		if err != nil {
			return StepRecord{}, haltWithError(parentTip, err)
		}
	}
	if upToDate {
		if err := g.Advance(name, tip, parentTip); err != nil {
			return StepRecord{}, haltWithError(parentTip, err)
		}
		step.Kind = StepUpToDate
		step.NewTip = tip
		return step, nil
	}

	res, err := e.resolver.Resolve(ctx, node, parentTip)
	if err != nil {
		if errors.Is(err, cascadeerrors.ErrAmbiguousForkPoint) {
			return StepRecord{}, &haltInfo{reason: HaltAmbiguousForkPoint, onto: parentTip, err: err}
		}
		return StepRecord{}, haltWithError(parentTip, err)
	}

	base, err := e.replayBase(ctx, node, res.Commit)
	if err != nil {
		return StepRecord{}, haltWithError(parentTip, err)
	}

	commits, err := e.vcs.UniqueCommits(ctx, base, tip)
	if err != nil {
		return StepRecord{}, haltWithError(parentTip, err)
	}
	step.Commits = len(commits)

	if len(commits) == 0 {
		if err := e.vcs.MoveBranch(ctx, name, parentTip); err != nil {
			return StepRecord{}, haltWithError(parentTip, err)
		}
		if err := g.Advance(name, parentTip, parentTip); err != nil {
			return StepRecord{}, haltWithError(parentTip, err)
		}
		step.Kind = StepMoved
		step.NewTip = parentTip
		return step, nil
	}

	newTip, err := e.vcs.Replay(ctx, git.ReplayRequest{
		Branch:   name,
		Onto:     parentTip,
		Upstream: base,
		Commits:  commits,
	})
	if err != nil {
		var conflict *cascadeerrors.ReplayConflictError
		if errors.As(err, &conflict) {
			return StepRecord{}, &haltInfo{
				reason: HaltConflict,
				commit: conflict.Commit,
				onto:   parentTip,
				base:   base,
				err:    err,
			}
		}
		return StepRecord{}, &haltInfo{reason: HaltError, onto: parentTip, base: base, err: err}
	}

	if err := g.Advance(name, newTip, parentTip); err != nil {
		return StepRecord{}, haltWithError(parentTip, err)
	}
	step.Kind = StepReplayed
	step.NewTip = newTip
	return step, nil
}

// replayBase picks the commit the branch's own commits start after. The
// recorded fork point names the old parent tip even after the parent was
// rewritten. The resolved one wins when the recorded one is unset, off the
// branch or older.
func (e *engineImpl) replayBase(ctx context.Context, node graph.Node, resolved string) (string, error) {
	recorded := node.ForkPoint
	if recorded == "" || recorded == resolved {
		return resolved, nil
	}

	onBranch, err := e.vcs.IsAncestor(ctx, recorded, node.Tip)
	if err != nil {
		return "", fmt.Errorf("failed to check fork point of %s: %w", node.Name, err)
	}
	if !onBranch {
		return resolved, nil
	}

	newer, err := e.vcs.IsAncestor(ctx, recorded, resolved)
	if err != nil {
		return "", fmt.Errorf("failed to check fork point of %s: %w", node.Name, err)
	}
	if newer {
		return resolved, nil
	}
	return recorded, nil
}
