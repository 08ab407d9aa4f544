package actions

import (
	"fmt"

	"cascade.dev/cascade/internal/graph"
	"cascade.dev/cascade/internal/runtime"
	"cascade.dev/cascade/internal/tui"
)

// TrackOptions contains options for the track command
type TrackOptions struct {
	BranchName string
	Parent     string
	PRNumber   *int
}

// TrackAction adds a branch to the graph on top of its parent. When the
// branch already contains the parent's tip that tip becomes its fork point;
// otherwise the branch waits for its first restack.
func TrackAction(ctx *runtime.Context, opts TrackOptions) error {
	branchName := opts.BranchName
	parent := opts.Parent

	if !ctx.Repo.BranchExists(branchName) {
		return fmt.Errorf("branch %s does not exist", branchName)
	}
	if !ctx.Repo.BranchExists(parent) {
		return fmt.Errorf("parent branch %s does not exist", parent)
	}

	tip, err := ctx.Repo.Tip(branchName)
	if err != nil {
		return err
	}
	parentTip, err := ctx.Repo.Tip(parent)
	if err != nil {
		return err
	}
	contains, err := ctx.Repo.IsAncestor(ctx.Context, parentTip, tip)
	if err != nil {
		return fmt.Errorf("failed to check ancestry: %w", err)
	}

	err = ctx.Engine.Edit(func(g *graph.Graph) error {
		if err := g.Track(branchName, parent); err != nil {
			return err
		}
		if err := g.SetTip(branchName, tip); err != nil {
			return err
		}
		if opts.PRNumber != nil {
			if err := g.SetReviewRequest(branchName, opts.PRNumber); err != nil {
				return err
			}
		}
		if contains {
			return g.Advance(branchName, tip, parentTip)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to track %s: %w", branchName, err)
	}

	ctx.Splog.Info("Tracked %s with parent %s.", tui.ColorBranchName(branchName, false), tui.ColorBranchName(parent, false))
	if !contains {
		ctx.Splog.Tip("%s does not contain %s yet. Run %s to move it on top.",
			branchName, parent, tui.ColorCyan("cascade restack "+branchName))
	}
	return nil
}
