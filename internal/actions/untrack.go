package actions

import (
	"fmt"

	"cascade.dev/cascade/internal/graph"
	"cascade.dev/cascade/internal/runtime"
	"cascade.dev/cascade/internal/tui"
)

// UntrackOptions contains options for the untrack command
type UntrackOptions struct {
	BranchName string
	// Promote moves the branch's children onto its parent
	Promote bool
}

// UntrackAction removes a branch from the graph. Without promotion a branch
// with children is refused.
func UntrackAction(ctx *runtime.Context, opts UntrackOptions) error {
	branchName := opts.BranchName
	promote := opts.Promote || ctx.Config.PromoteOnRemove()

	var promoted []string
	err := ctx.Engine.Edit(func(g *graph.Graph) error {
		if !promote {
			return g.Remove(branchName)
		}
		var err error
		promoted, err = g.RemovePromote(branchName)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to untrack %s: %w", branchName, err)
	}

	ctx.Splog.Info("Stopped tracking %s.", tui.ColorBranchName(branchName, false))
	for _, child := range promoted {
		ctx.Splog.Info("Moved %s onto the parent of %s.", tui.ColorBranchName(child, false), branchName)
	}
	if len(promoted) > 0 {
		ctx.Splog.Tip("Run %s to rebase them.", tui.ColorCyan("cascade restack"))
	}
	return nil
}
