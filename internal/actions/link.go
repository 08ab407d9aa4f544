package actions

import (
	"fmt"

	"cascade.dev/cascade/internal/graph"
	"cascade.dev/cascade/internal/runtime"
	"cascade.dev/cascade/internal/tui"
)

// LinkOptions contains options for the link command
type LinkOptions struct {
	BranchName string
	// PRNumber nil removes the link
	PRNumber *int
}

// LinkAction records which pull request reviews a branch
func LinkAction(ctx *runtime.Context, opts LinkOptions) error {
	err := ctx.Engine.Edit(func(g *graph.Graph) error {
		return g.SetReviewRequest(opts.BranchName, opts.PRNumber)
	})
	if err != nil {
		return fmt.Errorf("failed to link %s: %w", opts.BranchName, err)
	}

	if opts.PRNumber == nil {
		ctx.Splog.Info("Unlinked %s.", tui.ColorBranchName(opts.BranchName, false))
		return nil
	}
	ctx.Splog.Info("Linked %s to #%d.", tui.ColorBranchName(opts.BranchName, false), *opts.PRNumber)
	if !ctx.Config.GitHubEnabled() {
		ctx.Splog.Tip("GitHub integration is disabled, so the pull request base will not be updated.")
	}
	return nil
}
