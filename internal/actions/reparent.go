package actions

import (
	"fmt"

	"cascade.dev/cascade/internal/graph"
	"cascade.dev/cascade/internal/runtime"
	"cascade.dev/cascade/internal/tui"
)

// ReparentOptions contains options for the reparent command
type ReparentOptions struct {
	BranchName string
	NewParent  string
}

// ReparentAction moves a branch onto a different parent in the graph. The
// branch itself is not rebased until the next restack.
func ReparentAction(ctx *runtime.Context, opts ReparentOptions) error {
	err := ctx.Engine.Edit(func(g *graph.Graph) error {
		return g.Reparent(opts.BranchName, opts.NewParent)
	})
	if err != nil {
		return fmt.Errorf("failed to reparent %s: %w", opts.BranchName, err)
	}

	ctx.Splog.Info("Set parent of %s to %s.", tui.ColorBranchName(opts.BranchName, false), tui.ColorBranchName(opts.NewParent, false))
	ctx.Splog.Tip("Run %s to rebase it onto its new parent.", tui.ColorCyan("cascade restack "+opts.BranchName))
	return nil
}
