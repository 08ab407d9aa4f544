package actions

import (
	"fmt"

	"cascade.dev/cascade/internal/runtime"
)

// RestackOptions contains options for the restack command
type RestackOptions struct {
	// BranchName is the trigger; empty means the current branch
	BranchName string
}

// RestackAction cascades every branch above the trigger onto its parent's
// current tip
func RestackAction(ctx *runtime.Context, opts RestackOptions) error {
	trigger := opts.BranchName
	if trigger == "" {
		current, err := ctx.Repo.CurrentBranch()
		if err != nil {
			return fmt.Errorf("no branch given and %w", err)
		}
		trigger = current
	}

	res, err := ctx.Engine.Restack(ctx.Context, trigger)
	if res != nil {
		reportSteps(ctx, res)
	}
	if err != nil {
		if res != nil && res.Halt != nil {
			_ = PrintConflictStatus(ctx, res.Run, res.Halt)
		}
		return err
	}
	return finishResult(ctx, res)
}
