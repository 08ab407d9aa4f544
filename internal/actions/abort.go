package actions

import (
	"errors"
	"fmt"

	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/runtime"
	"cascade.dev/cascade/internal/tui"
)

// AbortOptions contains options for the abort command
type AbortOptions struct {
	Force bool
}

// AbortAction discards a halted cascade. Branches restacked before the halt
// keep their new commits.
func AbortAction(ctx *runtime.Context, opts AbortOptions) error {
	pending, err := ctx.Engine.PendingRun()
	if err != nil {
		if errors.Is(err, cascadeerrors.ErrNoCascadeRun) {
			ctx.Splog.Info("No cascade in progress to abort.")
			return nil
		}
		return err
	}

	if !opts.Force && tui.InteractiveAllowed() {
		msg := fmt.Sprintf("Abort the cascade started from %s? Branches already restacked stay restacked.", pending.Trigger)
		confirmed, err := tui.PromptConfirm(msg, false)
		if err != nil {
			return fmt.Errorf("failed to get confirmation: %w", err)
		}
		if !confirmed {
			ctx.Splog.Info("Abort canceled.")
			return nil
		}
	}

	run, err := ctx.Engine.Abort(ctx.Context)
	if err != nil {
		return err
	}

	if run.HaltedNode != "" {
		ctx.Splog.Info("Aborted the cascade at %s.", tui.ColorBranchName(run.HaltedNode, false))
	} else {
		ctx.Splog.Info("Aborted the cascade.")
	}
	if remaining := run.Remaining(); len(remaining) > 0 {
		ctx.Splog.Info("Not restacked: %v", remaining)
	}
	returnToBranch(ctx, run)
	return nil
}
