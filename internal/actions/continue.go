package actions

import (
	"errors"
	"fmt"

	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/runtime"
)

// ContinueOptions are options for the continue command
type ContinueOptions struct {
	AddAll bool
}

// ContinueAction finishes the rebase a cascade halted on, when the user has
// not already done so, then resumes the cascade
func ContinueAction(ctx *runtime.Context, opts ContinueOptions) error {
	run, err := ctx.Engine.PendingRun()
	if err != nil {
		if errors.Is(err, cascadeerrors.ErrNoCascadeRun) && ctx.Repo.IsRebaseInProgress() {
			return fmt.Errorf("%w. Use 'git rebase --continue' directly", err)
		}
		return err
	}

	if opts.AddAll {
		if err := ctx.Repo.StageAll(ctx.Context); err != nil {
			return err
		}
	}

	if ctx.Repo.IsRebaseInProgress() {
		if err := ctx.Repo.RebaseContinue(ctx.Context); err != nil {
			if errors.Is(err, cascadeerrors.ErrReplayConflict) {
				halt := &cascadeerrors.CascadeHaltedError{BranchName: run.HaltedNode, Commit: run.HaltedCommit, Err: err}
				_ = PrintConflictStatus(ctx, run, halt)
				return cascadeerrors.NewUnresolvedConflictError(run.HaltedNode)
			}
			return err
		}
	}

	res, err := ctx.Engine.Resume(ctx.Context)
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
