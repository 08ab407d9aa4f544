package actions

import (
	"cascade.dev/cascade/internal/engine"
	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/runtime"
	"cascade.dev/cascade/internal/tui"
)

// reportSteps prints one line per processed branch and warns about review
// requests that could not be updated
func reportSteps(ctx *runtime.Context, res *engine.Result) {
	g := ctx.Engine.Graph()
	parentOf := func(name string) string {
		if node, ok := g.Get(name); ok {
			return node.Parent
		}
		return ""
	}

	for _, step := range res.Steps {
		branch := tui.ColorBranchName(step.Branch, false)
		parent := tui.ColorBranchName(parentOf(step.Branch), false)
		switch step.Kind {
		case engine.StepReplayed:
			ctx.Splog.Info("Restacked %s on %s.", branch, parent)
		case engine.StepMoved:
			ctx.Splog.Info("Moved %s to %s (no commits of its own).", branch, parent)
		case engine.StepUpToDate:
			ctx.Splog.Info("%s does not need to be restacked on %s.", branch, parent)
		case engine.StepResolved:
			ctx.Splog.Info("Resolved rebase conflict for %s.", branch)
		}
		ctx.Splog.Debug("%s: %s -> %s (fork point %s)", step.Branch,
			cascadeerrors.ShortSHA(step.OldTip), cascadeerrors.ShortSHA(step.NewTip), cascadeerrors.ShortSHA(step.ForkPoint))
	}

	for _, err := range res.SyncFailures {
		ctx.Splog.Warn("%v", err)
	}
	if len(res.SyncFailures) > 0 {
		ctx.Splog.Tip("Local branches are restacked; update the pull request bases on GitHub by hand or link again later.")
	}
}

// finishResult reports how a cascade ended and returns the error that
// decides the exit code
func finishResult(ctx *runtime.Context, res *engine.Result) error {
	switch res.Outcome {
	case engine.OutcomeEmpty:
		ctx.Splog.Info("No branches to restack.")
		return nil
	case engine.OutcomeHalted:
		if err := PrintConflictStatus(ctx, res.Run, res.Halt); err != nil {
			ctx.Splog.Debug("Failed to print conflict status: %v", err)
		}
		return res.Halt
	default:
		returnToBranch(ctx, res.Run)
		return nil
	}
}

// returnToBranch checks out the branch that was current when the run started
func returnToBranch(ctx *runtime.Context, run *engine.Run) {
	if run == nil || run.ReturnBranch == "" || ctx.Repo.IsRebaseInProgress() {
		return
	}
	current, err := ctx.Repo.CurrentBranch()
	if err == nil && current == run.ReturnBranch {
		return
	}
	if err := ctx.Repo.CheckoutBranch(ctx.Context, run.ReturnBranch); err != nil {
		ctx.Splog.Warn("Could not check out %s again: %v", run.ReturnBranch, err)
	}
}
