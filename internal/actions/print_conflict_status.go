package actions

import (
	"fmt"

	"cascade.dev/cascade/internal/engine"
	cascadeerrors "cascade.dev/cascade/internal/errors"
	"cascade.dev/cascade/internal/runtime"
	"cascade.dev/cascade/internal/tui"
)

// PrintConflictStatus displays why a cascade halted and how to continue it
func PrintConflictStatus(ctx *runtime.Context, run *engine.Run, halt *cascadeerrors.CascadeHaltedError) error {
	if run == nil || halt == nil {
		return fmt.Errorf("no halted cascade to describe")
	}
	branchName := halt.BranchName

	switch run.Reason {
	case engine.HaltAmbiguousForkPoint:
		ctx.Splog.Info("%s", tui.ColorRed(fmt.Sprintf("Could not tell where %s forked from its parent", branchName)))
		ctx.Splog.Info("%v", halt.Err)
		ctx.Splog.Newline()
		ctx.Splog.Info("%s", tui.ColorYellow("To fix and continue:"))
		ctx.Splog.Info("(1) rebase it yourself with %s",
			tui.ColorCyan(fmt.Sprintf("git rebase --onto %s <fork-point> %s", cascadeerrors.ShortSHA(run.HaltedOnto), branchName)))
		ctx.Splog.Info("(2) run %s to restack the remaining branches", tui.ColorCyan("cascade continue"))
		ctx.Splog.Info("Or discard the cascade with %s.", tui.ColorCyan("cascade abort"))
		return nil

	case engine.HaltError:
		ctx.Splog.Info("%s", tui.ColorRed(fmt.Sprintf("Failed to restack %s", branchName)))
		ctx.Splog.Info("%v", halt.Err)
		ctx.Splog.Newline()
		ctx.Splog.Info("Fix the problem and run %s to retry, or %s to stop.",
			tui.ColorCyan("cascade continue"), tui.ColorCyan("cascade abort"))
		return nil
	}

	ctx.Splog.Info("%s", tui.ColorRed(fmt.Sprintf("Hit conflict restacking %s", branchName)))
	ctx.Splog.Newline()

	unmergedFiles, err := ctx.Repo.UnmergedFiles(ctx.Context)
	if err == nil && len(unmergedFiles) > 0 {
		ctx.Splog.Info("%s", tui.ColorYellow("Unmerged files:"))
		for _, file := range unmergedFiles {
			ctx.Splog.Info("%s", tui.ColorRed(file))
		}
		ctx.Splog.Newline()
	}

	if rebaseHead, err := ctx.Repo.RebaseHead(); err == nil && rebaseHead != "" {
		ctx.Splog.Info("%s", tui.ColorYellow(fmt.Sprintf("You are here (resolving %s):", cascadeerrors.ShortSHA(rebaseHead))))
		ctx.Splog.Newline()
	}

	if remaining := run.Remaining(); len(remaining) > 1 {
		ctx.Splog.Info("Still to restack after %s: %v", branchName, remaining[1:])
		ctx.Splog.Newline()
	}

	ctx.Splog.Info("%s", tui.ColorYellow("To fix and continue the cascade:"))
	ctx.Splog.Info("(1) resolve the listed merge conflicts")
	ctx.Splog.Info("(2) mark them as resolved with %s", tui.ColorCyan("git add ."))
	ctx.Splog.Info("(3) run %s to continue restacking", tui.ColorCyan("cascade continue"))
	ctx.Splog.Info("It's safe to give up with %s.", tui.ColorCyan("cascade abort"))
	return nil
}
