package cli

import (
	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/cli/helpers"
	"cascade.dev/cascade/internal/runtime"
)

// newRestackCmd creates the restack command
func newRestackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restack [branch]",
		Short: "Rebase every branch stacked on a branch onto its parent's new tip",
		Long: `Rebase every branch stacked on a branch onto its parent's new tip. Defaults to the current branch.
Pass a trunk branch to restack everything built on it.

If a rebase conflicts the cascade stops on that branch. Resolve the conflict, then
run 'cascade continue', or run 'cascade abort' to give up.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				opts := actions.RestackOptions{}
				if len(args) > 0 {
					opts.BranchName = args[0]
				}
				return actions.RestackAction(ctx, opts)
			})
		},
	}

	return cmd
}
