package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/cli/helpers"
	"cascade.dev/cascade/internal/runtime"
)

// newUntrackCmd creates the untrack command
func newUntrackCmd() *cobra.Command {
	var promote bool

	cmd := &cobra.Command{
		Use:     "untrack [branch]",
		Aliases: []string{"ut"},
		Short:   "Stop tracking a branch. The git branch itself is kept",
		Long: `Stop tracking a branch. Defaults to the current branch. The git branch itself is kept.

A branch with tracked children can only be untracked with --promote, which moves
its children onto its parent.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				branch, err := helpers.BranchArg(ctx, args)
				if err != nil {
					return fmt.Errorf("no branch given and %w", err)
				}
				return actions.UntrackAction(ctx, actions.UntrackOptions{
					BranchName: branch,
					Promote:    promote,
				})
			})
		},
	}

	cmd.Flags().BoolVar(&promote, "promote", false, "Move the branch's children onto its parent.")

	return cmd
}
