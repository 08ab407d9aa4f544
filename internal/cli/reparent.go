package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/cli/helpers"
	"cascade.dev/cascade/internal/runtime"
)

// newReparentCmd creates the reparent command
func newReparentCmd() *cobra.Command {
	var onto string

	cmd := &cobra.Command{
		Use:   "reparent [branch]",
		Short: "Move a tracked branch onto a different parent",
		Long: `Move a tracked branch onto a different parent. Defaults to the current branch.
The branch keeps its commits until the next restack replays them onto the new parent.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				branch, err := helpers.BranchArg(ctx, args)
				if err != nil {
					return fmt.Errorf("no branch given and %w", err)
				}
				return actions.ReparentAction(ctx, actions.ReparentOptions{
					BranchName: branch,
					NewParent:  onto,
				})
			})
		},
	}

	cmd.Flags().StringVar(&onto, "onto", "", "The new parent branch.")
	_ = cmd.MarkFlagRequired("onto")
	_ = cmd.RegisterFlagCompletionFunc("onto", helpers.CompleteBranches)

	return cmd
}
