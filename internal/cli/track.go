package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/cli/helpers"
	"cascade.dev/cascade/internal/runtime"
)

// newTrackCmd creates the track command
func newTrackCmd() *cobra.Command {
	var (
		onto string
		pr   int
	)

	cmd := &cobra.Command{
		Use:   "track [branch]",
		Short: "Start tracking a branch on top of a parent branch",
		Long: `Start tracking a branch on top of a parent branch. Defaults to the current branch.

If the branch already contains the parent's tip, the parent's tip is recorded as
its fork point. Otherwise the branch is marked as needing a restack.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: helpers.CompleteBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				branch, err := helpers.BranchArg(ctx, args)
				if err != nil {
					return fmt.Errorf("no branch given and %w", err)
				}
				parent := onto
				if parent == "" {
					parent = ctx.Config.PrimaryTrunk()
				}
				opts := actions.TrackOptions{BranchName: branch, Parent: parent}
				if cmd.Flags().Changed("pr") {
					opts.PRNumber = &pr
				}
				return actions.TrackAction(ctx, opts)
			})
		},
	}

	cmd.Flags().StringVar(&onto, "onto", "", "The parent branch. Defaults to the trunk.")
	cmd.Flags().IntVar(&pr, "pr", 0, "The pull request that reviews this branch.")
	_ = cmd.RegisterFlagCompletionFunc("onto", helpers.CompleteBranches)

	return cmd
}
