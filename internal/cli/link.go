package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/cli/helpers"
	"cascade.dev/cascade/internal/runtime"
)

// newLinkCmd creates the link command
func newLinkCmd() *cobra.Command {
	var (
		branch string
		unlink bool
	)

	cmd := &cobra.Command{
		Use:   "link [pr-number]",
		Short: "Link a tracked branch to the pull request that reviews it",
		Long: `Link a tracked branch to the pull request that reviews it. Defaults to the current branch.

When GitHub integration is enabled, restacking a linked branch updates the
pull request's base branch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if unlink == (len(args) == 1) {
				return fmt.Errorf("pass either a pull request number or --unlink")
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				name := branch
				if name == "" {
					current, err := ctx.Repo.CurrentBranch()
					if err != nil {
						return fmt.Errorf("no branch given and %w", err)
					}
					name = current
				}
				opts := actions.LinkOptions{BranchName: name}
				if !unlink {
					number, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
					if err != nil || number <= 0 {
						return fmt.Errorf("invalid pull request number %q", args[0])
					}
					opts.PRNumber = &number
				}
				return actions.LinkAction(ctx, opts)
			})
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Which branch to link. Defaults to the current branch.")
	cmd.Flags().BoolVar(&unlink, "unlink", false, "Remove the branch's pull request link.")
	_ = cmd.RegisterFlagCompletionFunc("branch", helpers.CompleteBranches)

	return cmd
}
