package cli

import (
	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/cli/helpers"
	"cascade.dev/cascade/internal/runtime"
)

// newAbortCmd creates the abort command
func newAbortCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Abort a cascade halted by a rebase conflict",
		Long: `Aborts a cascade halted by a rebase conflict.

The in-progress rebase is aborted and the halted branch keeps its old commits.
Branches restacked before the halt keep their new commits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.AbortAction(ctx, actions.AbortOptions{Force: force})
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not prompt for confirmation; abort immediately.")

	return cmd
}
