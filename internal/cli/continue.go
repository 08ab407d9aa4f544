package cli

import (
	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/cli/helpers"
	"cascade.dev/cascade/internal/runtime"
)

// newContinueCmd creates the continue command
func newContinueCmd() *cobra.Command {
	var addAll bool

	cmd := &cobra.Command{
		Use:   "continue",
		Short: "Continues a cascade halted by a rebase conflict",
		Long: `Continues a cascade halted by a rebase conflict.
This command will continue the rebase and resume restacking remaining branches.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.ContinueAction(ctx, actions.ContinueOptions{AddAll: addAll})
			})
		},
	}

	cmd.Flags().BoolVarP(&addAll, "all", "a", false, "Stage all changes before continuing")

	return cmd
}
