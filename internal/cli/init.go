package cli

import (
	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/cli/helpers"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var (
		trunk  string
		github bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize cascade in the current repository",
		Long: `Initialize cascade in the current repository by choosing the trunk branch.
Running init again updates the trunk and the GitHub setting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return actions.InitAction(actions.InitOptions{
				Dir:    helpers.WorkDir(cmd),
				Trunk:  trunk,
				GitHub: github,
				Out:    cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&trunk, "trunk", "", "The name of your trunk branch. Defaults to main.")
	cmd.Flags().BoolVar(&github, "github", false, "Update pull request bases on GitHub when branches are restacked.")
	_ = cmd.RegisterFlagCompletionFunc("trunk", helpers.CompleteBranches)

	return cmd
}
