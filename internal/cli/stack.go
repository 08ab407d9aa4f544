package cli

import (
	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/actions"
	"cascade.dev/cascade/internal/cli/helpers"
	"cascade.dev/cascade/internal/runtime"
)

// newStackCmd creates the stack command
func newStackCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "stack",
		Aliases: []string{"ls", "log"},
		Short:   "Print the tracked branches as a tree",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return actions.StackAction(ctx, actions.StackOptions{Format: format})
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", actions.FormatTree, "Output format: tree, json or yaml.")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{actions.FormatTree, actions.FormatJSON, actions.FormatYAML}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
