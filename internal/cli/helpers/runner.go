// Package helpers provides shared helper functions for CLI commands.
package helpers

import (
	"github.com/spf13/cobra"

	"cascade.dev/cascade/internal/runtime"
)

// Run is a helper that provides a runtime context to a command's execution function
func Run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) error {
	ctx, err := runtime.GetContext(cmd.Context(), runtime.Options{
		Dir:   WorkDir(cmd),
		Out:   cmd.OutOrStdout(),
		Debug: Debug(cmd),
	})
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Close() }()
	return fn(ctx)
}

// WorkDir returns the --cwd flag, or "" for the process directory
func WorkDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("cwd")
	return dir
}

// Debug returns the --debug flag
func Debug(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}

// BranchArg returns the branch named on the command line, falling back to
// the checked out branch
func BranchArg(ctx *runtime.Context, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	return ctx.Repo.CurrentBranch()
}
