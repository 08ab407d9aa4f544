package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cascade",
		Short: "Cascade keeps stacked branches rebased on their parents",
		Long: `Cascade keeps stacked branches rebased on their parents.

Track each branch on the branch it was cut from, then run 'cascade restack'
after changing a branch to replay everything stacked on it. When a rebase
conflicts the cascade stops; resolve it and run 'cascade continue'.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Write debug output to the console.")
	rootCmd.PersistentFlags().StringP("cwd", "C", "", "Run as if cascade was started in this directory.")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newTrackCmd())
	rootCmd.AddCommand(newReparentCmd())
	rootCmd.AddCommand(newUntrackCmd())
	rootCmd.AddCommand(newLinkCmd())
	rootCmd.AddCommand(newRestackCmd())
	rootCmd.AddCommand(newContinueCmd())
	rootCmd.AddCommand(newAbortCmd())
	rootCmd.AddCommand(newStackCmd())

	return rootCmd
}
