package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"cascade.dev/cascade/internal/cli"
	"cascade.dev/cascade/internal/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := cli.NewRootCmd(version, commit, date)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, tui.ColorRed("ERROR: ")+err.Error())
	}
	stop()
	os.Exit(cli.ExitCode(err))
}
