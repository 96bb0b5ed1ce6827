package main

import (
	"os"

	"github.com/grovetools/claudelogs/cli"
	"github.com/grovetools/claudelogs/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()

	executed, err := rootCmd.ExecuteC()
	if err != nil {
		cli.NewErrorHandler(cli.GetOptions(executed).Verbose, os.Stderr).Handle(err)
		os.Exit(1)
	}
}
