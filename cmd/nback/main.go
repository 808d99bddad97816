// Command nback is the dual n-back trainer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nback/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
