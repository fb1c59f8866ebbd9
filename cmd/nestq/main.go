// Command nestq resolves and runs nested query sets.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/nestq/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			// Cobra errors (bad flags, missing arguments) were not printed by the command.
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
