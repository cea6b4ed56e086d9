// Command recipesync signs recipes and publishes them to Remote Settings.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/recipesync/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// Command failures were already reported through the formatter.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
