package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/sweep/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands report ExitErrors themselves. Anything else is a flag,
	// argument or format error from cobra.
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(cli.ExitCommandError)
}
