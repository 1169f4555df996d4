// main is the entry point for the mergecheck CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/mergecheck/cmd"
)

func main() {
	err := cmd.Execute()
	var exitErr *cmd.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cmd.ExitCode(err))
}
