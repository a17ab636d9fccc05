// Package main provides the kwrapper process entrypoint. The same binary
// answers to kdeinit5_wrapper, kshell5, kwrapper5, kdeinit5_shutdown, and
// any program name symlinked to it.
package main

import (
	"context"
	"os"

	"github.com/peterhoeg/kinit/internal/app"
)

// main leaves signal handling to supervised launches, which relay signals
// to the remote process instead of cancelling.
func main() {
	exitCode := app.Execute(context.Background(), os.Args, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}
