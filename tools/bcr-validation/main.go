// Command bcr-validation checks module versions in a local Bazel registry.
//
// Usage:
//
//	go run ./tools/bcr-validation --check=foo@1.0 [--check=bar@2.1] [--fix]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/albertocavalcante/bcr-tools/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := validation.Main(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bcr-validation: %v\n", err)
		stop()
		os.Exit(1)
	}
}
