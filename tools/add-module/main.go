// Command add-module adds a module version to a local Bazel registry and
// validates it.
//
// Usage:
//
//	go run ./tools/add-module --registry=. --input=module.json
//	bazel run //tools:add_module -- --input=module.json
//
// Under `bazel run`, relative paths are resolved against
// $BUILD_WORKSPACE_DIRECTORY.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/albertocavalcante/bcr-tools/addmodule"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := addmodule.NewCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "add-module: %v\n", err)
		stop()
		os.Exit(1)
	}
}
