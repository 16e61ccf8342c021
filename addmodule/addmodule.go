// Package addmodule adds one module version to a local Bazel registry from a
// JSON description and then runs the validation pass on it.
//
//	err := addmodule.Run(ctx, addmodule.Options{
//	    Registry: registry.NewClient("/path/to/bcr"),
//	    Validate: validate,
//	    Input:    "module.json",
//	})
package addmodule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/albertocavalcante/bcr-tools/internal/config"
	"github.com/albertocavalcante/bcr-tools/internal/logging"
	"github.com/albertocavalcante/bcr-tools/registry"
)

// Registry is the part of registry.Client that Run writes through.
type Registry interface {
	InitModule(ctx context.Context, name string, maintainers []registry.Maintainer, homepage, sourceRepository string) error
	Add(ctx context.Context, m *registry.Module, overwrite bool) error
}

// ValidateFunc runs the validation pass with command line style arguments.
type ValidateFunc func(ctx context.Context, args []string) error

// Options configures Run.
type Options struct {
	Registry Registry
	Validate ValidateFunc

	// Input is the path of the JSON module description.
	Input string

	// WorkDir is the base for relative paths in Input and in the
	// description itself. Empty means the paths are used as given.
	WorkDir string

	Logger *slog.Logger
}

// Run loads the module description, records the module and its version in
// the registry and validates the result. The registry is not rolled back when
// a later step fails.
func Run(ctx context.Context, opts Options) error {
	if opts.Registry == nil {
		return errors.New("addmodule: no registry")
	}
	logger := logging.OrDiscard(opts.Logger)

	path := config.Resolve(opts.WorkDir, opts.Input)
	logger.Info("Getting module information from " + path)
	in, err := LoadInput(path)
	if err != nil {
		return err
	}

	m := &in.Module
	resolvePaths(opts.WorkDir, m)

	sourceRepository, err := registry.SourceRepository(m.URL)
	if err != nil {
		return err
	}
	logger.Debug("derived source repository", "module", m.Name, "repository", sourceRepository)

	if err := opts.Registry.InitModule(ctx, m.Name, in.Maintainers, in.Homepage, sourceRepository); err != nil {
		return fmt.Errorf("init module %s: %w", m.Name, err)
	}
	if err := opts.Registry.Add(ctx, m, true); err != nil {
		return fmt.Errorf("add %s: %w", m.Key(), err)
	}
	logger.Info(fmt.Sprintf("%s %s is added into the registry.", m.Name, m.Version))

	args := ValidationArgs(m.Name, m.Version)
	logger.Info("Running validation: bcr_validation " + strings.Join(args, " "))
	if opts.Validate == nil {
		return nil
	}
	return opts.Validate(ctx, args)
}

// ValidationArgs returns the validation pass arguments for name@version.
func ValidationArgs(name, version string) []string {
	return []string{"--check=" + name + "@" + version, "--fix"}
}

// resolvePaths makes the local file references of m relative to workdir.
// TestModulePath points into the source archive and is left alone.
func resolvePaths(workdir string, m *registry.Module) {
	if workdir == "" {
		return
	}
	m.ModuleDotBazel = config.Resolve(workdir, m.ModuleDotBazel)
	m.BuildFile = config.Resolve(workdir, m.BuildFile)
	m.PresubmitYML = config.Resolve(workdir, m.PresubmitYML)
	for i, p := range m.Patches {
		m.Patches[i] = config.Resolve(workdir, p)
	}
}
