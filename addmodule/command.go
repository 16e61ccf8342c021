package addmodule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/bcr-tools/internal/config"
	"github.com/albertocavalcante/bcr-tools/internal/logging"
	"github.com/albertocavalcante/bcr-tools/registry"
	"github.com/albertocavalcante/bcr-tools/validation"
)

type commandOptions struct {
	logger  *slog.Logger
	fetcher *registry.Fetcher
	out     io.Writer
}

// CommandOption configures NewCommand.
type CommandOption func(*commandOptions)

// WithLogger sets a structured logger. When unset the command builds one
// from --verbose.
func WithLogger(l *slog.Logger) CommandOption {
	return func(o *commandOptions) {
		o.logger = l
	}
}

// WithFetcher sets the Fetcher used to download source archives.
func WithFetcher(f *registry.Fetcher) CommandOption {
	return func(o *commandOptions) {
		o.fetcher = f
	}
}

// WithOutput sets where the validation report is printed.
func WithOutput(w io.Writer) CommandOption {
	return func(o *commandOptions) {
		o.out = w
	}
}

// NewCommand builds the add_module command.
func NewCommand(opts ...CommandOption) *cobra.Command {
	o := &commandOptions{out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	cmd := &cobra.Command{
		Use:           "add_module --input=<module.json> [--registry=<dir>]",
		Short:         "Add a module version to a Bazel registry",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.Bind(cmd.Flags())
			if err != nil {
				return err
			}
			input := v.GetString("input")
			if input == "" {
				return errors.New("--input is required")
			}
			workdir, err := config.WorkDir(v)
			if err != nil {
				return err
			}

			logger := o.logger
			if logger == nil {
				logger = logging.New(os.Stderr, logging.Options{Prefix: "add_module", Verbose: v.GetBool("verbose")})
			}

			root := config.Resolve(workdir, v.GetString("registry"))
			fetcher := o.fetcher
			if fetcher == nil {
				fetcher = registry.NewFetcher(registry.WithTimeout(v.GetDuration("timeout")))
			}
			validationOpts := []validation.Option{
				validation.WithRegistry(root),
				validation.WithFetcher(fetcher),
				validation.WithLogger(logger),
				validation.WithOutput(o.out),
			}

			return Run(cmd.Context(), Options{
				Registry: registry.NewClient(root, registry.WithFetcher(fetcher), registry.WithLogger(logger)),
				Validate: func(ctx context.Context, args []string) error {
					return validation.Main(ctx, args, validationOpts...)
				},
				Input:   input,
				WorkDir: workdir,
				Logger:  logger,
			})
		},
	}
	cmd.SetOut(o.out)

	flags := cmd.Flags()
	flags.String("registry", ".", "registry root directory")
	flags.String("input", "", "JSON file describing the module version")
	flags.String(config.KeyWorkDir, "", "directory relative paths are resolved against")
	flags.Duration("timeout", 0, "limit for each archive download, e.g. 10m (0 means no limit)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	return cmd
}
