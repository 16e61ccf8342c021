package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/bcr-tools/internal/config"
	"github.com/albertocavalcante/bcr-tools/internal/logging"
	"github.com/albertocavalcante/bcr-tools/registry"
)

// ErrValidationFailed is returned when at least one check FAILED.
var ErrValidationFailed = errors.New("validation failed")

type options struct {
	registry    string
	registrySet bool
	logger      *slog.Logger
	fetcher     *registry.Fetcher
	out         io.Writer
}

// Option configures Main and NewCommand.
type Option func(*options)

// WithRegistry sets the registry root. An explicit --registry flag still
// overrides it; BCR_REGISTRY does not.
func WithRegistry(root string) Option {
	return func(o *options) {
		o.registry = root
		o.registrySet = true
	}
}

// WithLogger sets a structured logger. When unset the command builds one
// from --verbose.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFetcher sets the Fetcher used to download source archives.
func WithFetcher(f *registry.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithOutput sets where reports are printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// Main runs the validation command with args, e.g.
// ["--check=foo@1.0", "--fix"].
func Main(ctx context.Context, args []string, opts ...Option) error {
	if args == nil {
		args = []string{}
	}
	cmd := NewCommand(opts...)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewCommand builds the bcr_validation command.
func NewCommand(opts ...Option) *cobra.Command {
	o := &options{registry: ".", out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	cmd := &cobra.Command{
		Use:           "bcr_validation --check=<module>@<version> [--check=...]",
		Short:         "Validate module versions in a Bazel registry",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checks, err := cmd.Flags().GetStringArray("check")
			if err != nil {
				return err
			}
			v, err := config.Bind(cmd.Flags())
			if err != nil {
				return err
			}
			workdir, err := config.WorkDir(v)
			if err != nil {
				return err
			}
			root := v.GetString("registry")
			if o.registrySet && !cmd.Flags().Changed("registry") {
				root = o.registry
			}
			fetcher := o.fetcher
			if fetcher == nil {
				fetcher = registry.NewFetcher(registry.WithTimeout(v.GetDuration("timeout")))
			}
			return run(cmd.Context(), o, fetcher, checks, v.GetBool("fix"),
				config.Resolve(workdir, root), v.GetBool("verbose"))
		},
	}
	cmd.SetOut(o.out)

	flags := cmd.Flags()
	flags.StringArray("check", nil, "module version to validate, as <name>@<version> (repeatable)")
	flags.Bool("fix", false, "repair metadata ordering, missing versions and patch hashes")
	flags.String("registry", o.registry, "registry root directory")
	flags.String(config.KeyWorkDir, "", "directory relative paths are resolved against")
	flags.Duration("timeout", 0, "limit for each archive download, e.g. 10m (0 means no limit)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, o *options, fetcher *registry.Fetcher, checks []string, fix bool, root string, verbose bool) error {
	if len(checks) == 0 {
		return errors.New("at least one --check is required")
	}

	logger := o.logger
	if logger == nil {
		logger = logging.New(os.Stderr, logging.Options{Prefix: "bcr_validation", Verbose: verbose})
	}

	client := registry.NewClient(root, registry.WithLogger(logger))
	validator := NewValidator(client, WithFix(fix), WithValidatorLogger(logger), WithValidatorFetcher(fetcher))

	failed := 0
	for _, check := range checks {
		name, version, ok := strings.Cut(check, "@")
		if !ok || name == "" || version == "" {
			return fmt.Errorf("invalid --check %q: want <module>@<version>", check)
		}
		report := validator.Check(ctx, name, version)
		report.Print(o.out)
		if report.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d module version(s)", ErrValidationFailed, failed, len(checks))
	}
	return nil
}
