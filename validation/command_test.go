package validation

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertocavalcante/bcr-tools/internal/logging"
	"github.com/albertocavalcante/bcr-tools/registry"
)

func TestMain_Flags(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0"})

	tests := []struct {
		name    string
		args    []string
		wantErr error
		errText string
		output  string
	}{
		{
			name:   "valid",
			args:   []string{"--check=foo@1.0"},
			output: "foo@1.0:",
		},
		{
			name:    "missing version fails",
			args:    []string{"--check=foo@1.0", "--check", "foo@9.9"},
			wantErr: ErrValidationFailed,
			output:  "foo@9.9:",
		},
		{
			name:    "no checks",
			args:    nil,
			errText: "at least one --check",
		},
		{
			name:    "malformed check",
			args:    []string{"--check=foo"},
			errText: "want <module>@<version>",
		},
		{
			name:    "positional args rejected",
			args:    []string{"foo@1.0"},
			errText: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := Main(context.Background(), tt.args,
				WithRegistry(f.client.Root()),
				WithFetcher(f.fetcher),
				WithLogger(logging.Discard()),
				WithOutput(&out),
			)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				require.ErrorContains(t, err, tt.errText)
			default:
				require.NoError(t, err)
			}
			if tt.output != "" {
				assert.Contains(t, out.String(), tt.output)
			}
		})
	}
}

func TestMain_RegistryFlagOverridesOption(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0"})

	var out bytes.Buffer
	err := Main(context.Background(),
		[]string{"--registry", f.client.Root(), "--check=foo@1.0"},
		WithRegistry(t.TempDir()),
		WithFetcher(f.fetcher),
		WithLogger(logging.Discard()),
		WithOutput(&out),
	)
	require.NoError(t, err)
}

func TestMain_RegistryOptionOverridesEnv(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0"})
	t.Setenv("BCR_REGISTRY", t.TempDir())

	var out bytes.Buffer
	err := Main(context.Background(), []string{"--check=foo@1.0"},
		WithRegistry(f.client.Root()),
		WithFetcher(f.fetcher),
		WithLogger(logging.Discard()),
		WithOutput(&out),
	)
	require.NoError(t, err, out.String())
	assert.NotContains(t, out.String(), Failed.String())
}

func TestMain_Fix(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0"})

	metadata, err := f.client.GetMetadata("foo")
	require.NoError(t, err)
	metadata.Versions = []string{"0.1"}
	require.NoError(t, f.client.WriteMetadata("foo", metadata))

	var out bytes.Buffer
	err = Main(context.Background(), []string{"--check=foo@1.0", "--fix"},
		WithRegistry(f.client.Root()),
		WithFetcher(f.fetcher),
		WithLogger(logging.Discard()),
		WithOutput(&out),
	)
	require.NoError(t, err)

	metadata, err = f.client.GetMetadata("foo")
	require.NoError(t, err)
	assert.Equal(t, []string{"0.1", "1.0"}, metadata.Versions)
}
