// Package config binds command line flags, BCR_* environment variables and
// the Bazel workspace directory into one viper instance per command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes the environment overrides, e.g. BCR_REGISTRY.
	EnvPrefix = "BCR"

	// WorkspaceEnv is set by `bazel run` to the workspace root.
	WorkspaceEnv = "BUILD_WORKSPACE_DIRECTORY"

	// KeyWorkDir is the key relative paths are resolved against.
	KeyWorkDir = "workdir"
)

// Bind returns a viper instance where a flag that was set on the command
// line wins over BCR_<FLAG>, which wins over the flag default. The workdir
// key additionally falls back to $BUILD_WORKSPACE_DIRECTORY.
func Bind(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if err := v.BindEnv(KeyWorkDir, EnvPrefix+"_WORKDIR", WorkspaceEnv); err != nil {
		return nil, fmt.Errorf("bind %s: %w", KeyWorkDir, err)
	}
	return v, nil
}

// WorkDir returns the absolute working directory configured in v, or the
// process working directory when none is configured.
func WorkDir(v *viper.Viper) (string, error) {
	dir := v.GetString(KeyWorkDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	return abs, nil
}

// Resolve joins a relative path onto base. Empty and absolute paths are
// returned unchanged.
func Resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
