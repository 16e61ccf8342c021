package registry

import "errors"

// Sentinel errors returned by the registry client.
var (
	// ErrModuleNotFound indicates the module has no metadata.json in the registry.
	ErrModuleNotFound = errors.New("module not found")

	// ErrVersionNotFound indicates the module version directory does not exist.
	ErrVersionNotFound = errors.New("version not found")

	// ErrVersionExists indicates Add was asked not to overwrite an existing version.
	ErrVersionExists = errors.New("version already exists")

	// ErrInvalidSourceURL indicates a source URL on a known forge lacks the
	// owner/repo path segments.
	ErrInvalidSourceURL = errors.New("invalid source URL")

	// ErrEmptyBuildFile indicates a build_file with no content, which has no
	// representation as an add-file patch.
	ErrEmptyBuildFile = errors.New("build file is empty")
)
