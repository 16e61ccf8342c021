// Package label validates the identifiers that appear in a Bazel registry:
// module names, repository names and module versions.
//
// Values are immutable and validated at construction time. The zero value of
// each type is the empty identifier.
//
// # Validation Patterns
//
// Module names must match: [a-z]([a-z0-9._-]*[a-z0-9])?
// Repository names must match: [a-zA-Z][a-zA-Z0-9._-]*
package label

import (
	"fmt"
	"regexp"
)

// Module is a validated Bazel module name.
type Module struct {
	name string
}

var moduleNameRegex = regexp.MustCompile(`^[a-z]([a-z0-9._-]*[a-z0-9])?$`)

// NewModule validates name and wraps it in a Module.
func NewModule(name string) (Module, error) {
	if name == "" {
		return Module{}, fmt.Errorf("module name cannot be empty")
	}
	if !moduleNameRegex.MatchString(name) {
		return Module{}, fmt.Errorf("invalid module name %q: must match pattern [a-z]([a-z0-9._-]*[a-z0-9])?", name)
	}
	return Module{name: name}, nil
}

// MustModule is NewModule for constants and tests.
func MustModule(name string) Module {
	m, err := NewModule(name)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Module) String() string {
	return m.name
}

// IsEmpty reports whether m is the zero value.
func (m Module) IsEmpty() bool {
	return m.name == ""
}

// RepoName is the apparent repository name a bazel_dep is visible under.
// The empty RepoName means the module name is used.
type RepoName struct {
	name string
}

var repoNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)

// NewRepoName validates an apparent repository name. Empty is accepted.
func NewRepoName(name string) (RepoName, error) {
	if name == "" {
		return RepoName{}, nil
	}
	if !repoNameRegex.MatchString(name) {
		return RepoName{}, fmt.Errorf("invalid repo name %q", name)
	}
	return RepoName{name: name}, nil
}

func (r RepoName) String() string {
	return r.name
}

// IsEmpty reports whether no custom repository name is set.
func (r RepoName) IsEmpty() bool {
	return r.name == ""
}
