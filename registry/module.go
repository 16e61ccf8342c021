package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/albertocavalcante/bcr-tools/label"
)

// Module describes one module version to be added to the registry.
// File references (ModuleDotBazel, Patches, BuildFile, PresubmitYML,
// TestModulePath) are paths on the local file system.
type Module struct {
	Name               string `json:"name"`
	Version            string `json:"version"`
	CompatibilityLevel int    `json:"compatibility_level,omitempty"`

	// ModuleDotBazel is an existing MODULE.bazel to copy instead of generating one.
	ModuleDotBazel string `json:"module_dot_bazel,omitempty"`

	// URL is the source archive URL.
	URL         string `json:"url"`
	StripPrefix string `json:"strip_prefix,omitempty"`

	Deps []Dep `json:"deps,omitempty"`

	Patches    []string `json:"patches,omitempty"`
	PatchStrip int      `json:"patch_strip,omitempty"`

	// BuildFile is turned into a patch that adds BUILD.bazel to the source root.
	BuildFile string `json:"build_file,omitempty"`

	// PresubmitYML is an existing presubmit.yml to copy instead of generating one.
	PresubmitYML string `json:"presubmit_yml,omitempty"`

	BuildTargets []string `json:"build_targets,omitempty"`

	TestModulePath         string   `json:"test_module_path,omitempty"`
	TestModuleBuildTargets []string `json:"test_module_build_targets,omitempty"`
	TestModuleTestTargets  []string `json:"test_module_test_targets,omitempty"`
}

// Key returns "name@version".
func (m *Module) Key() string {
	return m.Name + "@" + m.Version
}

// Validate checks the identifying fields of the module.
func (m *Module) Validate() error {
	var errs ValidationErrors
	if _, err := label.NewModule(m.Name); err != nil {
		errs.Add("name", err.Error())
	}
	if m.Version == "" {
		errs.Add("version", "required field is missing")
	} else if _, err := label.NewVersion(m.Version); err != nil {
		errs.Add("version", err.Error())
	}
	if m.URL == "" {
		errs.Add("url", "required field is missing")
	}
	if m.CompatibilityLevel < 0 {
		errs.Add("compatibility_level", "must be non-negative")
	}
	if m.PatchStrip < 0 {
		errs.Add("patch_strip", "must be non-negative")
	}
	for i, d := range m.Deps {
		if _, err := label.NewModule(d.Name); err != nil {
			errs.Add(fmt.Sprintf("deps[%d].name", i), err.Error())
		}
		if _, err := label.NewVersion(d.Version); err != nil {
			errs.Add(fmt.Sprintf("deps[%d].version", i), err.Error())
		}
		if _, err := label.NewRepoName(d.RepoName); err != nil {
			errs.Add(fmt.Sprintf("deps[%d].repo_name", i), err.Error())
		}
	}
	return errs.ToError()
}

// Dep is a bazel_dep of a module.
//
// In JSON it is either a two element array ["name", "version"], the form the
// BCR tooling writes, or an object with name, version, repo_name and
// dev_dependency keys.
type Dep struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	RepoName      string `json:"repo_name,omitempty"`
	DevDependency bool   `json:"dev_dependency,omitempty"`
}

// UnmarshalJSON accepts both the pair and the object form.
func (d *Dep) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pair []string
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("dependency pair: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("dependency pair must have 2 elements, got %d", len(pair))
		}
		*d = Dep{Name: pair[0], Version: pair[1]}
		return nil
	}

	type plain Dep
	var p plain
	if err := unmarshalStrict(data, &p); err != nil {
		return fmt.Errorf("dependency: %w", err)
	}
	*d = Dep(p)
	return nil
}
