// Package presubmit generates and checks the presubmit.yml file that the BCR
// CI runs for every module version.
package presubmit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults used for generated configs.
var (
	DefaultPlatforms     = []string{"debian10", "ubuntu2004", "macos", "macos_arm64", "windows"}
	DefaultBazelVersions = []string{"7.x", "8.x"}
)

// Config is the content of a presubmit.yml file.
type Config struct {
	Matrix        Matrix          `yaml:"matrix,omitempty"`
	Tasks         map[string]Task `yaml:"tasks,omitempty"`
	BCRTestModule *TestModule     `yaml:"bcr_test_module,omitempty"`
}

// Matrix maps a matrix axis (platform, bazel, ...) to its values.
type Matrix map[string][]string

// Task is one CI job.
type Task struct {
	Name         string   `yaml:"name,omitempty"`
	Platform     string   `yaml:"platform"`
	Bazel        string   `yaml:"bazel,omitempty"`
	BuildFlags   []string `yaml:"build_flags,omitempty"`
	BuildTargets []string `yaml:"build_targets,omitempty"`
	TestFlags    []string `yaml:"test_flags,omitempty"`
	TestTargets  []string `yaml:"test_targets,omitempty"`
}

// TestModule is the bcr_test_module section: a directory of the source
// archive that is built against the module under test.
type TestModule struct {
	ModulePath string          `yaml:"module_path"`
	Matrix     Matrix          `yaml:"matrix,omitempty"`
	Tasks      map[string]Task `yaml:"tasks"`
}

// Options describes a presubmit config to generate.
type Options struct {
	ModuleName   string
	BuildTargets []string

	TestModulePath         string
	TestModuleBuildTargets []string
	TestModuleTestTargets  []string
}

// Generate renders a presubmit.yml. Without build targets the whole module
// ("@<name>//...") is built, and a test module without targets builds "//...".
func Generate(opts Options) ([]byte, error) {
	if opts.ModuleName == "" {
		return nil, errors.New("presubmit: module name is required")
	}

	targets := opts.BuildTargets
	if len(targets) == 0 {
		targets = []string{"@" + opts.ModuleName + "//..."}
	}

	cfg := Config{
		Matrix: defaultMatrix(),
		Tasks: map[string]Task{
			"verify_targets": {
				Name:         "Verify build targets",
				Platform:     "${{ platform }}",
				Bazel:        "${{ bazel }}",
				BuildTargets: targets,
			},
		},
	}

	if opts.TestModulePath != "" {
		buildTargets := opts.TestModuleBuildTargets
		if len(buildTargets) == 0 && len(opts.TestModuleTestTargets) == 0 {
			buildTargets = []string{"//..."}
		}
		cfg.BCRTestModule = &TestModule{
			ModulePath: opts.TestModulePath,
			Matrix:     defaultMatrix(),
			Tasks: map[string]Task{
				"run_test_module": {
					Name:         "Run test module",
					Platform:     "${{ platform }}",
					Bazel:        "${{ bazel }}",
					BuildTargets: buildTargets,
					TestTargets:  opts.TestModuleTestTargets,
				},
			},
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&cfg); err != nil {
		return nil, fmt.Errorf("presubmit: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("presubmit: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func defaultMatrix() Matrix {
	return Matrix{
		"platform": append([]string(nil), DefaultPlatforms...),
		"bazel":    append([]string(nil), DefaultBazelVersions...),
	}
}

// Parse decodes presubmit.yml content. Unknown keys are ignored.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("presubmit: %w", err)
	}
	return &cfg, nil
}

// ParseFile reads and decodes a presubmit.yml file.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Validate reports structural problems: a config must define at least one
// task or a test module, and every task must run on a platform and name
// some targets.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Tasks) == 0 && c.BCRTestModule == nil {
		errs = append(errs, errors.New("no tasks and no bcr_test_module defined"))
	}
	errs = append(errs, validateTasks("tasks", c.Tasks)...)

	if tm := c.BCRTestModule; tm != nil {
		if tm.ModulePath == "" {
			errs = append(errs, errors.New("bcr_test_module: module_path is required"))
		}
		if len(tm.Tasks) == 0 {
			errs = append(errs, errors.New("bcr_test_module: no tasks defined"))
		}
		errs = append(errs, validateTasks("bcr_test_module.tasks", tm.Tasks)...)
	}

	return errors.Join(errs...)
}

// BazelVersions returns every Bazel version the config runs with: the bazel
// matrix axes and the literal bazel value of each task, deduplicated.
// Matrix references such as "${{ bazel }}" are skipped.
func (c *Config) BazelVersions() []string {
	var out []string
	seen := map[string]bool{}
	add := func(v string) {
		if v == "" || strings.HasPrefix(v, "${{") || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	addAll := func(m Matrix, tasks map[string]Task) {
		for _, v := range m["bazel"] {
			add(v)
		}
		for _, name := range sortedTaskNames(tasks) {
			add(tasks[name].Bazel)
		}
	}

	addAll(c.Matrix, c.Tasks)
	if c.BCRTestModule != nil {
		addAll(c.BCRTestModule.Matrix, c.BCRTestModule.Tasks)
	}
	return out
}

func sortedTaskNames(tasks map[string]Task) []string {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateTasks(prefix string, tasks map[string]Task) []error {
	var errs []error
	for _, name := range sortedTaskNames(tasks) {
		task := tasks[name]
		if task.Platform == "" {
			errs = append(errs, fmt.Errorf("%s.%s: platform is required", prefix, name))
		}
		if len(task.BuildTargets) == 0 && len(task.TestTargets) == 0 {
			errs = append(errs, fmt.Errorf("%s.%s: no build_targets or test_targets", prefix, name))
		}
	}
	return errs
}
