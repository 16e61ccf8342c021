package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/albertocavalcante/bcr-tools/internal/logging"
	"github.com/albertocavalcante/bcr-tools/label"
	"github.com/albertocavalcante/bcr-tools/modulefile"
	"github.com/albertocavalcante/bcr-tools/presubmit"
	"github.com/gofrs/flock"
)

// File names inside a registry.
const (
	RegistryConfigFile = "bazel_registry.json"
	MetadataFile       = "metadata.json"
	ModuleFile         = "MODULE.bazel"
	SourceFile         = "source.json"
	PresubmitFile      = "presubmit.yml"
	PatchesDir         = "patches"

	// BuildFilePatch is the patch generated from Module.BuildFile.
	BuildFilePatch = "add_build_file.patch"

	lockFile = ".bcr.lock"
)

// Client reads and writes a registry rooted at a local directory.
type Client struct {
	root    string
	fetcher *Fetcher
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithFetcher sets the Fetcher used to download source archives.
func WithFetcher(f *Fetcher) ClientOption {
	return func(c *Client) {
		c.fetcher = f
	}
}

// WithLogger sets a structured logger. Logging is disabled by default.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the registry at root.
func NewClient(root string, opts ...ClientOption) *Client {
	c := &Client{root: filepath.Clean(root)}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = NewFetcher()
	}
	c.logger = logging.OrDiscard(c.logger)
	return c
}

// Root returns the registry root directory.
func (c *Client) Root() string {
	return c.root
}

// ModuleDir returns modules/<name>.
func (c *Client) ModuleDir(name string) string {
	return filepath.Join(c.root, "modules", name)
}

// VersionDir returns modules/<name>/<version>.
func (c *Client) VersionDir(name, version string) string {
	return filepath.Join(c.ModuleDir(name), version)
}

// MetadataPath returns the path of a module's metadata.json.
func (c *Client) MetadataPath(name string) string {
	return filepath.Join(c.ModuleDir(name), MetadataFile)
}

// ModuleFilePath returns the path of a module version's MODULE.bazel.
func (c *Client) ModuleFilePath(name, version string) string {
	return filepath.Join(c.VersionDir(name, version), ModuleFile)
}

// SourcePath returns the path of a module version's source.json.
func (c *Client) SourcePath(name, version string) string {
	return filepath.Join(c.VersionDir(name, version), SourceFile)
}

// PresubmitPath returns the path of a module version's presubmit.yml.
func (c *Client) PresubmitPath(name, version string) string {
	return filepath.Join(c.VersionDir(name, version), PresubmitFile)
}

// PatchPath returns the path of a patch file of a module version.
func (c *Client) PatchPath(name, version, patch string) string {
	return filepath.Join(c.VersionDir(name, version), PatchesDir, patch)
}

// Contains reports whether the module version directory exists.
func (c *Client) Contains(name, version string) bool {
	info, err := os.Stat(c.VersionDir(name, version))
	return err == nil && info.IsDir()
}

// GetMetadata reads a module's metadata.json.
func (c *Client) GetMetadata(name string) (*Metadata, error) {
	data, err := os.ReadFile(c.MetadataPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
		}
		return nil, fmt.Errorf("read metadata for %s: %w", name, err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse metadata for %s: %w", name, err)
	}
	return &m, nil
}

// WriteMetadata replaces a module's metadata.json.
func (c *Client) WriteMetadata(name string, m *Metadata) error {
	if m.Versions == nil {
		m.Versions = []string{}
	}
	if m.YankedVersions == nil {
		m.YankedVersions = map[string]string{}
	}
	return writeJSON(c.MetadataPath(name), m)
}

// GetSource reads a module version's source.json.
func (c *Client) GetSource(name, version string) (*Source, error) {
	data, err := os.ReadFile(c.SourcePath(name, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s@%s", ErrVersionNotFound, name, version)
		}
		return nil, fmt.Errorf("read source for %s@%s: %w", name, version, err)
	}
	var s Source
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse source for %s@%s: %w", name, version, err)
	}
	return &s, nil
}

// WriteSource replaces a module version's source.json.
func (c *Client) WriteSource(name, version string, s *Source) error {
	return writeJSON(c.SourcePath(name, version), s)
}

// InitModule creates or updates the module's metadata.json. Maintainers and
// homepage replace the stored values when non-empty; sourceRepository is
// appended to the repository allowlist when non-empty and not yet listed.
func (c *Client) InitModule(ctx context.Context, name string, maintainers []Maintainer, homepage, sourceRepository string) error {
	if _, err := label.NewModule(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock, err := c.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := c.ensureRegistryConfig(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.ModuleDir(name), 0o755); err != nil {
		return fmt.Errorf("create module directory: %w", err)
	}

	m, err := c.GetMetadata(name)
	switch {
	case errors.Is(err, ErrModuleNotFound):
		m = &Metadata{}
		c.logger.Debug("creating metadata", "module", name)
	case err != nil:
		return err
	default:
		c.logger.Debug("updating metadata", "module", name, "versions", len(m.Versions))
	}

	if homepage != "" {
		m.Homepage = homepage
	}
	if len(maintainers) > 0 {
		m.Maintainers = maintainers
	}
	m.AddRepository(sourceRepository)

	return c.WriteMetadata(name, m)
}

// Add writes the files of one module version and records the version in
// metadata.json. An existing version directory is replaced when overwrite is
// true and is an ErrVersionExists error otherwise.
func (c *Client) Add(ctx context.Context, m *Module, overwrite bool) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid module %s: %w", m.Key(), err)
	}

	unlock, err := c.lock()
	if err != nil {
		return err
	}
	defer unlock()

	dir := c.VersionDir(m.Name, m.Version)
	if c.Contains(m.Name, m.Version) {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrVersionExists, m.Key())
		}
		c.logger.Debug("replacing existing version", "module", m.Key())
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create version directory: %w", err)
	}

	if err := c.writeModuleFile(m); err != nil {
		return err
	}
	if err := c.writeSource(ctx, m); err != nil {
		return err
	}
	if err := c.writePresubmit(m); err != nil {
		return err
	}

	metadata, err := c.GetMetadata(m.Name)
	if errors.Is(err, ErrModuleNotFound) {
		metadata = &Metadata{}
	} else if err != nil {
		return err
	}
	metadata.AddVersion(m.Version)
	return c.WriteMetadata(m.Name, metadata)
}

func (c *Client) writeModuleFile(m *Module) error {
	path := c.ModuleFilePath(m.Name, m.Version)

	if m.ModuleDotBazel != "" {
		c.logger.Debug("copying MODULE.bazel", "from", m.ModuleDotBazel)
		return copyFile(m.ModuleDotBazel, path)
	}

	f := &modulefile.File{
		Name:               m.Name,
		Version:            m.Version,
		CompatibilityLevel: m.CompatibilityLevel,
	}
	for _, d := range m.Deps {
		f.Deps = append(f.Deps, modulefile.Dep{
			Name:          d.Name,
			Version:       d.Version,
			RepoName:      d.RepoName,
			DevDependency: d.DevDependency,
		})
	}
	return os.WriteFile(path, modulefile.Generate(f), 0o644)
}

func (c *Client) writeSource(ctx context.Context, m *Module) error {
	c.logger.Info("downloading source archive", "url", m.URL)
	integrity, err := c.fetcher.Integrity(ctx, m.URL)
	if err != nil {
		return fmt.Errorf("download %s: %w", m.URL, err)
	}

	src := &Source{
		URL:         m.URL,
		Integrity:   integrity,
		StripPrefix: m.StripPrefix,
		PatchStrip:  m.PatchStrip,
	}

	patchDir := filepath.Join(c.VersionDir(m.Name, m.Version), PatchesDir)
	addPatch := func(name string, content []byte) error {
		if src.Patches == nil {
			src.Patches = map[string]string{}
		}
		if _, dup := src.Patches[name]; dup {
			return fmt.Errorf("duplicate patch name %q", name)
		}
		if err := os.MkdirAll(patchDir, 0o755); err != nil {
			return fmt.Errorf("create patches directory: %w", err)
		}
		if err := os.WriteFile(filepath.Join(patchDir, name), content, 0o644); err != nil {
			return fmt.Errorf("write patch %s: %w", name, err)
		}
		src.Patches[name] = Integrity(content)
		return nil
	}

	for _, p := range m.Patches {
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read patch: %w", err)
		}
		if err := addPatch(filepath.Base(p), content); err != nil {
			return err
		}
	}

	if m.BuildFile != "" {
		content, err := os.ReadFile(m.BuildFile)
		if err != nil {
			return fmt.Errorf("read build file: %w", err)
		}
		if len(content) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyBuildFile, m.BuildFile)
		}
		if err := addPatch(BuildFilePatch, BuildFileToPatch(content)); err != nil {
			return err
		}
		if src.PatchStrip == 0 {
			src.PatchStrip = 1
		}
	}

	return c.WriteSource(m.Name, m.Version, src)
}

func (c *Client) writePresubmit(m *Module) error {
	path := c.PresubmitPath(m.Name, m.Version)

	if m.PresubmitYML != "" {
		c.logger.Debug("copying presubmit.yml", "from", m.PresubmitYML)
		return copyFile(m.PresubmitYML, path)
	}

	data, err := presubmit.Generate(presubmit.Options{
		ModuleName:             m.Name,
		BuildTargets:           m.BuildTargets,
		TestModulePath:         m.TestModulePath,
		TestModuleBuildTargets: m.TestModuleBuildTargets,
		TestModuleTestTargets:  m.TestModuleTestTargets,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// BuildFileToPatch returns a unified diff that creates BUILD.bazel with the
// given content. The diff uses a/ and b/ prefixes and applies with -p1.
// Content must not be empty.
func BuildFileToPatch(content []byte) []byte {
	text := string(content)
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var b strings.Builder
	b.WriteString("--- a/BUILD.bazel\n")
	b.WriteString("+++ b/BUILD.bazel\n")
	fmt.Fprintf(&b, "@@ -0,0 +1,%d @@\n", len(lines))
	for _, line := range lines {
		b.WriteString("+")
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteString("\n\\ No newline at end of file\n")
		}
	}
	return []byte(b.String())
}

func (c *Client) ensureRegistryConfig() error {
	path := filepath.Join(c.root, RegistryConfigFile)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	c.logger.Debug("creating registry config", "path", path)
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return fmt.Errorf("create registry root: %w", err)
	}
	return writeJSON(path, &RegistryConfig{})
}

// lock takes the registry-wide write lock.
func (c *Client) lock() (func(), error) {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return nil, fmt.Errorf("create registry root: %w", err)
	}
	fl := flock.New(filepath.Join(c.root, lockFile))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock registry: %w", err)
	}
	return func() { _ = fl.Unlock() }, nil
}

// SortedPatchNames returns the keys of s.Patches in order.
func (s *Source) SortedPatchNames() []string {
	names := make([]string, 0, len(s.Patches))
	for name := range s.Patches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeJSON(path string, v any) error {
	data, err := marshalIndent(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
