package registry

import (
	"slices"

	"github.com/albertocavalcante/bcr-tools/label"
)

// Metadata represents the metadata.json file for a module in the registry.
// This matches the BCR metadata.schema.json specification.
type Metadata struct {
	// Homepage is the URL to the project's homepage.
	Homepage string `json:"homepage"`

	// Maintainers lists individuals who can be notified about the module.
	Maintainers []Maintainer `json:"maintainers"`

	// Repository is an allowlist of source URLs.
	// Format: "github:org/repo" or a URL prefix like "https://example.com/".
	Repository []string `json:"repository,omitempty"`

	// Versions lists all available versions, oldest first.
	Versions []string `json:"versions"`

	// YankedVersions maps version strings to yank reasons.
	YankedVersions map[string]string `json:"yanked_versions"`

	// Deprecated explains why the module should not be used.
	Deprecated string `json:"deprecated,omitempty"`
}

// Maintainer represents a module maintainer in metadata.json.
type Maintainer struct {
	// Email is the maintainer's email address (informational only).
	Email string `json:"email,omitempty"`

	// GitHub is the maintainer's GitHub username.
	GitHub string `json:"github,omitempty"`

	// GitHubUserID is the maintainer's numeric GitHub user ID.
	// Used to verify identity across username changes.
	GitHubUserID int64 `json:"github_user_id,omitempty"`

	// Name is the maintainer's display name (informational only).
	Name string `json:"name,omitempty"`

	// DoNotNotify prevents @-mentions in PRs while preserving approval rights.
	DoNotNotify bool `json:"do_not_notify,omitempty"`
}

// Source represents the source.json file specifying how to fetch module source.
// The Type field determines which other fields are relevant.
type Source struct {
	// Type is the source type: "archive" (default) or "git_repository".
	Type string `json:"type,omitempty"`

	// --- Archive fields (Type == "" or "archive") ---

	// URL is the download URL for the archive.
	URL string `json:"url,omitempty"`

	// MirrorURLs are fallback locations of the same archive.
	MirrorURLs []string `json:"mirror_urls,omitempty"`

	// Integrity is the SRI hash (e.g., "sha256-...") for the archive.
	Integrity string `json:"integrity,omitempty"`

	// StripPrefix is the directory prefix to strip from the archive.
	StripPrefix string `json:"strip_prefix,omitempty"`

	// Patches maps patch file names under patches/ to their SRI hash.
	Patches map[string]string `json:"patches,omitempty"`

	// PatchStrip is the -p value passed to patch.
	PatchStrip int `json:"patch_strip,omitempty"`

	// Overlay maps destination paths to SRI hashes of files under overlay/.
	Overlay map[string]string `json:"overlay,omitempty"`

	// --- Git repository fields (Type == "git_repository") ---

	// Remote is the Git repository URL.
	Remote string `json:"remote,omitempty"`

	// Commit is the Git commit hash to check out.
	Commit string `json:"commit,omitempty"`

	// ShallowSince enables a shallow clone from this date (YYYY-MM-DD).
	ShallowSince string `json:"shallow_since,omitempty"`

	// Tag is the Git tag to check out, as an alternative to Commit.
	Tag string `json:"tag,omitempty"`

	// InitSubmodules enables recursive submodule initialization.
	InitSubmodules bool `json:"init_submodules,omitempty"`
}

// RegistryConfig represents the bazel_registry.json file at the registry root.
type RegistryConfig struct {
	// Mirrors lists alternative URLs to try when the primary URL fails.
	Mirrors []string `json:"mirrors,omitempty"`

	// ModuleBasePath is the path prefix for module files within the registry.
	// Default is "modules" if not specified.
	ModuleBasePath string `json:"module_base_path,omitempty"`
}

// IsArchive returns true if this source is an archive type.
func (s *Source) IsArchive() bool {
	return s.Type == "" || s.Type == "archive"
}

// IsGitRepository returns true if this source is a git_repository type.
func (s *Source) IsGitRepository() bool {
	return s.Type == "git_repository"
}

// IsYanked returns true if the given version is yanked.
func (m *Metadata) IsYanked(version string) bool {
	_, ok := m.YankedVersions[version]
	return ok
}

// YankReason returns the reason why a version was yanked.
func (m *Metadata) YankReason(version string) string {
	return m.YankedVersions[version]
}

// HasVersion returns true if the given version is listed.
func (m *Metadata) HasVersion(version string) bool {
	return slices.Contains(m.Versions, version)
}

// AddVersion records version and re-sorts the list. It reports whether the
// version was missing.
func (m *Metadata) AddVersion(version string) bool {
	if m.HasVersion(version) {
		return false
	}
	m.Versions = append(m.Versions, version)
	label.SortVersions(m.Versions)
	return true
}

// PreviousVersion returns the highest listed version below version, or "".
func (m *Metadata) PreviousVersion(version string) string {
	prev := ""
	for _, v := range m.Versions {
		if label.CompareStrings(v, version) >= 0 {
			continue
		}
		if prev == "" || label.CompareStrings(v, prev) > 0 {
			prev = v
		}
	}
	return prev
}

// HasRepository returns true if repo is already in the allowlist.
func (m *Metadata) HasRepository(repo string) bool {
	return slices.Contains(m.Repository, repo)
}

// AddRepository appends repo to the allowlist unless it is empty or present.
func (m *Metadata) AddRepository(repo string) {
	if repo == "" || m.HasRepository(repo) {
		return
	}
	m.Repository = append(m.Repository, repo)
}
