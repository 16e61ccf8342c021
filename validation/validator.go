package validation

import (
	"context"
	"log/slog"
	"os"

	"github.com/albertocavalcante/bcr-tools/bazeltools"
	"github.com/albertocavalcante/bcr-tools/internal/compat"
	"github.com/albertocavalcante/bcr-tools/internal/logging"
	"github.com/albertocavalcante/bcr-tools/label"
	"github.com/albertocavalcante/bcr-tools/modulefile"
	"github.com/albertocavalcante/bcr-tools/presubmit"
	"github.com/albertocavalcante/bcr-tools/registry"
)

// Check names as they appear in reports.
const (
	CheckModuleFile         = "module_dot_bazel"
	CheckMetadata           = "metadata"
	CheckYanked             = "yanked"
	CheckSource             = "source"
	CheckSourceIntegrity    = "source_integrity"
	CheckPatches            = "patches"
	CheckPresubmit          = "presubmit"
	CheckDeps               = "deps"
	CheckCompatibilityLevel = "compatibility_level"
	CheckBazelCompatibility = "bazel_compatibility"
)

// Validator checks module versions in a local registry.
type Validator struct {
	client  *registry.Client
	fetcher *registry.Fetcher
	schemas *registry.Validator
	logger  *slog.Logger
	fix     bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithFix lets the validator repair metadata ordering, missing versions and
// stale patch hashes instead of reporting them.
func WithFix(fix bool) ValidatorOption {
	return func(v *Validator) {
		v.fix = fix
	}
}

// WithValidatorFetcher sets the Fetcher used to download source archives.
func WithValidatorFetcher(f *registry.Fetcher) ValidatorOption {
	return func(v *Validator) {
		v.fetcher = f
	}
}

// WithValidatorLogger sets a structured logger.
func WithValidatorLogger(l *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = l
	}
}

// NewValidator creates a validator for the registry behind client.
func NewValidator(client *registry.Client, opts ...ValidatorOption) *Validator {
	v := &Validator{
		client:  client,
		schemas: registry.NewValidator(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.fetcher == nil {
		v.fetcher = registry.NewFetcher()
	}
	v.logger = logging.OrDiscard(v.logger)
	return v
}

// Check runs every check on name@version.
func (v *Validator) Check(ctx context.Context, name, version string) *Report {
	r := &Report{Module: name + "@" + version}
	v.logger.Debug("validating", "module", r.Module, "fix", v.fix)

	if !v.client.Contains(name, version) {
		r.add(CheckModuleFile, Failed, "%s is not in the registry", r.Module)
		return r
	}

	mf := v.checkModuleFile(r, name, version)
	metadata := v.checkMetadata(r, name, version)
	src := v.checkSource(ctx, r, name, version, metadata)
	cfg := v.checkPresubmit(r, name, version)
	oldest := oldestBazel(cfg)
	if mf != nil {
		v.checkDeps(r, mf, oldest)
		if metadata != nil {
			v.checkCompatibilityLevel(r, name, version, mf, metadata)
		}
	}
	checkBazelCompatibility(r, oldest, mf, src)
	return r
}

func (v *Validator) checkModuleFile(r *Report, name, version string) *modulefile.File {
	mf, err := modulefile.ParseFile(v.client.ModuleFilePath(name, version))
	if err != nil {
		r.add(CheckModuleFile, Failed, "%v", err)
		return nil
	}

	ok := true
	if mf.Name != name {
		r.add(CheckModuleFile, Failed, "module name %q does not match %q", mf.Name, name)
		ok = false
	}
	if mf.Version != version {
		r.add(CheckModuleFile, Failed, "module version %q does not match %q", mf.Version, version)
		ok = false
	}
	if ok {
		r.add(CheckModuleFile, Good, "name and version match the registry entry")
	}
	return mf
}

func (v *Validator) checkMetadata(r *Report, name, version string) *registry.Metadata {
	metadata, err := v.client.GetMetadata(name)
	if err != nil {
		r.add(CheckMetadata, Failed, "%v", err)
		return nil
	}

	failed := false
	dirty := false
	if !metadata.HasVersion(version) {
		if v.fix {
			metadata.AddVersion(version)
			dirty = true
			r.add(CheckMetadata, Info, "added %s to versions", version)
		} else {
			r.add(CheckMetadata, Failed, "version %s is not listed in metadata.json", version)
			failed = true
		}
	}
	if !label.IsSorted(metadata.Versions) {
		if v.fix {
			label.SortVersions(metadata.Versions)
			dirty = true
			r.add(CheckMetadata, Info, "sorted versions")
		} else {
			r.add(CheckMetadata, Failed, "versions in metadata.json are not sorted")
			failed = true
		}
	}
	if dirty {
		if err := v.client.WriteMetadata(name, metadata); err != nil {
			r.add(CheckMetadata, Failed, "write fixed metadata: %v", err)
			return metadata
		}
	}

	data, err := os.ReadFile(v.client.MetadataPath(name))
	if err != nil {
		r.add(CheckMetadata, Failed, "%v", err)
		return metadata
	}
	if err := v.schemas.ValidateMetadata(data); err != nil {
		r.add(CheckMetadata, Failed, "%v", err)
	} else if !failed {
		r.add(CheckMetadata, Good, "metadata.json is valid")
	}

	if metadata.IsYanked(version) {
		r.add(CheckYanked, Warning, "%s is yanked: %s", version, metadata.YankReason(version))
	}
	return metadata
}

func (v *Validator) checkSource(ctx context.Context, r *Report, name, version string, metadata *registry.Metadata) *registry.Source {
	data, err := os.ReadFile(v.client.SourcePath(name, version))
	if err != nil {
		r.add(CheckSource, Failed, "%v", err)
		return nil
	}
	if err := v.schemas.ValidateSource(data); err != nil {
		r.add(CheckSource, Failed, "%v", err)
		return nil
	}
	src, err := v.client.GetSource(name, version)
	if err != nil {
		r.add(CheckSource, Failed, "%v", err)
		return nil
	}
	if !src.IsArchive() {
		r.add(CheckSource, Info, "source type %q is not verified", src.Type)
		return src
	}

	switch {
	case metadata == nil:
	case len(metadata.Repository) == 0:
		r.add(CheckSource, Warning, "metadata.json has no repository allowlist")
	case !registry.RepositoryAllows(metadata.Repository, src.URL):
		r.add(CheckSource, Failed, "source URL %s is not covered by repository %v", src.URL, metadata.Repository)
	default:
		r.add(CheckSource, Good, "source URL matches the repository allowlist")
	}

	v.logger.Info("verifying source archive", "url", src.URL)
	integrity, err := v.fetcher.Integrity(ctx, src.URL)
	switch {
	case err != nil:
		r.add(CheckSourceIntegrity, Failed, "download %s: %v", src.URL, err)
	case integrity != src.Integrity:
		r.add(CheckSourceIntegrity, Failed, "integrity mismatch: source.json has %s, archive is %s",
			src.Integrity, integrity)
	default:
		r.add(CheckSourceIntegrity, Good, "archive integrity matches")
	}

	v.checkPatches(r, name, version, src)
	return src
}

func (v *Validator) checkPatches(r *Report, name, version string, src *registry.Source) {
	if len(src.Patches) == 0 {
		return
	}

	dirty := false
	for _, patch := range src.SortedPatchNames() {
		content, err := os.ReadFile(v.client.PatchPath(name, version, patch))
		if err != nil {
			r.add(CheckPatches, Failed, "patch %s: %v", patch, err)
			continue
		}
		want := registry.Integrity(content)
		if src.Patches[patch] == want {
			continue
		}
		if v.fix {
			src.Patches[patch] = want
			dirty = true
			r.add(CheckPatches, Info, "updated integrity of %s", patch)
		} else {
			r.add(CheckPatches, Failed, "integrity of %s does not match its content", patch)
		}
	}

	if dirty {
		if err := v.client.WriteSource(name, version, src); err != nil {
			r.add(CheckPatches, Failed, "write fixed source.json: %v", err)
			return
		}
	}
	if len(r.Find(CheckPatches)) == 0 {
		r.add(CheckPatches, Good, "%d patch(es) verified", len(src.Patches))
	}
}

func (v *Validator) checkPresubmit(r *Report, name, version string) *presubmit.Config {
	cfg, err := presubmit.ParseFile(v.client.PresubmitPath(name, version))
	if err != nil {
		r.add(CheckPresubmit, Failed, "%v", err)
		return nil
	}
	if err := cfg.Validate(); err != nil {
		r.add(CheckPresubmit, Failed, "%v", err)
		return nil
	}
	r.add(CheckPresubmit, Good, "presubmit.yml is valid")
	return cfg
}

// checkDeps also points out deps below the version that MODULE.tools of the
// oldest presubmit Bazel already requests, since selection ignores them.
func (v *Validator) checkDeps(r *Report, mf *modulefile.File, oldestBazel string) {
	ok := true
	for _, dep := range mf.Deps {
		key := dep.Name + "@" + dep.Version
		if dep.Version == "" {
			r.add(CheckDeps, Failed, "bazel_dep %s has no version", dep.Name)
			ok = false
			continue
		}
		if !v.client.Contains(dep.Name, dep.Version) {
			r.add(CheckDeps, Failed, "dependency %s is not in the registry", key)
			ok = false
			continue
		}
		if metadata, err := v.client.GetMetadata(dep.Name); err == nil && metadata.IsYanked(dep.Version) {
			r.add(CheckDeps, Warning, "dependency %s is yanked: %s", key, metadata.YankReason(dep.Version))
		}
		if tools, ok := bazeltools.Version(oldestBazel, dep.Name); ok && label.CompareStrings(dep.Version, tools) < 0 {
			r.add(CheckDeps, Info, "dependency %s is below %s from MODULE.tools of Bazel %s and has no effect there",
				key, tools, oldestBazel)
		}
	}
	if ok {
		r.add(CheckDeps, Good, "%d dependencies found in the registry", len(mf.Deps))
	}
}

func (v *Validator) checkCompatibilityLevel(r *Report, name, version string, mf *modulefile.File, metadata *registry.Metadata) {
	prev := metadata.PreviousVersion(version)
	if prev == "" {
		return
	}
	prevFile, err := modulefile.ParseFile(v.client.ModuleFilePath(name, prev))
	if err != nil {
		r.add(CheckCompatibilityLevel, Warning, "cannot read MODULE.bazel of %s: %v", prev, err)
		return
	}
	if prevFile.CompatibilityLevel != mf.CompatibilityLevel {
		r.add(CheckCompatibilityLevel, Warning, "compatibility_level changed from %d (%s) to %d",
			prevFile.CompatibilityLevel, prev, mf.CompatibilityLevel)
	}
}

// checkBazelCompatibility warns about constructs that the oldest Bazel in
// the presubmit matrix does not understand.
func checkBazelCompatibility(r *Report, oldest string, mf *modulefile.File, src *registry.Source) {
	var used []string
	if mf != nil {
		for _, f := range compat.ForLocation(compat.LocationModule) {
			if mf.Uses(f.Name) {
				used = append(used, f.Name)
			}
		}
		for _, dep := range mf.Deps {
			if dep.MaxCompatibilityLevel > 0 {
				used = append(used, "max_compatibility_level")
				break
			}
		}
	}
	if src != nil && len(src.MirrorURLs) > 0 {
		used = append(used, "mirror_urls")
	}
	for _, name := range used {
		if w := compat.Check(oldest, name); w != nil {
			r.add(CheckBazelCompatibility, Warning, "%s", w)
		}
	}
}

// oldestBazel returns the floor of the oldest Bazel the presubmit config
// runs with, or "" when it only tracks the newest releases.
func oldestBazel(cfg *presubmit.Config) string {
	if cfg == nil {
		return ""
	}
	oldest := ""
	for _, entry := range cfg.BazelVersions() {
		floor := compat.Floor(entry)
		if floor != "" && (oldest == "" || label.CompareStrings(floor, oldest) < 0) {
			oldest = floor
		}
	}
	return oldest
}
