package registry

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FieldError represents a validation failure for a specific field.
type FieldError struct {
	Field   string // Field path (e.g., "maintainers[0].github")
	Message string
}

func (e *FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []*FieldError
}

func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&b, "\n  - %s", err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying errors for errors.Is/As compatibility.
func (e *ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Add appends a validation error.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &FieldError{Field: field, Message: message})
}

// AddError appends an existing FieldError.
func (e *ValidationErrors) AddError(err *FieldError) {
	e.Errors = append(e.Errors, err)
}

// HasErrors returns true if any errors were collected.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil if no errors, otherwise returns self.
func (e *ValidationErrors) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

var (
	githubUsernamePattern = regexp.MustCompile(`^[-a-zA-Z0-9]*$`)
	gitCommitPattern      = regexp.MustCompile(`^[a-f0-9]{40}$`)
	datePattern           = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	sriPattern            = regexp.MustCompile(`^(sha256|sha384|sha512)-[A-Za-z0-9+/]+=*$`)
	githubRepoPattern     = regexp.MustCompile(`^github:[-a-zA-Z0-9_.]+/[-a-zA-Z0-9_.]+$`)
)

// Validate checks that the Metadata conforms to BCR schema requirements.
// Returns nil if valid, or ValidationErrors containing all issues found.
func (m *Metadata) Validate() error {
	var errs ValidationErrors

	if m.Homepage == "" {
		errs.Add("homepage", "required field is missing")
	}

	if len(m.Maintainers) == 0 {
		errs.Add("maintainers", "required field is missing or empty")
	}
	for i := range m.Maintainers {
		if err := m.Maintainers[i].validate(fmt.Sprintf("maintainers[%d]", i)); err != nil {
			var ferr *FieldError
			if errors.As(err, &ferr) {
				errs.AddError(ferr)
			}
		}
	}

	for i, repo := range m.Repository {
		if strings.HasPrefix(repo, "github:") {
			if !githubRepoPattern.MatchString(repo) {
				errs.Add(fmt.Sprintf("repository[%d]", i), fmt.Sprintf("%q is not of the form github:owner/repo", repo))
			}
		} else if !strings.HasPrefix(repo, "https://") {
			errs.Add(fmt.Sprintf("repository[%d]", i), fmt.Sprintf("%q must be github:owner/repo or an https:// URL prefix", repo))
		}
	}

	if len(m.Versions) == 0 {
		errs.Add("versions", "required field is missing or empty")
	}

	yanked := make([]string, 0, len(m.YankedVersions))
	for version := range m.YankedVersions {
		yanked = append(yanked, version)
	}
	sort.Strings(yanked)
	for _, version := range yanked {
		if !m.HasVersion(version) {
			errs.Add(
				fmt.Sprintf("yanked_versions[%q]", version),
				"yanked version does not exist in versions list",
			)
		}
	}

	return errs.ToError()
}

func (m *Maintainer) validate(fieldPrefix string) error {
	if m.GitHub != "" && !githubUsernamePattern.MatchString(m.GitHub) {
		return &FieldError{
			Field:   fieldPrefix + ".github",
			Message: "must contain only alphanumeric characters and hyphens",
		}
	}
	if m.GitHub == "" && m.Email == "" && m.Name == "" {
		return &FieldError{
			Field:   fieldPrefix,
			Message: "maintainer should have at least one of: github, email, or name",
		}
	}
	return nil
}

// Validate checks that the Source conforms to BCR schema requirements.
// Returns nil if valid, or ValidationErrors containing all issues found.
func (s *Source) Validate() error {
	var errs ValidationErrors

	if s.IsGitRepository() {
		s.validateGitRepository(&errs)
	} else {
		s.validateArchive(&errs)
	}

	if s.PatchStrip < 0 {
		errs.Add("patch_strip", "must be non-negative")
	}

	return errs.ToError()
}

func (s *Source) validateArchive(errs *ValidationErrors) {
	if s.Type != "" && s.Type != "archive" {
		errs.Add("type", fmt.Sprintf("expected 'archive' or empty, got %q", s.Type))
	}

	if s.URL == "" {
		errs.Add("url", "required field is missing")
	}

	if s.Integrity == "" {
		errs.Add("integrity", "required field is missing")
	} else if !sriPattern.MatchString(s.Integrity) {
		errs.Add("integrity", "must be a valid SRI hash (e.g., 'sha256-...')")
	}

	names := make([]string, 0, len(s.Patches))
	for name := range s.Patches {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field := fmt.Sprintf("patches[%q]", name)
		if strings.ContainsAny(name, `/\`) {
			errs.Add(field, "patch name must not contain path separators")
		}
		if !sriPattern.MatchString(s.Patches[name]) {
			errs.Add(field, "must be a valid SRI hash (e.g., 'sha256-...')")
		}
	}

	if s.Remote != "" {
		errs.Add("remote", "should not be set for archive type")
	}
	if s.Commit != "" {
		errs.Add("commit", "should not be set for archive type")
	}
	if s.Tag != "" {
		errs.Add("tag", "should not be set for archive type")
	}
}

func (s *Source) validateGitRepository(errs *ValidationErrors) {
	if s.Remote == "" {
		errs.Add("remote", "required field is missing for git_repository")
	}

	if s.Commit == "" && s.Tag == "" {
		errs.Add("commit", "either 'commit' or 'tag' is required for git_repository")
	}
	if s.Commit != "" && !gitCommitPattern.MatchString(s.Commit) {
		errs.Add("commit", "must be a 40-character hex SHA")
	}
	if s.ShallowSince != "" && !datePattern.MatchString(s.ShallowSince) {
		errs.Add("shallow_since", "must be in YYYY-MM-DD format")
	}

	if s.URL != "" {
		errs.Add("url", "should not be set for git_repository type")
	}
	if s.Integrity != "" {
		errs.Add("integrity", "should not be set for git_repository type")
	}
	if len(s.Overlay) != 0 {
		errs.Add("overlay", "should not be set for git_repository type")
	}
}
