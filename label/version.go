package label

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Version is a validated Bazel module version.
//
// Bazel accepts more shapes than strict semver:
//
//	1, 29.0, 1.2.3           one to three numeric parts
//	8.2.1.1, 1.3.1.bcr.7     extra dotted suffix (BCR patch releases)
//	v1.2.3                   optional v prefix
//	0.0.0-20241220-5e258e33  free-form prerelease
//	1.2.3+build              build metadata, ignored for ordering
//	<40 hex chars>           commit SHA
type Version struct {
	raw        string
	release    [3]int
	suffix     string
	prerelease string
	build      string
}

var versionRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?((?:\.[a-zA-Z0-9]+)*)?(?:-([a-zA-Z0-9._-]+))?(?:\+([a-zA-Z0-9._-]+))?$`)

var commitSHARegex = regexp.MustCompile(`^[0-9a-f]{40}$`)

// NewVersion parses s. The empty string yields the zero Version.
func NewVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, nil
	}
	if commitSHARegex.MatchString(s) {
		return Version{raw: s}, nil
	}

	m := versionRegex.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q: must follow version format", s)
	}

	v := Version{raw: s, suffix: m[4], prerelease: m[5], build: m[6]}
	for i, part := range m[1:4] {
		if part != "" {
			v.release[i], _ = strconv.Atoi(part)
		}
	}
	return v, nil
}

// MustVersion is NewVersion for constants and tests.
func MustVersion(s string) Version {
	v, err := NewVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	return v.raw
}

// IsEmpty reports whether v is the zero value.
func (v Version) IsEmpty() bool {
	return v.raw == ""
}

func (v Version) Major() int { return v.release[0] }
func (v Version) Minor() int { return v.release[1] }
func (v Version) Patch() int { return v.release[2] }

// Suffix returns the dotted suffix after the patch number, e.g. ".bcr.7".
func (v Version) Suffix() string {
	return v.suffix
}

// Prerelease returns the part after '-', e.g. "rc1".
func (v Version) Prerelease() string {
	return v.prerelease
}

// Build returns the part after '+'.
func (v Version) Build() string {
	return v.build
}

// Compare returns -1, 0 or 1. Prereleases sort before the release they
// precede; build metadata is ignored.
func (v Version) Compare(other Version) int {
	for i := range v.release {
		if c := cmpInt(v.release[i], other.release[i]); c != 0 {
			return c
		}
	}

	if v.suffix != other.suffix {
		switch {
		case v.suffix == "":
			return -1
		case other.suffix == "":
			return 1
		}
		return compareIdentifiers(strings.TrimPrefix(v.suffix, "."), strings.TrimPrefix(other.suffix, "."))
	}

	switch {
	case v.prerelease == other.prerelease:
		return 0
	case v.prerelease == "":
		return 1
	case other.prerelease == "":
		return -1
	}
	return compareIdentifiers(v.prerelease, other.prerelease)
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// compareIdentifiers compares dot-separated identifier lists. Numeric
// identifiers compare numerically and sort before alphanumeric ones.
func compareIdentifiers(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range min(len(aParts), len(bParts)) {
		aNum, aErr := strconv.Atoi(aParts[i])
		bNum, bErr := strconv.Atoi(bParts[i])

		switch {
		case aErr == nil && bErr == nil:
			if c := cmpInt(aNum, bNum); c != 0 {
				return c
			}
		case aErr == nil:
			return -1
		case bErr == nil:
			return 1
		default:
			if c := strings.Compare(aParts[i], bParts[i]); c != 0 {
				return c
			}
		}
	}
	return cmpInt(len(aParts), len(bParts))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareStrings orders two raw version strings. Strings that do not parse
// sort after every valid version, lexically among themselves.
func CompareStrings(a, b string) int {
	va, errA := NewVersion(a)
	vb, errB := NewVersion(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	if c := va.Compare(vb); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortVersions sorts raw version strings in place, oldest first.
func SortVersions(versions []string) {
	slices.SortStableFunc(versions, CompareStrings)
}

// IsSorted reports whether versions is already in SortVersions order.
func IsSorted(versions []string) bool {
	return slices.IsSortedFunc(versions, CompareStrings)
}
