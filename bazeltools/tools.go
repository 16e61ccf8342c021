// Package bazeltools knows the modules that Bazel itself depends on through
// its built-in MODULE.tools file. Version selection never picks a version of
// these modules below the one MODULE.tools requests, so a lower bazel_dep in
// a registry entry has no effect on builds with that Bazel.
package bazeltools

import (
	"slices"

	"github.com/albertocavalcante/bcr-tools/label"
)

// moduleTools maps a Bazel release to the module versions in its MODULE.tools.
var moduleTools = map[string]map[string]string{
	"7.0.0": {
		"apple_support": "1.5.0",
		"platforms":     "0.0.7",
		"protobuf":      "3.19.6",
		"rules_cc":      "0.0.9",
		"rules_java":    "7.1.0",
		"rules_license": "0.0.3",
		"rules_proto":   "4.0.0",
		"rules_python":  "0.4.0",
		"zlib":          "1.3",
	},
	"7.1.0": {
		"apple_support": "1.11.1",
		"platforms":     "0.0.8",
		"protobuf":      "21.7",
		"rules_cc":      "0.0.9",
		"rules_java":    "7.4.0",
		"rules_license": "0.0.7",
		"rules_proto":   "5.3.0-21.7",
		"rules_python":  "0.31.0",
		"zlib":          "1.3.1",
	},
	"7.2.0": {
		"apple_support": "1.15.1",
		"platforms":     "0.0.9",
		"protobuf":      "27.0",
		"rules_cc":      "0.0.9",
		"rules_java":    "7.6.1",
		"rules_license": "0.0.7",
		"rules_proto":   "6.0.0",
		"rules_python":  "0.32.2",
		"zlib":          "1.3.1.bcr.1",
	},
	"8.0.0": {
		"bazel_features": "1.21.0",
		"buildozer":      "7.1.2",
		"platforms":      "0.0.10",
		"protobuf":       "29.0",
		"rules_cc":       "0.0.16",
		"rules_java":     "8.6.1",
		"rules_license":  "1.0.0",
		"rules_proto":    "7.0.2",
		"rules_python":   "0.40.0",
		"rules_shell":    "0.2.0",
		"zlib":           "1.3.1.bcr.3",
	},
	"9.0.0": {
		"abseil-cpp":     "20250814.1",
		"apple_support":  "1.24.2",
		"bazel_features": "1.30.0",
		"buildozer":      "8.2.1",
		"platforms":      "1.0.0",
		"protobuf":       "33.4",
		"rules_apple":    "4.1.0",
		"rules_cc":       "0.2.14",
		"rules_java":     "9.0.3",
		"rules_license":  "1.0.0",
		"rules_python":   "1.7.0",
		"rules_shell":    "0.6.1",
		"rules_swift":    "3.1.2",
		"zlib":           "1.3.1.bcr.5",
	},
}

// Releases returns the Bazel releases with known MODULE.tools content,
// oldest first.
func Releases() []string {
	out := make([]string, 0, len(moduleTools))
	for v := range moduleTools {
		out = append(out, v)
	}
	label.SortVersions(out)
	return out
}

// Closest returns the newest known release that is not newer than
// bazelVersion, e.g. 7.1.0 for 7.1.2. It returns "" when bazelVersion
// predates every known release or does not parse.
func Closest(bazelVersion string) string {
	if _, err := label.NewVersion(bazelVersion); err != nil || bazelVersion == "" {
		return ""
	}
	releases := Releases()
	for _, release := range slices.Backward(releases) {
		if label.CompareStrings(release, bazelVersion) <= 0 {
			return release
		}
	}
	return ""
}

// Version returns the version of module that MODULE.tools of bazelVersion
// (or the closest older known release) requests.
func Version(bazelVersion, module string) (string, bool) {
	release := Closest(bazelVersion)
	if release == "" {
		return "", false
	}
	v, ok := moduleTools[release][module]
	return v, ok
}
