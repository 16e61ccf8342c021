// Package compat records which Bazel release introduced the MODULE.bazel and
// source.json constructs a registry entry may use, so the validation pass can
// warn when a presubmit matrix targets an older Bazel.
package compat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/albertocavalcante/bcr-tools/label"
)

// Location is the registry file a feature appears in.
type Location string

const (
	LocationModule Location = "MODULE.bazel"
	LocationSource Location = "source.json"
)

// Feature is a construct with a minimum Bazel version.
type Feature struct {
	// Name is the function, keyword or field name, e.g. "use_repo_rule".
	Name       string
	MinVersion string
	Location   Location
}

// features lists every construct with a minimum Bazel release.
//
// mirror_urls: https://github.com/bazelbuild/bazel/issues/17829
// include: https://bazel.build/versions/7.2.0/external/module#include
// override_repo/inject_repo: https://bazel.build/versions/8.0.0/external/module
var features = []Feature{
	{Name: "mirror_urls", MinVersion: "7.7.0", Location: LocationSource},
	{Name: "max_compatibility_level", MinVersion: "7.0.0", Location: LocationModule},
	{Name: "include", MinVersion: "7.2.0", Location: LocationModule},
	{Name: "use_repo_rule", MinVersion: "7.0.0", Location: LocationModule},
	{Name: "override_repo", MinVersion: "8.0.0", Location: LocationModule},
	{Name: "inject_repo", MinVersion: "8.0.0", Location: LocationModule},
}

// Lookup returns the feature called name.
func Lookup(name string) (Feature, bool) {
	for _, f := range features {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// ForLocation returns the features found in one registry file.
func ForLocation(loc Location) []Feature {
	var out []Feature
	for _, f := range features {
		if f.Location == loc {
			out = append(out, f)
		}
	}
	return out
}

// Warning describes a feature used with a Bazel version that predates it.
type Warning struct {
	Feature      Feature
	BazelVersion string
}

func (w *Warning) String() string {
	return fmt.Sprintf("%s in %s requires Bazel %s+, but presubmit targets %s",
		w.Feature.Name, w.Feature.Location, w.Feature.MinVersion, w.BazelVersion)
}

// Check returns a warning when name is a known feature that bazelVersion
// does not support. An empty version and unknown names never warn.
func Check(bazelVersion, name string) *Warning {
	if bazelVersion == "" {
		return nil
	}
	f, ok := Lookup(name)
	if !ok {
		return nil
	}
	if label.CompareStrings(bazelVersion, f.MinVersion) < 0 {
		return &Warning{Feature: f, BazelVersion: bazelVersion}
	}
	return nil
}

var matrixVersion = regexp.MustCompile(`^(\d+)(?:\.(\d+|x))?(?:\.(\d+|x))?$`)

// Floor returns the oldest release a presubmit bazel entry can select:
// "7.x" is 7.0.0 and "6.4.0" is itself. Entries such as "last_green" or
// "rolling" track the newest release and yield "".
func Floor(entry string) string {
	m := matrixVersion.FindStringSubmatch(strings.TrimSpace(entry))
	if m == nil {
		return ""
	}
	parts := []string{m[1], "0", "0"}
	for i, p := range m[2:] {
		if p == "" || p == "x" {
			break
		}
		parts[i+1] = p
	}
	return strings.Join(parts, ".")
}
