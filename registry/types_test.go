package registry

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestMetadata_IsYanked(t *testing.T) {
	m := &Metadata{
		YankedVersions: map[string]string{
			"1.0.0": "security vulnerability",
		},
	}

	if !m.IsYanked("1.0.0") {
		t.Error("IsYanked(1.0.0) = false, want true")
	}
	if m.IsYanked("2.0.0") {
		t.Error("IsYanked(2.0.0) = true, want false")
	}
	if got := m.YankReason("1.0.0"); got != "security vulnerability" {
		t.Errorf("YankReason(1.0.0) = %q", got)
	}
}

func TestMetadata_AddVersion(t *testing.T) {
	m := &Metadata{Versions: []string{"1.0.0", "1.10.0"}}

	if !m.AddVersion("1.2.0") {
		t.Error("AddVersion(1.2.0) = false for a new version")
	}
	if m.AddVersion("1.2.0") {
		t.Error("AddVersion(1.2.0) = true for an existing version")
	}

	want := []string{"1.0.0", "1.2.0", "1.10.0"}
	if !slices.Equal(m.Versions, want) {
		t.Errorf("Versions = %v, want %v", m.Versions, want)
	}
}

func TestMetadata_PreviousVersion(t *testing.T) {
	m := &Metadata{Versions: []string{"0.9", "1.0.0", "1.2.0", "2.0.0"}}

	tests := []struct {
		version string
		want    string
	}{
		{"1.2.0", "1.0.0"},
		{"1.5.0", "1.2.0"},
		{"0.9", ""},
		{"3.0", "2.0.0"},
	}
	for _, tt := range tests {
		if got := m.PreviousVersion(tt.version); got != tt.want {
			t.Errorf("PreviousVersion(%q) = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestMetadata_AddRepository(t *testing.T) {
	m := &Metadata{}
	m.AddRepository("")
	m.AddRepository("github:acme/foo")
	m.AddRepository("github:acme/foo")

	if !slices.Equal(m.Repository, []string{"github:acme/foo"}) {
		t.Errorf("Repository = %v", m.Repository)
	}
}

func TestMetadata_JSONShape(t *testing.T) {
	data, err := marshalIndent(&Metadata{
		Homepage:       "https://foo.dev",
		Maintainers:    []Maintainer{{Name: "A"}},
		Versions:       []string{},
		YankedVersions: map[string]string{},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"homepage", "maintainers", "versions", "yanked_versions"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("key %q missing from %s", key, data)
		}
	}
	if _, ok := raw["repository"]; ok {
		t.Errorf("empty repository should be omitted: %s", data)
	}
	if data[len(data)-1] != '\n' {
		t.Error("output should end with a newline")
	}
}

func TestDep_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    Dep
		wantErr bool
	}{
		{"pair", `["rules_cc", "0.0.9"]`, Dep{Name: "rules_cc", Version: "0.0.9"}, false},
		{"object", `{"name": "protobuf", "version": "29.0", "repo_name": "com_google_protobuf"}`,
			Dep{Name: "protobuf", Version: "29.0", RepoName: "com_google_protobuf"}, false},
		{"dev object", `{"name": "x", "version": "1", "dev_dependency": true}`,
			Dep{Name: "x", Version: "1", DevDependency: true}, false},
		{"short pair", `["rules_cc"]`, Dep{}, true},
		{"unknown key", `{"name": "x", "version": "1", "extra": 1}`, Dep{}, true},
		{"number", `1`, Dep{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Dep
			err := json.Unmarshal([]byte(tt.json), &d)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", d)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d != tt.want {
				t.Errorf("got %+v, want %+v", d, tt.want)
			}
		})
	}
}

func TestModule_Validate(t *testing.T) {
	valid := Module{Name: "foo", Version: "1.0", URL: "https://example.com/foo.tar.gz"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v for a valid module", err)
	}

	tests := []struct {
		name   string
		mutate func(*Module)
		field  string
	}{
		{"bad name", func(m *Module) { m.Name = "Foo" }, "name"},
		{"missing version", func(m *Module) { m.Version = "" }, "version"},
		{"bad version", func(m *Module) { m.Version = "one" }, "version"},
		{"missing url", func(m *Module) { m.URL = "" }, "url"},
		{"negative patch strip", func(m *Module) { m.PatchStrip = -1 }, "patch_strip"},
		{"bad dep", func(m *Module) { m.Deps = []Dep{{Name: "x", Version: "?"}} }, "deps[0].version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			err := m.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			verrs, ok := err.(*ValidationErrors)
			if !ok {
				t.Fatalf("expected *ValidationErrors, got %T", err)
			}
			if verrs.Errors[0].Field != tt.field {
				t.Errorf("field = %q, want %q", verrs.Errors[0].Field, tt.field)
			}
		})
	}
}
