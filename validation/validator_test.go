package validation

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertocavalcante/bcr-tools/registry"
)

const archiveBody = "fake archive content"

type fixture struct {
	client  *registry.Client
	fetcher *registry.Fetcher
	baseURL string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, archiveBody)
	}))
	t.Cleanup(server.Close)

	fetcher := registry.NewFetcher(registry.WithHTTPClient(server.Client()))
	return &fixture{
		client:  registry.NewClient(t.TempDir(), registry.WithFetcher(fetcher)),
		fetcher: fetcher,
		baseURL: server.URL,
	}
}

func (f *fixture) add(t *testing.T, m *registry.Module) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.client.InitModule(ctx, m.Name,
		[]registry.Maintainer{{Name: "A", GitHub: "a"}}, "https://example.dev", f.baseURL+"/"))
	if m.URL == "" {
		m.URL = f.baseURL + "/" + m.Name + "-" + m.Version + ".tar.gz"
	}
	require.NoError(t, f.client.Add(ctx, m, false))
}

func (f *fixture) validator(opts ...ValidatorOption) *Validator {
	return NewValidator(f.client, append([]ValidatorOption{WithValidatorFetcher(f.fetcher)}, opts...)...)
}

func severities(results []Result) []Severity {
	out := make([]Severity, 0, len(results))
	for _, r := range results {
		out = append(out, r.Severity)
	}
	return out
}

func TestValidator_Check_Good(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "dep", Version: "1.0"})
	f.add(t, &registry.Module{
		Name:         "foo",
		Version:      "1.0",
		Deps:         []registry.Dep{{Name: "dep", Version: "1.0"}},
		BuildTargets: []string{"@foo//..."},
	})

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.False(t, report.Failed(), "%+v", report.Results)
	assert.Zero(t, report.Count(Warning), "%+v", report.Results)

	for _, check := range []string{CheckModuleFile, CheckMetadata, CheckSource, CheckSourceIntegrity, CheckPresubmit, CheckDeps} {
		assert.Equal(t, []Severity{Good}, severities(report.Find(check)), check)
	}
}

func TestValidator_Check_TestModuleWithoutTargets(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0", TestModulePath: "e2e"})

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.Equal(t, []Severity{Good}, severities(report.Find(CheckPresubmit)), "%+v", report.Results)
}

func TestValidator_Check_NotInRegistry(t *testing.T) {
	f := newFixture(t)
	report := f.validator().Check(context.Background(), "missing", "1.0")
	assert.True(t, report.Failed())
}

func TestValidator_Check_MissingDep(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{
		Name:    "foo",
		Version: "1.0",
		Deps:    []registry.Dep{{Name: "ghost", Version: "2.0"}},
	})

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.True(t, report.Failed())
	assert.Equal(t, []Severity{Failed}, severities(report.Find(CheckDeps)))
}

func TestValidator_Check_YankedDep(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "dep", Version: "1.0"})
	f.add(t, &registry.Module{
		Name:    "foo",
		Version: "1.0",
		Deps:    []registry.Dep{{Name: "dep", Version: "1.0"}},
	})

	metadata, err := f.client.GetMetadata("dep")
	require.NoError(t, err)
	metadata.YankedVersions = map[string]string{"1.0": "CVE"}
	require.NoError(t, f.client.WriteMetadata("dep", metadata))

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.False(t, report.Failed())
	assert.Contains(t, severities(report.Find(CheckDeps)), Warning)

	report = f.validator().Check(context.Background(), "dep", "1.0")
	assert.Equal(t, []Severity{Warning}, severities(report.Find(CheckYanked)))
}

func TestValidator_Check_IntegrityMismatch(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0"})

	src, err := f.client.GetSource("foo", "1.0")
	require.NoError(t, err)
	src.Integrity = registry.Integrity([]byte("something else"))
	require.NoError(t, f.client.WriteSource("foo", "1.0", src))

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.True(t, report.Failed())
	assert.Equal(t, []Severity{Failed}, severities(report.Find(CheckSourceIntegrity)))
}

func TestValidator_Check_URLOutsideAllowlist(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0"})

	metadata, err := f.client.GetMetadata("foo")
	require.NoError(t, err)
	metadata.Repository = []string{"github:acme/foo"}
	require.NoError(t, f.client.WriteMetadata("foo", metadata))

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.Equal(t, []Severity{Failed}, severities(report.Find(CheckSource)))
}

func TestValidator_Check_NoAllowlist(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0"})

	metadata, err := f.client.GetMetadata("foo")
	require.NoError(t, err)
	metadata.Repository = nil
	require.NoError(t, f.client.WriteMetadata("foo", metadata))

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.False(t, report.Failed())
	assert.Equal(t, []Severity{Warning}, severities(report.Find(CheckSource)))
}

func TestValidator_Check_MissingVersion(t *testing.T) {
	tests := []struct {
		name string
		fix  bool
		want Severity
	}{
		{name: "report", fix: false, want: Failed},
		{name: "fix", fix: true, want: Info},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.add(t, &registry.Module{Name: "foo", Version: "1.0"})
			f.add(t, &registry.Module{Name: "foo", Version: "2.0"})

			metadata, err := f.client.GetMetadata("foo")
			require.NoError(t, err)
			metadata.Versions = []string{"1.0"}
			require.NoError(t, f.client.WriteMetadata("foo", metadata))

			report := f.validator(WithFix(tt.fix)).Check(context.Background(), "foo", "2.0")
			assert.Equal(t, tt.want, report.Find(CheckMetadata)[0].Severity)

			metadata, err = f.client.GetMetadata("foo")
			require.NoError(t, err)
			assert.Equal(t, tt.fix, metadata.HasVersion("2.0"))
		})
	}
}

func TestValidator_Check_FixSortsVersions(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0"})
	f.add(t, &registry.Module{Name: "foo", Version: "1.10"})

	metadata, err := f.client.GetMetadata("foo")
	require.NoError(t, err)
	metadata.Versions = []string{"1.10", "1.0"}
	require.NoError(t, f.client.WriteMetadata("foo", metadata))

	report := f.validator(WithFix(true)).Check(context.Background(), "foo", "1.10")
	assert.False(t, report.Failed(), "%+v", report.Results)

	metadata, err = f.client.GetMetadata("foo")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0", "1.10"}, metadata.Versions)
}

func TestValidator_Check_PatchIntegrity(t *testing.T) {
	f := newFixture(t)
	patch := filepath.Join(t.TempDir(), "fix.patch")
	require.NoError(t, os.WriteFile(patch, []byte("--- a/x\n+++ b/x\n"), 0o644))
	f.add(t, &registry.Module{Name: "foo", Version: "1.0", Patches: []string{patch}, PatchStrip: 1})

	require.NoError(t, os.WriteFile(f.client.PatchPath("foo", "1.0", "fix.patch"), []byte("changed\n"), 0o644))

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.Equal(t, []Severity{Failed}, severities(report.Find(CheckPatches)))

	report = f.validator(WithFix(true)).Check(context.Background(), "foo", "1.0")
	assert.Equal(t, []Severity{Info}, severities(report.Find(CheckPatches)))

	src, err := f.client.GetSource("foo", "1.0")
	require.NoError(t, err)
	assert.Equal(t, registry.Integrity([]byte("changed\n")), src.Patches["fix.patch"])

	report = f.validator().Check(context.Background(), "foo", "1.0")
	assert.Equal(t, []Severity{Good}, severities(report.Find(CheckPatches)))
}

func TestValidator_Check_CompatibilityLevelChange(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0", CompatibilityLevel: 1})
	f.add(t, &registry.Module{Name: "foo", Version: "2.0", CompatibilityLevel: 2})

	report := f.validator().Check(context.Background(), "foo", "2.0")
	assert.False(t, report.Failed())
	assert.Equal(t, []Severity{Warning}, severities(report.Find(CheckCompatibilityLevel)))

	report = f.validator().Check(context.Background(), "foo", "1.0")
	assert.Empty(t, report.Find(CheckCompatibilityLevel))
}

func TestValidator_Check_ModuleFileMismatch(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "foo", Version: "1.0"})

	require.NoError(t, os.WriteFile(f.client.ModuleFilePath("foo", "1.0"),
		[]byte("module(name = \"bar\", version = \"1.0\")\n"), 0o644))

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.Equal(t, []Severity{Failed}, severities(report.Find(CheckModuleFile)))
}

func TestReport_Print(t *testing.T) {
	r := &Report{Module: "foo@1.0"}
	r.add(CheckDeps, Good, "%d dependencies found", 0)
	r.add(CheckYanked, Warning, "yanked")

	var buf bytes.Buffer
	r.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "foo@1.0:")
	assert.Contains(t, out, "GOOD")
	assert.Contains(t, out, "deps: 0 dependencies found")
	assert.Contains(t, out, "WARNING")
	assert.False(t, r.Failed())
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "FAILED", Failed.String())
	assert.Equal(t, "INFO", Info.String())
	assert.Equal(t, "Severity(9)", Severity(9).String())
}

func TestValidator_Check_BazelCompatibility(t *testing.T) {
	f := newFixture(t)
	moduleFile := filepath.Join(t.TempDir(), "MODULE.bazel")
	require.NoError(t, os.WriteFile(moduleFile, []byte(`module(name = "foo", version = "1.0")

include("//:deps.MODULE.bazel")
`), 0o644))
	f.add(t, &registry.Module{Name: "foo", Version: "1.0", ModuleDotBazel: moduleFile})

	src, err := f.client.GetSource("foo", "1.0")
	require.NoError(t, err)
	src.MirrorURLs = []string{f.baseURL + "/mirror/foo-1.0.tar.gz"}
	require.NoError(t, f.client.WriteSource("foo", "1.0", src))

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.False(t, report.Failed(), "%+v", report.Results)

	results := report.Find(CheckBazelCompatibility)
	require.Len(t, results, 2)
	assert.Equal(t, Warning, results[0].Severity)
	assert.Contains(t, results[0].Message, "include")
	assert.Contains(t, results[0].Message, "7.0.0")
	assert.Contains(t, results[1].Message, "mirror_urls")
}

func TestValidator_Check_DepBelowModuleTools(t *testing.T) {
	f := newFixture(t)
	f.add(t, &registry.Module{Name: "rules_cc", Version: "0.0.1"})
	f.add(t, &registry.Module{
		Name:    "foo",
		Version: "1.0",
		Deps:    []registry.Dep{{Name: "rules_cc", Version: "0.0.1"}},
	})

	report := f.validator().Check(context.Background(), "foo", "1.0")
	assert.False(t, report.Failed())

	results := report.Find(CheckDeps)
	assert.Equal(t, []Severity{Info, Good}, severities(results))
	assert.Contains(t, results[0].Message, "0.0.9")
	assert.Contains(t, results[0].Message, "Bazel 7.0.0")
}
