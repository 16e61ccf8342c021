package label

import (
	"slices"
	"testing"
)

func TestNewVersion(t *testing.T) {
	tests := []struct {
		input      string
		wantErr    bool
		wantMajor  int
		wantMinor  int
		wantPatch  int
		wantPrerel string
	}{
		{"1.0.0", false, 1, 0, 0, ""},
		{"0.50.1", false, 0, 50, 1, ""},
		{"2.3.4-rc1", false, 2, 3, 4, "rc1"},
		{"1.0", false, 1, 0, 0, ""},
		{"29", false, 29, 0, 0, ""},
		{"8.2.1.1", false, 8, 2, 1, ""},
		{"1.3.1.bcr.7", false, 1, 3, 1, ""},
		{"v0.7.0-alpha2", false, 0, 7, 0, "alpha2"},
		{"0.0.0-20241220-5e258e33", false, 0, 0, 0, "20241220-5e258e33"},
		{"", false, 0, 0, 0, ""},
		{"abc", true, 0, 0, 0, ""},
		{"1.0.0 ", true, 0, 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := NewVersion(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewVersion(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewVersion(%q) error: %v", tt.input, err)
			}
			if v.Major() != tt.wantMajor || v.Minor() != tt.wantMinor || v.Patch() != tt.wantPatch {
				t.Errorf("NewVersion(%q) = %d.%d.%d, want %d.%d.%d", tt.input,
					v.Major(), v.Minor(), v.Patch(), tt.wantMajor, tt.wantMinor, tt.wantPatch)
			}
			if v.Prerelease() != tt.wantPrerel {
				t.Errorf("NewVersion(%q).Prerelease() = %q, want %q", tt.input, v.Prerelease(), tt.wantPrerel)
			}
		})
	}
}

func TestVersion_CommitSHA(t *testing.T) {
	sha := "0123456789abcdef0123456789abcdef01234567"
	v, err := NewVersion(sha)
	if err != nil {
		t.Fatalf("NewVersion(sha) error: %v", err)
	}
	if v.String() != sha {
		t.Errorf("String() = %q, want %q", v.String(), sha)
	}
}

func TestVersion_Compare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.10.0", "1.9.0", 1},
		{"1.0.0-rc1", "1.0.0", -1},
		{"1.0.0-rc1", "1.0.0-rc2", -1},
		{"1.0.0-alpha.2", "1.0.0-alpha.10", -1},
		{"1.3.1", "1.3.1.bcr.1", -1},
		{"1.3.1.bcr.2", "1.3.1.bcr.10", -1},
		{"1.0.0+a", "1.0.0+b", 0},
	}

	for _, tt := range tests {
		got := MustVersion(tt.a).Compare(MustVersion(tt.b))
		if got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSortVersions(t *testing.T) {
	versions := []string{"1.10.0", "not a version", "1.2.0", "1.2.0-rc1", "0.9", "1.2.0.bcr.1"}
	SortVersions(versions)

	want := []string{"0.9", "1.2.0-rc1", "1.2.0", "1.2.0.bcr.1", "1.10.0", "not a version"}
	if !slices.Equal(versions, want) {
		t.Errorf("SortVersions() = %v, want %v", versions, want)
	}
	if !IsSorted(versions) {
		t.Error("IsSorted() = false after SortVersions")
	}
	if IsSorted([]string{"2.0", "1.0"}) {
		t.Error("IsSorted([2.0 1.0]) = true")
	}
}
