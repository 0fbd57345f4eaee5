package dist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseNameConstraint(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want NameConstraint
	}{
		{
			in:   "lua",
			want: NameConstraint{Name: "lua"},
		},
		{
			in: "name>=1.2<2",
			want: NameConstraint{Name: "name", Constraints: []VersionConstraint{
				{Op: ">=", Version: "1.2"},
				{Op: "<", Version: "2"},
			}},
		},
		{
			in: "lua >= 5.1 < 5.2",
			want: NameConstraint{Name: "lua", Constraints: []VersionConstraint{
				{Op: ">=", Version: "5.1"},
				{Op: "<", Version: "5.2"},
			}},
		},
		{
			in: "luafilesystem-1.6.2",
			want: NameConstraint{Name: "luafilesystem", Constraints: []VersionConstraint{
				{Op: "=", Version: "1.6.2"},
			}},
		},
		{
			in:   "md5-dash", // dash not followed by a digit stays in the name
			want: NameConstraint{Name: "md5-dash"},
		},
		{
			in: "zlib ~= 1.2.8",
			want: NameConstraint{Name: "zlib", Constraints: []VersionConstraint{
				{Op: "~=", Version: "1.2.8"},
			}},
		},
	} {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNameConstraint(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseNameConstraint(%q): unexpected result (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestParseNameConstraintErrors(t *testing.T) {
	for _, in := range []string{
		"",
		">= 1.0",
		"name ===1",
		"name >",
	} {
		if _, err := ParseNameConstraint(in); err == nil {
			t.Errorf("ParseNameConstraint(%q): expected error", in)
		}
	}
}

func TestConstraintSatisfies(t *testing.T) {
	for _, tt := range []struct {
		constraint string
		version    string
		want       bool
	}{
		{constraint: "name>=1.2<2", version: "1.5", want: true},
		{constraint: "name>=1.2<2", version: "2.0", want: false},
		{constraint: "name>=1.2<2", version: "1.2", want: true},
		{constraint: "name<2>=1.2", version: "1.5", want: true}, // order irrelevant
		{constraint: "lua = 5.1", version: "5.1", want: true},
		{constraint: "lua = 5.1", version: "5.1.4", want: false},
		{constraint: "lua ~= 5.0", version: "5.1", want: true},
		{constraint: "lua != 5.1", version: "5.1", want: false},
		{constraint: "lua", version: "anything", want: true},
	} {
		nc, err := ParseNameConstraint(tt.constraint)
		if err != nil {
			t.Fatalf("ParseNameConstraint(%q): %v", tt.constraint, err)
		}
		if got := nc.Satisfies(tt.version); got != tt.want {
			t.Errorf("%q.Satisfies(%q) = %v, want %v", tt.constraint, tt.version, got, tt.want)
		}
	}
}

func TestSplitNameVersion(t *testing.T) {
	for _, tt := range []struct {
		in            string
		name, version string
		ok            bool
	}{
		{in: "lua-5.1.4", name: "lua", version: "5.1.4", ok: true},
		{in: "luasocket-2.0.2", name: "luasocket", version: "2.0.2", ok: true},
		{in: "md5", name: "md5", ok: false},
		{in: "wxlua-2.8.12.3-1", name: "wxlua", version: "2.8.12.3-1", ok: true},
	} {
		name, version, ok := SplitNameVersion(tt.in)
		if name != tt.name || version != tt.version || ok != tt.ok {
			t.Errorf("SplitNameVersion(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, name, version, ok, tt.name, tt.version, tt.ok)
		}
	}
}
