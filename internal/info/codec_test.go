package info

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/luadist/dist"
)

func TestParseDistInfo(t *testing.T) {
	src := `
-- generated by the repository tooling
name = "luasocket"
version = "2.0.2"
arch = "Universal"
type = "source"
desc = "Network support for the Lua language"
license = "MIT"
depends = {
  [[lua >= 5.1]],
  {
    Windows = {
      [[winapi-1.0]],
    },
  },
}
`
	d, err := ParseDistInfo([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if d.Name != "luasocket" || d.Version != "2.0.2" {
		t.Fatalf("unexpected identity: %s", d.NameVersion())
	}
	linux := dist.Platform{Arch: "Linux", Type: "x86"}
	windows := dist.Platform{Arch: "Windows", Type: "x86"}
	if got, want := d.DependsOn(linux), []string{"lua >= 5.1"}; !cmp.Equal(got, want) {
		t.Errorf("DependsOn(linux) = %v, want %v", got, want)
	}
	if got, want := d.DependsOn(windows), []string{"lua >= 5.1", "winapi-1.0"}; !cmp.Equal(got, want) {
		t.Errorf("DependsOn(windows) = %v, want %v", got, want)
	}
}

func TestParseDistInfoUnderscoreKey(t *testing.T) {
	src := "name = \"m\"\nversion = \"1\"\n_G['strange-key'] = \"ignored\"\n"
	if _, err := ParseDistInfo([]byte(src)); err != nil {
		t.Fatal(err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, src := range []string{
		`name = os.getenv("HOME")`, // function calls do not parse
		`name = "a" .. "b"`,
		`print("hi")`,
		`name = `,
		`depends = { [[x`,
	} {
		if _, err := ParseDistInfo([]byte(src)); err == nil {
			t.Errorf("ParseDistInfo(%q): expected error", src)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, d := range []*DistInfo{
		{
			Name:    "lua",
			Version: "5.1.4",
			Arch:    "Linux",
			Type:    "x86_64",
			Desc:    `The "Lua" language`,
			Files:   []string{"bin", "bin/lua", "lib/liblua.a"},
		},
		{
			Name:    "luasocket",
			Version: "2.0.2",
			Arch:    "Universal",
			Type:    "source",
			Depends: &Table{
				List: []Value{"lua >= 5.1"},
				Fields: []KV{
					{Key: "Windows", Val: &Table{List: []Value{"winapi-1.0"}}},
				},
			},
			Conflicts: &Table{List: []Value{"luasocket2"}},
			Provides:  &Table{List: []Value{"socket-2.0"}},
			Path:      "luasocket-2.0.2.dist",
		},
	} {
		t.Run(d.Name, func(t *testing.T) {
			got, err := ParseDistInfo(d.Serialize())
			if err != nil {
				t.Fatalf("reparsing %s: %v\n%s", d.Name, err, d.Serialize())
			}
			if diff := cmp.Diff(d, got); diff != "" {
				t.Errorf("round trip changed %s (-want +got):\n%s", d.Name, diff)
			}
		})
	}
}

func TestManifestRoundTrip(t *testing.T) {
	infos := []*DistInfo{
		{Name: "a", Version: "1.0", Arch: "Universal", Type: "source"},
		{Name: "b", Version: "2.0", Arch: "Linux", Type: "x86_64",
			Depends: &Table{List: []Value{"a >= 1.0"}}},
	}
	out := SerializeManifest(infos)
	if !strings.Contains(string(out), "}true") {
		t.Fatalf("manifest is missing the trailing sentinel:\n%s", out)
	}
	got, err := ParseManifest(out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(infos, got); diff != "" {
		t.Errorf("manifest round trip (-want +got):\n%s", diff)
	}
}

func TestParseManifestWithoutSentinel(t *testing.T) {
	src := `return { { name = [[a]], version = [[1.0]] } }`
	got, err := ParseManifest([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("unexpected manifest: %+v", got)
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name string
		d    DistInfo
		ok   bool
	}{
		{name: "minimal", d: DistInfo{Name: "a", Version: "1.0"}, ok: true},
		{name: "missing version", d: DistInfo{Name: "a"}, ok: false},
		{name: "uppercase name", d: DistInfo{Name: "Bad", Version: "1.0"}, ok: false},
		{name: "space in version", d: DistInfo{Name: "a", Version: "1 .0"}, ok: false},
		{name: "bad arch", d: DistInfo{Name: "a", Version: "1.0", Arch: "no arch"}, ok: false},
		{
			name: "bad constraint",
			d: DistInfo{Name: "a", Version: "1.0",
				Depends: &Table{List: []Value{">= 1.0"}}},
			ok: false,
		},
		{
			name: "nested constraints",
			d: DistInfo{Name: "a", Version: "1.0",
				Depends: &Table{Fields: []KV{
					{Key: "Linux", Val: &Table{Fields: []KV{
						{Key: "x86", Val: &Table{List: []Value{"b < 2"}}},
					}}},
				}}},
			ok: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.d
			d.ApplyDefaults()
			err := d.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate: expected error")
			}
		})
	}
}
