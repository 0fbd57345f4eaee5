package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/luadist/dist/internal/config"
	"github.com/luadist/dist/internal/info"
	"github.com/luadist/dist/internal/repo"
	"github.com/luadist/dist/internal/sysfs"
)

func testCtx(t *testing.T) *Ctx {
	t.Helper()
	cfg := config.Default()
	cfg.Arch = "Linux"
	cfg.Type = "x86_64"
	cfg.Root = t.TempDir()
	cfg.TempDir = t.TempDir()
	cfg.CacheTTL = 0
	cfg.Repos = nil
	return New(cfg)
}

// writePackage lays out an unpacked binary package with a few payload files.
func writePackage(t *testing.T, dir string, d *info.DistInfo, payload map[string]string) string {
	t.Helper()
	for name, content := range payload {
		fn := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(fn, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, repo.InfoFile), d.Serialize(), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func binaryInfo(name, version string) *info.DistInfo {
	return &info.DistInfo{Name: name, Version: version, Arch: "Linux", Type: "x86_64"}
}

func snapshot(t *testing.T, root string) []string {
	t.Helper()
	paths, err := sysfs.ListRecursive(root)
	if err != nil {
		t.Fatal(err)
	}
	return paths
}

func TestDeployRemoveRoundTrip(t *testing.T) {
	for _, link := range []bool{false, true} {
		name := "copy"
		if link {
			name = "link"
		}
		t.Run(name, func(t *testing.T) {
			c := testCtx(t)
			c.Cfg.Link = link
			if err := sysfs.MkDir(c.Cfg.DistsDir()); err != nil {
				t.Fatal(err)
			}
			before := snapshot(t, c.Cfg.Root)

			pkg := writePackage(t, filepath.Join(t.TempDir(), "md5-1.1"), binaryInfo("md5", "1.1"), map[string]string{
				"bin/md5sum":    "#!/bin/sh\n",
				"lib/md5.so":    "elf",
				"share/doc/md5": "docs",
			})
			if err := c.Deploy(context.Background(), pkg, nil); err != nil {
				t.Fatal(err)
			}

			distDir := filepath.Join(c.Cfg.DistsDir(), "md5-1.1")
			if !sysfs.IsFile(filepath.Join(distDir, repo.InfoFile)) {
				t.Fatal("per-dist dist.info missing")
			}
			if link {
				fi, err := os.Lstat(filepath.Join(c.Cfg.Root, "bin"))
				if err != nil {
					t.Fatal(err)
				}
				if fi.Mode()&os.ModeSymlink == 0 {
					t.Error("link mode did not create a symlink for bin")
				}
			} else {
				if !sysfs.IsFile(filepath.Join(c.Cfg.Root, "bin", "md5sum")) {
					t.Error("copy mode did not place bin/md5sum")
				}
			}

			installed, err := c.installed()
			if err != nil {
				t.Fatal(err)
			}
			if len(installed) != 1 || installed[0].NameVersion() != "md5-1.1" {
				t.Fatalf("installed = %v", installed)
			}
			if len(installed[0].Files) == 0 {
				t.Fatal("installed dist has no file record")
			}

			if err := c.Remove([]string{"md5"}); err != nil {
				t.Fatal(err)
			}
			after := snapshot(t, c.Cfg.Root)
			if diff := cmp.Diff(before, after); diff != "" {
				t.Errorf("deployment differs from pre-install snapshot (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeployRejectsForeignPlatform(t *testing.T) {
	c := testCtx(t)
	pkg := writePackage(t, filepath.Join(t.TempDir(), "x-1.0"),
		&info.DistInfo{Name: "x", Version: "1.0", Arch: "Windows", Type: "x86"}, nil)
	if err := c.Deploy(context.Background(), pkg, nil); err == nil {
		t.Fatal("expected platform rejection")
	}
}

func TestDeployTwiceFails(t *testing.T) {
	c := testCtx(t)
	pkg := writePackage(t, filepath.Join(t.TempDir(), "md5-1.1"), binaryInfo("md5", "1.1"),
		map[string]string{"bin/md5sum": "x"})
	if err := c.Deploy(context.Background(), pkg, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Deploy(context.Background(), pkg, nil); err == nil {
		t.Fatal("expected second deploy to fail")
	}
}

func TestInstallFromLocalRepository(t *testing.T) {
	c := testCtx(t)
	repoDir := t.TempDir()
	writePackage(t, filepath.Join(repoDir, "c-1.0"), binaryInfo("c", "1.0"),
		map[string]string{"lib/c.so": "c"})
	b := binaryInfo("b", "1.0")
	b.Depends = &info.Table{List: []info.Value{"c"}}
	writePackage(t, filepath.Join(repoDir, "b-1.0"), b,
		map[string]string{"lib/b.so": "b"})
	a := binaryInfo("a", "1.0")
	a.Depends = &info.Table{List: []info.Value{"b"}}
	writePackage(t, filepath.Join(repoDir, "a-1.0"), a,
		map[string]string{"bin/a": "a"})

	c.Cfg.Repos = []string{repoDir}
	if err := c.Install(context.Background(), []string{"a"}, nil, nil); err != nil {
		t.Fatal(err)
	}
	for _, nv := range []string{"a-1.0", "b-1.0", "c-1.0"} {
		if !sysfs.IsDir(filepath.Join(c.Cfg.DistsDir(), nv)) {
			t.Errorf("%s was not installed", nv)
		}
	}

	// a second install is a no-op thanks to the deployed prefix
	if err := c.Install(context.Background(), []string{"a"}, nil, nil); err != nil {
		t.Fatalf("re-install: %v", err)
	}
}

func TestInstallFromArchive(t *testing.T) {
	c := testCtx(t)
	repoDir := t.TempDir()
	src := writePackage(t, filepath.Join(t.TempDir(), "md5-1.1"), binaryInfo("md5", "1.1"),
		map[string]string{"bin/md5sum": "x"})
	if err := sysfs.ZipCreate(filepath.Join(repoDir, "md5-1.1-Linux-x86_64.dist"), src, nil); err != nil {
		t.Fatal(err)
	}
	c.Cfg.Repos = []string{repoDir}
	if err := c.Install(context.Background(), []string{"md5"}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if !sysfs.IsFile(filepath.Join(c.Cfg.Root, "bin", "md5sum")) {
		t.Fatal("archive payload was not deployed")
	}
}

func TestHostProvidesSatisfiesDependency(t *testing.T) {
	c := testCtx(t)
	c.Cfg.HostProvides = []string{"lua-5.1"}
	repoDir := t.TempDir()
	app := binaryInfo("app", "1.0")
	app.Depends = &info.Table{List: []info.Value{"lua >= 5.1"}}
	writePackage(t, filepath.Join(repoDir, "app-1.0"), app,
		map[string]string{"bin/app": "x"})
	c.Cfg.Repos = []string{repoDir}
	if err := c.Install(context.Background(), []string{"app"}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if sysfs.Exists(filepath.Join(c.Cfg.DistsDir(), "lua-5.1")) {
		t.Fatal("host-provided lua must never be installed")
	}
}

func TestPackRoundTrip(t *testing.T) {
	c := testCtx(t)
	pkg := writePackage(t, filepath.Join(t.TempDir(), "md5-1.1"), binaryInfo("md5", "1.1"),
		map[string]string{"bin/md5sum": "x", ".git/config": "noise"})
	if err := c.Deploy(context.Background(), pkg, nil); err != nil {
		t.Fatal(err)
	}
	dest := t.TempDir()
	archives, err := c.PackAll([]string{"md5-1.1"}, dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) != 1 || filepath.Base(archives[0]) != "md5-1.1-Linux-x86_64.dist" {
		t.Fatalf("archives = %v", archives)
	}

	b, ok, err := sysfs.ZipDistInfo(archives[0])
	if err != nil || !ok {
		t.Fatalf("packed archive has no dist.info (%v)", err)
	}
	d, err := info.ParseDistInfo(b)
	if err != nil {
		t.Fatal(err)
	}
	if d.Path != "" || len(d.Files) != 0 {
		t.Errorf("packed metadata kept deployment-local fields: path=%q files=%v", d.Path, d.Files)
	}

	// the packed archive must install again elsewhere
	c2 := testCtx(t)
	c2.Cfg.Repos = []string{dest}
	if err := c2.Install(context.Background(), []string{"md5"}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if sysfs.Exists(filepath.Join(c2.Cfg.Root, ".git")) {
		t.Error("scratch files leaked into the packed archive")
	}
}

func TestDeployedSynthesizesProvides(t *testing.T) {
	c := testCtx(t)
	bundle := binaryInfo("bundle", "1.0")
	bundle.Provides = &info.Table{List: []info.Value{"widget-1.0"}}
	pkg := writePackage(t, filepath.Join(t.TempDir(), "bundle-1.0"), bundle,
		map[string]string{"bin/bundle": "x"})
	if err := c.Deploy(context.Background(), pkg, nil); err != nil {
		t.Fatal(err)
	}
	deployed, err := c.Deployed()
	if err != nil {
		t.Fatal(err)
	}
	var widget *info.DistInfo
	for _, d := range deployed {
		if d.Name == "widget" {
			widget = d
		}
	}
	if widget == nil {
		t.Fatal("no synthetic record for widget")
	}
	if widget.Provided == nil || widget.Provided.Name != "bundle" {
		t.Errorf("widget.Provided = %+v, want back-reference to bundle", widget.Provided)
	}
}
