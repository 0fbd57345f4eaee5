// Package install materializes resolved dists into a deployment and houses
// the public operations composing the pipeline, the resolver and the package
// ops: Install, Remove, Pack and Deployed.
package install

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/luadist/dist"
	"github.com/luadist/dist/internal/build"
	"github.com/luadist/dist/internal/config"
	"github.com/luadist/dist/internal/fetch"
	"github.com/luadist/dist/internal/info"
	"github.com/luadist/dist/internal/repo"
	"github.com/luadist/dist/internal/sysfs"
)

// Ctx is an install context, containing configuration and state.
type Ctx struct {
	Cfg   *config.Config
	Fetch *fetch.Fetcher
}

// New returns a Ctx ready to operate on cfg's deployment.
func New(cfg *config.Config) *Ctx {
	return &Ctx{Cfg: cfg, Fetch: fetch.New(cfg)}
}

func (c *Ctx) distDir(d *info.DistInfo) string {
	return filepath.Join(c.Cfg.DistsDir(), d.NameVersion())
}

// Unpack normalizes a dist's path to a local extracted directory: local
// directories pass through, archives are extracted, remote paths are fetched
// first. The returned directory is the package root (the one carrying
// dist.info).
func (c *Ctx) Unpack(ctx context.Context, d *info.DistInfo) (string, error) {
	path := d.Path
	if path == "" {
		return "", xerrors.Errorf("%s has no origin path", d.NameVersion())
	}
	if local, ok := fetch.LocalPath(path); ok && sysfs.IsDir(local) {
		return local, nil
	}
	scratch, err := sysfs.TempDir(c.Cfg.TempDir, "unpack-")
	if err != nil {
		return "", err
	}
	if !c.Cfg.Debug {
		dist.RegisterAtExit(func() error { return sysfs.Delete(scratch) })
	}
	archive, err := c.Fetch.Download(ctx, path, scratch)
	if err != nil {
		return "", xerrors.Errorf("fetching %s: %w", d.NameVersion(), err)
	}
	if !sysfs.HasArchiveSuffix(archive) {
		return "", xerrors.Errorf("%s: %s is neither a directory nor an archive", d.NameVersion(), path)
	}
	if err := sysfs.ZipExtract(archive, scratch); err != nil {
		return "", err
	}
	// the archive carries a single top-level directory with dist.info
	entries, err := sysfs.TopLevel(scratch)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		pkg := filepath.Join(scratch, e)
		if sysfs.IsFile(filepath.Join(pkg, repo.InfoFile)) {
			return pkg, nil
		}
	}
	return "", xerrors.Errorf("%s: archive %s carries no dist.info", d.NameVersion(), archive)
}

// Deploy takes the package at pkgDir through validation, an optional source
// build, and installation into the deployment.
func (c *Ctx) Deploy(ctx context.Context, pkgDir string, variables map[string]string) error {
	b, err := os.ReadFile(filepath.Join(pkgDir, repo.InfoFile))
	if err != nil {
		return err
	}
	d, err := info.ParseDistInfo(b)
	if err != nil {
		return xerrors.Errorf("%s: %w", pkgDir, err)
	}
	// A source tree carrying build instructions but no declared type is a
	// source dist.
	if d.Type == "" && sysfs.IsFile(filepath.Join(pkgDir, "CMakeLists.txt")) {
		d.Arch = dist.ArchUniversal
		d.Type = dist.TypeSource
	}
	d.ApplyDefaults()
	if err := d.Validate(); err != nil {
		return err
	}
	plat := c.Cfg.Platform()
	if d.Arch != dist.ArchUniversal && d.Arch != plat.Arch {
		return xerrors.Errorf("%s is for arch %s, host is %s", d.NameVersion(), d.Arch, plat.Arch)
	}
	if d.Type != dist.TypeSource && d.Type != dist.TypeAll && d.Type != plat.Type {
		return xerrors.Errorf("%s is of type %s, host wants %s", d.NameVersion(), d.Type, plat.Type)
	}

	if d.Type == dist.TypeSource {
		return c.buildAndInstall(ctx, d, pkgDir, variables)
	}
	return c.installPkg(d, pkgDir)
}

// buildAndInstall compiles a source package through the external driver,
// stamps the result with the host platform and installs the emitted prefix.
func (c *Ctx) buildAndInstall(ctx context.Context, d *info.DistInfo, pkgDir string, variables map[string]string) error {
	log.Printf("building %s from %s", d.NameVersion(), pkgDir)
	bctx := &build.Ctx{Cfg: c.Cfg}
	prefix, err := bctx.Build(ctx, pkgDir, variables)
	if err != nil {
		return xerrors.Errorf("building %s: %w", d.NameVersion(), err)
	}
	if !c.Cfg.Debug {
		defer sysfs.Delete(prefix)
	}
	plat := c.Cfg.Platform()
	d.Arch = plat.Arch
	d.Type = plat.Type
	if err := writeInfo(filepath.Join(prefix, repo.InfoFile), d); err != nil {
		return err
	}
	return c.installPkg(d, prefix)
}

// installPkg copies a built or binary package into the deployment. In link
// mode every top-level entry is copied into the per-dist directory and the
// deployment root receives a relative symlink; in copy mode the root
// receives copies and the per-dist directory the duplicates enabling later
// repackaging. The paths created under the root are recorded, in order, as
// the dist's files.
func (c *Ctx) installPkg(d *info.DistInfo, pkgDir string) error {
	if sysfs.Exists(c.distDir(d)) {
		return xerrors.Errorf("%s is already installed", d.NameVersion())
	}
	distDir := c.distDir(d)
	if err := sysfs.MkDir(distDir); err != nil {
		return err
	}
	entries, err := sysfs.TopLevel(pkgDir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if e == repo.InfoFile {
			continue
		}
		src := filepath.Join(pkgDir, e)
		kept := filepath.Join(distDir, e)
		if err := sysfs.Copy(src, kept); err != nil {
			return xerrors.Errorf("installing %s: %w", d.NameVersion(), err)
		}
		target := filepath.Join(c.Cfg.Root, e)
		if c.Cfg.Link {
			if err := sysfs.RelLink(kept, target); err != nil {
				return xerrors.Errorf("linking %s: %w", target, err)
			}
			files = append(files, e)
			continue
		}
		if err := sysfs.Copy(src, target); err != nil {
			return xerrors.Errorf("installing %s: %w", d.NameVersion(), err)
		}
		files = append(files, e)
		if sysfs.IsDir(src) {
			sub, err := sysfs.ListRecursive(src)
			if err != nil {
				return err
			}
			for _, s := range sub {
				files = append(files, e+"/"+s)
			}
		}
	}
	d.Files = files
	if err := writeInfo(filepath.Join(distDir, repo.InfoFile), d); err != nil {
		return err
	}
	log.Printf("installed %s (%d entries)", d.NameVersion(), len(files))
	return nil
}

func writeInfo(fn string, d *info.DistInfo) error {
	return renameio.WriteFile(fn, d.Serialize(), 0644)
}
