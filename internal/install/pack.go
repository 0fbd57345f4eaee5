package install

import (
	"log"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/luadist/dist"
	"github.com/luadist/dist/internal/info"
	"github.com/luadist/dist/internal/repo"
	"github.com/luadist/dist/internal/sysfs"
)

// scratchPatterns are never packed into a redistributable archive.
var scratchPatterns = []string{".git*", ".svn*", "*~", ".DS_Store*"}

// Pack assembles a redistributable archive of an installed dist in destDir
// and returns the archive path. The staged metadata is stripped of its
// origin path and file record, which are deployment-local.
func (c *Ctx) Pack(d *info.DistInfo, destDir string) (string, error) {
	distDir := c.distDir(d)
	if !sysfs.IsDir(distDir) {
		return "", xerrors.Errorf("%s is not installed", d.NameVersion())
	}
	scratch, err := sysfs.TempDir(c.Cfg.TempDir, "pack-")
	if err != nil {
		return "", err
	}
	if !c.Cfg.Debug {
		defer sysfs.Delete(scratch)
	}
	stage := filepath.Join(scratch, d.NameVersion())

	files := d.Files
	if len(files) == 0 {
		files, err = sysfs.ListRecursive(distDir)
		if err != nil {
			return "", err
		}
	}
	if err := sysfs.MkDir(stage); err != nil {
		return "", err
	}
	for _, f := range files {
		src := filepath.Join(distDir, filepath.FromSlash(f))
		if !sysfs.Exists(src) {
			continue // recorded but no longer present in the per-dist directory
		}
		if err := sysfs.Copy(src, filepath.Join(stage, filepath.FromSlash(f))); err != nil {
			return "", xerrors.Errorf("staging %s: %w", f, err)
		}
	}

	stripped := *d
	stripped.Path = ""
	stripped.Files = nil
	if err := writeInfo(filepath.Join(stage, repo.InfoFile), &stripped); err != nil {
		return "", err
	}

	if err := sysfs.MkDir(destDir); err != nil {
		return "", err
	}
	// assemble in scratch first so destDir never holds a half-written archive
	staged := filepath.Join(scratch, archiveName(d))
	if err := sysfs.ZipCreate(staged, stage, scratchPatterns); err != nil {
		return "", xerrors.Errorf("packing %s: %w", d.NameVersion(), err)
	}
	archive := filepath.Join(destDir, archiveName(d))
	if err := sysfs.Move(staged, archive); err != nil {
		return "", err
	}
	log.Printf("packed %s", archive)
	return archive, nil
}

// archiveName follows the repository naming scheme: Universal source dists
// drop the platform suffix.
func archiveName(d *info.DistInfo) string {
	if d.Arch == dist.ArchUniversal && d.Type == dist.TypeSource {
		return d.NameVersion() + ".dist"
	}
	return d.NameVersion() + "-" + d.Arch + "-" + d.Type + ".dist"
}
