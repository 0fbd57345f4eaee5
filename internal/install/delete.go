package install

import (
	"log"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/luadist/dist/internal/info"
	"github.com/luadist/dist/internal/sysfs"
)

// Delete removes an installed dist from the deployment: its recorded files
// in reverse install order, directories once they become empty, and finally
// the per-dist bookkeeping directory. Reverse order guarantees the pruning
// converges in a single pass.
func (c *Ctx) Delete(d *info.DistInfo) error {
	files := d.Files
	if len(files) == 0 {
		// No record: fall back to what the per-dist directory says it owns.
		if sub, err := sysfs.ListRecursive(c.distDir(d)); err == nil {
			for _, s := range sub {
				if s != "dist.info" {
					files = append(files, s)
				}
			}
		}
	}
	for i := len(files) - 1; i >= 0; i-- {
		p := filepath.Join(c.Cfg.Root, filepath.FromSlash(files[i]))
		fi, err := os.Lstat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if fi.IsDir() {
			// only prune once nothing else owns content inside
			if err := os.Remove(p); err != nil && !isNotEmpty(err) {
				return xerrors.Errorf("removing %s: %w", p, err)
			}
			continue
		}
		if err := os.Remove(p); err != nil {
			return xerrors.Errorf("removing %s: %w", p, err)
		}
	}
	if err := sysfs.Delete(c.distDir(d)); err != nil {
		return err
	}
	log.Printf("removed %s", d.NameVersion())
	return nil
}

// isNotEmpty reports whether err is the directory-not-empty failure of
// os.Remove.
func isNotEmpty(err error) bool {
	le, ok := err.(*os.PathError)
	if !ok {
		return false
	}
	return le.Err.Error() == "directory not empty" || le.Err.Error() == "The directory is not empty."
}
