// Package repo acquires dist metadata from repository locators and composes
// it into one validated, ordered manifest.
package repo

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/luadist/dist"
	"github.com/luadist/dist/internal/config"
	"github.com/luadist/dist/internal/fetch"
	"github.com/luadist/dist/internal/info"
	"github.com/luadist/dist/internal/sysfs"
)

// InfoFile is the metadata file name carried inside every dist.
const InfoFile = "dist.info"

// ManifestFile is the index a remote repository publishes.
const ManifestFile = "dist.manifest"

// Collect acquires candidates from every repository, validates them,
// rewrites their paths for later fetching and returns one ordered manifest.
// Repositories are fetched concurrently but composed in input order, so the
// first repository wins ordering ties. A repository that fails fails the
// whole collection; a single bad record inside one is dropped with a warning.
func Collect(ctx context.Context, cfg *config.Config, f *fetch.Fetcher, repos []dist.Repo) ([]*info.DistInfo, error) {
	perRepo := make([][]*info.DistInfo, len(repos))
	var eg errgroup.Group
	for i, r := range repos {
		i, r := i, r // copy
		eg.Go(func() error {
			infos, err := acquire(ctx, f, r)
			if err != nil {
				return xerrors.Errorf("repository %s: %w", r, err)
			}
			perRepo[i] = infos
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	var manifest []*info.DistInfo
	for _, infos := range perRepo {
		manifest = append(manifest, validate(infos)...)
	}
	manifest = FilterPlatform(manifest, cfg)
	Sort(manifest)
	return manifest, nil
}

// acquire loads the candidates of a single repository.
func acquire(ctx context.Context, f *fetch.Fetcher, r dist.Repo) ([]*info.DistInfo, error) {
	if local, ok := fetch.LocalPath(r.Path); ok {
		abs, err := filepath.Abs(local)
		if err != nil {
			return nil, err
		}
		if !sysfs.IsDir(abs) {
			return nil, xerrors.Errorf("%s is not a directory", abs)
		}
		if sysfs.IsFile(filepath.Join(abs, InfoFile)) {
			// a single unpacked dist
			d, err := loadInfoFile(filepath.Join(abs, InfoFile))
			if err != nil {
				return nil, err
			}
			d.Path = abs
			return []*info.DistInfo{d}, nil
		}
		return walkLocal(abs)
	}

	base := strings.TrimRight(r.Path, "/")
	b, err := f.Get(ctx, base+"/"+ManifestFile)
	if err != nil {
		return nil, err
	}
	infos, err := info.ParseManifest(b)
	if err != nil {
		return nil, xerrors.Errorf("decoding %s: %w", ManifestFile, err)
	}
	for _, d := range infos {
		d.Path = remotePath(base, d)
	}
	return infos, nil
}

// remotePath resolves a manifest entry's path against the repository URL.
// Entries without a path get the canonical archive name for their identity.
func remotePath(base string, d *info.DistInfo) string {
	p := d.Path
	if p == "" {
		if (d.Arch == "" || d.Arch == dist.ArchUniversal) && (d.Type == "" || d.Type == dist.TypeSource) {
			p = d.NameVersion() + ".dist"
		} else {
			p = d.NameVersion() + "-" + d.Arch + "-" + d.Type + ".dist"
		}
	}
	if fetch.IsRemote(p) {
		return p
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

// walkLocal scans a directory of extracted trees and archives. For each
// entry it probes <entry>/dist.info, then a *.zip/*.dist archive member;
// subdirectories that produced no dist are recursed into.
func walkLocal(dir string) ([]*info.DistInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []*info.DistInfo
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			infoFn := filepath.Join(full, InfoFile)
			if sysfs.IsFile(infoFn) {
				d, err := loadInfoFile(infoFn)
				if err != nil {
					log.Printf("skipping %s: %v", full, err)
					continue
				}
				d.Path = full
				out = append(out, d)
				continue
			}
			sub, err := walkLocal(full)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		if sysfs.HasArchiveSuffix(e.Name()) {
			b, ok, err := sysfs.ZipDistInfo(full)
			if err != nil {
				log.Printf("skipping %s: %v", full, err)
				continue
			}
			if !ok {
				continue
			}
			d, err := info.ParseDistInfo(b)
			if err != nil {
				log.Printf("skipping %s: %v", full, err)
				continue
			}
			d.Path = full
			out = append(out, d)
		}
	}
	return out, nil
}

func loadInfoFile(fn string) (*info.DistInfo, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	d, err := info.ParseDistInfo(b)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", fn, err)
	}
	return d, nil
}

// validate applies defaults and drops records that fail the checker. The
// pipeline never aborts on a single bad record.
func validate(infos []*info.DistInfo) []*info.DistInfo {
	out := infos[:0]
	for _, d := range infos {
		d.ApplyDefaults()
		if err := d.Validate(); err != nil {
			log.Printf("dropping invalid record: %v", err)
			continue
		}
		out = append(out, d)
	}
	return out
}

// FilterPlatform removes candidates the host cannot deploy: wrong arch or
// type, or a flavor (binary/source) the configuration turned off.
func FilterPlatform(manifest []*info.DistInfo, cfg *config.Config) []*info.DistInfo {
	plat := cfg.Platform()
	var out []*info.DistInfo
	for _, d := range manifest {
		if !plat.Compatible(d.Arch, d.Type) {
			continue
		}
		if d.Type == dist.TypeSource && !cfg.Source {
			continue
		}
		if d.Type != dist.TypeSource && !cfg.Binary {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Sort orders a manifest by the resolver's preference key: name ascending,
// then version descending, then concrete arch before Universal, then binary
// type before source. The sort is stable, so entries equal under the key keep
// their repository order.
func Sort(manifest []*info.DistInfo) {
	sort.SliceStable(manifest, func(i, j int) bool {
		a, b := manifest[i], manifest[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if c := dist.CompareVersions(a.Version, b.Version); c != 0 {
			return c > 0
		}
		aUni, bUni := a.Arch == dist.ArchUniversal, b.Arch == dist.ArchUniversal
		if aUni != bUni {
			return bUni
		}
		aSrc, bSrc := a.Type == dist.TypeSource, b.Type == dist.TypeSource
		if aSrc != bSrc {
			return bSrc
		}
		return false
	})
}

// Find returns the candidates matching a name constraint, in manifest order.
// A dist's provides do not participate here; the resolver synthesizes those.
func Find(manifest []*info.DistInfo, nc dist.NameConstraint) []*info.DistInfo {
	var out []*info.DistInfo
	for _, d := range manifest {
		if d.Name == nc.Name && nc.Satisfies(d.Version) {
			out = append(out, d)
		}
	}
	return out
}
