package install

import (
	"context"
	"log"

	"golang.org/x/xerrors"

	"github.com/luadist/dist"
	"github.com/luadist/dist/internal/info"
	"github.com/luadist/dist/internal/repo"
	"github.com/luadist/dist/internal/resolve"
	"github.com/luadist/dist/internal/sysfs"
)

// Install resolves names against the composed manifest and deploys every
// selected dist in dependency order. A nil manifest is acquired from the
// configured repositories. Deployed dists are prepended to the manifest so
// they satisfy dependents without being re-installed. The first failing
// stage aborts with its message; already-deployed dists stay deployed (there
// is no rollback).
func (c *Ctx) Install(ctx context.Context, names []string, manifest []*info.DistInfo, variables map[string]string) error {
	if len(names) == 0 {
		return xerrors.New("nothing to install")
	}
	if err := sysfs.MkDir(c.Cfg.Root); err != nil {
		return err
	}
	if !sysfs.Writable(c.Cfg.Root) {
		return xerrors.Errorf("deployment %s is not writable", c.Cfg.Root)
	}
	if manifest == nil {
		var err error
		manifest, err = repo.Collect(ctx, c.Cfg, c.Fetch, c.Cfg.Repositories())
		if err != nil {
			return err
		}
	}
	deployed, err := c.Deployed()
	if err != nil {
		return err
	}
	combined := append(append([]*info.DistInfo{}, deployed...), manifest...)

	selected, err := resolve.New(c.Cfg.Platform()).Resolve(names, combined)
	if err != nil {
		return err
	}
	for _, d := range selected {
		if d.Path == "" {
			continue // provided by another selection or by the host
		}
		if sysfs.Exists(c.distDir(d)) {
			continue // already deployed
		}
		log.Printf("installing %s", d.NameVersion())
		pkgDir, err := c.Unpack(ctx, d)
		if err != nil {
			return err
		}
		if err := c.Deploy(ctx, pkgDir, variables); err != nil {
			return xerrors.Errorf("deploying %s: %w", d.NameVersion(), err)
		}
	}
	return nil
}

// match returns the installed dists satisfying any of names, with constraint
// semantics.
func (c *Ctx) match(names []string) ([]*info.DistInfo, error) {
	installed, err := c.installed()
	if err != nil {
		return nil, err
	}
	var out []*info.DistInfo
	for _, name := range names {
		nc, err := dist.ParseNameConstraint(name)
		if err != nil {
			return nil, err
		}
		found := false
		for _, d := range installed {
			if d.Name == nc.Name && nc.Satisfies(d.Version) {
				out = append(out, d)
				found = true
			}
		}
		if !found {
			return nil, xerrors.Errorf("%s is not installed", name)
		}
	}
	return out, nil
}

// Remove deletes the installed dists matching names.
func (c *Ctx) Remove(names []string) error {
	matched, err := c.match(names)
	if err != nil {
		return err
	}
	for _, d := range matched {
		if err := c.Delete(d); err != nil {
			return xerrors.Errorf("removing %s: %w", d.NameVersion(), err)
		}
	}
	return nil
}

// PackAll packs the installed dists matching names into destDir and returns
// the archive paths.
func (c *Ctx) PackAll(names []string, destDir string) ([]string, error) {
	matched, err := c.match(names)
	if err != nil {
		return nil, err
	}
	var archives []string
	for _, d := range matched {
		archive, err := c.Pack(d, destDir)
		if err != nil {
			return archives, err
		}
		archives = append(archives, archive)
	}
	return archives, nil
}
