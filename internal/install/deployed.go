package install

import (
	"log"
	"os"
	"path/filepath"

	"github.com/luadist/dist"
	"github.com/luadist/dist/internal/info"
	"github.com/luadist/dist/internal/repo"
)

// Deployed returns the installed dists of the deployment plus synthetic
// records for everything they provide and for the configured host-provided
// list, each synthetic record carrying a back-reference to its provider.
// Synthetic records exist only in memory; they are never persisted.
func (c *Ctx) Deployed() ([]*info.DistInfo, error) {
	distsDir := c.Cfg.DistsDir()
	entries, err := os.ReadDir(distsDir)
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return nil, err
		}
	}
	plat := c.Cfg.Platform()
	var out []*info.DistInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		fn := filepath.Join(distsDir, e.Name(), repo.InfoFile)
		b, err := os.ReadFile(fn)
		if err != nil {
			log.Printf("skipping %s: %v", e.Name(), err)
			continue
		}
		d, err := info.ParseDistInfo(b)
		if err != nil {
			log.Printf("skipping %s: %v", e.Name(), err)
			continue
		}
		d.ApplyDefaults()
		d.Path = filepath.Join(distsDir, e.Name())
		out = append(out, d)
	}

	var synthetic []*info.DistInfo
	for _, d := range out {
		for _, prov := range d.ProvidesList(plat) {
			synthetic = append(synthetic, provided(prov, d, plat))
		}
	}
	for _, prov := range c.Cfg.HostProvides {
		host := &info.DistInfo{
			Name:    "host",
			Version: "0",
			Arch:    plat.Arch,
			Type:    plat.Type,
		}
		synthetic = append(synthetic, provided(prov, host, plat))
	}
	return append(out, synthetic...), nil
}

// provided synthesizes the record for one provides entry.
func provided(entry string, provider *info.DistInfo, plat dist.Platform) *info.DistInfo {
	name, version, ok := dist.SplitNameVersion(entry)
	if !ok {
		name, version = entry, provider.Version
	}
	return &info.DistInfo{
		Name:     name,
		Version:  version,
		Arch:     plat.Arch,
		Type:     plat.Type,
		Provided: provider,
	}
}

// installed returns only the real installed dists, no synthetic records.
func (c *Ctx) installed() ([]*info.DistInfo, error) {
	all, err := c.Deployed()
	if err != nil {
		return nil, err
	}
	real := all[:0]
	for _, d := range all {
		if d.Provided == nil {
			real = append(real, d)
		}
	}
	return real, nil
}
