package main

import (
	"context"
	"flag"
	"log"

	"github.com/luadist/dist/internal/fetch"
	"github.com/luadist/dist/internal/repo"
)

const refreshHelp = `dist refresh [-flags]

Re-fetch the manifests of the configured repositories, bypassing the
download cache.

Example:
  % dist refresh
`

func cmdrefresh(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("refresh", flag.ExitOnError)
	fset.Usage = usage(fset, refreshHelp)
	fset.Parse(args)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// a zero TTL skips cache reads and re-populates nothing
	cfg.CacheTTL = 0
	manifest, err := repo.Collect(ctx, cfg, fetch.New(cfg), cfg.Repositories())
	if err != nil {
		return err
	}
	log.Printf("%d dists available from %d repositories", len(manifest), len(cfg.Repos))
	return nil
}
