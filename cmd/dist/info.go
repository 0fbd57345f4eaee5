package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/xerrors"

	"github.com/luadist/dist"
	"github.com/luadist/dist/internal/fetch"
	"github.com/luadist/dist/internal/repo"
)

const infoHelp = `dist info [-flags] <name[-version]>...

Show the metadata of dists as published in the repositories.

Example:
  % dist info luasocket-2.0.2
`

func cmdinfo(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("info", flag.ExitOnError)
	fset.Usage = usage(fset, infoHelp)
	fset.Parse(args)
	if fset.NArg() == 0 {
		return xerrors.New("syntax: info <name>...")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifest, err := repo.Collect(ctx, cfg, fetch.New(cfg), cfg.Repositories())
	if err != nil {
		return err
	}
	for _, arg := range fset.Args() {
		nc, err := dist.ParseNameConstraint(arg)
		if err != nil {
			return err
		}
		matches := repo.Find(manifest, nc)
		if len(matches) == 0 {
			return xerrors.Errorf("no dist matches %q", arg)
		}
		for _, d := range matches {
			os.Stdout.Write(d.Serialize())
			fmt.Println()
		}
	}
	return nil
}
