package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/xerrors"
)

const packHelp = `dist pack [-flags] <name[-version]>...

Repackage installed dists into redistributable archives.

Example:
  % dist pack -dest /tmp/dists luasocket
`

func cmdpack(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("pack", flag.ExitOnError)
	var (
		dest = fset.String("dest", ".", "directory to place the archives in")
	)
	fset.Usage = usage(fset, packHelp)
	fset.Parse(args)
	if fset.NArg() == 0 {
		return xerrors.New("syntax: pack <name>...")
	}
	c, err := newCtx()
	if err != nil {
		return err
	}
	archives, err := c.PackAll(fset.Args(), *dest)
	for _, a := range archives {
		fmt.Fprintln(os.Stdout, a)
	}
	return err
}
