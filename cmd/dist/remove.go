package main

import (
	"context"
	"flag"

	"golang.org/x/xerrors"
)

const removeHelp = `dist remove [-flags] <name[-version]>...

Remove installed dists from the deployment. Dependents are not checked;
removing a dist another one depends on leaves that dependent broken.

Example:
  % dist remove luasocket
`

func cmdremove(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("remove", flag.ExitOnError)
	fset.Usage = usage(fset, removeHelp)
	fset.Parse(args)
	if fset.NArg() == 0 {
		return xerrors.New("syntax: remove <name>...")
	}
	c, err := newCtx()
	if err != nil {
		return err
	}
	return c.Remove(fset.Args())
}
