package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

const dependsHelp = `dist depends [-flags] <name[-version]>...

Show the dependency closure of dists in install order, with the direct
dependencies of every entry.

Example:
  % dist depends luasql-sqlite3
`

func cmddepends(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("depends", flag.ExitOnError)
	fset.Usage = usage(fset, dependsHelp)
	fset.Parse(args)
	if fset.NArg() == 0 {
		return xerrors.New("syntax: depends <name>...")
	}
	c, err := newCtx()
	if err != nil {
		return err
	}
	order, edges, err := c.DependencyOrder(ctx, fset.Args())
	if err != nil {
		return err
	}
	for _, d := range order {
		deps := edges[d.NameVersion()]
		if len(deps) == 0 {
			fmt.Fprintln(os.Stdout, d.NameVersion())
			continue
		}
		fmt.Fprintf(os.Stdout, "%s (needs %s)\n", d.NameVersion(), strings.Join(deps, ", "))
	}
	return nil
}
