package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
)

const listHelp = `dist list [-flags]

List installed dists.

Example:
  % dist list
`

func cmdlist(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("list", flag.ExitOnError)
	fset.Usage = usage(fset, listHelp)
	fset.Parse(args)
	c, err := newCtx()
	if err != nil {
		return err
	}
	deployed, err := c.Deployed()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 1, 8, 2, ' ', 0)
	defer w.Flush()
	for _, d := range deployed {
		if d.Provided != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s-%s\t%s\n", d.Name, d.Version, d.Arch, d.Type, d.Desc)
	}
	return nil
}
