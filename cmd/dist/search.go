package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/luadist/dist/internal/fetch"
	"github.com/luadist/dist/internal/repo"
)

const searchHelp = `dist search [-flags] [<substring>]

Search the configured repositories. Without an argument, every available
dist is listed.

Example:
  % dist search socket
`

func cmdsearch(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("search", flag.ExitOnError)
	fset.Usage = usage(fset, searchHelp)
	fset.Parse(args)
	var filter string
	if fset.NArg() > 0 {
		filter = fset.Arg(0)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifest, err := repo.Collect(ctx, cfg, fetch.New(cfg), cfg.Repositories())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 1, 8, 2, ' ', 0)
	defer w.Flush()
	for _, d := range manifest {
		if filter != "" && !strings.Contains(d.Name, filter) {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s-%s\t%s\n", d.Name, d.Version, d.Arch, d.Type, d.Desc)
	}
	return nil
}
