package main

import (
	"context"
	"flag"
	"strings"

	"golang.org/x/xerrors"
)

const installHelp = `dist install [-flags] <name[-version]|name constraint>...

Install dists into the deployment, resolving and installing their
dependencies first.

Example:
  % dist install luasocket
  % dist install "lua >= 5.1 < 5.2" md5-1.1
`

func cmdinstall(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("install", flag.ExitOnError)
	var (
		vars stringMap = map[string]string{}
	)
	fset.Var(&vars, "D", "build variable KEY=VALUE passed to the build driver (repeatable)")
	fset.Usage = usage(fset, installHelp)
	fset.Parse(args)
	if fset.NArg() == 0 {
		return xerrors.New("syntax: install <name>...")
	}
	c, err := newCtx()
	if err != nil {
		return err
	}
	return c.Install(ctx, fset.Args(), nil, vars)
}

// stringMap collects repeated KEY=VALUE flags.
type stringMap map[string]string

func (m *stringMap) String() string {
	var parts []string
	for k, v := range *m {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (m *stringMap) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return xerrors.Errorf("expected KEY=VALUE, got %q", s)
	}
	(*m)[k] = v
	return nil
}
