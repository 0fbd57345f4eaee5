package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/luadist/dist"
	"github.com/luadist/dist/internal/config"
	"github.com/luadist/dist/internal/install"
)

var (
	debug    = flag.Bool("debug", false, "enable debug mode: keep scratch state and use the debug build commands")
	confPath = flag.String("conf", os.ExpandEnv("$HOME/.luadist.yaml"), "path to the configuration file")
)

// loadConfig is shared by every verb.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*confPath)
	if err != nil {
		return nil, err
	}
	if *debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func newCtx() (*install.Ctx, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return install.New(cfg), nil
}

func funcmain() error {
	flag.Parse()

	if !isatty.IsTerminal(os.Stderr.Fd()) {
		// plain lines when piped into another tool or a log file
		log.SetFlags(0)
	}

	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"install": {cmdinstall},
		"remove":  {cmdremove},
		"pack":    {cmdpack},
		"list":    {cmdlist},
		"search":  {cmdsearch},
		"info":    {cmdinfo},
		"depends": {cmddepends},
		"refresh": {cmdrefresh},
	}

	args := flag.Args()
	verb := "list"
	if len(args) > 0 {
		verb, args = args[0], args[1:]
	}

	if verb == "help" {
		if len(args) != 1 {
			fmt.Fprintf(os.Stderr, "dist [-flags] <command> [-flags] <args>\n")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "To get help on any command, use dist <command> -help or dist help <command>.\n")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "Deployment commands:\n")
			fmt.Fprintf(os.Stderr, "\tinstall  - install dists with their dependencies\n")
			fmt.Fprintf(os.Stderr, "\tremove   - remove installed dists\n")
			fmt.Fprintf(os.Stderr, "\tpack     - repackage installed dists into archives\n")
			fmt.Fprintf(os.Stderr, "\tlist     - list installed dists\n")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "Repository commands:\n")
			fmt.Fprintf(os.Stderr, "\tsearch   - search repositories for dists\n")
			fmt.Fprintf(os.Stderr, "\tinfo     - show metadata of dists\n")
			fmt.Fprintf(os.Stderr, "\tdepends  - show the dependency closure of dists\n")
			fmt.Fprintf(os.Stderr, "\trefresh  - re-fetch repository manifests\n")
			os.Exit(2)
		}
		verb = args[0]
		args = []string{"-help"}
	}
	ctx, canc := dist.InterruptibleContext()
	defer canc()
	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: dist <command> [options]\n")
		os.Exit(2)
	}
	if err := v.fn(ctx, args); err != nil {
		if *debug {
			return fmt.Errorf("%s: %+v", verb, err)
		}
		return fmt.Errorf("%s: %v", verb, err)
	}

	return dist.RunAtExit()
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
