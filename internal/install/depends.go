package install

import (
	"context"

	"golang.org/x/xerrors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/luadist/dist"
	"github.com/luadist/dist/internal/info"
	"github.com/luadist/dist/internal/repo"
	"github.com/luadist/dist/internal/resolve"
)

type node struct {
	id   int64
	dist *info.DistInfo
}

func (n *node) ID() int64 { return n.id }

// DependencyOrder resolves names and returns the selection re-ordered by a
// stabilized topological sort of its dependency graph, dependencies first.
// The resolver's own output already satisfies this; the graph pass exists for
// the depends display, where the edges themselves matter.
func (c *Ctx) DependencyOrder(ctx context.Context, names []string) ([]*info.DistInfo, map[string][]string, error) {
	manifest, err := repo.Collect(ctx, c.Cfg, c.Fetch, c.Cfg.Repositories())
	if err != nil {
		return nil, nil, err
	}
	deployed, err := c.Deployed()
	if err != nil {
		return nil, nil, err
	}
	combined := append(append([]*info.DistInfo{}, deployed...), manifest...)
	selected, err := resolve.New(c.Cfg.Platform()).Resolve(names, combined)
	if err != nil {
		return nil, nil, err
	}

	plat := c.Cfg.Platform()
	g := simple.NewDirectedGraph()
	byName := make(map[string]*node)
	for i, d := range selected {
		n := &node{id: int64(i), dist: d}
		byName[d.Name] = n
		g.AddNode(n)
	}
	// satisfier maps every provided name onto its selected provider
	satisfier := func(name string) *node {
		if n, ok := byName[name]; ok {
			return n
		}
		for _, d := range selected {
			for _, prov := range d.ProvidesList(plat) {
				pn, _, ok := dist.SplitNameVersion(prov)
				if !ok {
					pn = prov
				}
				if pn == name {
					return byName[d.Name]
				}
			}
		}
		return nil
	}
	edges := make(map[string][]string)
	for _, d := range selected {
		to := byName[d.Name]
		for _, dep := range d.DependsOn(plat) {
			nc, err := dist.ParseNameConstraint(dep)
			if err != nil {
				continue
			}
			from := satisfier(nc.Name)
			if from == nil || from == to {
				continue
			}
			g.SetEdge(g.NewEdge(from, to))
			edges[d.NameVersion()] = append(edges[d.NameVersion()], from.dist.NameVersion())
		}
	}
	// nil keeps the resolver's order among independent nodes
	sorted, err := topo.SortStabilized(g, nil)
	if err != nil {
		return nil, nil, xerrors.Errorf("dependency graph has a cycle: %v", err)
	}
	out := make([]*info.DistInfo, 0, len(sorted))
	for _, n := range sorted {
		out = append(out, n.(*node).dist)
	}
	return out, edges, nil
}
