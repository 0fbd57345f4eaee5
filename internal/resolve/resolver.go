// Package resolve selects a consistent set of dist versions for a list of
// requirements by recursive backtracking over an ordered manifest.
package resolve

import (
	"golang.org/x/xerrors"

	"github.com/luadist/dist"
	"github.com/luadist/dist/internal/info"
	"github.com/luadist/dist/internal/repo"
)

// Resolver carries the immutable inputs of one resolution call.
type Resolver struct {
	plat dist.Platform
}

// New returns a Resolver for the host platform.
func New(plat dist.Platform) *Resolver {
	return &Resolver{plat: plat}
}

// Resolve returns an ordered list of dists satisfying every requirement:
// dependencies come before their dependents, no two results conflict, and
// provides of a selected dist satisfy requirements of others. Candidates are
// tried in manifest order and every choice is a backtrack point, so the
// output is deterministic for a given (requirements, manifest) pair and a
// solution is found whenever one exists.
func (rs *Resolver) Resolve(requirements []string, manifest []*info.DistInfo) ([]*info.DistInfo, error) {
	pending := make([]dist.NameConstraint, 0, len(requirements))
	for _, r := range requirements {
		nc, err := dist.ParseNameConstraint(r)
		if err != nil {
			return nil, err
		}
		pending = append(pending, nc)
	}
	selected, err := rs.resolve(pending, manifest, nil)
	if err != nil {
		return nil, err
	}
	// Selection order is dependents-first; installation wants the reverse.
	out := make([]*info.DistInfo, 0, len(selected))
	for i := len(selected) - 1; i >= 0; i-- {
		out = append(out, selected[i])
	}
	return out, nil
}

// satisfied reports whether r already holds for the selection, either through
// a selected dist itself or through one of its provides. This is also what
// terminates dependency cycles: a requirement for something already being
// installed resolves without re-entering the search.
func (rs *Resolver) satisfied(r dist.NameConstraint, selected []*info.DistInfo) bool {
	for _, p := range selected {
		if p.Name == r.Name && r.Satisfies(p.Version) {
			return true
		}
		for _, prov := range p.ProvidesList(rs.plat) {
			name, version, ok := dist.SplitNameVersion(prov)
			if !ok {
				name, version = prov, p.Version
			}
			if name == r.Name && r.Satisfies(version) {
				return true
			}
		}
	}
	return false
}

// synthesize builds the provided records of c: one DistInfo per provides
// entry, inheriting c's arch and type and carrying the back-reference. The
// records never carry depends, so augmentation cannot recurse; a provider
// already selected is never re-synthesized, which breaks provides cycles.
func (rs *Resolver) synthesize(c *info.DistInfo) []*info.DistInfo {
	provides := c.ProvidesList(rs.plat)
	out := make([]*info.DistInfo, 0, len(provides))
	for _, prov := range provides {
		name, version, ok := dist.SplitNameVersion(prov)
		if !ok {
			name, version = prov, c.Version
		}
		out = append(out, &info.DistInfo{
			Name:     name,
			Version:  version,
			Arch:     c.Arch,
			Type:     c.Type,
			Provided: c,
		})
	}
	return out
}

func (rs *Resolver) resolve(pending []dist.NameConstraint, manifest, selected []*info.DistInfo) ([]*info.DistInfo, error) {
	if len(pending) == 0 {
		return selected, nil
	}
	r, rest := pending[0], pending[1:]
	if rs.satisfied(r, selected) {
		return rs.resolve(rest, manifest, selected)
	}
	candidates := repo.Find(manifest, r)
	if len(candidates) == 0 {
		return nil, xerrors.Errorf("no suitable dist for %q", r.String())
	}
	var lastErr error
	for _, c := range candidates {
		// Installing a provided record means installing its provider.
		target := c
		if c.Provided != nil {
			target = c.Provided
		}
		if err := rs.consistent(selected, target); err != nil {
			lastErr = err
			continue
		}
		newSelected := selected
		augmented := manifest
		if !rs.alreadySelected(selected, target) {
			newSelected = append(selected, target)
			if synth := rs.synthesize(target); len(synth) > 0 {
				augmented = append(append([]*info.DistInfo{}, synth...), manifest...)
			}
		}
		// Requirements already waiting stay ahead of c's dependencies, so a
		// sibling that provides one of them is selected before the search
		// looks for a standalone dist.
		next := append(append([]dist.NameConstraint{}, rest...), rs.depends(target)...)
		res, err := rs.resolve(next, augmented, newSelected)
		if err != nil {
			lastErr = err
			continue
		}
		return res, nil
	}
	return nil, lastErr
}

func (rs *Resolver) depends(c *info.DistInfo) []dist.NameConstraint {
	// A malformed entry cannot appear here because the pipeline validated
	// every record; anything unparsable is simply skipped.
	var out []dist.NameConstraint
	for _, dep := range c.DependsOn(rs.plat) {
		nc, err := dist.ParseNameConstraint(dep)
		if err != nil {
			continue
		}
		out = append(out, nc)
	}
	return out
}

// alreadySelected reports whether the exact dist is in the selection, e.g.
// a provider whose provides satisfied an earlier requirement.
func (rs *Resolver) alreadySelected(selected []*info.DistInfo, c *info.DistInfo) bool {
	for _, p := range selected {
		if p.Name == c.Name && dist.VersionEqual(p.Version, c.Version) {
			return true
		}
	}
	return false
}

// consistent checks c against every dist already selected: duplicate names
// block (equal versions never reach here, satisfied catches them), depends
// constraints of earlier selections must admit c, and conflicts in either
// direction reject the candidate.
func (rs *Resolver) consistent(selected []*info.DistInfo, c *info.DistInfo) error {
	for _, p := range selected {
		if p.Name == c.Name {
			if dist.VersionEqual(p.Version, c.Version) {
				continue // already provided
			}
			return xerrors.Errorf("%s is blocked by installing %s", c.NameVersion(), p.NameVersion())
		}
		for _, dep := range p.DependsOn(rs.plat) {
			nc, err := dist.ParseNameConstraint(dep)
			if err != nil {
				continue
			}
			if nc.Name == c.Name && !nc.Satisfies(c.Version) {
				return xerrors.Errorf("%s is blocked by dependency %q of %s", c.NameVersion(), dep, p.NameVersion())
			}
		}
		for _, con := range p.ConflictsWith(rs.plat) {
			nc, err := dist.ParseNameConstraint(con)
			if err != nil {
				continue
			}
			if nc.Name == c.Name && nc.Satisfies(c.Version) {
				return xerrors.Errorf("%s conflicts with %s", c.NameVersion(), p.NameVersion())
			}
		}
		for _, con := range c.ConflictsWith(rs.plat) {
			nc, err := dist.ParseNameConstraint(con)
			if err != nil {
				continue
			}
			if nc.Name == p.Name && nc.Satisfies(p.Version) {
				return xerrors.Errorf("%s conflicts with %s", c.NameVersion(), p.NameVersion())
			}
		}
	}
	return nil
}
