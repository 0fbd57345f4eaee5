package dist

import (
	"strings"

	"golang.org/x/xerrors"
)

// VersionConstraint is one (operator, reference version) pair.
type VersionConstraint struct {
	Op      string
	Version string
}

var constraintOps = map[string]bool{
	"=":  true,
	"==": true,
	"<":  true,
	"<=": true,
	">":  true,
	">=": true,
	"~=": true,
	"!=": true,
}

func isOpRune(r byte) bool {
	return r == '=' || r == '<' || r == '>' || r == '~' || r == '!'
}

// NameConstraint is the parsed form of one requirement entry such as
// "lua >= 5.1 < 5.2". An empty Constraints list matches every version.
type NameConstraint struct {
	Name        string
	Constraints []VersionConstraint
}

func (nc NameConstraint) String() string {
	var sb strings.Builder
	sb.WriteString(nc.Name)
	for _, c := range nc.Constraints {
		sb.WriteString(" ")
		sb.WriteString(c.Op)
		sb.WriteString(" ")
		sb.WriteString(c.Version)
	}
	return sb.String()
}

// Satisfies reports whether version meets every (op, ref) pair of the
// constraint.
func (nc NameConstraint) Satisfies(version string) bool {
	for _, c := range nc.Constraints {
		cmp := CompareVersions(version, c.Version)
		eq := VersionEqual(version, c.Version)
		var ok bool
		switch c.Op {
		case "=", "==":
			ok = eq
		case "~=", "!=":
			ok = !eq
		case "<":
			ok = cmp < 0
		case "<=":
			ok = cmp <= 0
		case ">":
			ok = cmp > 0
		case ">=":
			ok = cmp >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// ParseNameConstraint parses a requirement string of the form
// "<name> [<op> <version>]...", e.g. "name>=1.2<2". A bare "name-1.0" with no
// operators is shorthand for "name = 1.0" provided the dash is followed by a
// digit, matching how dists are addressed on the command line.
func ParseNameConstraint(s string) (NameConstraint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NameConstraint{}, xerrors.New("empty constraint")
	}
	i := 0
	for i < len(s) && !isOpRune(s[i]) {
		i++
	}
	nc := NameConstraint{Name: strings.TrimSpace(s[:i])}
	if nc.Name == "" {
		return NameConstraint{}, xerrors.Errorf("constraint %q has no name", s)
	}
	rest := s[i:]
	for rest != "" {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		j := 0
		for j < len(rest) && isOpRune(rest[j]) {
			j++
		}
		op := rest[:j]
		if !constraintOps[op] {
			return NameConstraint{}, xerrors.Errorf("constraint %q: bad operator %q", s, op)
		}
		rest = strings.TrimSpace(rest[j:])
		k := 0
		for k < len(rest) && !isOpRune(rest[k]) {
			k++
		}
		version := strings.TrimSpace(rest[:k])
		if version == "" {
			return NameConstraint{}, xerrors.Errorf("constraint %q: operator %q has no version", s, op)
		}
		nc.Constraints = append(nc.Constraints, VersionConstraint{Op: op, Version: version})
		rest = rest[k:]
	}
	if len(nc.Constraints) == 0 {
		if name, version, ok := SplitNameVersion(nc.Name); ok {
			nc.Name = name
			nc.Constraints = []VersionConstraint{{Op: "=", Version: version}}
		}
	}
	return nc, nil
}

// SplitNameVersion splits "name-1.0" into ("name", "1.0"). The split point is
// the first dash followed by a digit, so a dashed version such as
// "wxlua-2.8.12.3-1" keeps its revision suffix; names without such a suffix
// are returned unchanged with ok == false.
func SplitNameVersion(s string) (name, version string, ok bool) {
	for i := 1; i < len(s)-1; i++ {
		if s[i] == '-' && s[i+1] >= '0' && s[i+1] <= '9' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
