// Package info models dist.info metadata and implements the text codec dists
// and manifests are published in. The format is a restricted Lua table
// notation; loading uses a dedicated parser, never an evaluator, so loaded
// text cannot reference anything.
package info

import (
	"regexp"

	"golang.org/x/xerrors"

	"github.com/luadist/dist"
)

// Value is one decoded value: string, float64, bool or *Table.
type Value interface{}

// KV is one keyed field of a Table, in source order.
type KV struct {
	Key string
	Val Value
}

// Table is the decoded form of a table constructor. Positional entries and
// keyed fields share one representation, distinguished by key kind, exactly
// as in the source notation.
type Table struct {
	List   []Value
	Fields []KV
}

// Field returns the value under key, or nil.
func (t *Table) Field(key string) Value {
	if t == nil {
		return nil
	}
	for _, kv := range t.Fields {
		if kv.Key == key {
			return kv.Val
		}
	}
	return nil
}

// DistInfo is the immutable metadata describing one artifact.
type DistInfo struct {
	Name    string
	Version string
	Arch    string
	Type    string

	// Depends, Conflicts and Provides keep their raw table form: a sequence
	// of constraint strings, possibly nested under arch/type keys. They are
	// resolved against the host platform by Flatten on every DependsOn,
	// ConflictsWith or ProvidesList call; no resolved form is stored.
	Depends   *Table
	Conflicts *Table
	Provides  *Table

	Desc       string
	Author     string
	Maintainer string
	License    string
	URL        string
	Message    string

	// Path locates the dist for fetching: repository-relative file name,
	// local directory or remote URL. Populated by the manifest pipeline.
	Path string

	// Files records the paths a deployed dist installed outside its
	// bookkeeping directory, in install order. Populated on deployment.
	Files []string

	// Provided points back at the dist whose provides list this record was
	// synthesized from. Synthetic records never appear on disk.
	Provided *DistInfo
}

// NameVersion returns the canonical "name-version" identifier.
func (d *DistInfo) NameVersion() string {
	return d.Name + "-" + d.Version
}

var (
	nameChars     = regexp.MustCompile(`^[a-z0-9.:_-]+$`)
	platformChars = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// ApplyDefaults fills in the arch and type a dist.info may omit.
func (d *DistInfo) ApplyDefaults() {
	if d.Arch == "" {
		d.Arch = dist.ArchUniversal
	}
	if d.Type == "" {
		d.Type = dist.TypeSource
	}
}

// Validate checks the character-class rules and that every dependency entry
// parses as a name constraint. It does not mutate d; call ApplyDefaults
// first.
func (d *DistInfo) Validate() error {
	if d.Name == "" {
		return xerrors.New("dist.info: missing name")
	}
	if !nameChars.MatchString(d.Name) {
		return xerrors.Errorf("dist.info %s: invalid character in name", d.Name)
	}
	if d.Version == "" {
		return xerrors.Errorf("dist.info %s: missing version", d.Name)
	}
	if !nameChars.MatchString(d.Version) {
		return xerrors.Errorf("dist.info %s: invalid character in version %q", d.Name, d.Version)
	}
	if !platformChars.MatchString(d.Arch) {
		return xerrors.Errorf("dist.info %s: invalid arch %q", d.NameVersion(), d.Arch)
	}
	if !platformChars.MatchString(d.Type) {
		return xerrors.Errorf("dist.info %s: invalid type %q", d.NameVersion(), d.Type)
	}
	for field, t := range map[string]*Table{"depends": d.Depends, "conflicts": d.Conflicts, "provides": d.Provides} {
		if err := validateDeps(t); err != nil {
			return xerrors.Errorf("dist.info %s: %s: %w", d.NameVersion(), field, err)
		}
	}
	return nil
}

// validateDeps descends through arch/type-keyed nesting and checks every
// string entry parses as a name constraint.
func validateDeps(t *Table) error {
	if t == nil {
		return nil
	}
	for _, kv := range t.Fields {
		sub, ok := kv.Val.(*Table)
		if !ok {
			return xerrors.Errorf("entry under %q is not a table", kv.Key)
		}
		if err := validateDeps(sub); err != nil {
			return err
		}
	}
	for _, v := range t.List {
		switch v := v.(type) {
		case string:
			if _, err := dist.ParseNameConstraint(v); err != nil {
				return err
			}
		case *Table:
			if err := validateDeps(v); err != nil {
				return err
			}
		default:
			return xerrors.Errorf("entry %v is neither a constraint nor a table", v)
		}
	}
	return nil
}

// Flatten resolves the arch/type nesting of a constraint list against the
// host platform: descend by arch key if present, then by type key, otherwise
// collect the current level. Map-valued entries inside the sequence resolve
// the same way.
func Flatten(t *Table, plat dist.Platform) []string {
	if t == nil {
		return nil
	}
	if sub, ok := t.Field(plat.Arch).(*Table); ok {
		return Flatten(sub, plat)
	}
	if sub, ok := t.Field(plat.Type).(*Table); ok {
		return Flatten(sub, plat)
	}
	var out []string
	for _, v := range t.List {
		switch v := v.(type) {
		case string:
			out = append(out, v)
		case *Table:
			out = append(out, Flatten(v, plat)...)
		}
	}
	return out
}

// DependsOn returns the host-resolved depends entries.
func (d *DistInfo) DependsOn(plat dist.Platform) []string {
	return Flatten(d.Depends, plat)
}

// ConflictsWith returns the host-resolved conflicts entries.
func (d *DistInfo) ConflictsWith(plat dist.Platform) []string {
	return Flatten(d.Conflicts, plat)
}

// ProvidesList returns the host-resolved provides entries.
func (d *DistInfo) ProvidesList(plat dist.Platform) []string {
	return Flatten(d.Provides, plat)
}

// StringList converts a table of positional strings (e.g. the files field).
func StringList(t *Table) []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.List))
	for _, v := range t.List {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
