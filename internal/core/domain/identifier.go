package domain

import "strings"

// SourceKind tags which adapter produced a node or specifier (§9 "Heterogeneous
// sources"). It rides on every Identifier and Specifier rather than being
// expressed as a type hierarchy.
type SourceKind string

const (
	// SourceRegistry is the native pesde registry.
	SourceRegistry SourceKind = "registry"
	// SourceForeign is a foreign (Wally) registry.
	SourceForeign SourceKind = "foreign"
	// SourceGit is an arbitrary git repository.
	SourceGit SourceKind = "git"
	// SourceWorkspace is a workspace sibling member.
	SourceWorkspace SourceKind = "workspace"
	// SourcePath is a local filesystem path.
	SourcePath SourceKind = "path"
)

// Identifier is the unique key of a graph node: (source-kind, canonical-name,
// resolved-version, target). See GLOSSARY: Identifier.
//
// Uniqueness is per (source-kind, canonical-name, version, target); the
// graph allows multiple targets of the same name, and multiple source kinds
// of the same name (e.g. a git mirror and a registry release coexisting).
type Identifier struct {
	Source  SourceKind
	Name    string
	Version string
	Target  TargetKind
}

// Key renders a stable string form suitable for use as a map key and for
// lockfile serialization, canonically ordered as
// "source#name@version/target".
func (id Identifier) Key() string {
	var b strings.Builder
	b.WriteString(string(id.Source))
	b.WriteByte('#')
	b.WriteString(id.Name)
	b.WriteByte('@')
	b.WriteString(id.Version)
	b.WriteByte('/')
	b.WriteString(string(id.Target))
	return b.String()
}

// String satisfies fmt.Stringer.
func (id Identifier) String() string {
	return id.Key()
}

// Less provides the total order used for deterministic iteration (§4.3 step 7):
// by source kind, then name, then version, then target.
func (id Identifier) Less(other Identifier) bool {
	if id.Source != other.Source {
		return id.Source < other.Source
	}
	if id.Name != other.Name {
		return id.Name < other.Name
	}
	if id.Version != other.Version {
		return id.Version < other.Version
	}
	return id.Target < other.Target
}
