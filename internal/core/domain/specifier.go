package domain

import "go.trai.ch/zerr"

// DependencyKind is the role a dependency plays for its declaring package
// (§3 "Dependency kind").
type DependencyKind string

const (
	// KindStandard is installed transitively like any normal dependency.
	KindStandard DependencyKind = "standard"
	// KindPeer is resolved but not installed automatically; the consuming
	// root must also declare it directly.
	KindPeer DependencyKind = "peer"
	// KindDev is omitted from publication and may be omitted from
	// production installs.
	KindDev DependencyKind = "dev"
)

// Specifier is the tagged sum described in §3 "Dependency specifier". Exactly
// one of the source-specific fields is populated, selected by Source.
type Specifier struct {
	Source SourceKind

	// Registry fields.
	RegistryName   string // "scope/name"
	Constraint     string // raw constraint text, parsed with ParseConstraint
	IndexAlias     string
	TargetOverride TargetKind // zero value means "use project default"

	// Foreign fields.
	ForeignName string

	// Git fields.
	GitRepo     string // URL or configured shortname
	GitRevision string // tag, branch, or commit
	GitSubPath  string

	// Workspace fields.
	WorkspaceName       string
	WorkspaceConstraint string // "^", "~", "=", "*", or an explicit version

	// Path fields.
	Path string
}

// NormalizeContext supplies the project-level information normalize needs:
// the index alias table and the target a dependency defaults to when it
// doesn't declare its own.
type NormalizeContext struct {
	Indices       map[string]string // alias -> index URL
	DefaultTarget TargetKind
	AllowGit      bool
	AllowForeign  bool
	AllowPath     bool
}

// Normalize fills in the defaulted target, validates name syntax, and checks
// that a named index alias is declared, per §4.1. The alias is kept as
// written; it is not replaced by the index URL it names.
func (s Specifier) Normalize(ctx NormalizeContext) (Specifier, error) {
	out := s
	if out.TargetOverride == "" {
		out.TargetOverride = ctx.DefaultTarget
	}

	switch s.Source {
	case SourceRegistry:
		if _, err := ParsePackageName(s.RegistryName); err != nil {
			return Specifier{}, err
		}
		if s.IndexAlias != "" {
			if _, ok := ctx.Indices[s.IndexAlias]; !ok {
				return Specifier{}, zerr.With(ErrUnknownIndex, "alias", s.IndexAlias)
			}
		}
	case SourceForeign:
		if !ctx.AllowForeign {
			return Specifier{}, zerr.With(ErrDisallowedSourceKind, "kind", string(SourceForeign))
		}
		if s.IndexAlias != "" {
			if _, ok := ctx.Indices[s.IndexAlias]; !ok {
				return Specifier{}, zerr.With(ErrUnknownIndex, "alias", s.IndexAlias)
			}
		}
	case SourceGit:
		if !ctx.AllowGit {
			return Specifier{}, zerr.With(ErrDisallowedSourceKind, "kind", string(SourceGit))
		}
	case SourcePath:
		if !ctx.AllowPath {
			return Specifier{}, zerr.With(ErrDisallowedSourceKind, "kind", string(SourcePath))
		}
	case SourceWorkspace:
		if _, err := ParsePackageName(s.WorkspaceName); err != nil {
			return Specifier{}, err
		}
		if isBareWorkspaceOperator(s.WorkspaceConstraint) {
			out.WorkspaceConstraint = "*"
		}
	default:
		return Specifier{}, zerr.With(ErrMalformedManifest, "source", string(s.Source))
	}

	return out, nil
}

// isBareWorkspaceOperator reports whether a workspace specifier's version
// text is a range operator with no explicit version attached ("", "^", "~",
// "="), which §4.2 Workspace binds to the member's current version rather
// than treating as a constraint to match.
func isBareWorkspaceOperator(s string) bool {
	switch s {
	case "", "^", "~", "=":
		return true
	default:
		return false
	}
}

// GraphPath is the alias chain from a root to a node, the key space overrides
// key on (GLOSSARY: Graph path). It's represented as the aliases' canonical
// (lowercase) spellings joined the way override keys spell them: "a>b>c".
type GraphPath []Alias

// String renders the path using the override-key separator.
func (p GraphPath) String() string {
	s := ""
	for i, a := range p {
		if i > 0 {
			s += ">"
		}
		s += a.Canonical()
	}
	return s
}

// Extend returns a new path with alias appended.
func (p GraphPath) Extend(alias Alias) GraphPath {
	out := make(GraphPath, len(p)+1)
	copy(out, p)
	out[len(p)] = alias
	return out
}
