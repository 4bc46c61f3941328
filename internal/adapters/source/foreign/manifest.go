package foreign

import (
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"go.trai.ch/zerr"
)

// wallyManifestDoc is the on-disk shape of a foreign-registry (Wally)
// manifest: "[package] name/version/realm" plus flat dependency tables
// keyed "scope/name@constraint".
type wallyManifestDoc struct {
	Package struct {
		Name  string `toml:"name"`
		Realm string `toml:"realm,omitempty"`
	} `toml:"package"`
	Dependencies       map[string]string `toml:"dependencies,omitempty"`
	ServerDependencies map[string]string `toml:"server-dependencies,omitempty"`
	DevDependencies    map[string]string `toml:"dev-dependencies,omitempty"`
}

// ParseWallyManifest decodes a wally.toml document into a ManifestSummary,
// translating its dependency shorthand into domain types (§4.2 "its
// dependencies must be translated: names are sanitized, dependency kinds
// collapsed, targets fixed to the game runtime"). target selects whether
// the server-dependencies table is folded in, letting the git adapter's
// transparent-conversion fallback and this package's own Resolve share one
// implementation.
func ParseWallyManifest(data []byte, target domain.TargetKind) (domain.ManifestSummary, error) {
	var doc wallyManifestDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return domain.ManifestSummary{}, zerr.Wrap(domain.ErrMalformedManifest, err.Error())
	}

	deps := translateDeps(doc.Dependencies, domain.KindStandard)
	if target == domain.TargetRobloxServer {
		deps = append(deps, translateDeps(doc.ServerDependencies, domain.KindStandard)...)
	}
	deps = append(deps, translateDeps(doc.DevDependencies, domain.KindDev)...)

	return domain.ManifestSummary{
		Name:         SanitizeName(doc.Package.Name),
		Dependencies: deps,
	}, nil
}

func translateDeps(table map[string]string, kind domain.DependencyKind) []domain.Dependency {
	var out []domain.Dependency
	for alias, spec := range table {
		name, constraint := splitWallySpec(spec)
		out = append(out, domain.Dependency{
			Alias: domain.NewAlias(alias),
			Specifier: domain.Specifier{
				Source:      domain.SourceForeign,
				ForeignName: SanitizeName(name),
				Constraint:  constraint,
			},
			Kind: kind,
		})
	}
	return out
}

// splitWallySpec splits "scope/name@^1.2.3" into its name and constraint
// parts; a bare "scope/name" with no "@" has no constraint text.
func splitWallySpec(spec string) (name, constraint string) {
	name, constraint, ok := strings.Cut(spec, "@")
	if !ok {
		return spec, ""
	}
	return name, constraint
}

// SanitizeName lowercases a foreign-registry name and rewrites the
// characters pesde's own naming rules disallow (everything but letters,
// digits, underscore, and the scope separator) to underscores, per §4.2
// "its own naming (scope/name with different sanitization)".
func SanitizeName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '/', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
