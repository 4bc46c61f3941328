package registry

import "github.com/pesde-pkg/pesde/internal/core/domain"

// packageResponse is GET /v1/packages/{scope}/{name} (§6): every published
// version's per-target manifest summary, keyed by version then target kind.
type packageResponse struct {
	Name       string                     `json:"name"`
	Deprecated string                     `json:"deprecated,omitempty"`
	Versions   map[string]versionEntryDoc `json:"versions"`
}

type versionEntryDoc struct {
	Description string                  `json:"description,omitempty"`
	Targets     map[string]targetRecord `json:"targets"`
}

// targetRecord is also what GET .../{version}/{target} returns directly
// (§6 "one version record"), with Description folded in alongside it.
type targetRecord struct {
	Description  string                       `json:"description,omitempty"`
	Lib          string                       `json:"lib,omitempty"`
	Bin          string                       `json:"bin,omitempty"`
	Scripts      map[string]string            `json:"scripts,omitempty"`
	Yanked       bool                         `json:"yanked,omitempty"`
	PublishedAt  string                       `json:"published_at,omitempty"`
	License      string                       `json:"license,omitempty"`
	Authors      []string                     `json:"authors,omitempty"`
	Repository   string                       `json:"repository,omitempty"`
	Docs         string                       `json:"docs,omitempty"`
	Dependencies map[string]dependencyRecord  `json:"dependencies,omitempty"`
}

// dependencyRecord mirrors the manifest's own dependency-table shape
// (name/index/range/target/kind), translated to JSON for the wire rather
// than TOML.
type dependencyRecord struct {
	Name   string `json:"name"`
	Index  string `json:"index,omitempty"`
	Range  string `json:"range"`
	Target string `json:"target,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

func translateDependencies(table map[string]dependencyRecord) []domain.Dependency {
	var out []domain.Dependency
	for alias, rec := range table {
		kind := domain.KindStandard
		switch rec.Kind {
		case "peer":
			kind = domain.KindPeer
		case "dev":
			kind = domain.KindDev
		}
		var targetOverride domain.TargetKind
		if rec.Target != "" {
			if t, err := domain.ParseTargetKind(rec.Target); err == nil {
				targetOverride = t
			}
		}
		out = append(out, domain.Dependency{
			Alias: domain.NewAlias(alias),
			Specifier: domain.Specifier{
				Source:         domain.SourceRegistry,
				RegistryName:   rec.Name,
				Constraint:     rec.Range,
				IndexAlias:     rec.Index,
				TargetOverride: targetOverride,
			},
			Kind: kind,
		})
	}
	return out
}

func toManifestSummary(name, version string, target domain.TargetKind, rec targetRecord) domain.ManifestSummary {
	return domain.ManifestSummary{
		Name:    name,
		Version: version,
		Target: domain.TargetSpec{
			Kind: target,
			Lib:  rec.Lib,
			Bin:  rec.Bin,
		},
		Dependencies: translateDependencies(rec.Dependencies),
	}
}
