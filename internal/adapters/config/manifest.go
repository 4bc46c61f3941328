// Package config implements the TOML manifest and lockfile codecs (§3, §5)
// and the advisory lockfile lock used around mutating commands.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

const ManifestFilename = "pesde.toml"

var _ ports.ManifestLoader = (*TOMLManifestLoader)(nil)

// TOMLManifestLoader implements ports.ManifestLoader against pesde.toml.
type TOMLManifestLoader struct {
	log ports.Logger
}

// NewManifestLoader creates a new TOMLManifestLoader.
func NewManifestLoader(log ports.Logger) *TOMLManifestLoader {
	return &TOMLManifestLoader{log: log}
}

// manifestDoc is the on-disk TOML shape of a manifest, kept separate from
// domain.Manifest so field renames and table layout stay free to diverge
// from the in-memory representation.
type manifestDoc struct {
	Name        string            `toml:"name"`
	Version     string            `toml:"version"`
	Description string            `toml:"description,omitempty"`
	License     string            `toml:"license,omitempty"`
	Authors     []string          `toml:"authors,omitempty"`
	Repository  string            `toml:"repository,omitempty"`
	Private     bool              `toml:"private,omitempty"`
	Target      targetDoc         `toml:"target"`
	Indices     map[string]string `toml:"indices,omitempty"`
	WallyIndices map[string]string `toml:"wally_indices,omitempty"`

	Dependencies     map[string]specifierDoc `toml:"dependencies,omitempty"`
	PeerDependencies map[string]specifierDoc `toml:"peer_dependencies,omitempty"`
	DevDependencies  map[string]specifierDoc `toml:"dev_dependencies,omitempty"`

	Overrides map[string]overrideDoc `toml:"overrides,omitempty"`
	Patches   map[string]string      `toml:"patches,omitempty"` // "name@version" -> patch file path

	WorkspaceMembers []string          `toml:"workspace_members,omitempty"`
	Engines          map[string]string `toml:"engines,omitempty"`
	Includes         []string          `toml:"includes,omitempty"`
	Place            map[string]string `toml:"place,omitempty"`
	ScriptsEnabled   bool              `toml:"scripts_enabled,omitempty"`
}

type targetDoc struct {
	Environment string            `toml:"environment"`
	Lib         string            `toml:"lib,omitempty"`
	Bin         string            `toml:"bin,omitempty"`
	Scripts     map[string]string `toml:"scripts,omitempty"`
	BuildFiles  []string          `toml:"build_files,omitempty"`
}

// specifierDoc is a loosely-typed TOML row; exactly one source-kind field
// group is populated, mirroring domain.Specifier's tagged union.
type specifierDoc struct {
	// Registry
	Name    string `toml:"name,omitempty"`
	Version string `toml:"version,omitempty"`
	Index   string `toml:"index,omitempty"`
	Target  string `toml:"target,omitempty"`

	// Foreign (wally)
	Wally string `toml:"wally,omitempty"`

	// Git
	Git      string `toml:"git,omitempty"`
	Rev      string `toml:"rev,omitempty"`
	Path     string `toml:"path,omitempty"`

	// Workspace
	Workspace string `toml:"workspace,omitempty"`
}

type overrideDoc struct {
	Name    string `toml:"name,omitempty"`
	Version string `toml:"version,omitempty"`
	Alias   string `toml:"alias,omitempty"`
}

// Load reads and parses pesde.toml from cwd into a domain.Manifest.
func (l *TOMLManifestLoader) Load(cwd string) (domain.Manifest, error) {
	path := filepath.Join(cwd, ManifestFilename)
	//nolint:gosec // path is joined from a caller-controlled project root
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Manifest{}, zerr.With(zerr.Wrap(domain.ErrMalformedManifest, err.Error()), "path", path)
	}

	var doc manifestDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return domain.Manifest{}, zerr.With(zerr.Wrap(domain.ErrMalformedManifest, err.Error()), "path", path)
	}

	m, err := fromDoc(doc)
	if err != nil {
		return domain.Manifest{}, err
	}

	hasher := sha256Hex(data)
	m.Fingerprint = hasher
	return m, nil
}

// Save serializes a domain.Manifest and writes it to pesde.toml in cwd.
func (l *TOMLManifestLoader) Save(cwd string, m domain.Manifest) error {
	doc := toDoc(m)
	data, err := toml.Marshal(doc)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal manifest")
	}
	path := filepath.Join(cwd, ManifestFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // manifest is not sensitive
		return zerr.Wrap(err, "failed to write manifest")
	}
	return nil
}

func fromDoc(doc manifestDoc) (domain.Manifest, error) {
	name, err := domain.ParsePackageName(doc.Name)
	if err != nil {
		return domain.Manifest{}, err
	}

	defaultTarget, err := domain.ParseTargetKind(doc.Target.Environment)
	if err != nil {
		return domain.Manifest{}, err
	}

	m := domain.Manifest{
		Name:         name,
		Version:      doc.Version,
		Description:  doc.Description,
		License:      doc.License,
		Authors:      doc.Authors,
		Repository:   doc.Repository,
		Private:      doc.Private,
		Indices:      doc.Indices,
		WallyIndices: doc.WallyIndices,
		Targets: []domain.TargetSpec{{
			Kind:       defaultTarget,
			Lib:        doc.Target.Lib,
			Bin:        doc.Target.Bin,
			Scripts:    doc.Target.Scripts,
			BuildFiles: doc.Target.BuildFiles,
		}},
		WorkspaceMembers: doc.WorkspaceMembers,
		Engines:          doc.Engines,
		Includes:         doc.Includes,
		ScriptsEnabled:   doc.ScriptsEnabled,
	}

	if len(doc.Place) > 0 {
		m.Place = &domain.PlaceSpec{Slots: doc.Place}
	}

	ctx := domain.NormalizeContext{
		Indices:       doc.Indices,
		DefaultTarget: defaultTarget,
		AllowGit:      true,
		AllowForeign:  true,
		AllowPath:     true,
	}

	deps, err := depsFromDoc(doc.Dependencies, domain.KindStandard, ctx)
	if err != nil {
		return domain.Manifest{}, err
	}
	m.Dependencies = append(m.Dependencies, deps...)
	peerDeps, err := depsFromDoc(doc.PeerDependencies, domain.KindPeer, ctx)
	if err != nil {
		return domain.Manifest{}, err
	}
	m.Dependencies = append(m.Dependencies, peerDeps...)
	devDeps, err := depsFromDoc(doc.DevDependencies, domain.KindDev, ctx)
	if err != nil {
		return domain.Manifest{}, err
	}
	m.Dependencies = append(m.Dependencies, devDeps...)

	for rawKey, ov := range doc.Overrides {
		key := domain.ParseOverrideKey(rawKey)
		value := domain.OverrideValue{}
		if ov.Alias != "" {
			value.IsAliasRef = true
			value.AliasRef = domain.NewAlias(ov.Alias)
		} else {
			spec := domain.Specifier{Source: domain.SourceRegistry, RegistryName: ov.Name, Constraint: ov.Version}
			value.Literal = &spec
		}
		m.Overrides = append(m.Overrides, domain.Override{Key: key, Value: value, Raw: rawKey})
	}

	for key, path := range doc.Patches {
		pk, err := parsePatchKey(key, defaultTarget)
		if err != nil {
			return domain.Manifest{}, err
		}
		m.Patches = append(m.Patches, domain.Patch{Key: pk, Path: path})
	}

	return m, nil
}

func depsFromDoc(table map[string]specifierDoc, kind domain.DependencyKind, ctx domain.NormalizeContext) ([]domain.Dependency, error) {
	var out []domain.Dependency
	for alias, row := range table {
		spec, err := specifierFromDoc(row)
		if err != nil {
			return nil, err
		}
		normalized, err := spec.Normalize(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Dependency{Alias: domain.NewAlias(alias), Specifier: normalized, Kind: kind})
	}
	return out, nil
}

func specifierFromDoc(row specifierDoc) (domain.Specifier, error) {
	switch {
	case row.Wally != "":
		return domain.Specifier{Source: domain.SourceForeign, ForeignName: row.Wally}, nil
	case row.Git != "":
		return domain.Specifier{Source: domain.SourceGit, GitRepo: row.Git, GitRevision: row.Rev, GitSubPath: row.Path}, nil
	case row.Workspace != "":
		return domain.Specifier{Source: domain.SourceWorkspace, WorkspaceName: row.Workspace, WorkspaceConstraint: row.Version}, nil
	case row.Path != "" && row.Git == "":
		return domain.Specifier{Source: domain.SourcePath, Path: row.Path}, nil
	default:
		target, err := targetOverrideFromDoc(row.Target)
		if err != nil {
			return domain.Specifier{}, err
		}
		return domain.Specifier{Source: domain.SourceRegistry, RegistryName: row.Name, Constraint: row.Version, IndexAlias: row.Index, TargetOverride: target}, nil
	}
}

func targetOverrideFromDoc(s string) (domain.TargetKind, error) {
	if s == "" {
		return "", nil
	}
	return domain.ParseTargetKind(s)
}

func parsePatchKey(key string, defaultTarget domain.TargetKind) (domain.PatchKey, error) {
	// key is "scope/name@version" or "scope/name@version/target".
	at := -1
	for i, c := range key {
		if c == '@' {
			at = i
			break
		}
	}
	if at < 0 {
		return domain.PatchKey{}, zerr.With(domain.ErrMalformedManifest, "patch_key", key)
	}
	rest := key[at+1:]
	version, target := rest, defaultTarget
	for i, c := range rest {
		if c == '/' {
			version = rest[:i]
			parsed, err := domain.ParseTargetKind(rest[i+1:])
			if err != nil {
				return domain.PatchKey{}, err
			}
			target = parsed
			break
		}
	}
	return domain.PatchKey{Name: key[:at], Version: version, Target: target}, nil
}

func toDoc(m domain.Manifest) manifestDoc {
	doc := manifestDoc{
		Name:         m.Name.String(),
		Version:      m.Version,
		Description:  m.Description,
		License:      m.License,
		Authors:      m.Authors,
		Repository:   m.Repository,
		Private:      m.Private,
		Indices:      m.Indices,
		WallyIndices: m.WallyIndices,
		WorkspaceMembers: m.WorkspaceMembers,
		Engines:          m.Engines,
		Includes:         m.Includes,
		ScriptsEnabled:   m.ScriptsEnabled,
	}
	if len(m.Targets) > 0 {
		primary := m.Targets[0]
		doc.Target = targetDoc{
			Environment: string(primary.Kind),
			Lib:         primary.Lib,
			Bin:         primary.Bin,
			Scripts:     primary.Scripts,
			BuildFiles:  primary.BuildFiles,
		}
	}
	if m.Place != nil {
		doc.Place = m.Place.Slots
	}

	doc.Dependencies = make(map[string]specifierDoc)
	doc.PeerDependencies = make(map[string]specifierDoc)
	doc.DevDependencies = make(map[string]specifierDoc)
	for _, d := range m.Dependencies {
		row := specifierToDoc(d.Specifier)
		switch d.Kind {
		case domain.KindPeer:
			doc.PeerDependencies[d.Alias.Display()] = row
		case domain.KindDev:
			doc.DevDependencies[d.Alias.Display()] = row
		default:
			doc.Dependencies[d.Alias.Display()] = row
		}
	}

	return doc
}

func specifierToDoc(s domain.Specifier) specifierDoc {
	switch s.Source {
	case domain.SourceForeign:
		return specifierDoc{Wally: s.ForeignName}
	case domain.SourceGit:
		return specifierDoc{Git: s.GitRepo, Rev: s.GitRevision, Path: s.GitSubPath}
	case domain.SourceWorkspace:
		return specifierDoc{Workspace: s.WorkspaceName, Version: s.WorkspaceConstraint}
	case domain.SourcePath:
		return specifierDoc{Path: s.Path}
	default:
		target := ""
		if s.TargetOverride != "" {
			target = string(s.TargetOverride)
		}
		return specifierDoc{Name: s.RegistryName, Version: s.Constraint, Index: s.IndexAlias, Target: target}
	}
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
