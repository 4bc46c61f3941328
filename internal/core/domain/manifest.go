package domain

// TargetSpec is one entry of a manifest's `target` table (§3 "Target kinds").
type TargetSpec struct {
	Kind TargetKind
	// Lib is the library entry path, e.g. "lib.luau".
	Lib string
	// Bin is the executable entry path, e.g. "bin.luau".
	Bin string
	// Scripts maps an exported script name to its path.
	Scripts map[string]string
	// BuildFiles lists paths to surface to a sync tool; only meaningful for
	// roblox/roblox_server targets.
	BuildFiles []string
}

// HasLib reports whether this target declares a library entry point.
func (t TargetSpec) HasLib() bool { return t.Lib != "" }

// HasBin reports whether this target declares a binary entry point.
func (t TargetSpec) HasBin() bool { return t.Bin != "" }

// Dependency is one entry of a manifest's dependencies/peer_dependencies/
// dev_dependencies table: an alias paired with its specifier and kind.
type Dependency struct {
	Alias      Alias
	Specifier  Specifier
	Kind       DependencyKind
}

// PlaceSpec is the game-runtime-only `[place]` mapping from a Roblox place
// slot to a file path (§3).
type PlaceSpec struct {
	Slots map[string]string
}

// Manifest is the typed representation of a project declaration (§3
// "Project manifest").
type Manifest struct {
	Name        PackageName
	Version     string
	Description string
	License     string
	Authors     []string
	Repository  string
	Private     bool

	Targets []TargetSpec

	// Indices maps a short name to an index URL, one table per source kind:
	// "indices" for the native registry, "wally_indices" for foreign.
	Indices       map[string]string
	WallyIndices  map[string]string

	Dependencies []Dependency

	Overrides []Override
	Patches   []Patch

	WorkspaceMembers []string // glob list
	Engines          map[string]string
	Includes         []string
	Place            *PlaceSpec

	// ScriptsEnabled gates the scripts-package indirection (§9: "slated for
	// removal"); kept isolated behind this flag per SPEC_FULL.md.
	ScriptsEnabled bool

	// Fingerprint is the content hash of the manifest as loaded, stamped
	// into the lockfile to detect drift between lock and manifest.
	Fingerprint string
}

// DirectDependencyAliases returns the canonical aliases of every direct
// dependency declared by the manifest, used by the resolver to validate
// peer-dependency satisfaction (§4.3 step 6, §8 property 4).
func (m Manifest) DirectDependencyAliases() map[string]bool {
	out := make(map[string]bool, len(m.Dependencies))
	for _, d := range m.Dependencies {
		out[d.Alias.Canonical()] = true
	}
	return out
}

// DependenciesOfKind filters the manifest's dependency list to a single kind.
func (m Manifest) DependenciesOfKind(kind DependencyKind) []Dependency {
	var out []Dependency
	for _, d := range m.Dependencies {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// TargetByKind returns the manifest's declared spec for the given target
// kind, if any.
func (m Manifest) TargetByKind(kind TargetKind) (TargetSpec, bool) {
	for _, t := range m.Targets {
		if t.Kind == kind {
			return t, true
		}
	}
	return TargetSpec{}, false
}

// RootSpecifierByAlias builds the alias->Specifier map apply-overrides needs
// when an override value is an alias reference into the root's own
// dependencies (§4.1).
func (m Manifest) RootSpecifierByAlias() map[string]Specifier {
	out := make(map[string]Specifier, len(m.Dependencies))
	for _, d := range m.Dependencies {
		out[d.Alias.Canonical()] = d.Specifier
	}
	return out
}
