package domain

// Lockfile persists the durable expression of a resolved graph (§3
// "Lockfile"): workspace layout, the flat graph, the resolver's
// content-hashes, and the manifest fingerprint that produced it.
type Lockfile struct {
	// ResolverVersion records which resolver revision produced this
	// lockfile, so a later revision that changes matching semantics (e.g.
	// whether "*" matches prereleases, §9) can detect and re-validate old
	// lockfiles rather than silently reinterpreting them.
	ResolverVersion int

	// ManifestFingerprint is the content hash of the manifest (or, for a
	// workspace, the root manifest) that produced this graph.
	ManifestFingerprint string

	Workspace WorkspaceTable
	Graph     *Graph
}

// CurrentResolverVersion is stamped into every lockfile this implementation
// writes.
const CurrentResolverVersion = 1

// NewLockfile creates an empty lockfile for the current resolver version.
func NewLockfile() *Lockfile {
	return &Lockfile{
		ResolverVersion: CurrentResolverVersion,
		Workspace:       WorkspaceTable{Members: make(map[string][]Published)},
		Graph:           NewGraph(),
	}
}

// NeedsRevalidation reports whether a loaded lockfile was produced by an
// older resolver version and should be treated as advisory only, not as an
// authoritative pin (§9 open question on "*" prerelease matching).
func (l *Lockfile) NeedsRevalidation() bool {
	return l.ResolverVersion != CurrentResolverVersion
}
