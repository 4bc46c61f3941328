// Package domain contains the core domain models for dependency resolution,
// content-addressed acquisition, and link-graph materialization.
package domain

import (
	"sort"

	"go.trai.ch/zerr"
)

// ManifestSummary is the subset of a resolved package's manifest the graph
// needs: just enough to drive expansion and linking without keeping the
// whole Manifest (which may belong to a different source's translated
// shape, e.g. foreign-registry).
type ManifestSummary struct {
	Name    string
	Version string
	Target  TargetSpec
	// Dependencies lists what this node declares, so the resolver can
	// enqueue them with the graph path extended by this node's own alias.
	Dependencies []Dependency
}

// Node is a flat dependency-graph node keyed by Identifier (§3 "Graph").
type Node struct {
	ID ManifestSummaryID

	Manifest ManifestSummary

	// Edges maps the alias this node requires a dependency by to that
	// dependency's identifier (§3: "Edges are (alias-at-parent -> identifier)").
	Edges map[string]Identifier

	// SourceArtifactFingerprint is the stable hash the source adapter
	// computed over the artifact (GLOSSARY: Fingerprint).
	SourceArtifactFingerprint string
	// PatchFingerprint is the content hash of the patch applied to this
	// node, if any.
	PatchFingerprint string
	// TreeHash is the CAS tree hash of this node's materialized contents
	// (post-patch), the value the linker hard-links from. It is the hash
	// ports.CASStore.PutTree returns, computed independently of
	// SourceArtifactFingerprint.
	TreeHash string

	IsPeer bool
	IsDev  bool
}

// ManifestSummaryID is an alias for Identifier kept distinct here only for
// readability at call sites that construct a Node; it is the same type.
type ManifestSummaryID = Identifier

// Importer is a root manifest's graph-path namespace: either "." for a
// single project or a workspace member's relative path.
type Importer string

// ImporterInfo is one root's direct dependencies and overrides, the seed
// for resolution (§4.3 step 1), plus the resolved edges the resolver fills
// in once each direct dependency's identifier is known — the root-level
// analogue of Node.Edges, since a root itself has no Identifier of its own.
type ImporterInfo struct {
	Dependencies []Dependency
	Overrides    []Override
	Edges        map[string]Identifier
}

// Graph is the flat dependency graph (§3 "Graph"): a map from package
// identifier to node, plus one ImporterInfo per root/workspace member.
type Graph struct {
	Importers map[Importer]ImporterInfo
	Nodes     map[Identifier]*Node
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		Importers: make(map[Importer]ImporterInfo),
		Nodes:     make(map[Identifier]*Node),
	}
}

// Get returns the node for id, if present.
func (g *Graph) Get(id Identifier) (*Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// Upsert inserts a new node or unifies with an existing one at the same
// identifier (§4.3 step 4: "If already present, unify: merge edge sets,
// union peer/dev flags. Otherwise insert.").
func (g *Graph) Upsert(id Identifier, manifest ManifestSummary, isPeer, isDev bool) *Node {
	if existing, ok := g.Nodes[id]; ok {
		existing.IsPeer = existing.IsPeer && isPeer
		existing.IsDev = existing.IsDev && isDev
		return existing
	}
	n := &Node{
		ID:       id,
		Manifest: manifest,
		Edges:    make(map[string]Identifier),
		IsPeer:   isPeer,
		IsDev:    isDev,
	}
	g.Nodes[id] = n
	return n
}

// AddEdge records alias-at-parent -> target on parent's node, unifying
// (self-loops and repeats are idempotent).
func (g *Graph) AddEdge(parent Identifier, alias Alias, target Identifier) error {
	n, ok := g.Nodes[parent]
	if !ok {
		return zerr.With(ErrMalformedManifest, "parent", parent.String())
	}
	n.Edges[alias.Canonical()] = target
	return nil
}

// SetImporter registers (or replaces) a root/workspace-member's direct
// dependency and override set, ready for the resolver to fill in Edges.
func (g *Graph) SetImporter(importer Importer, deps []Dependency, overrides []Override) {
	g.Importers[importer] = ImporterInfo{
		Dependencies: deps,
		Overrides:    overrides,
		Edges:        make(map[string]Identifier),
	}
}

// AddImporterEdge records alias -> target for one of importer's direct
// dependencies, the root-level counterpart to AddEdge.
func (g *Graph) AddImporterEdge(importer Importer, alias Alias, target Identifier) error {
	info, ok := g.Importers[importer]
	if !ok {
		return zerr.With(ErrMalformedManifest, "importer", string(importer))
	}
	if info.Edges == nil {
		info.Edges = make(map[string]Identifier)
	}
	info.Edges[alias.Canonical()] = target
	g.Importers[importer] = info
	return nil
}

// Validate checks the invariants of §3 that are independent of any
// particular consumer's target: every edge target exists in the graph.
// (Peer/target-compatibility invariants are checked by the resolver, which
// has the consumer context; see internal/engine/resolver.)
func (g *Graph) Validate() error {
	for id, n := range g.Nodes {
		for alias, target := range n.Edges {
			if target == id {
				continue // self-loops are permitted (§3, §9) and silently broken by the resolver.
			}
			if _, ok := g.Nodes[target]; !ok {
				return zerr.With(zerr.With(ErrMalformedManifest, "edge", alias), "missing_target", target.String())
			}
		}
	}
	return nil
}

// SortedIdentifiers returns every node identifier in the graph's
// deterministic total order (Identifier.Less), used for canonical
// iteration and lockfile serialization.
func (g *Graph) SortedIdentifiers() []Identifier {
	ids := make([]Identifier, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// WalkFrom performs a depth-first traversal from root's direct edges,
// yielding each reachable identifier exactly once. Back-edges (an edge
// pointing to an ancestor already on the current path) are detected and
// reported via onCycle but do not stop the walk — cycles are retained for
// linking, never expanded twice (§9 "Cyclic graphs").
func (g *Graph) WalkFrom(root Identifier, visit func(Identifier) bool, onCycle func(path []Identifier, back Identifier)) {
	visited := make(map[Identifier]bool)
	var path []Identifier

	var dfs func(id Identifier) bool
	dfs = func(id Identifier) bool {
		for _, p := range path {
			if p == id {
				if onCycle != nil {
					onCycle(append([]Identifier{}, path...), id)
				}
				return true
			}
		}
		if visited[id] {
			return true
		}
		visited[id] = true
		path = append(path, id)
		defer func() { path = path[:len(path)-1] }()

		if !visit(id) {
			return false
		}

		n, ok := g.Nodes[id]
		if !ok {
			return true
		}
		aliases := make([]string, 0, len(n.Edges))
		for a := range n.Edges {
			aliases = append(aliases, a)
		}
		sort.Strings(aliases)
		for _, a := range aliases {
			if !dfs(n.Edges[a]) {
				return false
			}
		}
		return true
	}

	dfs(root)
}

// Equivalent reports whether g and other resolve to the same set of nodes
// and edges, ignoring acquisition-only fields (TreeHash, fingerprints) that
// a fresh resolve hasn't necessarily populated yet. Used by a `--locked`
// install to detect whether resolution would change the existing lockfile
// (original_source cli/install.rs's "lockfile is out of sync" check).
func (g *Graph) Equivalent(other *Graph) bool {
	if other == nil {
		return false
	}
	if len(g.Nodes) != len(other.Nodes) {
		return false
	}
	for id, n := range g.Nodes {
		on, ok := other.Nodes[id]
		if !ok || !edgesEqual(n.Edges, on.Edges) {
			return false
		}
	}
	if len(g.Importers) != len(other.Importers) {
		return false
	}
	for importer, info := range g.Importers {
		oinfo, ok := other.Importers[importer]
		if !ok || !edgesEqual(info.Edges, oinfo.Edges) {
			return false
		}
	}
	return true
}

func edgesEqual(a, b map[string]Identifier) bool {
	if len(a) != len(b) {
		return false
	}
	for alias, id := range a {
		if b[alias] != id {
			return false
		}
	}
	return true
}
