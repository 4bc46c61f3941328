// Package resolver implements the dependency resolution algorithm (§4.3):
// seed a work queue from every root's direct dependencies, normalize and
// override each specifier, ask the owning source adapter for a matching
// version, and expand the flat graph to a fixpoint.
package resolver

import (
	"context"
	"errors"
	"sort"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options carries the install/update flags that steer version selection and
// post-processing (§4.3).
type Options struct {
	Update  bool
	Locked  bool
	Prod    bool
	DevOnly bool
}

// Root is one manifest seeding resolution: a single project, or one member
// of a workspace when installing from the workspace root.
type Root struct {
	Importer domain.Importer
	Manifest domain.Manifest
}

// Resolver runs the resolution algorithm against a set of source adapters,
// one per domain.SourceKind the manifest is allowed to reference.
type Resolver struct {
	adapters map[domain.SourceKind]ports.SourceAdapter
	log      ports.Logger
}

// New creates a Resolver. adapters must have an entry for every source kind
// any root (or transitive dependency) may reference.
func New(adapters map[domain.SourceKind]ports.SourceAdapter, log ports.Logger) *Resolver {
	return &Resolver{adapters: adapters, log: log}
}

// workItem is one pending edge to resolve: a dependency declared at path,
// by either a root importer (hasParent == false) or a graph node.
type workItem struct {
	importer  domain.Importer
	hasParent bool
	parent    domain.Identifier
	alias     domain.Alias
	dep       domain.Dependency
	path      domain.GraphPath
	ancestors []domain.Identifier
	ctx       domain.NormalizeContext
	rootDeps  map[string]domain.Specifier
	overrides []domain.Override
}

// Resolve runs §4.3's algorithm to fixpoint and returns the resulting graph.
func (r *Resolver) Resolve(ctx context.Context, roots []Root, prev *domain.Lockfile, opts Options) (*domain.Graph, error) {
	graph := domain.NewGraph()
	var queue []workItem

	for _, root := range roots {
		graph.SetImporter(root.Importer, root.Manifest.Dependencies, root.Manifest.Overrides)
		nctx := normalizeContextFor(root.Manifest)
		rootDeps := root.Manifest.RootSpecifierByAlias()

		for _, dep := range root.Manifest.Dependencies {
			if opts.Prod && dep.Kind == domain.KindDev {
				continue
			}
			queue = append(queue, workItem{
				importer:  root.Importer,
				alias:     dep.Alias,
				dep:       dep,
				path:      domain.GraphPath{dep.Alias},
				ctx:       nctx,
				rootDeps:  rootDeps,
				overrides: root.Manifest.Overrides,
			})
		}
	}

	for len(queue) > 0 {
		sortQueue(queue)
		item := queue[0]
		queue = queue[1:]

		more, err := r.processItem(ctx, graph, prev, opts, item)
		if err != nil {
			return nil, err
		}
		queue = append(queue, more...)
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	if err := CheckPeers(graph); err != nil {
		return nil, err
	}
	if err := CheckTargets(graph); err != nil {
		return nil, err
	}

	return graph, nil
}

func sortQueue(queue []workItem) {
	sort.SliceStable(queue, func(i, j int) bool {
		ai, aj := queue[i].alias.Canonical(), queue[j].alias.Canonical()
		if ai != aj {
			return ai < aj
		}
		return queue[i].path.String() < queue[j].path.String()
	})
}

func (r *Resolver) processItem(ctx context.Context, graph *domain.Graph, prev *domain.Lockfile, opts Options, item workItem) ([]workItem, error) {
	spec, err := item.dep.Specifier.Normalize(item.ctx)
	if err != nil {
		return nil, err
	}
	spec, err = domain.ApplyOverrides(item.path, spec, item.overrides, item.rootDeps)
	if err != nil {
		return nil, err
	}

	adapter, ok := r.adapters[spec.Source]
	if !ok {
		return nil, zerr.With(domain.ErrDisallowedSourceKind, "kind", string(spec.Source))
	}

	canonicalName := specifierName(spec)
	target := spec.TargetOverride
	if target == "" {
		target = item.ctx.DefaultTarget
	}

	version, err := r.selectVersion(ctx, adapter, graph, prev, opts, item, spec, canonicalName, target)
	if err != nil {
		return nil, err
	}

	id := domain.Identifier{Source: spec.Source, Name: canonicalName, Version: version, Target: target}

	// A pinned identifier from an immutable source (registry/foreign
	// artifacts are never republished under the same version; a git
	// identifier's version is the revision itself) names exactly the same
	// manifest content the previous lockfile already recorded, so its
	// summary can be reused without an adapter.Resolve network call —
	// the other half of the "second install performs no network
	// requests" property selectVersion's lockedVersion check starts above.
	var resolved ports.ResolvedManifest
	prevNode, reusable := immutablePrevNode(prev, id)
	if reusable {
		resolved = ports.ResolvedManifest{Summary: prevNode.Manifest}
	} else {
		resolved, err = adapter.Resolve(ctx, canonicalName, version, target)
		if err != nil {
			return nil, err
		}
	}

	if err := recordEdge(graph, item, id); err != nil {
		return nil, err
	}

	if isAncestor(item.ancestors, id) {
		if len(item.ancestors) > 0 && item.ancestors[len(item.ancestors)-1] != id {
			r.log.Warn("dependency cycle retained without re-expansion", "identifier", id.String(), "error", domain.ErrCycleThroughNonSelf)
		}
		return nil, nil
	}

	_, existed := graph.Get(id)
	node := graph.Upsert(id, resolved.Summary, item.dep.Kind == domain.KindPeer, item.dep.Kind == domain.KindDev)

	if existed {
		return nil, nil
	}

	if reusable {
		// Carry the previous tree forward so the downloader's own CAS
		// check (acquireNode) can skip fetching the artifact entirely
		// instead of finding an empty TreeHash and falling through.
		node.SourceArtifactFingerprint = prevNode.SourceArtifactFingerprint
		node.PatchFingerprint = prevNode.PatchFingerprint
		node.TreeHash = prevNode.TreeHash
	}

	childCtx := item.ctx
	childCtx.DefaultTarget = target
	ancestors := append(append([]domain.Identifier{}, item.ancestors...), id)

	var next []workItem
	for _, childDep := range resolved.Summary.Dependencies {
		if opts.Prod && childDep.Kind == domain.KindDev {
			continue
		}
		next = append(next, workItem{
			importer:  item.importer,
			hasParent: true,
			parent:    id,
			alias:     childDep.Alias,
			dep:       childDep,
			path:      item.path.Extend(childDep.Alias),
			ancestors: ancestors,
			ctx:       childCtx,
			rootDeps:  item.rootDeps,
			overrides: item.overrides,
		})
	}
	return next, nil
}

func recordEdge(graph *domain.Graph, item workItem, id domain.Identifier) error {
	if item.hasParent {
		return graph.AddEdge(item.parent, item.alias, id)
	}
	return graph.AddImporterEdge(item.importer, item.alias, id)
}

func isAncestor(ancestors []domain.Identifier, id domain.Identifier) bool {
	for _, a := range ancestors {
		if a == id {
			return true
		}
	}
	return false
}

// selectVersion implements §4.3 step 3's preference order: the previous
// lockfile's version when locked (or still-satisfying and not updating),
// otherwise the highest version satisfying the constraint.
func (r *Resolver) selectVersion(ctx context.Context, adapter ports.SourceAdapter, graph *domain.Graph, prev *domain.Lockfile, opts Options, item workItem, spec domain.Specifier, canonicalName string, target domain.TargetKind) (string, error) {
	constraintStr := constraintFor(spec)

	// Sources with no version lattice skip version listing: a git pin uses
	// the specifier's own revision, a path dependency the fixed "path".
	if spec.Source == domain.SourceGit {
		return spec.GitRevision, nil
	}
	if spec.Source == domain.SourcePath {
		return "path", nil
	}

	constraint, err := domain.ParseConstraint(constraintStr)
	if err != nil {
		return "", err
	}

	// Check the previous lockfile before asking the adapter to list
	// versions at all: a locked or still-satisfying pin needs no network
	// call, matching §5's "registry listings ... revalidated on update"
	// and the literal "second install performs no network requests"
	// end-to-end scenario (§8).
	if locked, ok := lockedVersion(prev, item, spec.Source, canonicalName, target); ok {
		if opts.Locked || (!opts.Update && constraint.Match(locked)) {
			return locked, nil
		}
	}

	versions, err := adapter.ListVersions(ctx, canonicalName)
	if err != nil {
		return "", err
	}

	best, ok := domain.HighestMatching(constraint, versions)
	if !ok {
		return "", zerr.With(zerr.With(domain.ErrVersionNotFound, "name", canonicalName), "constraint", constraintStr)
	}
	return best, nil
}

func lockedVersion(prev *domain.Lockfile, item workItem, source domain.SourceKind, name string, target domain.TargetKind) (string, bool) {
	if prev == nil {
		return "", false
	}
	var edges map[string]domain.Identifier
	if item.hasParent {
		n, ok := prev.Graph.Get(item.parent)
		if !ok {
			return "", false
		}
		edges = n.Edges
	} else {
		info, ok := prev.Graph.Importers[item.importer]
		if !ok {
			return "", false
		}
		edges = info.Edges
	}
	id, ok := edges[item.alias.Canonical()]
	if !ok || id.Source != source || id.Name != name || id.Target != target {
		return "", false
	}
	return id.Version, true
}

// immutableSources names the source kinds whose (name, version, target)
// triple uniquely determines the manifest content forever: a published
// registry/foreign artifact is never mutated in place, and a git
// identifier's "version" is the resolved revision itself. Path and
// workspace identifiers carry a constant placeholder version ("path", or
// the member's own declared version) over content that can change between
// installs, so they are always re-read fresh.
var immutableSources = map[domain.SourceKind]bool{
	domain.SourceRegistry: true,
	domain.SourceForeign:  true,
	domain.SourceGit:      true,
}

// immutablePrevNode returns the previous lockfile's node at id when id's
// source is immutable and the node is still present, letting the caller
// skip re-resolving a manifest (and carry its TreeHash forward) whose
// content cannot have changed since that lockfile was written.
func immutablePrevNode(prev *domain.Lockfile, id domain.Identifier) (*domain.Node, bool) {
	if prev == nil || prev.Graph == nil || !immutableSources[id.Source] {
		return nil, false
	}
	return prev.Graph.Get(id)
}

func specifierName(s domain.Specifier) string {
	switch s.Source {
	case domain.SourceForeign:
		return s.ForeignName
	case domain.SourceGit:
		if s.GitSubPath != "" {
			return s.GitRepo + "#" + s.GitSubPath
		}
		return s.GitRepo
	case domain.SourceWorkspace:
		return s.WorkspaceName
	case domain.SourcePath:
		return s.Path
	default:
		return s.RegistryName
	}
}

func constraintFor(s domain.Specifier) string {
	if s.Source == domain.SourceWorkspace {
		return s.WorkspaceConstraint
	}
	return s.Constraint
}

// CheckPeers implements §4.3 step 6's UnsatisfiedPeer check: every node
// marked IsPeer must also be directly declared (by name) by at least one
// root importer, folding the original implementation's separate
// dependency-type graph into a pass over the resolved graph instead.
func CheckPeers(graph *domain.Graph) error {
	directNames := make(map[string]bool)
	for _, info := range graph.Importers {
		for _, dep := range info.Dependencies {
			directNames[specifierName(dep.Specifier)] = true
		}
	}

	var errs []error
	for id, node := range graph.Nodes {
		if !node.IsPeer {
			continue
		}
		if !directNames[id.Name] {
			errs = append(errs, zerr.With(domain.ErrUnsatisfiedPeer, "identifier", id.String()))
		}
	}
	return errors.Join(errs...)
}

// CheckTargets implements §4.3 step 6's TargetMismatch check: every edge's
// target must be compatible with its consumer's own target.
func CheckTargets(graph *domain.Graph) error {
	var errs []error
	for parentID, node := range graph.Nodes {
		for alias, childID := range node.Edges {
			if childID == parentID {
				continue
			}
			if !childID.Target.CompatibleWith(parentID.Target) {
				errs = append(errs, zerr.With(zerr.With(domain.ErrNoCompatibleTarget, "alias", alias), "parent", parentID.String()))
			}
		}
	}
	return errors.Join(errs...)
}

func normalizeContextFor(m domain.Manifest) domain.NormalizeContext {
	defaultTarget := domain.TargetLuau
	if len(m.Targets) > 0 {
		defaultTarget = m.Targets[0].Kind
	}
	return domain.NormalizeContext{
		Indices:       m.Indices,
		DefaultTarget: defaultTarget,
		AllowGit:      true,
		AllowForeign:  true,
		AllowPath:     true,
	}
}
