// Package app implements the per-project orchestration described by §4.6's
// state machine: Plan, Resolve, Download, Link, WriteLockfile, Done — with
// the "(graph unchanged) -> Link -> Done" shortcut taken whenever the
// manifest fingerprint still matches the existing lockfile, independent of
// --locked.
package app

//go:generate sh -c "GOFLAGS='-tags=wireinject' go run github.com/mazrean/kessoku/cmd/kessoku wire.go"

import (
	"context"
	"path/filepath"

	"github.com/pesde-pkg/pesde/internal/adapters/source/workspacesrc" //nolint:depguard // Wired in app layer
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"github.com/pesde-pkg/pesde/internal/engine/downloader"
	"github.com/pesde-pkg/pesde/internal/engine/linker"
	"github.com/pesde-pkg/pesde/internal/engine/resolver"
	"go.trai.ch/zerr"
)

// Options carries the install/update flags a CLI collaborator passes
// straight through to the resolver and downloader (§4.3, §4.5).
type Options struct {
	Update          bool
	Locked          bool
	Prod            bool
	DevOnly         bool
	Concurrency     int
	ContinueOnError bool
}

// defaultIndexPolicy is used until an index-policy fetch is wired onto a
// source adapter (none of the adapters in this tree expose one yet — see
// DESIGN.md). It is permissive, matching what a freshly-initialized project
// with no configured index restrictions would get.
var defaultIndexPolicy = ports.IndexPolicy{
	AllowGit:        true,
	AllowForeign:    true,
	AllowPath:       true,
	MaxArchiveBytes: 64 << 20,
}

// App orchestrates one project's (or workspace's) install/update/run/prune
// operations against the resolver, downloader, and linker engines.
type App struct {
	manifests  ports.ManifestLoader
	lockfiles  ports.LockfileStore
	resolver   *resolver.Resolver
	downloader *downloader.Downloader
	linker     *linker.Linker
	cas        ports.CASStore
	workspace  *workspacesrc.Adapter
	log        ports.Logger
}

// New creates an App from its wired collaborators.
func New(
	manifests ports.ManifestLoader,
	lockfiles ports.LockfileStore,
	res *resolver.Resolver,
	dl *downloader.Downloader,
	lk *linker.Linker,
	cas ports.CASStore,
	workspace *workspacesrc.Adapter,
	log ports.Logger,
) *App {
	return &App{
		manifests:  manifests,
		lockfiles:  lockfiles,
		resolver:   res,
		downloader: dl,
		linker:     lk,
		cas:        cas,
		workspace:  workspace,
		log:        log,
	}
}

// roots bundles what Install/Update need per project: the root manifest plus
// every workspace member, each carrying its own importer namespace.
type roots struct {
	root    domain.Manifest
	members []domain.WorkspaceMember
}

func (a *App) loadRoots(cwd string) (roots, error) {
	m, err := a.manifests.Load(cwd)
	if err != nil {
		return roots{}, err
	}
	if len(m.WorkspaceMembers) == 0 {
		return roots{root: m}, nil
	}
	return roots{root: m, members: a.workspace.Members()}, nil
}

func (rs roots) resolverRoots() []resolver.Root {
	out := make([]resolver.Root, 0, len(rs.members)+1)
	out = append(out, resolver.Root{Importer: ".", Manifest: rs.root})
	for _, mem := range rs.members {
		out = append(out, resolver.Root{Importer: domain.Importer(mem.RelPath), Manifest: mem.Manifest})
	}
	return out
}

func (rs roots) linkerRoots(cwd string) []linker.Root {
	out := make([]linker.Root, 0, len(rs.members)+1)
	out = append(out, linker.Root{Importer: ".", Dir: cwd, Manifest: rs.root})
	for _, mem := range rs.members {
		out = append(out, linker.Root{
			Importer: domain.Importer(mem.RelPath),
			Dir:      filepath.Join(cwd, filepath.FromSlash(mem.RelPath)),
			Manifest: mem.Manifest,
		})
	}
	return out
}

func (rs roots) workspaceTable() domain.WorkspaceTable {
	table := domain.WorkspaceTable{Members: make(map[string][]domain.Published, len(rs.members))}
	for _, mem := range rs.members {
		var published []domain.Published
		for _, t := range mem.Manifest.Targets {
			published = append(published, domain.Published{Name: mem.Manifest.Name, Target: t.Kind})
		}
		table.Members[mem.RelPath] = published
	}
	return table
}

func patchLookupFor(m domain.Manifest) func(domain.Identifier) (domain.Patch, bool) {
	byKey := make(map[domain.PatchKey]domain.Patch, len(m.Patches))
	for _, p := range m.Patches {
		byKey[p.Key] = p
	}
	return func(id domain.Identifier) (domain.Patch, bool) {
		p, ok := byKey[domain.PatchKey{Name: id.Name, Version: id.Version, Target: id.Target}]
		return p, ok
	}
}

// Install runs the full Plan/Resolve/Download/Link/WriteLockfile pipeline,
// or the link-only shortcut when the manifest fingerprint still matches the
// existing lockfile — taken on every normal install, not only under
// --locked (original_source cli/install.rs: the lockfile is reused
// automatically on a normal install). opts.Locked instead means "fail if
// resolution would produce a lockfile the existing one doesn't already
// pin" (cli/install.rs's "lockfile is out of sync" bail-out), checked
// after Resolve below.
func (a *App) Install(ctx context.Context, cwd string, opts Options) error {
	release, err := a.lockfiles.Lock(cwd)
	if err != nil {
		return err
	}
	defer func() { _ = release() }()

	rs, err := a.loadRoots(cwd)
	if err != nil {
		return err
	}

	prev, err := a.lockfiles.Load(cwd)
	if err != nil {
		return err
	}

	if !opts.Update && prev != nil && !prev.NeedsRevalidation() && prev.ManifestFingerprint == rs.root.Fingerprint {
		a.log.Info("lockfile unchanged, linking from existing graph", "path", cwd)
		return a.linker.Link(ctx, rs.linkerRoots(cwd), prev.Graph)
	}

	if opts.Locked && prev == nil {
		return zerr.With(domain.ErrLockfileOutOfSync, "reason", "no lockfile present")
	}

	graph, err := a.resolver.Resolve(ctx, rs.resolverRoots(), prev, resolver.Options{
		Update:  opts.Update,
		Locked:  opts.Locked,
		Prod:    opts.Prod,
		DevOnly: opts.DevOnly,
	})
	if err != nil {
		return zerr.Wrap(err, "resolution failed")
	}

	if opts.Locked && prev != nil && !prev.Graph.Equivalent(graph) {
		return zerr.With(domain.ErrLockfileOutOfSync, "path", cwd)
	}

	dlOpts := downloader.Options{Concurrency: opts.Concurrency, ContinueOnError: opts.ContinueOnError}
	if err := a.downloader.Run(ctx, graph, defaultIndexPolicy, patchLookupFor(rs.root), dlOpts); err != nil {
		return zerr.Wrap(err, "download failed")
	}

	if err := a.linker.Link(ctx, rs.linkerRoots(cwd), graph); err != nil {
		return zerr.Wrap(err, "linking failed")
	}

	next := domain.NewLockfile()
	next.ManifestFingerprint = rs.root.Fingerprint
	next.Workspace = rs.workspaceTable()
	next.Graph = graph
	if err := a.lockfiles.Save(cwd, next); err != nil {
		return zerr.Wrap(err, "failed to write lockfile")
	}

	return nil
}

// Update is Install with resolution forced to re-consult source adapters for
// a fresher version even when a lockfile entry would otherwise satisfy the
// constraint (§4.3 "--update").
func (a *App) Update(ctx context.Context, cwd string, opts Options) error {
	opts.Update = true
	opts.Locked = false
	return a.Install(ctx, cwd, opts)
}

// Prune removes every CAS blob/tree not reachable from the current
// lockfile's graph (§4.4 "Pruning").
func (a *App) Prune(ctx context.Context, cwd string) (removedBlobs, removedTrees int, err error) {
	lf, err := a.lockfiles.Load(cwd)
	if err != nil {
		return 0, 0, err
	}
	if lf == nil {
		return 0, 0, nil
	}

	keep := make([]string, 0, len(lf.Graph.Nodes))
	for _, n := range lf.Graph.Nodes {
		if n.TreeHash != "" {
			keep = append(keep, n.TreeHash)
		}
	}
	return a.cas.Prune(ctx, keep)
}

// Run executes scriptName as declared under target's `[target.scripts]`
// table against the current project, primarily used by the `pesde run` CLI
// surface for project-defined scripts (distinct from the linker's own
// sync-tool invocation). An empty targetName picks the manifest's first
// declared target, matching a single-target project's common case.
func (a *App) Run(ctx context.Context, cwd string, executor ports.ScriptExecutor, targetName, scriptName string, args []string) error {
	m, err := a.manifests.Load(cwd)
	if err != nil {
		return err
	}

	spec, ok, err := targetSpecFor(m, targetName)
	if err != nil {
		return err
	}
	if !ok {
		return zerr.With(domain.ErrUnknownTarget, "target", targetName)
	}

	script, ok := spec.Scripts[scriptName]
	if !ok {
		return zerr.With(domain.ErrMalformedManifest, "script", scriptName)
	}
	command := append([]string{"lune", "run", script}, args...)
	return executor.Run(ctx, command, cwd, nil)
}

func targetSpecFor(m domain.Manifest, targetName string) (domain.TargetSpec, bool, error) {
	if targetName == "" {
		if len(m.Targets) == 0 {
			return domain.TargetSpec{}, false, nil
		}
		return m.Targets[0], true, nil
	}
	kind, err := domain.ParseTargetKind(targetName)
	if err != nil {
		return domain.TargetSpec{}, false, err
	}
	spec, ok := m.TargetByKind(kind)
	return spec, ok, nil
}
