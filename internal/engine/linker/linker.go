// Package linker implements §4.6: materializing a resolved, downloaded graph
// into each root's per-target packages folders, generating the shims that
// let a flat graph resolve transitive requires without rewriting any
// dependency's own source.
package linker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

// Root is one project whose packages folders the linker materializes: a
// single-project install, or one workspace member when linking from the
// workspace root.
type Root struct {
	Importer domain.Importer
	// Dir is the root/member's directory on disk, parent of its packages
	// folders.
	Dir string
	// Manifest is this root's own manifest, consulted for the sync-tool
	// script entry (§4.6 "Sync-tool configuration").
	Manifest domain.Manifest
}

// Linker runs §4.6's materialization against a resolved, downloaded graph.
type Linker struct {
	cas      ports.CASStore
	verifier ports.Verifier
	scripts  ports.ScriptExecutor
	log      ports.Logger
}

// New creates a Linker.
func New(cas ports.CASStore, verifier ports.Verifier, scripts ports.ScriptExecutor, log ports.Logger) *Linker {
	return &Linker{cas: cas, verifier: verifier, scripts: scripts, log: log}
}

// edge is one importer-level dependency: the alias it's required by and the
// node it resolves to.
type edge struct {
	alias string
	id    domain.Identifier
}

// Link materializes every root's packages folders. Each folder is built in
// a sibling staging directory and only promoted (via remove-then-rename) once
// fully populated, so a failure never leaves a partially-linked folder in
// place (§4.6 state machine: "the installed tree is not promoted").
func (l *Linker) Link(ctx context.Context, roots []Root, graph *domain.Graph) error {
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return zerr.Wrap(domain.ErrCancelled, err.Error())
		}
		if err := l.linkRoot(ctx, root, graph); err != nil {
			return err
		}
	}
	return nil
}

func (l *Linker) linkRoot(ctx context.Context, root Root, graph *domain.Graph) error {
	info, ok := graph.Importers[root.Importer]
	if !ok {
		return nil
	}

	byTarget := make(map[domain.TargetKind][]edge)
	for alias, id := range info.Edges {
		byTarget[id.Target] = append(byTarget[id.Target], edge{alias: alias, id: id})
	}

	targets := make([]domain.TargetKind, 0, len(byTarget))
	for target := range byTarget {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	for _, target := range targets {
		edges := byTarget[target]
		sort.Slice(edges, func(i, j int) bool { return edges[i].alias < edges[j].alias })
		if err := l.linkPackagesDir(ctx, root, target, edges, graph); err != nil {
			return err
		}
	}

	return l.runSyncTools(ctx, root, byTarget, graph)
}

func (l *Linker) linkPackagesDir(ctx context.Context, root Root, target domain.TargetKind, edges []edge, graph *domain.Graph) error {
	finalDir := filepath.Join(root.Dir, target.PackagesDir())
	stagingDir := finalDir + ".pesde-staging"

	if err := os.RemoveAll(stagingDir); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to clear linker staging directory"), "dir", stagingDir)
	}
	if err := os.MkdirAll(stagingDir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create linker staging directory"), "dir", stagingDir)
	}

	for _, e := range edges {
		if err := ctx.Err(); err != nil {
			return zerr.Wrap(domain.ErrCancelled, err.Error())
		}
		if err := l.linkDependency(ctx, stagingDir, e, graph); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(finalDir); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove previous packages directory"), "dir", finalDir)
	}
	if err := os.Rename(stagingDir, finalDir); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to promote linked packages directory"), "dir", finalDir)
	}

	l.log.Info("linked packages directory", "target", string(target), "dir", finalDir)
	return nil
}

// linkDependency materializes one direct edge's node into packagesDir,
// writing its alias shim(s) at the packages folder root and its transitive
// re-export shims inside its own materialization scope.
func (l *Linker) linkDependency(ctx context.Context, packagesDir string, e edge, graph *domain.Graph) error {
	node, ok := graph.Get(e.id)
	if !ok {
		return zerr.With(domain.ErrEntryPointMissing, "identifier", e.id.String())
	}

	containerAbs := filepath.Join(packagesDir, containerDir(e.id))
	tree, err := l.cas.GetTree(ctx, node.TreeHash)
	if err != nil {
		return zerr.With(err, "identifier", e.id.String())
	}
	if err := materializeTree(l.cas.Root(), tree, containerAbs); err != nil {
		return zerr.With(err, "identifier", e.id.String())
	}
	if err := l.verifyMaterialized(containerAbs, tree, e.id); err != nil {
		return err
	}

	ext := e.id.Target.FileExtension()
	spec := node.Manifest.Target

	if spec.HasLib() {
		content, err := l.buildLibShimContent(ctx, tree, packagesDir, containerAbs, spec.Lib)
		if err != nil {
			return zerr.With(err, "identifier", e.id.String())
		}
		if err := os.WriteFile(filepath.Join(packagesDir, e.alias+ext), []byte(content), 0o640); err != nil { //nolint:gosec // shim lives under the linker's own staging directory
			return zerr.With(zerr.Wrap(err, "failed to write library shim"), "alias", e.alias)
		}
	}

	if spec.HasBin() {
		requirePath, err := luauRequirePath(packagesDir, filepath.Join(containerAbs, spec.Bin))
		if err != nil {
			return zerr.With(err, "identifier", e.id.String())
		}
		content := generateBinShim(containerAbs, requirePath)
		binName := e.alias + ".bin" + ext
		if err := os.WriteFile(filepath.Join(packagesDir, binName), []byte(content), 0o750); err != nil { //nolint:gosec // executable shim, deliberately 0750
			return zerr.With(zerr.Wrap(err, "failed to write binary shim"), "alias", e.alias)
		}
	}

	return l.linkReexports(ctx, packagesDir, containerAbs, node, graph)
}

// verifyMaterialized re-hashes every entry the hard-link step just placed
// under containerAbs and compares it to the CAS tree's recorded blob hash,
// catching a corrupted or externally-modified CAS blob before it reaches a
// consuming project rather than silently linking bad content (§4.4's
// read-only/integrity intent for materialized trees).
func (l *Linker) verifyMaterialized(containerAbs string, tree domain.Tree, id domain.Identifier) error {
	ok, mismatches, err := l.verifier.VerifyTree(containerAbs, tree)
	if err != nil {
		return zerr.With(err, "identifier", id.String())
	}
	if !ok {
		return zerr.With(zerr.With(domain.ErrArtifactCorrupt, "identifier", id.String()), "paths", mismatches)
	}
	return nil
}

// buildLibShimContent renders a library shim's content: the relative require
// from fromDir to the entry file at containerAbs/libRel, plus a re-export
// line per type the entry file exports.
func (l *Linker) buildLibShimContent(ctx context.Context, tree domain.Tree, fromDir, containerAbs, libRel string) (string, error) {
	requirePath, err := luauRequirePath(fromDir, filepath.Join(containerAbs, libRel))
	if err != nil {
		return "", err
	}
	types, err := l.extractTypes(ctx, tree, libRel)
	if err != nil {
		return "", err
	}
	return generateLibShim(requirePath, types), nil
}

func (l *Linker) extractTypes(ctx context.Context, tree domain.Tree, relPath string) ([]string, error) {
	rel := filepath.ToSlash(relPath)
	for _, entry := range tree {
		if entry.RelPath != rel {
			continue
		}
		r, err := l.cas.OpenBlob(ctx, entry.BlobHash)
		if err != nil {
			return nil, zerr.With(err, "path", relPath)
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to read entry point for type extraction"), "path", relPath)
		}
		return extractExportedTypes(data), nil
	}
	return nil, nil
}

// linkReexports emits, inside node's own materialization scope (the
// directory containing its <target>/ tree, per §4.6's layout diagram), one
// re-export shim per dependency node itself requires — the mechanism that
// lets a dependency's own `require("./alias")` statements keep resolving
// once its source is relocated into a flat graph.
func (l *Linker) linkReexports(ctx context.Context, packagesDir, containerAbs string, node *domain.Node, graph *domain.Graph) error {
	scopeDir := filepath.Dir(containerAbs)
	ext := node.ID.Target.FileExtension()

	aliases := make([]string, 0, len(node.Edges))
	for a := range node.Edges {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)

	for _, a := range aliases {
		depID := node.Edges[a]
		if depID == node.ID {
			continue
		}
		depNode, ok := graph.Get(depID)
		if !ok || !depNode.Manifest.Target.HasLib() {
			continue
		}

		depContainerAbs := filepath.Join(packagesDir, containerDir(depID))
		depTree, err := l.cas.GetTree(ctx, depNode.TreeHash)
		if err != nil {
			return zerr.With(err, "identifier", depID.String())
		}

		content, err := l.buildLibShimContent(ctx, depTree, scopeDir, depContainerAbs, depNode.Manifest.Target.Lib)
		if err != nil {
			return zerr.With(err, "identifier", depID.String())
		}

		if err := os.WriteFile(filepath.Join(scopeDir, a+ext), []byte(content), 0o640); err != nil { //nolint:gosec // shim lives under the linker's own staging directory
			return zerr.With(zerr.Wrap(err, "failed to write re-export shim"), "alias", a)
		}
	}
	return nil
}

// runSyncTools invokes the roblox_sync_config_generator script once per
// roblox-family dependency linked into root, passing the materialized
// package directory and its declared build files (§4.6 "Sync-tool
// configuration"). Skipped entirely when the manifest's scripts mechanism is
// disabled (domain.Manifest.ScriptsEnabled), consistent with §9's "slated
// for removal" note carried into SPEC_FULL.md.
func (l *Linker) runSyncTools(ctx context.Context, root Root, byTarget map[domain.TargetKind][]edge, graph *domain.Graph) error {
	if !root.Manifest.ScriptsEnabled {
		return nil
	}

	targets := make([]domain.TargetKind, 0, len(byTarget))
	for target := range byTarget {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	for _, target := range targets {
		if !target.IsRoblox() {
			continue
		}
		spec, ok := root.Manifest.TargetByKind(target)
		if !ok {
			continue
		}
		script, ok := spec.Scripts["roblox_sync_config_generator"]
		if !ok || script == "" {
			continue
		}

		packagesDir := filepath.Join(root.Dir, target.PackagesDir())
		edges := byTarget[target]
		sort.Slice(edges, func(i, j int) bool { return edges[i].alias < edges[j].alias })

		for _, e := range edges {
			if err := ctx.Err(); err != nil {
				return zerr.Wrap(domain.ErrCancelled, err.Error())
			}
			node, ok := graph.Get(e.id)
			if !ok {
				continue
			}
			packageDir := filepath.Join(packagesDir, containerDir(e.id))
			command := append([]string{"lune", "run", script, packageDir}, node.Manifest.Target.BuildFiles...)

			if err := l.scripts.Run(ctx, command, root.Dir, nil); err != nil {
				return zerr.With(zerr.Wrap(domain.ErrSyncConfigGeneratorFailed, err.Error()), "identifier", e.id.String())
			}
		}
	}
	return nil
}
