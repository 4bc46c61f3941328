// Package downloader implements the bounded-concurrency download/patch
// pipeline (§4.5): for every node in a resolved graph, fetch its artifact,
// unpack it, strip target-forbidden files, apply any declared patch, and
// publish the result into the CAS as a tree.
package downloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultConcurrency is §4.5's "bounded concurrency budget (default 16)".
const DefaultConcurrency = 16

// forbiddenFiles lists, per target kind, the files stripped from git and
// foreign-registry artifacts before they are published (§4.5 step 4): the
// game runtime's own project file would otherwise collide with the
// consuming project's project root.
var forbiddenFiles = map[domain.TargetKind][]string{
	domain.TargetRoblox:       {"default.project.json"},
	domain.TargetRobloxServer: {"default.project.json"},
}

// strippedSources is the set of source kinds §4.5 step 4 applies stripping
// to; registry, workspace, and path artifacts are trusted not to carry a
// stray project file.
var strippedSources = map[domain.SourceKind]bool{
	domain.SourceGit:     true,
	domain.SourceForeign: true,
}

// Options steers one Run call.
type Options struct {
	// Concurrency bounds the number of nodes acquired in parallel. Zero
	// means DefaultConcurrency.
	Concurrency int
	// ContinueOnError runs every node to completion and joins their errors
	// instead of failing fast on the first one (§4.5 "--continue-on-error").
	ContinueOnError bool
}

// Downloader runs §4.5's pipeline against a resolved graph. Blob hashing is
// delegated to the CAS store itself (ports.CASStore.PutBlob already hashes
// what it's given), so this package has no direct need for ports.Hasher.
type Downloader struct {
	adapters  map[domain.SourceKind]ports.SourceAdapter
	unpacker  ports.Unpacker
	patcher   ports.PatchApplier
	cas       ports.CASStore
	telemetry ports.Telemetry
	log       ports.Logger

	sf singleflight.Group
}

// New creates a Downloader. adapters must cover every domain.SourceKind the
// graph may reference.
func New(adapters map[domain.SourceKind]ports.SourceAdapter, unpacker ports.Unpacker, patcher ports.PatchApplier, cas ports.CASStore, telemetry ports.Telemetry, log ports.Logger) *Downloader {
	return &Downloader{adapters: adapters, unpacker: unpacker, patcher: patcher, cas: cas, telemetry: telemetry, log: log}
}

// patchLookup resolves the patch declared for an identifier, if any.
type patchLookup func(id domain.Identifier) (domain.Patch, bool)

// Run acquires every node in graph, publishing each one's materialized
// contents into the CAS and recording the resulting tree hash back onto the
// node (§4.5 step 7). Cancellation via ctx lets in-flight nodes finish their
// current write before Run returns domain.ErrCancelled.
func (d *Downloader) Run(ctx context.Context, graph *domain.Graph, policy ports.IndexPolicy, patchFor patchLookup, opts Options) error {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	ids := graph.SortedIdentifiers()

	if opts.ContinueOnError {
		return d.runContinueOnError(ctx, graph, ids, policy, patchFor, concurrency)
	}
	return d.runFailFast(ctx, graph, ids, policy, patchFor, concurrency)
}

func (d *Downloader) runFailFast(ctx context.Context, graph *domain.Graph, ids []domain.Identifier, policy ports.IndexPolicy, patchFor patchLookup, concurrency int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range ids {
		id := id
		node := graph.Nodes[id]
		g.Go(func() error {
			return d.acquireOnce(gctx, id, node, policy, patchFor)
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return zerr.Wrap(domain.ErrCancelled, ctx.Err().Error())
		}
		return err
	}
	return nil
}

func (d *Downloader) runContinueOnError(ctx context.Context, graph *domain.Graph, ids []domain.Identifier, policy ports.IndexPolicy, patchFor patchLookup, concurrency int) error {
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	errsCh := make(chan error, len(ids))
	for _, id := range ids {
		id := id
		node := graph.Nodes[id]
		g.Go(func() error {
			if err := d.acquireOnce(ctx, id, node, policy, patchFor); err != nil {
				errsCh <- err
			}
			return nil
		})
	}
	_ = g.Wait()
	close(errsCh)

	var errs []error
	for err := range errsCh {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		summary := zerr.With(zerr.Wrap(domain.ErrArtifactCorrupt, "one or more nodes failed to acquire"), "count", len(errs))
		return errors.Join(append([]error{summary}, errs...)...)
	}
	return nil
}

// acquireOnce runs the single-flight guard (§4.5 step 1) around
// acquireNode, keyed by the identifier's Key(): concurrent calls for the
// same identifier on this Downloader share one acquisition. The guard is
// in-process only; separate processes are not coordinated.
func (d *Downloader) acquireOnce(ctx context.Context, id domain.Identifier, node *domain.Node, policy ports.IndexPolicy, patchFor patchLookup) error {
	_, err, _ := d.sf.Do(id.Key(), func() (any, error) {
		return nil, d.acquireNode(ctx, id, node, policy, patchFor)
	})
	return err
}

func (d *Downloader) acquireNode(ctx context.Context, id domain.Identifier, node *domain.Node, policy ports.IndexPolicy, patchFor patchLookup) (err error) {
	ctx, vertex := d.telemetry.Record(ctx, id, id.String())
	defer func() {
		if err != nil {
			vertex.RecordError(err)
		}
		vertex.End()
	}()

	adapter, ok := d.adapters[id.Source]
	if !ok {
		return zerr.With(domain.ErrDisallowedSourceKind, "kind", string(id.Source))
	}

	patch, hasPatch := patchFor(id)

	// node already carries a tree from this identifier (either from the
	// run that first downloaded it, or forwarded by the resolver from an
	// immutable previous lockfile entry) and an unchanged patch: the
	// artifact is already published, so skip adapter.Resolve/Fingerprint/
	// Download entirely rather than paying for a network round trip just
	// to confirm what the identifier itself already guarantees unchanged
	// (§8 "second install performs no network requests").
	patchUnchanged := (!hasPatch && node.PatchFingerprint == "") || (hasPatch && node.PatchFingerprint == patch.ContentHash)
	if node.TreeHash != "" && patchUnchanged {
		if has, _ := d.cas.HasTree(ctx, node.TreeHash); has {
			vertex.SetStatus(domain.VertexStatusCached)
			return nil
		}
	}

	resolved, err := adapter.Resolve(ctx, id.Name, id.Version, id.Target)
	if err != nil {
		return zerr.With(err, "identifier", id.String())
	}

	fingerprint, err := adapter.Fingerprint(ctx, resolved.Artifact)
	if err != nil {
		return zerr.With(err, "identifier", id.String())
	}

	// A fingerprint unchanged from a previous run, with an unchanged patch
	// (or none), means this node's tree is already published; skip the
	// download and re-hash (reached only when the TreeHash-based check
	// above couldn't skip the network call outright, e.g. node.TreeHash
	// was empty but the adapter still reports the same artifact fingerprint
	// from an out-of-band cache).
	if node.SourceArtifactFingerprint == fingerprint && node.TreeHash != "" && patchUnchanged {
		if has, _ := d.cas.HasTree(ctx, node.TreeHash); has {
			vertex.SetStatus(domain.VertexStatusCached)
			return nil
		}
	}

	vertex.SetStatus(domain.VertexStatusRunning)

	workDir, err := os.MkdirTemp("", "pesde-acquire-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create acquisition temp directory")
	}
	defer os.RemoveAll(workDir)

	if err := ctx.Err(); err != nil {
		return zerr.Wrap(domain.ErrCancelled, err.Error())
	}

	r, size, err := adapter.Download(ctx, resolved.Artifact)
	if err != nil {
		return zerr.With(err, "identifier", id.String())
	}
	defer r.Close()

	maxBytes := policy.MaxArchiveBytes
	if maxBytes > 0 && size > 0 && size > maxBytes {
		return zerr.With(domain.ErrArtifactTooLarge, "identifier", id.String())
	}

	if err := d.unpacker.Unpack(ctx, archiveFormatFor(id.Source), r, workDir, maxBytes); err != nil {
		return zerr.With(err, "identifier", id.String())
	}

	if strippedSources[id.Source] {
		if err := stripForbidden(workDir, forbiddenFiles[id.Target]); err != nil {
			return zerr.With(err, "identifier", id.String())
		}
	}

	if hasPatch {
		// Mirrors config.ManifestFilename; the engine layer doesn't import
		// the adapters package, so the name is repeated here.
		const manifestRel = "pesde.toml"
		if err := d.patcher.Apply(ctx, patch.Path, workDir, manifestRel); err != nil {
			return zerr.With(err, "identifier", id.String())
		}
	}

	tree, err := d.buildTree(ctx, workDir)
	if err != nil {
		return zerr.With(err, "identifier", id.String())
	}

	treeHash, err := d.cas.PutTree(ctx, tree)
	if err != nil {
		return zerr.With(err, "identifier", id.String())
	}

	node.SourceArtifactFingerprint = fingerprint
	node.TreeHash = treeHash
	if hasPatch {
		node.PatchFingerprint = patch.ContentHash
	} else {
		node.PatchFingerprint = ""
	}

	vertex.SetStatus(domain.VertexStatusCompleted)
	d.log.Info("acquired package", "identifier", id.String(), "tree_hash", treeHash)
	return nil
}

// buildTree hashes every regular file under workDir into the CAS as a blob,
// and assembles the resulting (relative-path, blob-hash, exec-bit) list
// (§4.4 "Package materialization inside CAS").
func (d *Downloader) buildTree(ctx context.Context, workDir string) (domain.Tree, error) {
	var tree domain.Tree

	err := filepath.WalkDir(workDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return zerr.With(domain.ErrUnsafeArchiveEntry, "entry", path)
		}

		rel, err := filepath.Rel(workDir, path)
		if err != nil {
			return err
		}

		f, err := os.Open(path) //nolint:gosec // path is our own freshly unpacked temp tree
		if err != nil {
			return err
		}
		hash, err := d.cas.PutBlob(ctx, f)
		f.Close()
		if err != nil {
			return err
		}

		tree = append(tree, domain.TreeEntry{
			RelPath:  filepath.ToSlash(rel),
			BlobHash: hash,
			ExecBit:  info.Mode()&0o111 != 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// stripForbidden deletes names (if present) from every directory in dir,
// not just its root, since a git/foreign artifact's project file may live
// at any depth relative to the archive root.
func stripForbidden(dir string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	forbidden := make(map[string]bool, len(names))
	for _, n := range names {
		forbidden[n] = true
	}
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if forbidden[entry.Name()] {
			return os.Remove(path)
		}
		return nil
	})
}

// archiveFormatFor picks the artifact encoding §4.5 step 2 expects: every
// source streams a gzipped tar except the foreign (Wally) registry, which
// serves zip archives (ports.ArchiveZip's doc comment).
func archiveFormatFor(source domain.SourceKind) ports.ArchiveFormat {
	if source == domain.SourceForeign {
		return ports.ArchiveZip
	}
	return ports.ArchiveTarGz
}
