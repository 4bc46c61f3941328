// Package pathsrc implements the path source adapter (§4.2 "Path"): a
// dependency that is simply a manifest already on disk, with no version
// lattice and no remote fetch.
package pathsrc

import (
	"context"
	"io"

	"github.com/pesde-pkg/pesde/internal/adapters/source/localtree"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SourceAdapter = (*Adapter)(nil)

// Adapter resolves dependencies whose specifier names an absolute directory
// holding its own pesde.toml.
type Adapter struct {
	loader ports.ManifestLoader
}

// New creates a path Adapter. loader is used to read the dependency's own
// manifest the same way a project root's manifest is read.
func New(loader ports.ManifestLoader) *Adapter {
	return &Adapter{loader: loader}
}

func (a *Adapter) Kind() domain.SourceKind { return domain.SourcePath }

// ListVersions returns the single pseudo-version "path": path dependencies
// have no version lattice, so the resolver short-circuits version selection
// for them (internal/engine/resolver.selectVersion) and never calls this,
// but the method still satisfies the uniform contract.
func (a *Adapter) ListVersions(ctx context.Context, canonicalName string) ([]string, error) {
	return []string{"path"}, nil
}

// Resolve reads canonicalName (the absolute directory) as a pesde.toml
// manifest and projects it to a ManifestSummary for the requested target.
func (a *Adapter) Resolve(ctx context.Context, canonicalName, version string, target domain.TargetKind) (ports.ResolvedManifest, error) {
	m, err := a.loader.Load(canonicalName)
	if err != nil {
		return ports.ResolvedManifest{}, err
	}

	targetSpec, ok := m.TargetByKind(target)
	if !ok {
		return ports.ResolvedManifest{}, zerr.With(domain.ErrNoCompatibleTarget, "path", canonicalName)
	}

	return ports.ResolvedManifest{
		Summary: domain.ManifestSummary{
			Name:         canonicalName,
			Version:      version,
			Target:       targetSpec,
			Dependencies: m.Dependencies,
		},
		Artifact: artifactHandle{dir: canonicalName},
	}, nil
}

type artifactHandle struct{ dir string }

// Download streams the dependency's directory as a gzipped tar so the
// downloader's CAS-publish step (§4.5) is uniform across every source kind,
// even though nothing was actually fetched over the network.
func (a *Adapter) Download(ctx context.Context, artifact ports.ArtifactHandle) (io.ReadCloser, int64, error) {
	h, ok := artifact.(artifactHandle)
	if !ok {
		return nil, 0, zerr.With(domain.ErrArtifactCorrupt, "artifact", "wrong handle type")
	}
	r, err := localtree.TarGz(h.dir)
	if err != nil {
		return nil, 0, err
	}
	return r, -1, nil
}

// Fingerprint hashes the directory's current contents, so editing a path
// dependency's files changes its fingerprint and triggers relinking.
func (a *Adapter) Fingerprint(ctx context.Context, artifact ports.ArtifactHandle) (string, error) {
	h, ok := artifact.(artifactHandle)
	if !ok {
		return "", zerr.With(domain.ErrArtifactCorrupt, "artifact", "wrong handle type")
	}
	return localtree.Fingerprint(h.dir)
}
