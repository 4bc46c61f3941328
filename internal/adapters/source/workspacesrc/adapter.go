// Package workspacesrc implements the workspace source adapter (§4.2
// "Workspace"): resolution stays local, walking the workspace root's
// workspace_members globs to find sibling member manifests rather than
// talking to any network source.
package workspacesrc

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pesde-pkg/pesde/internal/adapters/config"
	"github.com/pesde-pkg/pesde/internal/adapters/source/localtree"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SourceAdapter = (*Adapter)(nil)

type member struct {
	dir      string
	manifest domain.Manifest
}

// Adapter resolves workspace-sibling dependencies by walking rootDir for
// directories matching patterns and reading each one's pesde.toml.
type Adapter struct {
	loader   ports.ManifestLoader
	rootDir  string
	patterns []string
	members  []member
}

// New discovers workspace members under rootDir via patterns (the root
// manifest's workspace_members globs) using loader to parse each member's
// manifest. Discovery happens once, at construction, mirroring §4.2's "walk
// workspace_members globs relative to the workspace root" as a one-shot
// local scan rather than a per-lookup walk.
func New(loader ports.ManifestLoader, rootDir string, patterns []string) (*Adapter, error) {
	members, err := discoverMembers(loader, rootDir, patterns)
	if err != nil {
		return nil, err
	}
	return &Adapter{loader: loader, rootDir: rootDir, patterns: patterns, members: members}, nil
}

func discoverMembers(loader ports.ManifestLoader, rootDir string, patterns []string) ([]member, error) {
	var out []member
	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == rootDir {
			return nil
		}
		if d.Name() == ".git" || d.Name() == ".pesde" {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}
		normalized := filepath.ToSlash(rel)
		if !matchesAny(patterns, normalized) {
			return nil
		}
		if _, statErr := os.Stat(filepath.Join(path, config.ManifestFilename)); statErr != nil {
			return nil
		}

		m, loadErr := loader.Load(path)
		if loadErr != nil {
			return loadErr
		}
		out = append(out, member{dir: path, manifest: m})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func (a *Adapter) Kind() domain.SourceKind { return domain.SourceWorkspace }

// Members returns every workspace member discovered at construction time,
// relative to the workspace root, for the app layer to seed per-member
// resolver/linker roots from (§3 Lockfile: "workspace table").
func (a *Adapter) Members() []domain.WorkspaceMember {
	out := make([]domain.WorkspaceMember, 0, len(a.members))
	for _, m := range a.members {
		rel, err := filepath.Rel(a.rootDir, m.dir)
		if err != nil {
			rel = m.dir
		}
		out = append(out, domain.WorkspaceMember{RelPath: filepath.ToSlash(rel), Manifest: m.manifest})
	}
	return out
}

// RootDir returns the workspace root directory this adapter was discovered
// against.
func (a *Adapter) RootDir() string { return a.rootDir }

// ListVersions returns the version(s) of workspace members named
// canonicalName: ordinarily exactly one, since a workspace holds at most one
// member per package name, but every declared target is collapsed onto the
// same version entry.
func (a *Adapter) ListVersions(ctx context.Context, canonicalName string) ([]string, error) {
	seen := make(map[string]bool)
	var versions []string
	for _, m := range a.members {
		if m.manifest.Name.String() != canonicalName {
			continue
		}
		if !seen[m.manifest.Version] {
			seen[m.manifest.Version] = true
			versions = append(versions, m.manifest.Version)
		}
	}
	return versions, nil
}

// Resolve locates the member matching (canonicalName, version, target).
func (a *Adapter) Resolve(ctx context.Context, canonicalName, version string, target domain.TargetKind) (ports.ResolvedManifest, error) {
	for _, m := range a.members {
		if m.manifest.Name.String() != canonicalName || m.manifest.Version != version {
			continue
		}
		targetSpec, ok := m.manifest.TargetByKind(target)
		if !ok {
			continue
		}
		return ports.ResolvedManifest{
			Summary: domain.ManifestSummary{
				Name:         canonicalName,
				Version:      version,
				Target:       targetSpec,
				Dependencies: m.manifest.Dependencies,
			},
			Artifact: artifactHandle{dir: m.dir},
		}, nil
	}
	return ports.ResolvedManifest{}, zerr.With(zerr.With(zerr.With(domain.ErrVersionNotFound, "name", canonicalName), "version", version), "target", string(target))
}

type artifactHandle struct{ dir string }

// Download streams the member's directory as a gzipped tar, the same
// uniform-contract trick pathsrc uses for a dependency with no remote
// artifact to fetch.
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

// Fingerprint hashes the member's current on-disk contents.
func (a *Adapter) Fingerprint(ctx context.Context, artifact ports.ArtifactHandle) (string, error) {
	h, ok := artifact.(artifactHandle)
	if !ok {
		return "", zerr.With(domain.ErrArtifactCorrupt, "artifact", "wrong handle type")
	}
	return localtree.Fingerprint(h.dir)
}
