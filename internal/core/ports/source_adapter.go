// Package ports defines the core interfaces between the resolver/downloader/
// linker engine and its adapters, following the hexagonal layout the teacher
// repo uses throughout internal/adapters.
package ports

import (
	"context"
	"io"

	"github.com/pesde-pkg/pesde/internal/core/domain"
)

// ArtifactHandle is an opaque, adapter-specific reference to a downloadable
// artifact, returned by Resolve and consumed by Download/Fingerprint.
type ArtifactHandle interface{}

// ResolvedManifest is what Resolve returns: enough of the dependency's own
// manifest to expand it further, plus the handle needed to fetch its bytes.
type ResolvedManifest struct {
	Summary  domain.ManifestSummary
	Artifact ArtifactHandle
}

// SourceAdapter is the uniform contract every dependency source satisfies
// (§4.2, §9 "Heterogeneous sources"). The resolver and downloader only ever
// talk to this interface; translation specific to one source (e.g. foreign-
// registry name sanitization) happens inside the adapter, never here.
//
//go:generate go run go.uber.org/mock/mockgen -source=source_adapter.go -destination=mocks/mock_source_adapter.go -package=mocks
type SourceAdapter interface {
	// Kind identifies which SourceKind this adapter serves.
	Kind() domain.SourceKind

	// ListVersions returns the ordered set of versions published for
	// canonicalName. Adapters keep no on-disk cache of it; the registry and
	// foreign adapters fetch it over HTTP on every call.
	ListVersions(ctx context.Context, canonicalName string) ([]string, error)

	// Resolve fetches the manifest summary and artifact handle for a
	// specific (name, version, target).
	Resolve(ctx context.Context, canonicalName, version string, target domain.TargetKind) (ResolvedManifest, error)

	// Download streams the artifact's bytes. The returned length, when
	// known, is used to enforce the index's declared max archive size
	// before decoding.
	Download(ctx context.Context, artifact ArtifactHandle) (io.ReadCloser, int64, error)

	// Fingerprint computes the stable hash the adapter associates with an
	// artifact's contents (GLOSSARY: Fingerprint).
	Fingerprint(ctx context.Context, artifact ArtifactHandle) (string, error)
}

// IndexPolicy is the per-index configuration the native registry's index
// carries alongside its listings (§4.2 "Index URL also carries policy").
type IndexPolicy struct {
	AllowGit          bool
	AllowForeign      bool
	AllowPath         bool
	MaxArchiveBytes   int64
	DefaultScripts    map[string]string // script name -> default package specifier
	GitHubOAuthClient string
}
