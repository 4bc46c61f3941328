// Package foreign implements the foreign-registry (Wally) source adapter
// (§4.2 "Foreign registry"): a distinct, pre-existing registry with its own
// naming and zipped artifact format, translated into pesde's domain shapes
// at the boundary.
package foreign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

const httpClientTimeout = 30 * time.Second

var _ ports.SourceAdapter = (*Adapter)(nil)

// Adapter talks to a single Wally-compatible registry over HTTP. The
// resolver holds one adapter per domain.SourceKind, so an index alias that
// names a different base URL than this adapter's baseURL is not routed
// separately; see DESIGN.md for that simplification.
type Adapter struct {
	baseURL string
	client  *http.Client
}

// New creates a foreign-registry Adapter against baseURL. A nil client gets
// a default with httpClientTimeout, mirroring the teacher's NixHub resolver.
func New(baseURL string, client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: httpClientTimeout}
	}
	return &Adapter{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (a *Adapter) Kind() domain.SourceKind { return domain.SourceForeign }

type versionsResponse struct {
	Versions []string `json:"versions"`
}

// ListVersions fetches the ordered version list for a sanitized scope/name.
func (a *Adapter) ListVersions(ctx context.Context, canonicalName string) ([]string, error) {
	var out versionsResponse
	if err := a.getJSON(ctx, "/v1/package-versions/"+escapeName(canonicalName), &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

type metadataResponse struct {
	Manifest string `json:"manifest"`
	SHA256   string `json:"sha256"`
	ArtifactURL string `json:"artifact_url"`
}

// Resolve fetches canonicalName@version's wally.toml and translates it.
// Only game-runtime targets are accepted: any other target fails with
// ErrNoCompatibleTarget. The summary carries the requested target, and the
// server-dependencies table is folded in only when that target is
// roblox_server; no second identifier is synthesized here.
func (a *Adapter) Resolve(ctx context.Context, canonicalName, version string, target domain.TargetKind) (ports.ResolvedManifest, error) {
	if !target.IsRoblox() {
		return ports.ResolvedManifest{}, zerr.With(zerr.With(domain.ErrNoCompatibleTarget, "name", canonicalName), "target", string(target))
	}

	var meta metadataResponse
	path := fmt.Sprintf("/v1/packages/%s/%s", escapeName(canonicalName), url.PathEscape(version))
	if err := a.getJSON(ctx, path, &meta); err != nil {
		return ports.ResolvedManifest{}, err
	}

	summary, err := ParseWallyManifest([]byte(meta.Manifest), target)
	if err != nil {
		return ports.ResolvedManifest{}, err
	}
	summary.Name = canonicalName
	summary.Version = version
	summary.Target = domain.TargetSpec{Kind: target}

	return ports.ResolvedManifest{
		Summary: summary,
		Artifact: artifactHandle{
			url:    meta.ArtifactURL,
			sha256: meta.SHA256,
		},
	}, nil
}

type artifactHandle struct {
	url    string
	sha256 string
}

// Download streams the package's zip artifact.
func (a *Adapter) Download(ctx context.Context, artifact ports.ArtifactHandle) (io.ReadCloser, int64, error) {
	h, ok := artifact.(artifactHandle)
	if !ok {
		return nil, 0, zerr.With(domain.ErrArtifactCorrupt, "artifact", "wrong handle type")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, zerr.Wrap(domain.ErrNetworkFailure, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, zerr.With(domain.ErrNetworkFailure, "status", resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

// Fingerprint returns the registry's own declared hash for the artifact,
// avoiding a second download just to compute one.
func (a *Adapter) Fingerprint(ctx context.Context, artifact ports.ArtifactHandle) (string, error) {
	h, ok := artifact.(artifactHandle)
	if !ok {
		return "", zerr.With(domain.ErrArtifactCorrupt, "artifact", "wrong handle type")
	}
	return h.sha256, nil
}

// escapeName path-escapes a "scope/name" while keeping the scope separator a
// literal slash, so scope and name stay two URL path segments.
func escapeName(name string) string {
	return strings.ReplaceAll(url.PathEscape(name), "%2F", "/")
}

func (a *Adapter) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return zerr.Wrap(domain.ErrNetworkFailure, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return zerr.With(domain.ErrNetworkFailure, "status", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
