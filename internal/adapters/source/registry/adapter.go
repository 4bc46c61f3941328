// Package registry implements the native-registry source adapter (§4.2
// "Native registry", §6 "Registry wire protocol"): listing, resolving, and
// downloading packages from a pesde-compatible registry HTTP service.
package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

const httpClientTimeout = 30 * time.Second

var _ ports.SourceAdapter = (*Adapter)(nil)

// Adapter talks to a single pesde-compatible registry over HTTP, the
// "external collaborator" §1 places out of scope for this repo to implement
// itself. The resolver holds one adapter per domain.SourceKind, so like the
// foreign adapter, an index alias naming a different base URL than this
// adapter's baseURL is not routed separately; see DESIGN.md.
type Adapter struct {
	baseURL string
	client  *http.Client
}

// New creates a registry Adapter against baseURL. A nil client gets a
// default with httpClientTimeout, matching the foreign adapter's style.
func New(baseURL string, client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: httpClientTimeout}
	}
	return &Adapter{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (a *Adapter) Kind() domain.SourceKind { return domain.SourceRegistry }

// ListVersions fetches every published version of canonicalName ("scope/name"),
// sorted for a deterministic candidate order (§8 property 1).
func (a *Adapter) ListVersions(ctx context.Context, canonicalName string) ([]string, error) {
	var pkg packageResponse
	if err := a.getJSON(ctx, "/v1/packages/"+escapeName(canonicalName), &pkg); err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(pkg.Versions))
	for v := range pkg.Versions {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions, nil
}

// Resolve fetches canonicalName@version's record for target and translates
// its dependency table into domain.Dependency entries.
func (a *Adapter) Resolve(ctx context.Context, canonicalName, version string, target domain.TargetKind) (ports.ResolvedManifest, error) {
	path := fmt.Sprintf("/v1/packages/%s/%s/%s", escapeName(canonicalName), url.PathEscape(version), url.PathEscape(string(target)))

	var rec targetRecord
	if err := a.getJSON(ctx, path, &rec); err != nil {
		return ports.ResolvedManifest{}, err
	}
	if rec.Yanked {
		return ports.ResolvedManifest{}, zerr.With(zerr.With(zerr.With(domain.ErrVersionNotFound, "name", canonicalName), "version", version), "reason", "yanked")
	}

	summary := toManifestSummary(canonicalName, version, target, rec)

	archiveURL := fmt.Sprintf("%s/v1/packages/%s/%s/%s/archive", a.baseURL, escapeName(canonicalName), url.PathEscape(version), url.PathEscape(string(target)))

	return ports.ResolvedManifest{
		Summary:  summary,
		Artifact: &artifactHandle{url: archiveURL},
	}, nil
}

// artifactHandle carries the archive URL and, once computed, its content so
// a Fingerprint call immediately followed by a Download doesn't refetch:
// unlike the foreign registry, §6's wire protocol declares no hash field
// for the archive, so this adapter has to hash the bytes itself.
type artifactHandle struct {
	url    string
	cached []byte
}

// Download streams the package's gzipped tar, serving from the cached
// buffer when Fingerprint already pulled it down.
func (a *Adapter) Download(ctx context.Context, artifact ports.ArtifactHandle) (io.ReadCloser, int64, error) {
	h, ok := artifact.(*artifactHandle)
	if !ok {
		return nil, 0, zerr.With(domain.ErrArtifactCorrupt, "artifact", "wrong handle type")
	}
	if h.cached != nil {
		return io.NopCloser(bytes.NewReader(h.cached)), int64(len(h.cached)), nil
	}

	resp, err := a.getArchive(ctx, h.url)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// Fingerprint hashes the archive's bytes, caching them on the handle so a
// subsequent Download against the same handle reuses the fetch.
func (a *Adapter) Fingerprint(ctx context.Context, artifact ports.ArtifactHandle) (string, error) {
	h, ok := artifact.(*artifactHandle)
	if !ok {
		return "", zerr.With(domain.ErrArtifactCorrupt, "artifact", "wrong handle type")
	}
	if h.cached == nil {
		resp, err := a.getArchive(ctx, h.url)
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", zerr.Wrap(domain.ErrArtifactCorrupt, err.Error())
		}
		h.cached = data
	}
	sum := sha256.Sum256(h.cached)
	return hex.EncodeToString(sum[:]), nil
}

func (a *Adapter) getArchive(ctx context.Context, archiveURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, zerr.Wrap(domain.ErrNetworkFailure, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, zerr.With(domain.ErrNetworkFailure, "status", resp.StatusCode)
	}
	return resp, nil
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
	if resp.StatusCode == http.StatusNotFound {
		return zerr.With(domain.ErrVersionNotFound, "path", path)
	}
	if resp.StatusCode != http.StatusOK {
		return zerr.With(domain.ErrNetworkFailure, "status", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// escapeName path-escapes a "scope/name" pair as two segments, since
// url.PathEscape would otherwise turn the separating slash into %2F.
func escapeName(canonicalName string) string {
	scope, name, ok := strings.Cut(canonicalName, "/")
	if !ok {
		return url.PathEscape(canonicalName)
	}
	return url.PathEscape(scope) + "/" + url.PathEscape(name)
}
