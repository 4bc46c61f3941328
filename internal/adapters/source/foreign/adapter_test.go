package foreign_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/source/foreign"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWallyToml = `
[package]
name = "Foo/Bar-Baz"
realm = "shared"

[dependencies]
Promise = "evaera/promise@^4.0.0"

[server-dependencies]
DataStore = "scope/data-store@^1.0.0"
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/package-versions/foo/bar_baz", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"versions": []string{"1.0.0", "1.1.0"}})
	})
	mux.HandleFunc("/v1/packages/foo/bar_baz/1.1.0", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"manifest":     sampleWallyToml,
			"sha256":       "deadbeef",
			"artifact_url": "", // left empty: no test here downloads the artifact
		})
	})
	mux.HandleFunc("/archive.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("zip-bytes"))
	})
	return httptest.NewServer(mux)
}

func TestForeignAdapterListVersions(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	adapter := foreign.New(srv.URL, srv.Client())
	versions, err := adapter.ListVersions(context.Background(), "foo/bar_baz")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, versions)
}

func TestForeignAdapterResolveTranslatesDependencies(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	adapter := foreign.New(srv.URL, srv.Client())
	resolved, err := adapter.Resolve(context.Background(), "foo/bar_baz", "1.1.0", domain.TargetRobloxServer)
	require.NoError(t, err)

	assert.Equal(t, "foo/bar_baz", resolved.Summary.Name)
	var aliases []string
	for _, d := range resolved.Summary.Dependencies {
		aliases = append(aliases, d.Alias.Canonical())
	}
	assert.Contains(t, aliases, "promise")
	assert.Contains(t, aliases, "datastore")
}

func TestForeignAdapterResolveRejectsNonRobloxTarget(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	adapter := foreign.New(srv.URL, srv.Client())
	_, err := adapter.Resolve(context.Background(), "foo/bar_baz", "1.1.0", domain.TargetLuau)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoCompatibleTarget)
}

func TestForeignAdapterFingerprintUsesDeclaredHash(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	adapter := foreign.New(srv.URL, srv.Client())
	resolved, err := adapter.Resolve(context.Background(), "foo/bar_baz", "1.1.0", domain.TargetRoblox)
	require.NoError(t, err)

	fp, err := adapter.Fingerprint(context.Background(), resolved.Artifact)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", fp)
}

func TestForeignAdapterSanitizeNameLowercasesAndUnderscores(t *testing.T) {
	assert.Equal(t, "foo/bar_baz", foreign.SanitizeName("Foo/Bar-Baz"))
}
