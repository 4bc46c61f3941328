package downloader_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"archive/tar"

	"github.com/klauspost/compress/gzip"
	"github.com/pesde-pkg/pesde/internal/adapters/archive"
	"github.com/pesde-pkg/pesde/internal/adapters/cas"
	"github.com/pesde-pkg/pesde/internal/adapters/telemetry"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"github.com/pesde-pkg/pesde/internal/engine/downloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...any) {}
func (noopLogger) Warn(msg string, args ...any) {}
func (noopLogger) Error(err error, args ...any) {}

// recordingTelemetry captures the statuses each recorded vertex passes
// through, so a test can assert the downloader actually drives the
// ports.Telemetry contract instead of only logging.
type recordingTelemetry struct {
	statuses map[string][]domain.VertexStatus
}

func newRecordingTelemetry() *recordingTelemetry {
	return &recordingTelemetry{statuses: make(map[string][]domain.VertexStatus)}
}

func (r *recordingTelemetry) Record(ctx context.Context, id domain.Identifier, name string) (context.Context, ports.Vertex) {
	return ctx, &recordingVertex{key: id.String(), statuses: r.statuses}
}

func (r *recordingTelemetry) Close() error { return nil }

type recordingVertex struct {
	key      string
	statuses map[string][]domain.VertexStatus
}

func (v *recordingVertex) Write(p []byte) (int, error) { return len(p), nil }

func (v *recordingVertex) SetStatus(status domain.VertexStatus) {
	v.statuses[v.key] = append(v.statuses[v.key], status)
}

func (v *recordingVertex) RecordError(err error) {}

func (v *recordingVertex) End() {}

// fakeAdapter serves a fixed, in-memory tar.gz archive for every resolve.
type fakeAdapter struct {
	kind    domain.SourceKind
	archive []byte
	calls   int
}

func (f *fakeAdapter) Kind() domain.SourceKind { return f.kind }

func (f *fakeAdapter) ListVersions(ctx context.Context, name string) ([]string, error) {
	return []string{"1.0.0"}, nil
}

func (f *fakeAdapter) Resolve(ctx context.Context, name, version string, target domain.TargetKind) (ports.ResolvedManifest, error) {
	return ports.ResolvedManifest{
		Summary:  domain.ManifestSummary{Name: name, Version: version},
		Artifact: "handle",
	}, nil
}

func (f *fakeAdapter) Download(ctx context.Context, artifact ports.ArtifactHandle) (io.ReadCloser, int64, error) {
	f.calls++
	return io.NopCloser(bytes.NewReader(f.archive)), int64(len(f.archive)), nil
}

func (f *fakeAdapter) Fingerprint(ctx context.Context, artifact ports.ArtifactHandle) (string, error) {
	return "fp-" + string(f.kind), nil
}

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func newDownloader(t *testing.T, adapters map[domain.SourceKind]ports.SourceAdapter) (*downloader.Downloader, *cas.Store) {
	t.Helper()
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	return downloader.New(adapters, archive.NewUnpacker(), archive.NewPatchApplier(), store, telemetry.New(), noopLogger{}), store
}

func noPatch(domain.Identifier) (domain.Patch, bool) { return domain.Patch{}, false }

func TestRunPublishesTreeAndRecordsFingerprint(t *testing.T) {
	adapter := &fakeAdapter{
		kind:    domain.SourceGit,
		archive: buildTarGz(t, map[string]string{"init.luau": "return 1\n"}),
	}
	d, _ := newDownloader(t, map[domain.SourceKind]ports.SourceAdapter{domain.SourceGit: adapter})

	graph := domain.NewGraph()
	id := domain.Identifier{Source: domain.SourceGit, Name: "scope/pkg", Version: "1.0.0", Target: domain.TargetLuau}
	graph.Upsert(id, domain.ManifestSummary{Name: "scope/pkg", Version: "1.0.0"}, false, false)

	err := d.Run(context.Background(), graph, ports.IndexPolicy{}, noPatch, downloader.Options{})
	require.NoError(t, err)

	node, ok := graph.Get(id)
	require.True(t, ok)
	assert.Equal(t, "fp-git", node.SourceArtifactFingerprint)
	require.NotEmpty(t, node.TreeHash)
}

func TestRunStripsForbiddenFilesForGitRobloxTarget(t *testing.T) {
	adapter := &fakeAdapter{
		kind: domain.SourceGit,
		archive: buildTarGz(t, map[string]string{
			"default.project.json": "{}",
			"init.luau":             "return 1\n",
		}),
	}
	d, store := newDownloader(t, map[domain.SourceKind]ports.SourceAdapter{domain.SourceGit: adapter})

	graph := domain.NewGraph()
	id := domain.Identifier{Source: domain.SourceGit, Name: "scope/pkg", Version: "1.0.0", Target: domain.TargetRoblox}
	graph.Upsert(id, domain.ManifestSummary{Name: "scope/pkg", Version: "1.0.0"}, false, false)

	require.NoError(t, d.Run(context.Background(), graph, ports.IndexPolicy{}, noPatch, downloader.Options{}))

	node, _ := graph.Get(id)
	tree, err := store.GetTree(context.Background(), node.TreeHash)
	require.NoError(t, err)
	for _, entry := range tree {
		assert.NotEqual(t, "default.project.json", entry.RelPath)
	}
}

func TestRunSkipsRepublishWhenFingerprintAndTreeUnchanged(t *testing.T) {
	adapter := &fakeAdapter{
		kind:    domain.SourceRegistry,
		archive: buildTarGz(t, map[string]string{"init.luau": "return 1\n"}),
	}
	d, _ := newDownloader(t, map[domain.SourceKind]ports.SourceAdapter{domain.SourceRegistry: adapter})

	graph := domain.NewGraph()
	id := domain.Identifier{Source: domain.SourceRegistry, Name: "scope/pkg", Version: "1.0.0", Target: domain.TargetLuau}
	graph.Upsert(id, domain.ManifestSummary{Name: "scope/pkg", Version: "1.0.0"}, false, false)

	require.NoError(t, d.Run(context.Background(), graph, ports.IndexPolicy{}, noPatch, downloader.Options{}))
	assert.Equal(t, 1, adapter.calls)

	require.NoError(t, d.Run(context.Background(), graph, ports.IndexPolicy{}, noPatch, downloader.Options{}))
	assert.Equal(t, 1, adapter.calls, "second run should not re-download an unchanged, already-cached node")
}

func TestRunRecordsVertexStatusesThroughTelemetry(t *testing.T) {
	adapter := &fakeAdapter{
		kind:    domain.SourceGit,
		archive: buildTarGz(t, map[string]string{"init.luau": "return 1\n"}),
	}
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	rec := newRecordingTelemetry()
	d := downloader.New(map[domain.SourceKind]ports.SourceAdapter{domain.SourceGit: adapter},
		archive.NewUnpacker(), archive.NewPatchApplier(), store, rec, noopLogger{})

	graph := domain.NewGraph()
	id := domain.Identifier{Source: domain.SourceGit, Name: "scope/pkg", Version: "1.0.0", Target: domain.TargetLuau}
	graph.Upsert(id, domain.ManifestSummary{Name: "scope/pkg", Version: "1.0.0"}, false, false)

	require.NoError(t, d.Run(context.Background(), graph, ports.IndexPolicy{}, noPatch, downloader.Options{}))
	assert.Equal(t, []domain.VertexStatus{domain.VertexStatusRunning, domain.VertexStatusCompleted}, rec.statuses[id.String()])

	require.NoError(t, d.Run(context.Background(), graph, ports.IndexPolicy{}, noPatch, downloader.Options{}))
	assert.Equal(t,
		[]domain.VertexStatus{domain.VertexStatusRunning, domain.VertexStatusCompleted, domain.VertexStatusCached},
		rec.statuses[id.String()],
		"the second run hits the CAS-populated shortcut and records a Cached status instead of re-running",
	)
}

func TestRunContinueOnErrorCollectsFailuresFromOtherNodes(t *testing.T) {
	good := &fakeAdapter{kind: domain.SourceGit, archive: buildTarGz(t, map[string]string{"a.luau": "1"})}
	bad := &fakeAdapter{kind: domain.SourceForeign, archive: []byte("not a zip")}
	d, _ := newDownloader(t, map[domain.SourceKind]ports.SourceAdapter{
		domain.SourceGit:     good,
		domain.SourceForeign: bad,
	})

	graph := domain.NewGraph()
	goodID := domain.Identifier{Source: domain.SourceGit, Name: "scope/good", Version: "1.0.0", Target: domain.TargetLuau}
	badID := domain.Identifier{Source: domain.SourceForeign, Name: "scope/bad", Version: "1.0.0", Target: domain.TargetLuau}
	graph.Upsert(goodID, domain.ManifestSummary{Name: "scope/good", Version: "1.0.0"}, false, false)
	graph.Upsert(badID, domain.ManifestSummary{Name: "scope/bad", Version: "1.0.0"}, false, false)

	err := d.Run(context.Background(), graph, ports.IndexPolicy{}, noPatch, downloader.Options{ContinueOnError: true})
	require.Error(t, err)

	goodNode, _ := graph.Get(goodID)
	assert.NotEmpty(t, goodNode.TreeHash, "the good node still publishes despite the bad node's failure")
}
