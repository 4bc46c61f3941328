package linker_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/cas"
	"github.com/pesde-pkg/pesde/internal/adapters/fs"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/engine/linker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVerifier = fs.NewVerifier(fs.NewHasher())

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...any) {}
func (noopLogger) Warn(msg string, args ...any) {}
func (noopLogger) Error(err error, args ...any) {}

type noopScripts struct {
	calls [][]string
}

func (s *noopScripts) Run(ctx context.Context, command []string, dir string, env []string) error {
	s.calls = append(s.calls, command)
	return nil
}

func mustPutBlob(t *testing.T, store *cas.Store, relPath, content string) domain.TreeEntry {
	t.Helper()
	hash, err := store.PutBlob(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	return domain.TreeEntry{RelPath: relPath, BlobHash: hash}
}

func TestLinkWritesLibraryShimAndMaterializesTree(t *testing.T) {
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	libEntry := mustPutBlob(t, store, "lib.luau", "return {}\n")
	treeHash, err := store.PutTree(ctx, domain.Tree{libEntry})
	require.NoError(t, err)

	graph := domain.NewGraph()
	id := domain.Identifier{Source: domain.SourceRegistry, Name: "acme/widgets", Version: "1.0.0", Target: domain.TargetLuau}
	graph.SetImporter("root", nil, nil)
	require.NoError(t, graph.AddImporterEdge("root", domain.NewAlias("widgets"), id))
	node := graph.Upsert(id, domain.ManifestSummary{
		Name: "acme/widgets", Version: "1.0.0",
		Target: domain.TargetSpec{Kind: domain.TargetLuau, Lib: "lib.luau"},
	}, false, false)
	node.TreeHash = treeHash

	projectDir := t.TempDir()
	l := linker.New(store, testVerifier, &noopScripts{}, noopLogger{})
	err = l.Link(ctx, []linker.Root{{
		Importer: "root",
		Dir:      projectDir,
		Manifest: domain.Manifest{},
	}}, graph)
	require.NoError(t, err)

	shimPath := filepath.Join(projectDir, "luau_packages", "widgets.luau")
	data, err := os.ReadFile(shimPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `require("./.pesde/acme+widgets/1.0.0/luau/lib")`)

	materialized := filepath.Join(projectDir, "luau_packages", ".pesde", "acme+widgets", "1.0.0", "luau", "lib.luau")
	libData, err := os.ReadFile(materialized)
	require.NoError(t, err)
	assert.Equal(t, "return {}\n", string(libData))
}

func TestLinkEmitsExportedTypeReexport(t *testing.T) {
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	libEntry := mustPutBlob(t, store, "lib.luau", "export type Foo = { x: number }\nreturn {}\n")
	treeHash, err := store.PutTree(ctx, domain.Tree{libEntry})
	require.NoError(t, err)

	graph := domain.NewGraph()
	id := domain.Identifier{Source: domain.SourceRegistry, Name: "acme/typed", Version: "2.0.0", Target: domain.TargetLuau}
	graph.SetImporter("root", nil, nil)
	require.NoError(t, graph.AddImporterEdge("root", domain.NewAlias("typed"), id))
	node := graph.Upsert(id, domain.ManifestSummary{
		Name: "acme/typed", Version: "2.0.0",
		Target: domain.TargetSpec{Kind: domain.TargetLuau, Lib: "lib.luau"},
	}, false, false)
	node.TreeHash = treeHash

	projectDir := t.TempDir()
	l := linker.New(store, testVerifier, &noopScripts{}, noopLogger{})
	require.NoError(t, l.Link(ctx, []linker.Root{{Importer: "root", Dir: projectDir}}, graph))

	data, err := os.ReadFile(filepath.Join(projectDir, "luau_packages", "typed.luau"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "export type Foo = module.Foo")
}

func TestLinkMaterializesWallyPackageWithoutPesdeIndirection(t *testing.T) {
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	libEntry := mustPutBlob(t, store, "lib.luau", "return {}\n")
	treeHash, err := store.PutTree(ctx, domain.Tree{libEntry})
	require.NoError(t, err)

	graph := domain.NewGraph()
	id := domain.Identifier{Source: domain.SourceForeign, Name: "acme/wally-pkg", Version: "1.2.0", Target: domain.TargetLuau}
	graph.SetImporter("root", nil, nil)
	require.NoError(t, graph.AddImporterEdge("root", domain.NewAlias("wallyPkg"), id))
	node := graph.Upsert(id, domain.ManifestSummary{
		Name: "acme/wally-pkg", Version: "1.2.0",
		Target: domain.TargetSpec{Kind: domain.TargetLuau, Lib: "lib.luau"},
	}, false, false)
	node.TreeHash = treeHash

	projectDir := t.TempDir()
	l := linker.New(store, testVerifier, &noopScripts{}, noopLogger{})
	require.NoError(t, l.Link(ctx, []linker.Root{{Importer: "root", Dir: projectDir}}, graph))

	materialized := filepath.Join(projectDir, "luau_packages", "acme+wally-pkg", "luau", "lib.luau")
	_, err = os.Stat(materialized)
	assert.NoError(t, err, "wally package should materialize directly under the packages folder, with no .pesde/ or version segment")
}

func TestLinkWritesReexportShimInsideDependencyScope(t *testing.T) {
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	cLib := mustPutBlob(t, store, "lib.luau", "return {}\n")
	cTreeHash, err := store.PutTree(ctx, domain.Tree{cLib})
	require.NoError(t, err)

	bLib := mustPutBlob(t, store, "lib.luau", "local other = require(\"./other\")\nreturn {}\n")
	bTreeHash, err := store.PutTree(ctx, domain.Tree{bLib})
	require.NoError(t, err)

	graph := domain.NewGraph()
	cID := domain.Identifier{Source: domain.SourceRegistry, Name: "acme/c", Version: "1.0.0", Target: domain.TargetLuau}
	bID := domain.Identifier{Source: domain.SourceRegistry, Name: "acme/b", Version: "1.0.0", Target: domain.TargetLuau}

	graph.SetImporter("root", nil, nil)
	require.NoError(t, graph.AddImporterEdge("root", domain.NewAlias("b"), bID))

	cNode := graph.Upsert(cID, domain.ManifestSummary{
		Name: "acme/c", Version: "1.0.0",
		Target: domain.TargetSpec{Kind: domain.TargetLuau, Lib: "lib.luau"},
	}, false, false)
	cNode.TreeHash = cTreeHash

	bNode := graph.Upsert(bID, domain.ManifestSummary{
		Name: "acme/b", Version: "1.0.0",
		Target: domain.TargetSpec{Kind: domain.TargetLuau, Lib: "lib.luau"},
	}, false, false)
	bNode.TreeHash = bTreeHash
	require.NoError(t, graph.AddEdge(bID, domain.NewAlias("other"), cID))

	projectDir := t.TempDir()
	l := linker.New(store, testVerifier, &noopScripts{}, noopLogger{})
	require.NoError(t, l.Link(ctx, []linker.Root{{Importer: "root", Dir: projectDir}}, graph))

	reexportPath := filepath.Join(projectDir, "luau_packages", ".pesde", "acme+b", "1.0.0", "other.luau")
	data, err := os.ReadFile(reexportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `require("../../acme+c/1.0.0/luau/lib")`)
}

func TestLinkFailsWhenMaterializedBlobIsCorrupt(t *testing.T) {
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	libEntry := mustPutBlob(t, store, "lib.luau", "return {}\n")
	treeHash, err := store.PutTree(ctx, domain.Tree{libEntry})
	require.NoError(t, err)

	graph := domain.NewGraph()
	id := domain.Identifier{Source: domain.SourceRegistry, Name: "acme/widgets", Version: "1.0.0", Target: domain.TargetLuau}
	graph.SetImporter("root", nil, nil)
	require.NoError(t, graph.AddImporterEdge("root", domain.NewAlias("widgets"), id))
	node := graph.Upsert(id, domain.ManifestSummary{
		Name: "acme/widgets", Version: "1.0.0",
		Target: domain.TargetSpec{Kind: domain.TargetLuau, Lib: "lib.luau"},
	}, false, false)
	node.TreeHash = treeHash

	// Corrupt the CAS blob on disk after the tree was recorded, simulating
	// external tampering or bitrot the verifier is meant to catch.
	blobPath := filepath.Join(store.Root(), "blobs", libEntry.BlobHash[:2], libEntry.BlobHash[2:])
	require.NoError(t, os.WriteFile(blobPath, []byte("tampered"), 0o600))

	projectDir := t.TempDir()
	l := linker.New(store, testVerifier, &noopScripts{}, noopLogger{})
	err = l.Link(ctx, []linker.Root{{Importer: "root", Dir: projectDir}}, graph)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrArtifactCorrupt)
}

func TestLinkInvokesRobloxSyncToolWhenScriptsEnabled(t *testing.T) {
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	libEntry := mustPutBlob(t, store, "lib.luau", "return {}\n")
	treeHash, err := store.PutTree(ctx, domain.Tree{libEntry})
	require.NoError(t, err)

	graph := domain.NewGraph()
	id := domain.Identifier{Source: domain.SourceRegistry, Name: "acme/model", Version: "1.0.0", Target: domain.TargetRoblox}
	graph.SetImporter("root", nil, nil)
	require.NoError(t, graph.AddImporterEdge("root", domain.NewAlias("model"), id))
	node := graph.Upsert(id, domain.ManifestSummary{
		Name: "acme/model", Version: "1.0.0",
		Target: domain.TargetSpec{
			Kind:       domain.TargetRoblox,
			Lib:        "lib.luau",
			BuildFiles: []string{"default.project.json"},
		},
	}, false, false)
	node.TreeHash = treeHash

	scripts := &noopScripts{}
	projectDir := t.TempDir()
	l := linker.New(store, testVerifier, scripts, noopLogger{})

	manifest := domain.Manifest{
		ScriptsEnabled: true,
		Targets: []domain.TargetSpec{{
			Kind:    domain.TargetRoblox,
			Scripts: map[string]string{"roblox_sync_config_generator": "scripts/sync.luau"},
		}},
	}

	require.NoError(t, l.Link(ctx, []linker.Root{{Importer: "root", Dir: projectDir, Manifest: manifest}}, graph))
	require.Len(t, scripts.calls, 1)
	assert.Contains(t, scripts.calls[0], "scripts/sync.luau")
	assert.Contains(t, scripts.calls[0], "default.project.json")
}
