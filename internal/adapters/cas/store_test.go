package cas_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/cas"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutBlobIsContentAddressedAndIdempotent(t *testing.T) {
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)

	hash1, err := store.PutBlob(context.Background(), strings.NewReader("hello world"))
	require.NoError(t, err)

	hash2, err := store.PutBlob(context.Background(), strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)

	has, err := store.HasBlob(context.Background(), hash1)
	require.NoError(t, err)
	assert.True(t, has)

	r, err := store.OpenBlob(context.Background(), hash1)
	require.NoError(t, err)
	defer r.Close()
}

func TestStorePutTreeRoundTrips(t *testing.T) {
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)

	blobHash, err := store.PutBlob(context.Background(), strings.NewReader("package content"))
	require.NoError(t, err)

	tree := domain.Tree{
		{RelPath: "b.luau", BlobHash: blobHash},
		{RelPath: "a.luau", BlobHash: blobHash, ExecBit: true},
	}
	treeHash, err := store.PutTree(context.Background(), tree)
	require.NoError(t, err)

	got, err := store.GetTree(context.Background(), treeHash)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Canonicalize sorts by RelPath.
	assert.Equal(t, "a.luau", got[0].RelPath)
	assert.Equal(t, "b.luau", got[1].RelPath)
}

func TestStorePruneRemovesUnreachable(t *testing.T) {
	store, err := cas.NewStore(t.TempDir())
	require.NoError(t, err)

	keepBlob, err := store.PutBlob(context.Background(), strings.NewReader("keep"))
	require.NoError(t, err)
	_, err = store.PutBlob(context.Background(), strings.NewReader("gone"))
	require.NoError(t, err)

	keepTree, err := store.PutTree(context.Background(), domain.Tree{{RelPath: "x.luau", BlobHash: keepBlob}})
	require.NoError(t, err)

	removedBlobs, removedTrees, err := store.Prune(context.Background(), []string{keepTree})
	require.NoError(t, err)
	assert.Equal(t, 1, removedBlobs)
	assert.Equal(t, 0, removedTrees)
}
