package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/fs"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalker_WalkFilesSkipsVCSAndIgnoredDirs(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".git"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".git", "config"), []byte("git config"), 0o600))

	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "luau_packages"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "luau_packages", "widget.luau"), []byte("return {}"), 0o600))

	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "src"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "src", "init.luau"), []byte("return {}"), 0o600))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "pesde.toml"), []byte("name = \"acme/widget\""), 0o600))

	walker := fs.NewWalker()
	files := make(map[string]bool)
	for path := range walker.WalkFiles(tmpDir, []string{"luau_packages"}) {
		rel, err := filepath.Rel(tmpDir, path)
		require.NoError(t, err)
		files[rel] = true
	}

	assert.False(t, files[filepath.Join(".git", "config")], "expected .git/config to be skipped")
	assert.False(t, files[filepath.Join("luau_packages", "widget.luau")], "expected ignored dir to be skipped")
	assert.True(t, files[filepath.Join("src", "init.luau")])
	assert.True(t, files["pesde.toml"])
}

func TestHasher_HashFileIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.luau")
	require.NoError(t, os.WriteFile(path, []byte("return {}\n"), 0o600))

	hasher := fs.NewHasher()
	hash1, err := hasher.HashFile(path)
	require.NoError(t, err)
	hash2, err := hasher.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, hash1, hash2)
	assert.Equal(t, hasher.HashBytes([]byte("return {}\n")), hash1)
}

func TestHasher_QuickFingerprintChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.luau")
	hasher := fs.NewHasher()

	require.NoError(t, os.WriteFile(path, []byte("return {}\n"), 0o600))
	fp1, err := hasher.QuickFingerprint(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("return { x = 1 }\n"), 0o600))
	fp2, err := hasher.QuickFingerprint(path)
	require.NoError(t, err)

	assert.NotEqual(t, fp1, fp2)
}

func TestVerifier_VerifyTreeDetectsMismatchAndMissing(t *testing.T) {
	root := t.TempDir()
	hasher := fs.NewHasher()

	require.NoError(t, os.WriteFile(filepath.Join(root, "lib.luau"), []byte("return {}\n"), 0o600))
	goodHash, err := hasher.HashFile(filepath.Join(root, "lib.luau"))
	require.NoError(t, err)

	tree := domain.Tree{
		{RelPath: "lib.luau", BlobHash: goodHash},
		{RelPath: "missing.luau", BlobHash: "deadbeef"},
	}

	verifier := fs.NewVerifier(hasher)
	ok, mismatches, err := verifier.VerifyTree(root, tree)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"missing.luau"}, mismatches)
}

func TestVerifier_VerifyTreePassesWhenContentMatches(t *testing.T) {
	root := t.TempDir()
	hasher := fs.NewHasher()

	require.NoError(t, os.WriteFile(filepath.Join(root, "lib.luau"), []byte("return {}\n"), 0o600))
	hash, err := hasher.HashFile(filepath.Join(root, "lib.luau"))
	require.NoError(t, err)

	verifier := fs.NewVerifier(hasher)
	ok, mismatches, err := verifier.VerifyTree(root, domain.Tree{{RelPath: "lib.luau", BlobHash: hash}})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, mismatches)
}
