package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/archive"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `--- a/src/init.luau
+++ b/src/init.luau
@@ -1,3 +1,3 @@
 line1
-line2
+line2-modified
 line3
`

func writePatch(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fix.patch")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPatchApplierRewritesTargetFile(t *testing.T) {
	tree := t.TempDir()
	target := filepath.Join(tree, "src", "init.luau")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("line1\nline2\nline3\n"), 0o644))

	patchPath := writePatch(t, sampleDiff)

	applier := archive.NewPatchApplier()
	err := applier.Apply(context.Background(), patchPath, tree, "pesde.toml")
	require.NoError(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2-modified\nline3\n", string(got))
}

func TestPatchApplierRejectsManifestTarget(t *testing.T) {
	tree := t.TempDir()
	diff := `--- a/pesde.toml
+++ b/pesde.toml
@@ -1,1 +1,1 @@
-name = "old"
+name = "new"
`
	require.NoError(t, os.WriteFile(filepath.Join(tree, "pesde.toml"), []byte(`name = "old"`+"\n"), 0o644))
	patchPath := writePatch(t, diff)

	applier := archive.NewPatchApplier()
	err := applier.Apply(context.Background(), patchPath, tree, "pesde.toml")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPatchCreatesFileOutsidePackage)
}

func TestPatchApplierRejectsPathTraversal(t *testing.T) {
	tree := t.TempDir()
	diff := `--- a/../escape.luau
+++ b/../escape.luau
@@ -1,1 +1,1 @@
-old
+new
`
	patchPath := writePatch(t, diff)

	applier := archive.NewPatchApplier()
	err := applier.Apply(context.Background(), patchPath, tree, "pesde.toml")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPatchCreatesFileOutsidePackage)
}
