package gitsrc_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/config"
	"github.com/pesde-pkg/pesde/internal/adapters/logger"
	"github.com/pesde-pkg/pesde/internal/adapters/source/gitsrc"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pesdeTomlFixture = `
name = "acme/gitdep"
version = "1.0.0"

[target]
environment = "luau"
lib = "lib.luau"
`

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func setupSourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pesde.toml"), []byte(pesdeTomlFixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.luau"), []byte("return {}"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	return dir
}

func TestGitAdapterResolveReadsManifestAtRevision(t *testing.T) {
	requireGit(t)
	repo := setupSourceRepo(t)
	cacheRoot := t.TempDir()

	adapter := gitsrc.New(cacheRoot, config.NewManifestLoader(logger.New()), logger.New())
	resolved, err := adapter.Resolve(context.Background(), repo, "HEAD", domain.TargetLuau)
	require.NoError(t, err)
	assert.Equal(t, "acme/gitdep", resolved.Summary.Name)
	assert.Equal(t, "lib.luau", resolved.Summary.Target.Lib)
}

func TestGitAdapterFingerprintIsStableTreeHash(t *testing.T) {
	requireGit(t)
	repo := setupSourceRepo(t)
	cacheRoot := t.TempDir()

	adapter := gitsrc.New(cacheRoot, config.NewManifestLoader(logger.New()), logger.New())
	resolved, err := adapter.Resolve(context.Background(), repo, "HEAD", domain.TargetLuau)
	require.NoError(t, err)

	fp1, err := adapter.Fingerprint(context.Background(), resolved.Artifact)
	require.NoError(t, err)
	assert.NotEmpty(t, fp1)

	resolved2, err := adapter.Resolve(context.Background(), repo, "HEAD", domain.TargetLuau)
	require.NoError(t, err)
	fp2, err := adapter.Fingerprint(context.Background(), resolved2.Artifact)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}
