package domain_test

import (
	"testing"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseCtx() domain.NormalizeContext {
	return domain.NormalizeContext{
		Indices:       map[string]string{"default": "https://registry.example.com"},
		DefaultTarget: domain.TargetLuau,
	}
}

func TestNormalizeRegistryFillsDefaultTarget(t *testing.T) {
	s := domain.Specifier{Source: domain.SourceRegistry, RegistryName: "scope/bar", Constraint: "^1.0.0"}
	out, err := s.Normalize(baseCtx())
	require.NoError(t, err)
	assert.Equal(t, domain.TargetLuau, out.TargetOverride)
}

func TestNormalizeRegistryUnknownIndex(t *testing.T) {
	s := domain.Specifier{Source: domain.SourceRegistry, RegistryName: "scope/bar", IndexAlias: "nope"}
	_, err := s.Normalize(baseCtx())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownIndex)
}

func TestNormalizeDisallowedSourceKinds(t *testing.T) {
	ctx := baseCtx() // AllowGit/AllowForeign/AllowPath all false

	_, err := domain.Specifier{Source: domain.SourceGit, GitRepo: "https://example.com/x.git"}.Normalize(ctx)
	require.ErrorIs(t, err, domain.ErrDisallowedSourceKind)

	_, err = domain.Specifier{Source: domain.SourceForeign, ForeignName: "scope/bar"}.Normalize(ctx)
	require.ErrorIs(t, err, domain.ErrDisallowedSourceKind)

	_, err = domain.Specifier{Source: domain.SourcePath, Path: "../sibling"}.Normalize(ctx)
	require.ErrorIs(t, err, domain.ErrDisallowedSourceKind)
}

func TestNormalizeAllowedGitAndPath(t *testing.T) {
	ctx := baseCtx()
	ctx.AllowGit = true
	ctx.AllowPath = true

	_, err := domain.Specifier{Source: domain.SourceGit, GitRepo: "https://example.com/x.git", GitRevision: "main"}.Normalize(ctx)
	require.NoError(t, err)

	_, err = domain.Specifier{Source: domain.SourcePath, Path: "../sibling"}.Normalize(ctx)
	require.NoError(t, err)
}

func TestGraphPathStringAndExtend(t *testing.T) {
	var p domain.GraphPath
	p = p.Extend(domain.NewAlias("A")).Extend(domain.NewAlias("B"))
	assert.Equal(t, "a>b", p.String())
}
