package sourceset_test

import (
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/source/foreign"
	"github.com/pesde-pkg/pesde/internal/adapters/source/gitsrc"
	"github.com/pesde-pkg/pesde/internal/adapters/source/pathsrc"
	"github.com/pesde-pkg/pesde/internal/adapters/source/registry"
	"github.com/pesde-pkg/pesde/internal/adapters/source/sourceset"
	"github.com/pesde-pkg/pesde/internal/adapters/source/workspacesrc"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoversEverySourceKind(t *testing.T) {
	reg := registry.New("https://example.invalid", nil)
	frgn := foreign.New("https://example.invalid", nil)
	git := gitsrc.New(t.TempDir(), nil, nil)
	workspace, err := workspacesrc.New(nil, t.TempDir(), nil)
	require.NoError(t, err)
	path := pathsrc.New(nil)

	set := sourceset.New(reg, frgn, git, workspace, path)

	for _, kind := range []domain.SourceKind{
		domain.SourceRegistry, domain.SourceForeign, domain.SourceGit,
		domain.SourceWorkspace, domain.SourcePath,
	} {
		adapter, ok := set[kind]
		assert.True(t, ok, "missing adapter for %s", kind)
		assert.Equal(t, kind, adapter.Kind())
	}
}
