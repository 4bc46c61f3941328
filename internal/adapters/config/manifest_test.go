package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pesde-pkg/pesde/internal/adapters/config"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
name = "acme/bar"
version = "1.0.0"

[target]
environment = "luau"
lib = "lib.luau"

[dependencies]
hello = { name = "acme/hello", version = "^1.0.0" }

[dependencies.world]
wally = "scope/world"

[overrides]
"hello>transitive" = { name = "acme/transitive", version = "=2.0.0" }
`

func TestLoadManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ManifestFilename), []byte(sampleManifest), 0o644))

	loader := config.NewManifestLoader(nil)
	m, err := loader.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "acme/bar", m.Name.String())
	assert.Equal(t, "1.0.0", m.Version)
	assert.Len(t, m.Dependencies, 2)
	assert.NotEmpty(t, m.Fingerprint)

	var helloDep, worldDep domain.Dependency
	for _, d := range m.Dependencies {
		switch d.Alias.Canonical() {
		case "hello":
			helloDep = d
		case "world":
			worldDep = d
		}
	}
	assert.Equal(t, domain.SourceRegistry, helloDep.Specifier.Source)
	assert.Equal(t, "acme/hello", helloDep.Specifier.RegistryName)
	assert.Equal(t, domain.SourceForeign, worldDep.Specifier.Source)
	assert.Equal(t, "scope/world", worldDep.Specifier.ForeignName)

	require.Len(t, m.Overrides, 1)
	assert.Equal(t, "acme/transitive", m.Overrides[0].Value.Literal.RegistryName)
}

func TestSaveManifestThenReload(t *testing.T) {
	dir := t.TempDir()
	name, err := domain.ParsePackageName("acme/bar")
	require.NoError(t, err)

	original := domain.Manifest{
		Name:    name,
		Version: "2.0.0",
		Targets: []domain.TargetSpec{{Kind: domain.TargetLuau, Lib: "lib.luau"}},
		Dependencies: []domain.Dependency{
			{
				Alias:     domain.NewAlias("hello"),
				Specifier: domain.Specifier{Source: domain.SourceRegistry, RegistryName: "acme/hello", Constraint: "^1.0.0"},
				Kind:      domain.KindStandard,
			},
		},
	}

	loader := config.NewManifestLoader(nil)
	require.NoError(t, loader.Save(dir, original))

	reloaded, err := loader.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "acme/bar", reloaded.Name.String())
	assert.Equal(t, "2.0.0", reloaded.Version)
	require.Len(t, reloaded.Dependencies, 1)
	assert.Equal(t, "acme/hello", reloaded.Dependencies[0].Specifier.RegistryName)
}
