package domain_test

import (
	"testing"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idFor(name, version string) domain.Identifier {
	return domain.Identifier{Source: domain.SourceRegistry, Name: name, Version: version, Target: domain.TargetLuau}
}

func TestGraphUpsertUnifiesEdges(t *testing.T) {
	g := domain.NewGraph()
	a := idFor("scope/a", "1.0.0")
	b := idFor("scope/b", "1.0.0")

	g.Upsert(a, domain.ManifestSummary{Name: "scope/a", Version: "1.0.0"}, false, false)
	g.Upsert(b, domain.ManifestSummary{Name: "scope/b", Version: "1.0.0"}, false, false)
	require.NoError(t, g.AddEdge(a, domain.NewAlias("b"), b))

	// Re-upserting the same identifier must not create a second node.
	g.Upsert(a, domain.ManifestSummary{Name: "scope/a", Version: "1.0.0"}, true, false)
	node, ok := g.Get(a)
	require.True(t, ok)
	assert.Equal(t, b, node.Edges["b"])
	// IsPeer is unioned with AND semantics: once false, stays false.
	assert.False(t, node.IsPeer)
}

func TestGraphValidateDetectsMissingEdgeTarget(t *testing.T) {
	g := domain.NewGraph()
	a := idFor("scope/a", "1.0.0")
	missing := idFor("scope/missing", "1.0.0")
	g.Upsert(a, domain.ManifestSummary{Name: "scope/a"}, false, false)
	require.NoError(t, g.AddEdge(a, domain.NewAlias("ghost"), missing))

	err := g.Validate()
	require.Error(t, err)
}

func TestGraphValidateAllowsSelfLoop(t *testing.T) {
	g := domain.NewGraph()
	a := idFor("scope/a", "1.0.0")
	g.Upsert(a, domain.ManifestSummary{Name: "scope/a"}, false, false)
	require.NoError(t, g.AddEdge(a, domain.NewAlias("self"), a))

	require.NoError(t, g.Validate())
}

func TestWalkFromDetectsCycleWithoutInfiniteLoop(t *testing.T) {
	g := domain.NewGraph()
	a := idFor("scope/a", "1.0.0")
	b := idFor("scope/b", "1.0.0")
	g.Upsert(a, domain.ManifestSummary{Name: "scope/a"}, false, false)
	g.Upsert(b, domain.ManifestSummary{Name: "scope/b"}, false, false)
	require.NoError(t, g.AddEdge(a, domain.NewAlias("b"), b))
	require.NoError(t, g.AddEdge(b, domain.NewAlias("a"), a))

	var visited []domain.Identifier
	var cycleSeen bool
	g.WalkFrom(a, func(id domain.Identifier) bool {
		visited = append(visited, id)
		return true
	}, func(path []domain.Identifier, back domain.Identifier) {
		cycleSeen = true
		assert.Equal(t, a, back)
	})

	assert.True(t, cycleSeen)
	assert.Len(t, visited, 2)
}

func TestImporterEdges(t *testing.T) {
	g := domain.NewGraph()
	a := idFor("scope/a", "1.0.0")
	g.Upsert(a, domain.ManifestSummary{Name: "scope/a"}, false, false)
	g.SetImporter(domain.Importer("."), nil, nil)

	require.NoError(t, g.AddImporterEdge(domain.Importer("."), domain.NewAlias("a"), a))
	assert.Equal(t, a, g.Importers[domain.Importer(".")].Edges["a"])
}

func TestSortedIdentifiersIsDeterministic(t *testing.T) {
	g := domain.NewGraph()
	ids := []domain.Identifier{idFor("scope/z", "1.0.0"), idFor("scope/a", "2.0.0"), idFor("scope/a", "1.0.0")}
	for _, id := range ids {
		g.Upsert(id, domain.ManifestSummary{Name: id.Name}, false, false)
	}

	sorted := g.SortedIdentifiers()
	require.Len(t, sorted, 3)
	assert.Equal(t, "scope/a", sorted[0].Name)
	assert.Equal(t, "1.0.0", sorted[0].Version)
	assert.Equal(t, "scope/a", sorted[1].Name)
	assert.Equal(t, "2.0.0", sorted[1].Version)
	assert.Equal(t, "scope/z", sorted[2].Name)
}
