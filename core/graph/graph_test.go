package graph_test

import (
	"testing"

	"asset-pipeline/core/asset"
	"asset-pipeline/core/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(n uint32) asset.ID {
	return asset.ID{Index: n, Gen: 1}
}

func TestAddEdgeAndLookup(t *testing.T) {
	g := graph.New()
	mesh, tex1, tex2 := id(1), id(2), id(3)

	require.NoError(t, g.AddEdge(mesh, tex1, true))
	require.NoError(t, g.AddEdge(mesh, tex2, false))

	deps := g.DependenciesOf(mesh)
	assert.Len(t, deps, 2)

	required := 0
	for _, e := range deps {
		if e.Required {
			required++
		}
	}
	assert.Equal(t, 1, required)

	assert.ElementsMatch(t, []asset.ID{mesh}, g.DependentsOf(tex1))
	assert.Empty(t, g.DependenciesOf(tex1))
}

func TestCycleDetection(t *testing.T) {
	t.Run("SelfEdge", func(t *testing.T) {
		g := graph.New()
		err := g.AddEdge(id(1), id(1), true)
		assert.ErrorIs(t, err, asset.ErrCyclicDependency)
	})

	t.Run("TwoNodes", func(t *testing.T) {
		g := graph.New()
		require.NoError(t, g.AddEdge(id(1), id(2), true))
		err := g.AddEdge(id(2), id(1), true)
		assert.ErrorIs(t, err, asset.ErrCyclicDependency)
		// The rejected edge must not be recorded.
		assert.Empty(t, g.DependenciesOf(id(2)))
	})

	t.Run("LongChain", func(t *testing.T) {
		g := graph.New()
		require.NoError(t, g.AddEdge(id(1), id(2), true))
		require.NoError(t, g.AddEdge(id(2), id(3), true))
		require.NoError(t, g.AddEdge(id(3), id(4), true))
		err := g.AddEdge(id(4), id(1), true)
		assert.ErrorIs(t, err, asset.ErrCyclicDependency)
	})

	t.Run("DiamondIsNotACycle", func(t *testing.T) {
		g := graph.New()
		require.NoError(t, g.AddEdge(id(1), id(2), true))
		require.NoError(t, g.AddEdge(id(1), id(3), true))
		require.NoError(t, g.AddEdge(id(2), id(4), true))
		require.NoError(t, g.AddEdge(id(3), id(4), true))
	})
}

func TestAffected(t *testing.T) {
	// scene -> mesh -> texture, hud -> texture
	g := graph.New()
	scene, mesh, tex, hud := id(1), id(2), id(3), id(4)
	require.NoError(t, g.AddEdge(scene, mesh, true))
	require.NoError(t, g.AddEdge(mesh, tex, true))
	require.NoError(t, g.AddEdge(hud, tex, true))

	affected := g.Affected(tex)
	assert.ElementsMatch(t, []asset.ID{mesh, scene, hud}, affected)

	assert.Empty(t, g.Affected(scene), "nothing depends on the root")
}

func TestAffectedVisitsOnce(t *testing.T) {
	// Diamond fan-in: both mesh and material depend on texture, scene
	// depends on both. Scene must appear once.
	g := graph.New()
	scene, mesh, mat, tex := id(1), id(2), id(3), id(4)
	require.NoError(t, g.AddEdge(scene, mesh, true))
	require.NoError(t, g.AddEdge(scene, mat, true))
	require.NoError(t, g.AddEdge(mesh, tex, true))
	require.NoError(t, g.AddEdge(mat, tex, true))

	affected := g.Affected(tex)
	assert.Len(t, affected, 3)
	assert.ElementsMatch(t, []asset.ID{mesh, mat, scene}, affected)
}

func TestClearDependencies(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddEdge(id(1), id(2), true))
	g.ClearDependencies(id(1))

	assert.Empty(t, g.DependenciesOf(id(1)))
	assert.Empty(t, g.DependentsOf(id(2)))

	// An edge that was cyclic before the clear is now legal.
	require.NoError(t, g.AddEdge(id(2), id(1), true))
}

func TestRemoveNode(t *testing.T) {
	g := graph.New()
	require.NoError(t, g.AddEdge(id(1), id(2), true))
	require.NoError(t, g.AddEdge(id(3), id(1), true))

	g.RemoveNode(id(1))
	assert.Empty(t, g.DependenciesOf(id(1)))
	assert.Empty(t, g.DependentsOf(id(2)))
	assert.Empty(t, g.DependenciesOf(id(3)))
}
