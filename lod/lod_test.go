package lod

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexgraph/plexgraph/models"
)

func testSelector(cfg models.Config) *Selector {
	return NewSelector(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func viewport(zoom float64) models.Viewport {
	return models.Viewport{X: 0, Y: 0, Zoom: zoom, Width: 800, Height: 600}
}

func TestTierForIsMonotonic(t *testing.T) {
	s := testSelector(models.DefaultConfig())

	prev := TierMinimal
	for _, zoom := range []float64{0.01, 0.1, 0.24, 0.25, 0.5, 0.74, 0.75, 1, 10} {
		tier := s.TierFor(zoom)
		assert.GreaterOrEqual(t, tier, prev, "tier regressed at zoom %v", zoom)
		prev = tier
	}

	// Boundary zooms land on the finer side.
	assert.Equal(t, TierMinimal, s.TierFor(0.2))
	assert.Equal(t, TierSimplified, s.TierFor(0.25))
	assert.Equal(t, TierFull, s.TierFor(0.75))
}

func TestDegradeLowersTierAndRestoreLifts(t *testing.T) {
	s := testSelector(models.DefaultConfig())
	require.Equal(t, TierFull, s.TierFor(1))

	s.Degrade()
	assert.Equal(t, TierSimplified, s.TierFor(1))
	s.Degrade()
	assert.Equal(t, TierMinimal, s.TierFor(1))
	s.Degrade() // already at the floor
	assert.Equal(t, TierMinimal, s.TierFor(1))

	s.Restore()
	s.Restore()
	s.Restore()
	assert.Equal(t, TierFull, s.TierFor(1))
}

func TestSelectCullsByBoundsInclusive(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.CullPadding = 0
	s := testSelector(cfg)

	g := models.NewGraph()
	inside := models.NewNode("in", "")
	inside.X, inside.Y = 400, 300
	edge := models.NewNode("edge", "")
	edge.X, edge.Y = 800, 600 // exactly on the boundary
	outside := models.NewNode("out", "")
	outside.X, outside.Y = 801, 300
	g.AddNode(inside)
	g.AddNode(edge)
	g.AddNode(outside)

	vs := s.Select(viewport(1), g)
	ids := nodeIDs(vs)
	assert.ElementsMatch(t, []string{"in", "edge"}, ids)
	assert.True(t, inside.Visible)
	assert.True(t, edge.Visible)
	assert.False(t, outside.Visible)
}

func TestSelectDropsSubPixelNodes(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.MinPixelRadius = 0.5
	s := testSelector(cfg)

	g := models.NewGraph()
	n := models.NewNode("tiny", "")
	n.X, n.Y, n.Radius = 100, 100, 4
	g.AddNode(n)

	// 4px radius at 0.05 zoom is 0.2 screen pixels: culled.
	vs := s.Select(viewport(0.05), g)
	assert.Empty(t, vs.Nodes)

	vs = s.Select(viewport(1), g)
	assert.Len(t, vs.Nodes, 1)
}

func TestBudgetTruncationOrder(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.MaxNodesPerTier = []int{2, 3, 3}
	cfg.MaxEdgesPerTier = []int{2, 2, 2}
	s := testSelector(cfg)

	g := models.NewGraph()
	mk := func(id string, imp float64, selected, hovered bool) *models.Node {
		n := models.NewNode(id, "")
		n.X, n.Y = 400, 300
		n.Centrality = imp
		n.Selected = selected
		n.Hovered = hovered
		g.AddNode(n)
		return n
	}
	mk("low", 1, false, false)
	mk("high", 9, false, false)
	mk("sel", 0.5, true, false)
	mk("hov", 0.5, false, true)
	mk("mid", 5, false, false)

	vs := s.Select(viewport(1), g) // TierFull, budget 3
	assert.ElementsMatch(t, []string{"sel", "hov", "high"}, nodeIDs(vs),
		"selected then hovered then importance")
}

func TestEdgesRequireBothEndpointsVisible(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.CullPadding = 0
	s := testSelector(cfg)

	g := models.NewGraph()
	a := models.NewNode("a", "")
	a.X, a.Y = 100, 100
	b := models.NewNode("b", "")
	b.X, b.Y = 2000, 2000 // off-screen
	c := models.NewNode("c", "")
	c.X, c.Y = 200, 200
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)
	require.NoError(t, g.AddEdge(models.NewEdge("a", "b", 3)))
	require.NoError(t, g.AddEdge(models.NewEdge("a", "c", 3)))

	vs := s.Select(viewport(1), g)
	require.Len(t, vs.Edges, 1)
	assert.Equal(t, "c", vs.Edges[0].Target)
}

func TestEdgeWeightFloorPerTier(t *testing.T) {
	cfg := models.DefaultConfig()
	s := testSelector(cfg)

	g := models.NewGraph()
	for _, id := range []string{"a", "b"} {
		n := models.NewNode(id, "")
		n.X, n.Y = 400, 300
		g.AddNode(n)
	}
	require.NoError(t, g.AddEdge(models.NewEdge("a", "b", 1))) // light edge

	// Visible at full detail, dropped at the minimal tier's weight floor.
	vs := s.Select(viewport(1), g)
	assert.Len(t, vs.Edges, 1)

	vs = s.Select(viewport(0.1), g)
	assert.Equal(t, TierMinimal, vs.Tier)
	assert.Empty(t, vs.Edges)
}

func TestEdgeBudgetKeepsHeaviest(t *testing.T) {
	cfg := models.DefaultConfig()
	cfg.MaxEdgesPerTier = []int{2, 2, 2}
	s := testSelector(cfg)

	g := models.NewGraph()
	for i := 0; i < 4; i++ {
		n := models.NewNode(fmt.Sprintf("n%d", i), "")
		n.X, n.Y = 400, 300
		g.AddNode(n)
	}
	for i, w := range []float64{1, 7, 4, 2} {
		e := models.NewEdge(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", (i+1)%4), w)
		e.ID = fmt.Sprintf("e%d", i)
		require.NoError(t, g.AddEdge(e))
	}

	vs := s.Select(viewport(1), g)
	require.Len(t, vs.Edges, 2)
	assert.Equal(t, 7.0, vs.Edges[0].Weight)
	assert.Equal(t, 4.0, vs.Edges[1].Weight)
}

func TestTierLabels(t *testing.T) {
	assert.False(t, TierMinimal.Labels())
	assert.False(t, TierSimplified.Labels())
	assert.True(t, TierFull.Labels())
}

func nodeIDs(vs VisibleSet) []string {
	ids := make([]string, 0, len(vs.Nodes))
	for _, n := range vs.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}
