package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEdgeRejectsUnknownEndpoints(t *testing.T) {
	g := NewGraph()
	g.AddNode(NewNode("a", "A"))

	err := g.AddEdge(NewEdge("a", "ghost", 1))
	require.ErrorIs(t, err, ErrUnknownEndpoint)
	assert.Empty(t, g.Edges)

	g.AddNode(NewNode("b", "B"))
	require.NoError(t, g.AddEdge(NewEdge("a", "b", 2)))
	assert.Len(t, g.Edges, 1)
}

func TestEdgeWeightUpdatesDegree(t *testing.T) {
	g := NewGraph()
	a := NewNode("a", "A")
	b := NewNode("b", "B")
	g.AddNode(a)
	g.AddNode(b)
	require.NoError(t, g.AddEdge(NewEdge("a", "b", 3)))

	assert.Equal(t, 3.0, a.Degree)
	assert.Equal(t, 3.0, b.Degree)
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(NewNode(id, ""))
	}
	require.NoError(t, g.AddEdge(NewEdge("a", "b", 1)))
	require.NoError(t, g.AddEdge(NewEdge("b", "c", 1)))
	require.NoError(t, g.AddEdge(NewEdge("a", "c", 1)))

	g.RemoveNode("b")

	_, ok := g.Node("b")
	assert.False(t, ok)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "a", g.Edges[0].Source)
	assert.Equal(t, "c", g.Edges[0].Target)
}

func TestNeighbors(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(NewNode(id, ""))
	}
	require.NoError(t, g.AddEdge(NewEdge("a", "b", 1)))
	require.NoError(t, g.AddEdge(NewEdge("c", "a", 1)))

	assert.ElementsMatch(t, []string{"b", "c"}, g.Neighbors("a"))
	assert.Empty(t, g.Neighbors("d"))
}

func TestFromSnapshotDropsDanglingEdges(t *testing.T) {
	snap := &Snapshot{
		Nodes: []*Node{NewNode("a", ""), NewNode("b", "")},
		Edges: []*Edge{
			NewEdge("a", "b", 1),
			NewEdge("a", "missing", 1),
		},
	}

	g, dropped := FromSnapshot(snap)
	assert.Len(t, g.Edges, 1)
	require.Len(t, dropped, 1)
	assert.Equal(t, "missing", dropped[0].Target)
}

func TestImportanceFallsBackToDegree(t *testing.T) {
	n := NewNode("a", "")
	n.Degree = 4
	assert.Equal(t, 4.0, n.Importance())

	n.Centrality = 0.8
	assert.Equal(t, 0.8, n.Importance())
}

func TestNewEdgeClampsWeight(t *testing.T) {
	e := NewEdge("a", "b", 0)
	assert.Equal(t, 1.0, e.Weight)
	e = NewEdge("a", "b", -3)
	assert.Equal(t, 1.0, e.Weight)
}

func TestDeltaApplyTopology(t *testing.T) {
	g := NewGraph()
	a := NewNode("a", "A")
	b := NewNode("b", "B")
	g.AddNode(a)
	g.AddNode(b)
	require.NoError(t, g.AddEdge(&Edge{ID: "ab", Source: "a", Target: "b", Weight: 1}))

	label := "renamed"
	weight := 5.0
	d := &Delta{
		AddedNodes:    []*Node{NewNode("c", "C")},
		AddedEdges:    []*Edge{NewEdge("b", "c", 2), NewEdge("b", "ghost", 1)},
		ModifiedNodes: []NodePatch{{ID: "a", Label: &label}},
		ModifiedEdges: []EdgePatch{{ID: "ab", Weight: &weight}},
	}
	dropped := d.Apply(g)

	require.Len(t, dropped, 1)
	assert.Equal(t, "ghost", dropped[0].Target)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)
	assert.Equal(t, "renamed", a.Label)
	assert.Equal(t, 5.0, g.Edges[0].Weight)
	// The weight patch re-adjusts endpoint degrees by the difference.
	assert.Equal(t, 5.0, a.Degree)
	assert.Equal(t, 5.0+2.0, b.Degree)

	d2 := &Delta{RemovedNodes: []string{"c"}, RemovedEdges: []string{"ab"}}
	assert.Empty(t, d2.Apply(g))
	assert.Empty(t, g.Edges)
	assert.Len(t, g.Nodes, 2)
}

func TestDeltaEmpty(t *testing.T) {
	assert.True(t, (&Delta{}).Empty())
	assert.False(t, (&Delta{RemovedNodes: []string{"x"}}).Empty())
}
