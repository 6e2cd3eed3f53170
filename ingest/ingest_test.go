package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot(t *testing.T) {
	data := []byte(`{
		"nodes": [
			{"id": "a", "label": "Alice", "type": "person", "x": 10, "y": 20},
			{"id": "b", "label": "Bob", "type": "person"},
			{"id": "s", "label": "ACME", "type": "company", "ordinal": 1997}
		],
		"edges": [
			{"source": "a", "target": "b", "weight": 4},
			{"id": "e2", "source": "a", "target": "s"}
		]
	}`)

	snap, err := NewSnapshotProcessor(nil).DecodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, snap.Nodes, 3)
	require.Len(t, snap.Edges, 2)

	a, b, s := snap.Nodes[0], snap.Nodes[1], snap.Nodes[2]
	assert.Equal(t, 10.0, a.X)
	assert.Equal(t, 20.0, a.Y)

	// Same categorical type, same palette color; different type differs.
	assert.Equal(t, a.Color, b.Color)
	assert.NotEqual(t, a.Color, s.Color)

	assert.True(t, s.HasOrdinal)
	assert.Equal(t, 1997.0, s.Ordinal)
	assert.False(t, a.HasOrdinal)

	// Degree-derived sizing: a touches both edges, b only one.
	assert.Greater(t, a.Radius, b.Radius)

	// Missing weight defaults to 1.
	assert.Equal(t, 1.0, snap.Edges[1].Weight)
	assert.Equal(t, "e2", snap.Edges[1].ID)
	assert.NotEmpty(t, snap.Edges[0].ID, "generated id for unnamed edge")
}

func TestDecodeSnapshotRespectsExplicitStyling(t *testing.T) {
	data := []byte(`{
		"nodes": [{"id": "a", "color": "#123456", "radius": 17}],
		"edges": []
	}`)
	snap, err := NewSnapshotProcessor(DarkPalette()).DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, "#123456", snap.Nodes[0].Color)
	assert.Equal(t, 17.0, snap.Nodes[0].Radius)
}

func TestDecodeSnapshotRejectsMalformedJSON(t *testing.T) {
	_, err := NewSnapshotProcessor(nil).DecodeSnapshot([]byte(`{"nodes": [`))
	assert.Error(t, err)
}

func TestDecodeDeltaDefaults(t *testing.T) {
	data := []byte(`{
		"added_nodes": [{"id": "x"}],
		"added_edges": [{"id": "e", "source": "x", "target": "y", "weight": 9}],
		"removed_nodes": ["z"]
	}`)

	d, err := NewSnapshotProcessor(nil).DecodeDelta(data)
	require.NoError(t, err)

	require.Len(t, d.AddedNodes, 1)
	assert.Equal(t, 6.0, d.AddedNodes[0].Radius)
	assert.NotEmpty(t, d.AddedNodes[0].Color)

	require.Len(t, d.AddedEdges, 1)
	assert.Equal(t, 3.0, d.AddedEdges[0].Width) // sqrt(9)
	assert.Equal(t, 1.0, d.AddedEdges[0].Opacity)

	assert.Equal(t, []string{"z"}, d.RemovedNodes)
	assert.False(t, d.Empty())
}
