package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plexgraph/plexgraph/lod"
	"github.com/plexgraph/plexgraph/models"
)

func testViewport() models.Viewport {
	return models.Viewport{Zoom: 1, Width: 800, Height: 600}
}

func TestExportSVGDrawsNodesAndEdges(t *testing.T) {
	a := &models.Node{ID: "a", X: 100, Y: 100, Radius: 6}
	b := &models.Node{ID: "b", X: 200, Y: 200, Radius: 6}
	vs := lod.VisibleSet{
		Nodes: []*models.Node{a, b},
		Edges: []*models.Edge{{ID: "ab", Source: "a", Target: "b", Weight: 1, Width: 1, Opacity: 1}},
		Tier:  lod.TierFull,
	}

	out := string(ExportSVG(vs, testViewport(), DefaultSVGOptions()))
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "<line")
	assert.Contains(t, out, "<circle")
}

func TestExportSVGEscapesLabels(t *testing.T) {
	n := &models.Node{ID: "a", Label: `a<&"b`, X: 100, Y: 100, Radius: 6}
	vs := lod.VisibleSet{Nodes: []*models.Node{n}, Tier: lod.TierFull}

	out := string(ExportSVG(vs, testViewport(), DefaultSVGOptions()))
	assert.Contains(t, out, "a&lt;&amp;&#34;b")
	assert.NotContains(t, out, `>a<&"b<`)
}

func TestExportSVGSkipsLabelsBelowFullTier(t *testing.T) {
	n := &models.Node{ID: "a", Label: "Alpha", X: 100, Y: 100, Radius: 6}
	vs := lod.VisibleSet{Nodes: []*models.Node{n}, Tier: lod.TierSimplified}

	out := string(ExportSVG(vs, testViewport(), DefaultSVGOptions()))
	assert.NotContains(t, out, "<text")
}
