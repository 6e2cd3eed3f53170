// Package ingest decodes external graph snapshots and delta batches into the
// engine's model types, applying palette-driven colors and degree-derived
// sizing so raw pipeline output arrives render-ready.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/plexgraph/plexgraph/models"
)

// Palette provides the color scheme applied to decoded graphs.
type Palette struct {
	NodeColors []string
	EdgeColor  string
	Background string
}

// DefaultPalette returns the standard scheme.
func DefaultPalette() *Palette {
	return &Palette{
		NodeColors: []string{
			"#4285F4", // blue
			"#EA4335", // red
			"#FBBC05", // yellow
			"#34A853", // green
			"#673AB7", // purple
			"#00BCD4", // cyan
			"#FF5722", // deep orange
			"#009688", // teal
		},
		EdgeColor:  "#666666",
		Background: "#f8f8f8",
	}
}

// DarkPalette returns a high-contrast scheme for dark surfaces.
func DarkPalette() *Palette {
	return &Palette{
		NodeColors: []string{
			"#FF6D00", "#2979FF", "#00E676", "#F50057",
			"#651FFF", "#C6FF00", "#00B0FF", "#76FF03",
		},
		EdgeColor:  "#9E9E9E",
		Background: "#212121",
	}
}

// SnapshotProcessor decodes snapshot and delta JSON.
type SnapshotProcessor struct {
	palette *Palette
}

// NewSnapshotProcessor creates a processor; a nil palette means the default.
func NewSnapshotProcessor(palette *Palette) *SnapshotProcessor {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &SnapshotProcessor{palette: palette}
}

type rawNode struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Type    string   `json:"type"`
	Genre   string   `json:"genre"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Radius  float64  `json:"radius"`
	Color   string   `json:"color"`
	Ordinal *float64 `json:"ordinal"`
}

type rawEdge struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// DecodeSnapshot parses a full snapshot document. Node colors default from
// the palette keyed by categorical type; radii default from edge degree
// after topology is known.
func (p *SnapshotProcessor) DecodeSnapshot(data []byte) (*models.Snapshot, error) {
	var doc struct {
		Nodes []rawNode `json:"nodes"`
		Edges []rawEdge `json:"edges"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	snap := &models.Snapshot{
		Nodes: make([]*models.Node, 0, len(doc.Nodes)),
		Edges: make([]*models.Edge, 0, len(doc.Edges)),
	}

	typeColor := make(map[string]string)
	degree := make(map[string]float64)

	for _, re := range doc.Edges {
		w := re.Weight
		if w <= 0 {
			w = 1
		}
		e := models.NewEdge(re.Source, re.Target, w)
		if re.ID != "" {
			e.ID = re.ID
		}
		e.Color = p.palette.EdgeColor
		e.Width = math.Max(0.5, math.Sqrt(w))
		snap.Edges = append(snap.Edges, e)
		degree[re.Source] += w
		degree[re.Target] += w
	}

	for _, rn := range doc.Nodes {
		n := models.NewNode(rn.ID, rn.Label)
		n.Type = rn.Type
		n.Genre = rn.Genre
		n.X, n.Y = rn.X, rn.Y
		if rn.Ordinal != nil {
			n.Ordinal = *rn.Ordinal
			n.HasOrdinal = true
		}
		if rn.Color != "" {
			n.Color = rn.Color
		} else {
			n.Color = p.colorFor(rn.Type, typeColor)
		}
		if rn.Radius > 0 {
			n.Radius = rn.Radius
		} else {
			// Sub-linear growth keeps hubs readable without dwarfing leaves.
			n.Radius = 4 + 2*math.Sqrt(degree[rn.ID])
		}
		snap.Nodes = append(snap.Nodes, n)
	}

	return snap, nil
}

// DecodeDelta parses one delta batch document.
func (p *SnapshotProcessor) DecodeDelta(data []byte) (*models.Delta, error) {
	var d models.Delta
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse delta: %w", err)
	}
	for _, n := range d.AddedNodes {
		if n.Radius <= 0 {
			n.Radius = 6
		}
		if n.Color == "" {
			n.Color = p.palette.NodeColors[0]
		}
		n.Visible = true
	}
	for _, e := range d.AddedEdges {
		if e.Weight <= 0 {
			e.Weight = 1
		}
		if e.Color == "" {
			e.Color = p.palette.EdgeColor
		}
		if e.Width <= 0 {
			e.Width = math.Max(0.5, math.Sqrt(e.Weight))
		}
		if e.Opacity <= 0 {
			e.Opacity = 1
		}
	}
	return &d, nil
}

// colorFor assigns palette colors to categorical types in first-seen order.
func (p *SnapshotProcessor) colorFor(nodeType string, seen map[string]string) string {
	if c, ok := seen[nodeType]; ok {
		return c
	}
	c := p.palette.NodeColors[len(seen)%len(p.palette.NodeColors)]
	seen[nodeType] = c
	return c
}
