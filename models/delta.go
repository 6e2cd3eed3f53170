package models

// NodePatch is a partial node update delivered by the delta stream. Nil
// fields are left untouched.
type NodePatch struct {
	ID         string   `json:"id"`
	Label      *string  `json:"label,omitempty"`
	Type       *string  `json:"type,omitempty"`
	Genre      *string  `json:"genre,omitempty"`
	Radius     *float64 `json:"radius,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Centrality *float64 `json:"centrality,omitempty"`
	Ordinal    *float64 `json:"ordinal,omitempty"`
}

// EdgePatch is a partial edge update delivered by the delta stream.
type EdgePatch struct {
	ID      string   `json:"id"`
	Weight  *float64 `json:"weight,omitempty"`
	Width   *float64 `json:"width,omitempty"`
	Color   *string  `json:"color,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
}

// Delta is one atomic batch of out-of-band graph changes. The engine queues
// deltas and applies them between ticks, never mid-pass.
type Delta struct {
	AddedNodes    []*Node     `json:"added_nodes,omitempty"`
	AddedEdges    []*Edge     `json:"added_edges,omitempty"`
	ModifiedNodes []NodePatch `json:"modified_nodes,omitempty"`
	ModifiedEdges []EdgePatch `json:"modified_edges,omitempty"`
	RemovedNodes  []string    `json:"removed_nodes,omitempty"`
	RemovedEdges  []string    `json:"removed_edges,omitempty"`
}

// Empty reports whether the delta carries no changes.
func (d *Delta) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.AddedEdges) == 0 &&
		len(d.ModifiedNodes) == 0 && len(d.ModifiedEdges) == 0 &&
		len(d.RemovedNodes) == 0 && len(d.RemovedEdges) == 0
}

// Apply mutates the graph with the delta's changes. Added edges with unknown
// endpoints are dropped and returned; removals of unknown ids are no-ops.
func (d *Delta) Apply(g *Graph) (dropped []*Edge) {
	for _, n := range d.AddedNodes {
		g.AddNode(n)
	}
	for _, e := range d.AddedEdges {
		if err := g.AddEdge(e); err != nil {
			dropped = append(dropped, e)
		}
	}
	for _, p := range d.ModifiedNodes {
		n, ok := g.Node(p.ID)
		if !ok {
			continue
		}
		if p.Label != nil {
			n.Label = *p.Label
		}
		if p.Type != nil {
			n.Type = *p.Type
		}
		if p.Genre != nil {
			n.Genre = *p.Genre
		}
		if p.Radius != nil {
			n.Radius = *p.Radius
		}
		if p.Color != nil {
			n.Color = *p.Color
		}
		if p.Centrality != nil {
			n.Centrality = *p.Centrality
		}
		if p.Ordinal != nil {
			n.Ordinal = *p.Ordinal
			n.HasOrdinal = true
		}
	}
	for _, p := range d.ModifiedEdges {
		for _, e := range g.Edges {
			if e.ID != p.ID {
				continue
			}
			if p.Weight != nil {
				delta := *p.Weight - e.Weight
				e.Weight = *p.Weight
				if src, ok := g.Node(e.Source); ok {
					src.Degree += delta
				}
				if dst, ok := g.Node(e.Target); ok {
					dst.Degree += delta
				}
			}
			if p.Width != nil {
				e.Width = *p.Width
			}
			if p.Color != nil {
				e.Color = *p.Color
			}
			if p.Opacity != nil {
				e.Opacity = *p.Opacity
			}
			break
		}
	}
	for _, id := range d.RemovedEdges {
		g.RemoveEdge(id)
	}
	for _, id := range d.RemovedNodes {
		g.RemoveNode(id)
	}
	return dropped
}
