// Package models provides the data structures shared by the plexgraph engine:
// graph topology, kinematic node state, viewport transforms, deltas and the
// engine configuration.
package models

import (
	"time"
)

// Node is a single vertex in the rendered graph. Position and velocity are
// model-space and are mutated in place by the simulator; pin state and
// selection flags are mutated by the interaction controller.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`  // categorical attribute driving color/clustering
	Genre string `json:"genre"` // secondary categorical attribute

	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"-"`
	VY float64 `json:"-"`

	Pinned bool    `json:"-"`
	PinX   float64 `json:"-"`
	PinY   float64 `json:"-"`

	Radius     float64 `json:"radius"`
	Color      string  `json:"color"`
	Degree     float64 `json:"degree"`     // derived importance metric
	Centrality float64 `json:"centrality"` // optional importance metric
	Ordinal    float64 `json:"ordinal"`    // ordinal/date attribute for axis arrangement
	HasOrdinal bool    `json:"-"`

	Visible  bool `json:"-"`
	Selected bool `json:"-"`
	Hovered  bool `json:"-"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Importance is the scalar used for LOD priority and link scaling.
func (n *Node) Importance() float64 {
	if n.Centrality > 0 {
		return n.Centrality
	}
	return n.Degree
}

// Edge is an undirected-for-layout link between two nodes. Source and Target
// must reference nodes present in the graph.
type Edge struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`

	// Derived visual attributes.
	Width   float64 `json:"width"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Graph is the in-memory topology one engine instance owns. It is not safe
// for concurrent mutation; the engine applies all changes between ticks.
type Graph struct {
	ID    string  `json:"id"`
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`

	byID map[string]*Node
}

// Snapshot is the external load format: a full graph delivered once per view
// session by the data pipeline.
type Snapshot struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// PositionUpdate is one entry of the per-tick position stream emitted to
// downstream state stores.
type PositionUpdate struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}
