package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownEndpoint is returned when an edge references a node id that is
// not present in the graph.
var ErrUnknownEndpoint = fmt.Errorf("edge references unknown node")

// NewGraph creates an empty graph with a unique id.
func NewGraph() *Graph {
	return &Graph{
		ID:   uuid.New().String(),
		byID: make(map[string]*Node),
	}
}

// NewNode creates a node with the given id and sensible visual defaults.
func NewNode(id, label string) *Node {
	now := time.Now()
	return &Node{
		ID:        id,
		Label:     label,
		Radius:    6.0,
		Color:     "#808080",
		Visible:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewEdge creates an edge between two node ids. Weight must be non-negative;
// zero weight is normalized to one so the link force stays defined.
func NewEdge(source, target string, weight float64) *Edge {
	if weight <= 0 {
		weight = 1.0
	}
	now := time.Now()
	return &Edge{
		ID:        uuid.New().String(),
		Source:    source,
		Target:    target,
		Weight:    weight,
		Width:     1.0,
		Color:     "#666666",
		Opacity:   1.0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// AddNode inserts a node. Re-adding an existing id replaces the stored node.
func (g *Graph) AddNode(n *Node) {
	if g.byID == nil {
		g.byID = make(map[string]*Node)
	}
	if old, ok := g.byID[n.ID]; ok {
		for i, existing := range g.Nodes {
			if existing == old {
				g.Nodes[i] = n
				break
			}
		}
	} else {
		g.Nodes = append(g.Nodes, n)
	}
	g.byID[n.ID] = n
}

// AddEdge appends an edge after checking both endpoints exist. The endpoint
// degrees are updated so importance metrics stay current.
func (g *Graph) AddEdge(e *Edge) error {
	src, ok := g.byID[e.Source]
	if !ok {
		return fmt.Errorf("%w: source %q", ErrUnknownEndpoint, e.Source)
	}
	dst, ok := g.byID[e.Target]
	if !ok {
		return fmt.Errorf("%w: target %q", ErrUnknownEndpoint, e.Target)
	}
	g.Edges = append(g.Edges, e)
	src.Degree += e.Weight
	dst.Degree += e.Weight
	return nil
}

// RemoveNode removes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	if _, ok := g.byID[id]; !ok {
		return
	}
	delete(g.byID, id)
	nodes := g.Nodes[:0]
	for _, n := range g.Nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	g.Nodes = nodes

	edges := g.Edges[:0]
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			g.dropDegree(e)
			continue
		}
		edges = append(edges, e)
	}
	g.Edges = edges
}

// RemoveEdge removes the edge with the given id.
func (g *Graph) RemoveEdge(id string) {
	edges := g.Edges[:0]
	for _, e := range g.Edges {
		if e.ID == id {
			g.dropDegree(e)
			continue
		}
		edges = append(edges, e)
	}
	g.Edges = edges
}

func (g *Graph) dropDegree(e *Edge) {
	if n, ok := g.byID[e.Source]; ok {
		n.Degree -= e.Weight
	}
	if n, ok := g.byID[e.Target]; ok {
		n.Degree -= e.Weight
	}
}

// Neighbors returns the ids of nodes directly connected to the given node.
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.Edges {
		var other string
		switch id {
		case e.Source:
			other = e.Target
		case e.Target:
			other = e.Source
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out
}

// FromSnapshot constructs a graph from a full snapshot. Edges referencing
// unknown nodes are returned in dropped rather than aborting the load.
func FromSnapshot(snap *Snapshot) (g *Graph, dropped []*Edge) {
	g = NewGraph()
	for _, n := range snap.Nodes {
		g.AddNode(n)
	}
	for _, e := range snap.Edges {
		if err := g.AddEdge(e); err != nil {
			dropped = append(dropped, e)
		}
	}
	return g, dropped
}
