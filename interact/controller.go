// Package interact translates raw pointer and wheel input into hit tests,
// node pinning, viewport pan/zoom and selection state changes. It sits
// beside the tick loop: it queries the simulator's spatial index and feeds
// pin and viewport state back into it.
package interact

import (
	"log/slog"
	"math"

	"github.com/plexgraph/plexgraph/models"
	"github.com/plexgraph/plexgraph/physics"
)

// Modifiers carries the modifier-key flags of a raw input event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Meta  bool
}

// Toggle reports whether the event should toggle selection membership
// instead of replacing it.
func (m Modifiers) Toggle() bool { return m.Shift || m.Ctrl || m.Meta }

// SelectionMode controls how SetSelection merges ids into current state.
type SelectionMode int

const (
	SelectReplace SelectionMode = iota
	SelectToggle
	SelectAdd
)

// dragAlphaTarget is the reheat level while a node is dragged, so the rest
// of the graph reacts live to the pinned node's movement.
const dragAlphaTarget = 0.3

// wheelZoomFactor converts one wheel notch into a zoom multiplier.
const wheelZoomFactor = 1.1

// Controller owns interaction state for one engine view.
type Controller struct {
	sim   *physics.Simulator
	graph *models.Graph
	vp    *models.Viewport
	log   *slog.Logger

	// FixOnRelease keeps a dragged node pinned after pointer-up.
	FixOnRelease bool

	selection map[string]bool
	hovered   string

	pointerDown bool
	dragID      string
	dragged     bool
	lastX       float64
	lastY       float64

	onSelection func(ids []string)
	onHover     func(id string)
	onViewport  func(vp models.Viewport)
}

// NewController wires a controller to the simulation, graph and viewport it
// mutates. The viewport pointer is shared with the engine's cull pass.
func NewController(sim *physics.Simulator, graph *models.Graph, vp *models.Viewport, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		sim:       sim,
		graph:     graph,
		vp:        vp,
		log:       log,
		selection: make(map[string]bool),
	}
}

// OnSelectionChanged registers the selection event sink.
func (c *Controller) OnSelectionChanged(fn func(ids []string)) { c.onSelection = fn }

// OnHoverChanged registers the hover event sink.
func (c *Controller) OnHoverChanged(fn func(id string)) { c.onHover = fn }

// OnViewportChanged registers the viewport event sink.
func (c *Controller) OnViewportChanged(fn func(vp models.Viewport)) { c.onViewport = fn }

// HitTest converts a screen point to model space and returns the node under
// it, accepting the nearest candidate only when the point falls inside the
// node's circle.
func (c *Controller) HitTest(sx, sy float64) (string, bool) {
	tree := c.sim.Tree()
	if tree == nil || tree.Len() == 0 {
		return "", false
	}
	mx, my := c.vp.ScreenToModel(sx, sy)
	i, _, ok := tree.QueryNearest(mx, my)
	if !ok {
		return "", false
	}
	n := c.sim.NodeAt(i)
	if n == nil {
		return "", false
	}
	// The index may be one tick stale; measure against the node's current
	// position, not the tree's.
	if math.Hypot(n.X-mx, n.Y-my) > n.Radius {
		return "", false
	}
	return n.ID, true
}

// PointerDown begins a drag on a hit node, or a viewport pan on empty space.
func (c *Controller) PointerDown(sx, sy float64, mods Modifiers) {
	c.pointerDown = true
	c.dragged = false
	c.lastX, c.lastY = sx, sy

	if id, ok := c.HitTest(sx, sy); ok {
		c.dragID = id
		mx, my := c.vp.ScreenToModel(sx, sy)
		c.sim.Pin(id, mx, my)
		c.sim.SetAlphaTarget(dragAlphaTarget)
		c.sim.Reheat(dragAlphaTarget)
		return
	}
	c.dragID = ""
}

// PointerMove pins a dragged node at the pointer's model position, or pans
// the viewport when no node is held. Hover state updates on plain moves.
func (c *Controller) PointerMove(sx, sy float64, mods Modifiers) {
	if !c.pointerDown {
		c.updateHover(sx, sy)
		return
	}
	dx, dy := sx-c.lastX, sy-c.lastY
	if dx != 0 || dy != 0 {
		c.dragged = true
	}
	c.lastX, c.lastY = sx, sy

	if c.dragID != "" {
		mx, my := c.vp.ScreenToModel(sx, sy)
		c.sim.Pin(c.dragID, mx, my)
		return
	}
	*c.vp = c.vp.Pan(dx, dy)
	c.emitViewport()
}

// PointerUp ends a drag or pan. A click (no movement) mutates selection:
// replace on plain click, toggle with a modifier, clear on empty space
// unless a modifier is held.
func (c *Controller) PointerUp(sx, sy float64, mods Modifiers) {
	if !c.pointerDown {
		return
	}
	c.pointerDown = false

	if c.dragID != "" {
		if !c.FixOnRelease {
			c.sim.Unpin(c.dragID)
		}
		c.sim.SetAlphaTarget(0)
		if !c.dragged {
			if mods.Toggle() {
				c.SetSelection([]string{c.dragID}, SelectToggle)
			} else {
				c.SetSelection([]string{c.dragID}, SelectReplace)
			}
		}
		c.dragID = ""
		return
	}

	if !c.dragged && !mods.Toggle() {
		c.SetSelection(nil, SelectReplace)
	}
}

// Wheel zooms about the cursor. Positive deltas zoom in.
func (c *Controller) Wheel(delta, sx, sy float64) {
	factor := math.Pow(wheelZoomFactor, delta)
	*c.vp = c.vp.ZoomAt(factor, sx, sy)
	c.emitViewport()
}

// SetSelection applies a selection change and synchronizes node flags.
func (c *Controller) SetSelection(ids []string, mode SelectionMode) {
	switch mode {
	case SelectReplace:
		for id := range c.selection {
			if n, ok := c.graph.Node(id); ok {
				n.Selected = false
			}
		}
		c.selection = make(map[string]bool, len(ids))
		for _, id := range ids {
			c.selection[id] = true
		}
	case SelectToggle:
		for _, id := range ids {
			if c.selection[id] {
				delete(c.selection, id)
			} else {
				c.selection[id] = true
			}
		}
	case SelectAdd:
		for _, id := range ids {
			c.selection[id] = true
		}
	}
	for _, n := range c.graph.Nodes {
		n.Selected = c.selection[n.ID]
	}
	if c.onSelection != nil {
		c.onSelection(c.Selection())
	}
}

// Selection returns the selected ids in stable (graph) order.
func (c *Controller) Selection() []string {
	out := make([]string, 0, len(c.selection))
	for _, n := range c.graph.Nodes {
		if c.selection[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}

// Hovered returns the currently hovered node id, if any.
func (c *Controller) Hovered() string { return c.hovered }

func (c *Controller) updateHover(sx, sy float64) {
	id, _ := c.HitTest(sx, sy)
	if id == c.hovered {
		return
	}
	if prev, ok := c.graph.Node(c.hovered); ok {
		prev.Hovered = false
	}
	c.hovered = id
	if n, ok := c.graph.Node(id); ok {
		n.Hovered = true
	}
	if c.onHover != nil {
		c.onHover(id)
	}
}

func (c *Controller) emitViewport() {
	if c.onViewport != nil {
		c.onViewport(*c.vp)
	}
}
