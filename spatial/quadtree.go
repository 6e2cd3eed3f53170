// Package spatial implements the 2D quadtree the engine uses both for
// Barnes-Hut force approximation and for pointer hit-testing.
package spatial

import "math"

// maxDepth bounds subdivision so coincident points cannot recurse forever;
// bodies that still collide at the bottom share a leaf.
const maxDepth = 24

// Cell is one quadtree node. Internal cells aggregate the mass and centroid
// of everything beneath them so a traversal can treat a distant subtree as a
// single body.
type Cell struct {
	// Bounds: origin and side length (cells are square).
	X, Y, Size float64

	// Aggregates over the subtree.
	Mass             float64
	CenterX, CenterY float64

	// Bodies held directly by this cell. Non-empty only for leaves, except
	// at maxDepth where coincident bodies accumulate.
	Bodies []int

	children [4]*Cell
	depth    int
}

// Leaf reports whether the cell has no children.
func (c *Cell) Leaf() bool { return c.children[0] == nil }

// Tree is an immutable spatial index over one tick's node positions. Build a
// fresh tree per tick; positions changing underneath it are not observed.
type Tree struct {
	root *Cell
	xs   []float64
	ys   []float64
	mass []float64
}

// Build constructs a quadtree over the given positions and masses in
// O(n log n). The slices are retained by reference for queries, so callers
// must hand over stable copies or rebuild after mutating them.
func Build(xs, ys, mass []float64) *Tree {
	t := &Tree{xs: xs, ys: ys}
	if len(xs) == 0 {
		return t
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 1; i < len(xs); i++ {
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}

	// Square bounds with a margin; degenerate (single point) inputs still
	// get a non-zero extent.
	size := math.Max(maxX-minX, maxY-minY)
	pad := size * 0.05
	if size == 0 {
		size, pad = 1, 0.5
	}
	t.root = &Cell{X: minX - pad, Y: minY - pad, Size: size + 2*pad}

	t.mass = mass
	for i := range xs {
		t.insert(t.root, i)
	}
	return t
}

func (t *Tree) massOf(i int) float64 {
	if t.mass == nil {
		return 1.0
	}
	return t.mass[i]
}

func (t *Tree) insert(c *Cell, i int) {
	x, y, m := t.xs[i], t.ys[i], t.massOf(i)
	c.Mass += m
	if c.Mass > 0 {
		c.CenterX += (x - c.CenterX) * m / c.Mass
		c.CenterY += (y - c.CenterY) * m / c.Mass
	}

	if c.depth >= maxDepth {
		c.Bodies = append(c.Bodies, i)
		return
	}
	if c.Leaf() {
		if len(c.Bodies) == 0 {
			c.Bodies = append(c.Bodies, i)
			return
		}
		t.subdivide(c)
	}
	t.insert(c.childFor(x, y), i)
}

func (t *Tree) subdivide(c *Cell) {
	half := c.Size / 2
	for q := 0; q < 4; q++ {
		c.children[q] = &Cell{
			X:     c.X + float64(q&1)*half,
			Y:     c.Y + float64(q>>1)*half,
			Size:  half,
			depth: c.depth + 1,
		}
	}
	for _, i := range c.Bodies {
		t.insert(c.childFor(t.xs[i], t.ys[i]), i)
	}
	c.Bodies = nil
}

func (c *Cell) childFor(x, y float64) *Cell {
	half := c.Size / 2
	q := 0
	if x >= c.X+half {
		q |= 1
	}
	if y >= c.Y+half {
		q |= 2
	}
	return c.children[q]
}

// QueryRadius returns the indices of every body within r of (x, y).
func (t *Tree) QueryRadius(x, y, r float64) []int {
	if t.root == nil {
		return nil
	}
	var out []int
	r2 := r * r
	var walk func(c *Cell)
	walk = func(c *Cell) {
		if !c.intersectsCircle(x, y, r) {
			return
		}
		for _, i := range c.Bodies {
			dx := t.xs[i] - x
			dy := t.ys[i] - y
			if dx*dx+dy*dy <= r2 {
				out = append(out, i)
			}
		}
		if !c.Leaf() {
			for _, ch := range c.children {
				walk(ch)
			}
		}
	}
	walk(t.root)
	return out
}

// QueryNearest returns the index of the body closest to (x, y) and its
// distance. ok is false for an empty tree.
func (t *Tree) QueryNearest(x, y float64) (idx int, dist float64, ok bool) {
	if t.root == nil || len(t.xs) == 0 {
		return 0, 0, false
	}
	best := math.Inf(1)
	bestIdx := -1
	var walk func(c *Cell)
	walk = func(c *Cell) {
		if c.distLowerBound(x, y) >= best {
			return
		}
		for _, i := range c.Bodies {
			dx := t.xs[i] - x
			dy := t.ys[i] - y
			if d := math.Hypot(dx, dy); d < best {
				best, bestIdx = d, i
			}
		}
		if c.Leaf() {
			return
		}
		// Visit the quadrant containing the query point first to shrink the
		// bound early.
		first := c.childFor(math.Min(math.Max(x, c.X), c.X+c.Size-1e-12),
			math.Min(math.Max(y, c.Y), c.Y+c.Size-1e-12))
		walk(first)
		for _, ch := range c.children {
			if ch != first {
				walk(ch)
			}
		}
	}
	walk(t.root)
	if bestIdx < 0 {
		return 0, 0, false
	}
	return bestIdx, best, true
}

// Walk traverses the tree for Barnes-Hut style accumulation. The visitor is
// called for each cell; returning false prunes the subtree (the caller has
// accepted the cell's aggregate), returning true descends into children.
// Leaves report their bodies through the same visitor with Leaf() true.
func (t *Tree) Walk(visit func(c *Cell) bool) {
	if t.root == nil {
		return
	}
	var walk func(c *Cell)
	walk = func(c *Cell) {
		if !visit(c) || c.Leaf() {
			return
		}
		for _, ch := range c.children {
			walk(ch)
		}
	}
	walk(t.root)
}

// Position returns the stored coordinates of body i.
func (t *Tree) Position(i int) (float64, float64) { return t.xs[i], t.ys[i] }

// Len returns the number of indexed bodies.
func (t *Tree) Len() int { return len(t.xs) }

func (c *Cell) intersectsCircle(x, y, r float64) bool {
	nx := math.Min(math.Max(x, c.X), c.X+c.Size)
	ny := math.Min(math.Max(y, c.Y), c.Y+c.Size)
	dx := x - nx
	dy := y - ny
	return dx*dx+dy*dy <= r*r
}

func (c *Cell) distLowerBound(x, y float64) float64 {
	nx := math.Min(math.Max(x, c.X), c.X+c.Size)
	ny := math.Min(math.Max(y, c.Y), c.Y+c.Size)
	return math.Hypot(x-nx, y-ny)
}
