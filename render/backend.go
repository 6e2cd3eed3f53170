package render

// Primitives are screen-space and reference nodes by id, never by pointer,
// so the render graph holds no back-references into the simulation arena.

// EdgePrimitive is one screen-space line segment.
type EdgePrimitive struct {
	X1, Y1, X2, Y2 float64
	Width          float64
	Color          string
	Opacity        float64
}

// NodePrimitive is one screen-space circle.
type NodePrimitive struct {
	NodeID   string
	X, Y, R  float64
	Color    string
	Selected bool
	Hovered  bool
}

// LabelPrimitive is one screen-space text label.
type LabelPrimitive struct {
	NodeID string
	X, Y   float64
	Text   string
}

// FrameStats summarizes one completed frame.
type FrameStats struct {
	Submissions int // draw submissions issued (batched: one per primitive kind)
	Primitives  int
}

// Backend is the polymorphic render target. The pipeline depends only on
// this interface; concrete variants are the batched backend and the
// immediate-mode rasterizer. Draw order is fixed by the pipeline: edges,
// then nodes, then labels.
type Backend interface {
	Name() string

	// Init acquires backend resources. An error here is not fatal to the
	// pipeline; it falls back to the secondary backend.
	Init(ctx *Context) error

	BeginFrame(width, height int)
	DrawEdges(edges []EdgePrimitive)
	DrawNodes(nodes []NodePrimitive)
	DrawLabels(labels []LabelPrimitive)
	EndFrame() FrameStats

	// Release drops backend resources. Called on context loss and disposal;
	// Init is called again on restore.
	Release()
}
