package render

// BatchedBackend accumulates all same-kind primitives of a frame into
// GPU-style instance buffers and issues one submission per kind, keeping the
// buffer storage alive across frames so steady-state drawing allocates
// nothing.
//
// Instance layouts (float32):
//
//	edge:  x1 y1 x2 y2 width r g b a
//	node:  x y radius r g b flags
//	label: x y (glyph runs are resolved by the host compositor)
type BatchedBackend struct {
	ctx *Context

	edgeBuf  []float32
	nodeBuf  []float32
	labelBuf []float32
	labels   []string

	width, height int
	submissions   int
	primitives    int
	allocated     bool

	// submit receives finished instance buffers. The default sink counts
	// submissions; hosts with a real GPU queue replace it.
	submit func(kind string, instances []float32)
}

// NewBatchedBackend creates the primary backend.
func NewBatchedBackend() *BatchedBackend {
	b := &BatchedBackend{}
	b.submit = func(string, []float32) {}
	return b
}

func (b *BatchedBackend) Name() string { return "batched" }

// Init allocates the persistent instance buffers.
func (b *BatchedBackend) Init(ctx *Context) error {
	b.ctx = ctx
	b.edgeBuf = make([]float32, 0, 4096)
	b.nodeBuf = make([]float32, 0, 4096)
	b.labelBuf = make([]float32, 0, 512)
	b.allocated = true
	return nil
}

// SetSubmitFunc installs the host's submission sink.
func (b *BatchedBackend) SetSubmitFunc(fn func(kind string, instances []float32)) {
	if fn != nil {
		b.submit = fn
	}
}

func (b *BatchedBackend) BeginFrame(width, height int) {
	b.width, b.height = width, height
	b.edgeBuf = b.edgeBuf[:0]
	b.nodeBuf = b.nodeBuf[:0]
	b.labelBuf = b.labelBuf[:0]
	b.labels = b.labels[:0]
	b.submissions = 0
	b.primitives = 0
}

func (b *BatchedBackend) DrawEdges(edges []EdgePrimitive) {
	if !b.allocated {
		return
	}
	for _, e := range edges {
		r, g, bl := parseHexColor(e.Color)
		b.edgeBuf = append(b.edgeBuf,
			float32(e.X1), float32(e.Y1), float32(e.X2), float32(e.Y2),
			float32(e.Width),
			float32(r)/255, float32(g)/255, float32(bl)/255, float32(e.Opacity))
	}
	b.primitives += len(edges)
}

func (b *BatchedBackend) DrawNodes(nodes []NodePrimitive) {
	if !b.allocated {
		return
	}
	for _, n := range nodes {
		r, g, bl := parseHexColor(n.Color)
		var flags float32
		if n.Selected {
			flags += 1
		}
		if n.Hovered {
			flags += 2
		}
		b.nodeBuf = append(b.nodeBuf,
			float32(n.X), float32(n.Y), float32(n.R),
			float32(r)/255, float32(g)/255, float32(bl)/255, flags)
	}
	b.primitives += len(nodes)
}

func (b *BatchedBackend) DrawLabels(labels []LabelPrimitive) {
	if !b.allocated {
		return
	}
	for _, l := range labels {
		b.labelBuf = append(b.labelBuf, float32(l.X), float32(l.Y))
		b.labels = append(b.labels, l.Text)
	}
	b.primitives += len(labels)
}

// EndFrame flushes the accumulated buffers, one submission per non-empty
// primitive kind.
func (b *BatchedBackend) EndFrame() FrameStats {
	if !b.allocated {
		return FrameStats{}
	}
	if len(b.edgeBuf) > 0 {
		b.submit("edges", b.edgeBuf)
		b.submissions++
	}
	if len(b.nodeBuf) > 0 {
		b.submit("nodes", b.nodeBuf)
		b.submissions++
	}
	if len(b.labelBuf) > 0 {
		b.submit("labels", b.labelBuf)
		b.submissions++
	}
	return FrameStats{Submissions: b.submissions, Primitives: b.primitives}
}

// Release drops the instance buffers; Init recreates them on restore.
func (b *BatchedBackend) Release() {
	b.edgeBuf, b.nodeBuf, b.labelBuf, b.labels = nil, nil, nil, nil
	b.allocated = false
}
