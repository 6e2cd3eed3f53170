package render

import (
	"image"
	"image/color"
	"math"
)

// Immediate2D is the pure software fallback backend: it rasterizes each
// primitive directly into an RGBA frame as it arrives. Slower than the
// batched backend but has no resource lifecycle to lose.
type Immediate2D struct {
	frame       *image.RGBA
	background  color.RGBA
	submissions int
	primitives  int
}

// NewImmediate2D creates the fallback backend.
func NewImmediate2D() *Immediate2D {
	return &Immediate2D{background: color.RGBA{R: 0xf8, G: 0xf8, B: 0xf8, A: 0xff}}
}

func (im *Immediate2D) Name() string { return "immediate2d" }

func (im *Immediate2D) Init(*Context) error { return nil }

// Frame returns the most recently completed frame.
func (im *Immediate2D) Frame() *image.RGBA { return im.frame }

func (im *Immediate2D) BeginFrame(width, height int) {
	if im.frame == nil || im.frame.Bounds().Dx() != width || im.frame.Bounds().Dy() != height {
		im.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			im.frame.SetRGBA(x, y, im.background)
		}
	}
	im.submissions = 0
	im.primitives = 0
}

func (im *Immediate2D) DrawEdges(edges []EdgePrimitive) {
	for _, e := range edges {
		r, g, b := parseHexColor(e.Color)
		a := uint8(math.Min(math.Max(e.Opacity, 0), 1) * 255)
		im.line(int(e.X1), int(e.Y1), int(e.X2), int(e.Y2), color.RGBA{R: r, G: g, B: b, A: a})
		im.submissions++
	}
	im.primitives += len(edges)
}

func (im *Immediate2D) DrawNodes(nodes []NodePrimitive) {
	for _, n := range nodes {
		r, g, b := parseHexColor(n.Color)
		im.disc(n.X, n.Y, n.R, color.RGBA{R: r, G: g, B: b, A: 0xff})
		if n.Selected || n.Hovered {
			im.ring(n.X, n.Y, n.R+2, color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff})
		}
		im.submissions++
	}
	im.primitives += len(nodes)
}

// DrawLabels rasterizes label anchors only; glyph rendering is left to the
// host compositor, same as the batched backend.
func (im *Immediate2D) DrawLabels(labels []LabelPrimitive) {
	im.primitives += len(labels)
}

func (im *Immediate2D) EndFrame() FrameStats {
	return FrameStats{Submissions: im.submissions, Primitives: im.primitives}
}

func (im *Immediate2D) Release() {
	im.frame = nil
}

// line draws with Bresenham's algorithm, clipped to the frame.
func (im *Immediate2D) line(x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 >= x2 {
		sx = -1
	}
	if y1 >= y2 {
		sy = -1
	}
	err := dx + dy
	bounds := im.frame.Bounds()
	for {
		if image.Pt(x1, y1).In(bounds) {
			im.frame.SetRGBA(x1, y1, c)
		}
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			if x1 == x2 {
				return
			}
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			if y1 == y2 {
				return
			}
			err += dx
			y1 += sy
		}
	}
}

func (im *Immediate2D) disc(cx, cy, r float64, c color.RGBA) {
	bounds := im.frame.Bounds()
	r2 := r * r
	for y := int(cy - r); y <= int(cy+r); y++ {
		for x := int(cx - r); x <= int(cx+r); x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			if dx*dx+dy*dy <= r2 && image.Pt(x, y).In(bounds) {
				im.frame.SetRGBA(x, y, c)
			}
		}
	}
}

func (im *Immediate2D) ring(cx, cy, r float64, c color.RGBA) {
	bounds := im.frame.Bounds()
	steps := int(math.Max(16, 2*math.Pi*r))
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := int(cx + r*math.Cos(a))
		y := int(cy + r*math.Sin(a))
		if image.Pt(x, y).In(bounds) {
			im.frame.SetRGBA(x, y, c)
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
