package models

// Viewport is a pure view transform from model space to screen space: a pan
// offset, a zoom scale and the host surface size. View operations never
// rewrite node model coordinates.
type Viewport struct {
	X      float64 `json:"x"` // pan offset, model units
	Y      float64 `json:"y"`
	Zoom   float64 `json:"zoom"`
	Width  float64 `json:"width"` // surface size, pixels
	Height float64 `json:"height"`
}

// NewViewport returns an identity viewport for the given surface size.
func NewViewport(width, height float64) Viewport {
	return Viewport{Zoom: 1.0, Width: width, Height: height}
}

// ModelToScreen converts a model-space point to screen pixels.
func (v Viewport) ModelToScreen(mx, my float64) (float64, float64) {
	return (mx - v.X) * v.Zoom, (my - v.Y) * v.Zoom
}

// ScreenToModel converts a screen-space point to model coordinates.
func (v Viewport) ScreenToModel(sx, sy float64) (float64, float64) {
	return sx/v.Zoom + v.X, sy/v.Zoom + v.Y
}

// Rect is an axis-aligned model-space rectangle.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

// Contains reports whether the point lies inside the rectangle; boundary
// points are inclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x <= r.MaxX && y >= r.MinY && y <= r.MaxY
}

// Bounds returns the model-space rectangle covered by the viewport, expanded
// by padding model units on every side.
func (v Viewport) Bounds(padding float64) Rect {
	w := v.Width / v.Zoom
	h := v.Height / v.Zoom
	return Rect{
		MinX: v.X - padding,
		MinY: v.Y - padding,
		MaxX: v.X + w + padding,
		MaxY: v.Y + h + padding,
	}
}

// ZoomAt scales the viewport by factor while keeping the model point under
// the given screen point stationary.
func (v Viewport) ZoomAt(factor, sx, sy float64) Viewport {
	mx, my := v.ScreenToModel(sx, sy)
	v.Zoom *= factor
	if v.Zoom < 0.01 {
		v.Zoom = 0.01
	}
	if v.Zoom > 100 {
		v.Zoom = 100
	}
	v.X = mx - sx/v.Zoom
	v.Y = my - sy/v.Zoom
	return v
}

// Pan shifts the viewport by a screen-space displacement.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.X -= dx / v.Zoom
	v.Y -= dy / v.Zoom
	return v
}
