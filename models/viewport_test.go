package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenModelRoundTrip(t *testing.T) {
	v := Viewport{X: 120, Y: -40, Zoom: 2.5, Width: 800, Height: 600}

	mx, my := v.ScreenToModel(400, 300)
	sx, sy := v.ModelToScreen(mx, my)
	assert.InDelta(t, 400, sx, 1e-9)
	assert.InDelta(t, 300, sy, 1e-9)
}

func TestZoomAtKeepsCursorPointStationary(t *testing.T) {
	v := NewViewport(800, 600)
	v.X, v.Y = 50, 75

	const cx, cy = 613, 221
	mx, my := v.ScreenToModel(cx, cy)

	for _, factor := range []float64{1.1, 0.5, 3, 0.9} {
		v = v.ZoomAt(factor, cx, cy)
		gx, gy := v.ScreenToModel(cx, cy)
		assert.InDelta(t, mx, gx, 1e-9, "factor %v", factor)
		assert.InDelta(t, my, gy, 1e-9, "factor %v", factor)
	}
}

func TestZoomClamped(t *testing.T) {
	v := NewViewport(800, 600)
	v = v.ZoomAt(1e-9, 0, 0)
	assert.Equal(t, 0.01, v.Zoom)
	v = v.ZoomAt(1e9, 0, 0)
	assert.Equal(t, 100.0, v.Zoom)
}

func TestPanShiftsOppositeToDrag(t *testing.T) {
	v := NewViewport(800, 600)
	v.Zoom = 2

	// Dragging content 100px right moves the viewport origin 50 model
	// units left.
	moved := v.Pan(100, -20)
	assert.InDelta(t, -50, moved.X, 1e-9)
	assert.InDelta(t, 10, moved.Y, 1e-9)
}

func TestViewOperationsNeverTouchModelCoordinates(t *testing.T) {
	n := NewNode("a", "A")
	n.X, n.Y = 123, 456

	v := NewViewport(800, 600)
	v = v.Pan(40, 40)
	v = v.ZoomAt(2, 100, 100)
	_ = v

	assert.Equal(t, 123.0, n.X)
	assert.Equal(t, 456.0, n.Y)
}

func TestBoundsInclusiveWithPadding(t *testing.T) {
	v := Viewport{X: 0, Y: 0, Zoom: 2, Width: 800, Height: 600}
	b := v.Bounds(10)

	require.Equal(t, Rect{MinX: -10, MinY: -10, MaxX: 410, MaxY: 310}, b)
	assert.True(t, b.Contains(410, 310), "boundary point is inside")
	assert.True(t, b.Contains(-10, -10))
	assert.False(t, b.Contains(410.0001, 310))
}
