package render

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexgraph/plexgraph/lod"
	"github.com/plexgraph/plexgraph/models"
)

// fakeBackend records calls and can be told to fail Init.
type fakeBackend struct {
	name     string
	failInit bool

	inits    int
	frames   int
	releases int
	edges    []EdgePrimitive
	nodes    []NodePrimitive
	labels   []LabelPrimitive
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Init(ctx *Context) error {
	if f.failInit {
		return errors.New("device unavailable")
	}
	f.inits++
	return nil
}

func (f *fakeBackend) BeginFrame(w, h int)              {}
func (f *fakeBackend) DrawEdges(e []EdgePrimitive)      { f.edges = append(f.edges[:0], e...) }
func (f *fakeBackend) DrawNodes(n []NodePrimitive)      { f.nodes = append(f.nodes[:0], n...) }
func (f *fakeBackend) DrawLabels(l []LabelPrimitive)    { f.labels = append(f.labels[:0], l...) }
func (f *fakeBackend) Release()                         { f.releases++ }
func (f *fakeBackend) EndFrame() FrameStats {
	f.frames++
	return FrameStats{Submissions: 1, Primitives: len(f.edges) + len(f.nodes)}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVisibleSet(tier lod.Tier) lod.VisibleSet {
	a := models.NewNode("a", "Alpha")
	a.X, a.Y = 100, 100
	b := models.NewNode("b", "Beta")
	b.X, b.Y = 200, 200
	e := &models.Edge{ID: "ab", Source: "a", Target: "b", Weight: 1, Width: 3, Opacity: 1}
	return lod.VisibleSet{Nodes: []*models.Node{a, b}, Edges: []*models.Edge{e}, Tier: tier}
}

func newTestPipeline(t *testing.T, primary Backend) (*Pipeline, *fakeBackend) {
	t.Helper()
	fallback := &fakeBackend{name: "fallback"}
	p := NewPipeline(NewContext(testLogger()), primary, fallback, testLogger())
	require.NoError(t, p.Init())
	return p, fallback
}

func TestInitPrefersPrimary(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	p, _ := newTestPipeline(t, primary)

	assert.Equal(t, StateActive, p.State())
	assert.Equal(t, "primary", p.Backend().Name())
	assert.Equal(t, 1, primary.inits)
}

func TestInitFallsBackWhenPrimaryUnavailable(t *testing.T) {
	primary := &fakeBackend{name: "primary", failInit: true}
	p, fallback := newTestPipeline(t, primary)

	assert.Equal(t, StateActive, p.State())
	assert.Equal(t, "fallback", p.Backend().Name())
	assert.Equal(t, 1, fallback.inits)
}

func TestDrawProjectsAndOrders(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	p, _ := newTestPipeline(t, primary)

	vp := models.Viewport{X: 50, Y: 50, Zoom: 2, Width: 800, Height: 600}
	stats := p.Draw(testVisibleSet(lod.TierFull), vp)

	assert.Equal(t, 1, primary.frames)
	assert.Equal(t, 3, stats.Primitives)
	require.Len(t, primary.nodes, 2)
	assert.InDelta(t, 100.0, primary.nodes[0].X, 1e-9) // (100-50)*2
	assert.Equal(t, "a", primary.nodes[0].NodeID)
	require.Len(t, primary.edges, 1)
	assert.Equal(t, 3.0, primary.edges[0].Width)
	assert.Len(t, primary.labels, 2, "full tier draws labels")
}

func TestSimplifiedTierThinsEdgesAndSkipsLabels(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	p, _ := newTestPipeline(t, primary)

	p.Draw(testVisibleSet(lod.TierSimplified), models.Viewport{Zoom: 1, Width: 800, Height: 600})

	require.Len(t, primary.edges, 1)
	assert.Equal(t, 1.0, primary.edges[0].Width)
	assert.InDelta(t, 0.7, primary.edges[0].Opacity, 1e-9)
	assert.Empty(t, primary.labels)
}

func TestLostDrawsNoOpUntilRestored(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	p, _ := newTestPipeline(t, primary)
	vp := models.Viewport{Zoom: 1, Width: 800, Height: 600}

	p.OnBackendLost()
	assert.Equal(t, StateLost, p.State())
	assert.Equal(t, 1, primary.releases)

	stats := p.Draw(testVisibleSet(lod.TierFull), vp)
	assert.Zero(t, stats.Primitives)
	assert.Zero(t, primary.frames, "draw while lost must not reach the backend")

	p.OnBackendRestored()
	assert.Equal(t, StateActive, p.State())
	assert.Equal(t, 2, primary.inits)

	p.Draw(testVisibleSet(lod.TierFull), vp)
	assert.Equal(t, 1, primary.frames)
}

func TestRestoreFallsBackWhenPrimaryStaysDown(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	p, fallback := newTestPipeline(t, primary)

	p.OnBackendLost()
	primary.failInit = true
	p.OnBackendRestored()

	assert.Equal(t, StateActive, p.State())
	assert.Equal(t, "fallback", p.Backend().Name())
	assert.Equal(t, 1, fallback.inits)
}

func TestWatchdogStreaks(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeBackend{name: "primary"})

	var degrades, restores int
	p.SetOverrunHandler(func() { degrades++ })
	p.SetRecoverHandler(func() { restores++ })

	over := FrameBudget + time.Millisecond
	under := FrameBudget - time.Millisecond

	// One short of the streak, then a reset, then a full streak.
	for i := 0; i < overrunStreak-1; i++ {
		p.ObserveTick(over)
	}
	p.ObserveTick(under)
	assert.Zero(t, degrades, "an in-budget tick resets the overrun streak")

	for i := 0; i < overrunStreak; i++ {
		p.ObserveTick(over)
	}
	assert.Equal(t, 1, degrades)

	for i := 0; i < underrunStreak; i++ {
		p.ObserveTick(under)
	}
	assert.Equal(t, 1, restores)
}

func TestDisposeIdempotent(t *testing.T) {
	primary := &fakeBackend{name: "primary"}
	p, _ := newTestPipeline(t, primary)

	p.Dispose()
	p.Dispose()
	assert.Equal(t, StateDisposed, p.State())
	assert.Equal(t, 1, primary.releases)

	stats := p.Draw(testVisibleSet(lod.TierFull), models.Viewport{Zoom: 1})
	assert.Zero(t, stats.Primitives)
}

func TestBatchedBackendSubmitsPerKind(t *testing.T) {
	b := NewBatchedBackend()
	require.NoError(t, b.Init(NewContext(testLogger())))

	var kinds []string
	b.SetSubmitFunc(func(kind string, instances []float32) {
		kinds = append(kinds, kind)
	})

	b.BeginFrame(800, 600)
	b.DrawEdges([]EdgePrimitive{{X1: 0, Y1: 0, X2: 10, Y2: 10, Width: 1, Color: "#ff0000", Opacity: 1}})
	b.DrawNodes([]NodePrimitive{{NodeID: "a", X: 5, Y: 5, R: 3, Color: "#00ff00"}})
	stats := b.EndFrame()

	assert.ElementsMatch(t, []string{"edges", "nodes"}, kinds)
	assert.Equal(t, 2, stats.Submissions)
	assert.Equal(t, 2, stats.Primitives)
}
