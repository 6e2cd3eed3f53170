// Package engine assembles the simulator, spatial culling, render pipeline
// and interaction controller behind one host-driven facade. The host owns
// the frame loop and calls Step once per frame with its own delta time.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plexgraph/plexgraph/interact"
	"github.com/plexgraph/plexgraph/lod"
	"github.com/plexgraph/plexgraph/models"
	"github.com/plexgraph/plexgraph/physics"
	"github.com/plexgraph/plexgraph/render"
	"github.com/plexgraph/plexgraph/telemetry"
)

// reheatAlpha is the temperature restored when topology changes.
const reheatAlpha = 0.5

// Engine is the top-level coordinator. All methods must be called from the
// host's frame goroutine except ApplyDelta, QueueSnapshot and Stop, which
// may be called from any goroutine.
type Engine struct {
	cfg models.Config
	log *slog.Logger

	graph    *models.Graph
	sim      *physics.Simulator
	selector *lod.Selector
	pipeline *render.Pipeline
	ctrl     *interact.Controller
	metrics  *telemetry.Registry

	viewport models.Viewport

	mu          sync.Mutex // guards pending and pendingSnap
	pending     []*models.Delta
	pendingSnap *models.Snapshot

	stopped atomic.Bool

	onPositions func([]models.PositionUpdate)
	posScratch  []models.PositionUpdate

	lastVisible lod.VisibleSet
	lastStats   render.FrameStats
}

// New wires an engine around a validated config. The primary backend is
// tried first at Init; on failure the pipeline falls back to immediate mode.
func New(cfg models.Config, primary render.Backend, log *slog.Logger, metrics *telemetry.Registry) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = telemetry.NewRegistry(nil)
	}

	e := &Engine{
		cfg:     cfg,
		log:     log,
		graph:   models.NewGraph(),
		sim:     physics.NewSimulator(log),
		metrics: metrics,
		viewport: models.Viewport{
			Zoom:   1,
			Width:  cfg.Width,
			Height: cfg.Height,
		},
	}
	e.selector = lod.NewSelector(cfg, log)

	ctx := render.NewContext(log)
	fallback := render.NewImmediate2D()
	e.pipeline = render.NewPipeline(ctx, primary, fallback, log)
	e.pipeline.SetOverrunHandler(e.selector.Degrade)
	e.pipeline.SetRecoverHandler(e.selector.Restore)
	if err := e.pipeline.Init(); err != nil {
		return nil, fmt.Errorf("render init: %w", err)
	}
	e.metrics.ObserveBackend(e.pipeline.State().String())

	e.ctrl = interact.NewController(e.sim, e.graph, &e.viewport, log)
	return e, nil
}

// LoadSnapshot replaces the current graph wholesale and restarts the
// simulation hot. Edges referencing unknown endpoints are dropped with a
// warning rather than failing the load. Must run on the frame goroutine;
// concurrent producers use QueueSnapshot instead.
func (e *Engine) LoadSnapshot(snap *models.Snapshot) error {
	if e.stopped.Load() {
		return fmt.Errorf("engine stopped")
	}
	g, dropped := models.FromSnapshot(snap)
	for _, d := range dropped {
		e.log.Warn("dropping edge with unknown endpoint",
			"edge", d.ID, "source", d.Source, "target", d.Target)
	}
	e.metrics.ObserveDroppedEdges(len(dropped))

	e.graph = g
	e.ctrl = interact.NewController(e.sim, e.graph, &e.viewport, e.log)
	if err := e.sim.Initialize(g.Nodes, g.Edges, e.cfg); err != nil {
		return fmt.Errorf("simulator init: %w", err)
	}
	e.log.Info("snapshot loaded", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return nil
}

// QueueSnapshot queues a full graph replacement, applied atomically at the
// start of the next Step before any deltas. Deltas queued earlier are
// discarded since they target the replaced graph. Safe for concurrent use.
func (e *Engine) QueueSnapshot(snap *models.Snapshot) {
	if snap == nil || e.stopped.Load() {
		return
	}
	e.mu.Lock()
	e.pendingSnap = snap
	e.pending = nil
	e.mu.Unlock()
}

// ApplyDelta queues a delta batch. Batches are applied atomically at the
// start of the next Step, in arrival order; readers never observe a
// half-applied batch. Safe for concurrent use.
func (e *Engine) ApplyDelta(d *models.Delta) {
	if d == nil || d.Empty() || e.stopped.Load() {
		return
	}
	e.mu.Lock()
	e.pending = append(e.pending, d)
	e.mu.Unlock()
}

// drainDeltas applies the queued snapshot, then every queued delta batch,
// between ticks. Node positions survive re-initialization because they live
// on the model nodes.
func (e *Engine) drainDeltas() {
	e.mu.Lock()
	snap := e.pendingSnap
	e.pendingSnap = nil
	batch := e.pending
	e.pending = nil
	e.mu.Unlock()

	if snap != nil {
		if err := e.LoadSnapshot(snap); err != nil {
			e.log.Error("queued snapshot load", "error", err)
		}
	}
	if len(batch) == 0 {
		return
	}

	changed := false
	for _, d := range batch {
		dropped := d.Apply(e.graph)
		for _, de := range dropped {
			e.log.Warn("dropping edge with unknown endpoint",
				"edge", de.ID, "source", de.Source, "target", de.Target)
		}
		e.metrics.ObserveDroppedEdges(len(dropped))
		changed = changed ||
			len(d.AddedNodes) > 0 || len(d.RemovedNodes) > 0 ||
			len(d.AddedEdges) > 0 || len(d.RemovedEdges) > 0 ||
			len(d.ModifiedEdges) > 0
		for _, p := range d.ModifiedNodes {
			// Only patches that feed back into forces need a rebuild;
			// Type moves the node to another cluster anchor.
			if p.Radius != nil || p.Centrality != nil || p.Ordinal != nil || p.Type != nil {
				changed = true
				break
			}
		}
	}

	if changed {
		if err := e.sim.Initialize(e.graph.Nodes, e.graph.Edges, e.cfg); err != nil {
			e.log.Error("simulator rebuild after delta", "error", err)
			return
		}
		e.sim.Reheat(reheatAlpha)
	}
}

// Step advances one frame: queued deltas, simulation, culling, drawing,
// position emission and telemetry. It returns false once the engine has
// been stopped.
func (e *Engine) Step(dt float64) bool {
	if e.stopped.Load() {
		return false
	}
	start := time.Now()

	e.drainDeltas()
	e.sim.Step(dt)

	e.lastVisible = e.selector.Select(e.viewport, e.graph)
	e.lastStats = e.pipeline.Draw(e.lastVisible, e.viewport)

	e.emitPositions()

	elapsed := time.Since(start)
	e.pipeline.ObserveTick(elapsed)
	e.metrics.ObserveTick(elapsed)
	e.metrics.ObserveVisible(len(e.lastVisible.Nodes), len(e.lastVisible.Edges),
		int(e.lastVisible.Tier), e.lastVisible.Tier.String())
	e.metrics.ObserveBackend(e.pipeline.State().String())
	e.metrics.ObserveSimFaults(e.sim.Faults())
	return true
}

// OnPositions registers the sink for the throttled position stream.
func (e *Engine) OnPositions(fn func([]models.PositionUpdate)) {
	e.onPositions = fn
}

func (e *Engine) emitPositions() {
	if e.onPositions == nil || e.sim.Converged() {
		return
	}
	every := e.cfg.PositionEmitEvery
	if every < 1 {
		every = 1
	}
	if e.sim.Ticks()%uint64(every) != 0 {
		return
	}
	e.posScratch = e.posScratch[:0]
	for _, n := range e.graph.Nodes {
		e.posScratch = append(e.posScratch, models.PositionUpdate{ID: n.ID, X: n.X, Y: n.Y})
	}
	e.onPositions(e.posScratch)
}

// Stop shuts the engine down. Idempotent; later Step calls return false.
func (e *Engine) Stop() {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}
	e.pipeline.Dispose()
	e.log.Info("engine stopped", "ticks", e.sim.Ticks(), "faults", e.sim.Faults())
}

// Stopped reports whether Stop has run.
func (e *Engine) Stopped() bool { return e.stopped.Load() }

// Graph exposes the live graph. Callers must not mutate it off the frame
// goroutine; use ApplyDelta instead.
func (e *Engine) Graph() *models.Graph { return e.graph }

// Controller exposes the interaction controller for the host's input events.
func (e *Engine) Controller() *interact.Controller { return e.ctrl }

// Viewport returns the current view transform.
func (e *Engine) Viewport() models.Viewport { return e.viewport }

// SetViewport replaces the view transform, e.g. on window resize.
func (e *Engine) SetViewport(vp models.Viewport) { e.viewport = vp }

// Simulator exposes the force simulator for pinning and reheating.
func (e *Engine) Simulator() *physics.Simulator { return e.sim }

// Pipeline exposes the render pipeline for backend lifecycle events.
func (e *Engine) Pipeline() *render.Pipeline { return e.pipeline }

// Telemetry returns the metrics registry backing this engine.
func (e *Engine) Telemetry() *telemetry.Registry { return e.metrics }

// Visible returns the visible set computed by the most recent Step.
func (e *Engine) Visible() lod.VisibleSet { return e.lastVisible }

// FrameStats returns the draw stats from the most recent Step.
func (e *Engine) FrameStats() render.FrameStats { return e.lastStats }
