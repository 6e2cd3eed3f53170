package render

import (
	"log/slog"
	"time"

	"github.com/plexgraph/plexgraph/lod"
	"github.com/plexgraph/plexgraph/models"
)

// FrameBudget is the wall-clock target for one full tick of work.
const FrameBudget = 16 * time.Millisecond

// overrunStreak is how many consecutive over-budget ticks trigger a tier
// degradation; underrunStreak is the recovery streak that lifts one back.
const (
	overrunStreak  = 20
	underrunStreak = 300
)

// Pipeline turns visible sets into backend draw calls with a fixed painter's
// order (edges, nodes, labels) and manages backend lifecycle: primary with
// transparent fallback, loss/restore, and the frame-budget feedback loop into
// the LOD selector.
type Pipeline struct {
	ctx      *Context
	primary  Backend
	fallback Backend
	active   Backend
	log      *slog.Logger

	onOverrun  func()
	onRecover  func()
	overruns   int
	underruns  int
	lastStats  FrameStats
	frameCount uint64

	edgeScratch  []EdgePrimitive
	nodeScratch  []NodePrimitive
	labelScratch []LabelPrimitive
}

// NewPipeline wires a pipeline to its context and backends. The fallback
// must be infallible; Immediate2D satisfies that.
func NewPipeline(ctx *Context, primary, fallback Backend, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{ctx: ctx, primary: primary, fallback: fallback, log: log}
}

// Init initializes the context and the primary backend, falling back to the
// secondary when the primary is unavailable. Never returns a backend
// availability error; only a disposed context is fatal.
func (p *Pipeline) Init() error {
	if err := p.ctx.Init(); err != nil {
		return err
	}
	if p.primary != nil {
		if err := p.primary.Init(p.ctx); err == nil {
			p.active = p.primary
			p.log.Info("render backend ready", "backend", p.primary.Name())
			return nil
		} else {
			p.log.Warn("primary render backend unavailable, falling back",
				"backend", p.primary.Name(), "error", err)
		}
	}
	if err := p.fallback.Init(p.ctx); err != nil {
		// The fallback is specified infallible; treat a failure here as a
		// paused pipeline rather than an engine-fatal error.
		p.log.Error("fallback render backend failed", "error", err)
		p.ctx.setState(StateLost)
		return nil
	}
	p.active = p.fallback
	p.log.Info("render backend ready", "backend", p.fallback.Name())
	return nil
}

// Backend returns the currently active backend.
func (p *Pipeline) Backend() Backend { return p.active }

// State returns the context lifecycle state.
func (p *Pipeline) State() State { return p.ctx.State() }

// SetOverrunHandler installs the callback fired when the frame budget is
// repeatedly exceeded; engines wire it to lod.Selector.Degrade.
func (p *Pipeline) SetOverrunHandler(fn func()) { p.onOverrun = fn }

// SetRecoverHandler installs the callback fired after a sustained run of
// in-budget ticks; engines wire it to lod.Selector.Restore.
func (p *Pipeline) SetRecoverHandler(fn func()) { p.onRecover = fn }

// Draw renders one visible set. While the context is Lost or Disposed the
// call is a silent no-op, not an error.
func (p *Pipeline) Draw(vs lod.VisibleSet, vp models.Viewport) FrameStats {
	if p.ctx.State() != StateActive || p.active == nil {
		return FrameStats{}
	}

	p.buildPrimitives(vs, vp)

	p.active.BeginFrame(int(vp.Width), int(vp.Height))
	p.active.DrawEdges(p.edgeScratch)
	p.active.DrawNodes(p.nodeScratch)
	if vs.Tier.Labels() {
		p.active.DrawLabels(p.labelScratch)
	}
	p.lastStats = p.active.EndFrame()
	p.frameCount++
	return p.lastStats
}

// buildPrimitives projects the visible set into screen space. Primitives
// carry node ids, not pointers, so nothing here roots the model graph.
func (p *Pipeline) buildPrimitives(vs lod.VisibleSet, vp models.Viewport) {
	p.edgeScratch = p.edgeScratch[:0]
	p.nodeScratch = p.nodeScratch[:0]
	p.labelScratch = p.labelScratch[:0]

	simplified := vs.Tier != lod.TierFull

	byID := make(map[string]*models.Node, len(vs.Nodes))
	for _, n := range vs.Nodes {
		byID[n.ID] = n
	}

	for _, e := range vs.Edges {
		src := byID[e.Source]
		dst := byID[e.Target]
		if src == nil || dst == nil {
			continue
		}
		x1, y1 := vp.ModelToScreen(src.X, src.Y)
		x2, y2 := vp.ModelToScreen(dst.X, dst.Y)
		width := e.Width
		opacity := e.Opacity
		if simplified {
			width = 1
			opacity *= 0.7
		}
		p.edgeScratch = append(p.edgeScratch, EdgePrimitive{
			X1: x1, Y1: y1, X2: x2, Y2: y2,
			Width: width, Color: e.Color, Opacity: opacity,
		})
	}

	for _, n := range vs.Nodes {
		sx, sy := vp.ModelToScreen(n.X, n.Y)
		p.nodeScratch = append(p.nodeScratch, NodePrimitive{
			NodeID: n.ID, X: sx, Y: sy, R: n.Radius * vp.Zoom,
			Color: n.Color, Selected: n.Selected, Hovered: n.Hovered,
		})
		if n.Label != "" {
			p.labelScratch = append(p.labelScratch, LabelPrimitive{
				NodeID: n.ID, X: sx, Y: sy + n.Radius*vp.Zoom + 4, Text: n.Label,
			})
		}
	}
}

// ObserveTick feeds the frame-budget watchdog with the total wall-clock cost
// of the last tick (simulation + cull + draw). Sustained overruns push the
// LOD selector one tier stricter; sustained headroom lifts it back.
func (p *Pipeline) ObserveTick(d time.Duration) {
	if d > FrameBudget {
		p.overruns++
		p.underruns = 0
		if p.overruns >= overrunStreak {
			p.overruns = 0
			if p.onOverrun != nil {
				p.onOverrun()
			}
		}
		return
	}
	p.overruns = 0
	p.underruns++
	if p.underruns >= underrunStreak {
		p.underruns = 0
		if p.onRecover != nil {
			p.onRecover()
		}
	}
}

// OnBackendLost transitions to Lost: resources are released and subsequent
// draws no-op until restore.
func (p *Pipeline) OnBackendLost() {
	if p.ctx.State() != StateActive {
		return
	}
	p.ctx.setState(StateLost)
	if p.active != nil {
		p.active.Release()
	}
	p.log.Warn("render backend lost", "backend", p.activeName())
}

// OnBackendRestored recreates backend resources and resumes drawing. If the
// primary cannot be reacquired the pipeline comes back on the fallback.
func (p *Pipeline) OnBackendRestored() {
	if p.ctx.State() != StateLost {
		return
	}
	p.ctx.setState(StateRestored)
	if p.primary != nil {
		if err := p.primary.Init(p.ctx); err == nil {
			p.active = p.primary
			p.ctx.setState(StateActive)
			p.log.Info("render backend restored", "backend", p.primary.Name())
			return
		}
	}
	if err := p.fallback.Init(p.ctx); err == nil {
		p.active = p.fallback
		p.ctx.setState(StateActive)
		p.log.Info("render backend restored on fallback", "backend", p.fallback.Name())
		return
	}
	// Stay Lost; draws keep no-opping until the next restore signal.
	p.ctx.setState(StateLost)
}

// Dispose releases backends and the context. Idempotent.
func (p *Pipeline) Dispose() {
	if p.ctx.State() == StateDisposed {
		return
	}
	if p.active != nil {
		p.active.Release()
	}
	p.ctx.Dispose()
}

func (p *Pipeline) activeName() string {
	if p.active == nil {
		return "none"
	}
	return p.active.Name()
}
