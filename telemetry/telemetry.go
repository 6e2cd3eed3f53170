// Package telemetry exposes the engine's performance counters both as
// prometheus metrics and as an in-process snapshot the host can poll. Faults
// and degradations surface here, never as thrown errors.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all engine metrics, one instance per engine so parallel
// views do not share state.
type Registry struct {
	FPS            prometheus.Gauge
	TickDuration   prometheus.Histogram
	VisibleNodes   prometheus.Gauge
	VisibleEdges   prometheus.Gauge
	LODTier        prometheus.Gauge
	BackendState   *prometheus.GaugeVec
	TicksTotal     prometheus.Counter
	SimFaultsTotal prometheus.Counter
	DroppedEdges   prometheus.Counter

	mu        sync.Mutex
	snap      Snapshot
	tickTimes []time.Time // ring of recent tick timestamps for FPS
	tickHead  int
}

// Snapshot is the host-facing view of current telemetry.
type Snapshot struct {
	FPS          float64 `json:"fps"`
	VisibleNodes int     `json:"visible_nodes"`
	VisibleEdges int     `json:"visible_edges"`
	Tier         string  `json:"tier"`
	BackendState string  `json:"backend_state"`
	SimFaults    uint64  `json:"sim_faults"`
	Ticks        uint64  `json:"ticks"`
	DroppedEdges uint64  `json:"dropped_edges"`
}

const fpsWindow = 60

// NewRegistry creates the metric set and registers it with reg when non-nil.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		FPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plexgraph_fps",
			Help: "Ticks completed per second over the last window",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plexgraph_tick_duration_seconds",
			Help:    "Wall-clock cost of one full tick (simulate + cull + draw)",
			Buckets: []float64{.001, .002, .004, .008, .016, .033, .066, .1},
		}),
		VisibleNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plexgraph_visible_nodes",
			Help: "Nodes in the current visible set",
		}),
		VisibleEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plexgraph_visible_edges",
			Help: "Edges in the current visible set",
		}),
		LODTier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plexgraph_lod_tier",
			Help: "Current LOD tier (0 = minimal)",
		}),
		BackendState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plexgraph_backend_state",
			Help: "Render backend lifecycle state (1 = current state)",
		}, []string{"state"}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plexgraph_ticks_total",
			Help: "Completed simulation ticks",
		}),
		SimFaultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plexgraph_simulation_faults_total",
			Help: "Recovered non-finite kinematic faults",
		}),
		DroppedEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plexgraph_dropped_edges_total",
			Help: "Edges dropped for referencing unknown nodes",
		}),
		tickTimes: make([]time.Time, 0, fpsWindow),
	}
	if reg != nil {
		reg.MustRegister(r.FPS, r.TickDuration, r.VisibleNodes, r.VisibleEdges,
			r.LODTier, r.BackendState, r.TicksTotal, r.SimFaultsTotal, r.DroppedEdges)
	}
	return r
}

// ObserveTick records one completed tick and refreshes the FPS window.
func (r *Registry) ObserveTick(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if len(r.tickTimes) < fpsWindow {
		r.tickTimes = append(r.tickTimes, now)
	} else {
		r.tickTimes[r.tickHead] = now
		r.tickHead = (r.tickHead + 1) % fpsWindow
	}
	r.snap.Ticks++

	oldest := r.tickTimes[r.tickHead%len(r.tickTimes)]
	if span := now.Sub(oldest).Seconds(); span > 0 && len(r.tickTimes) > 1 {
		r.snap.FPS = float64(len(r.tickTimes)-1) / span
	}

	r.FPS.Set(r.snap.FPS)
	r.TickDuration.Observe(d.Seconds())
	r.TicksTotal.Inc()
}

// ObserveVisible records the size and tier of the current visible set.
func (r *Registry) ObserveVisible(nodes, edges, tier int, tierName string) {
	r.mu.Lock()
	r.snap.VisibleNodes = nodes
	r.snap.VisibleEdges = edges
	r.snap.Tier = tierName
	r.mu.Unlock()

	r.VisibleNodes.Set(float64(nodes))
	r.VisibleEdges.Set(float64(edges))
	r.LODTier.Set(float64(tier))
}

// ObserveBackend records the render backend lifecycle state.
func (r *Registry) ObserveBackend(state string) {
	r.mu.Lock()
	prev := r.snap.BackendState
	r.snap.BackendState = state
	r.mu.Unlock()

	if prev != "" && prev != state {
		r.BackendState.WithLabelValues(prev).Set(0)
	}
	r.BackendState.WithLabelValues(state).Set(1)
}

// ObserveSimFaults records the simulator's cumulative fault count.
func (r *Registry) ObserveSimFaults(total uint64) {
	r.mu.Lock()
	delta := total - r.snap.SimFaults
	r.snap.SimFaults = total
	r.mu.Unlock()

	if delta > 0 {
		r.SimFaultsTotal.Add(float64(delta))
	}
}

// ObserveDroppedEdges counts edges rejected at load or delta time.
func (r *Registry) ObserveDroppedEdges(n int) {
	if n > 0 {
		r.mu.Lock()
		r.snap.DroppedEdges += uint64(n)
		r.mu.Unlock()
		r.DroppedEdges.Add(float64(n))
	}
}

// Snapshot returns the current telemetry view.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}
