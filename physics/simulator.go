// Package physics implements the continuous force-directed simulation that
// drives node positions. The simulator owns all kinematic state in parallel
// arrays indexed by a dense arena index, advances it one tick at a time, and
// never lets non-finite values escape into the spatial index or renderer.
package physics

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/plexgraph/plexgraph/models"
	"github.com/plexgraph/plexgraph/spatial"
)

type link struct {
	s, t     int
	dist     float64 // resolved target distance
	strength float64
}

type anchor struct {
	x, y float64
}

// Simulator advances node kinematics under link, charge, collision, centering
// and optional arrangement forces. All state lives in structure-of-arrays
// form; the backing models.Nodes are written once per tick after integration.
type Simulator struct {
	mu  sync.Mutex
	cfg models.Config
	log *slog.Logger

	nodes []*models.Node
	idx   map[string]int

	x, y, vx, vy []float64
	lastX, lastY []float64 // last known finite positions
	pinned       []bool
	pinX, pinY   []float64
	radius       []float64
	importance   []float64

	links     []link
	clusterOf []int // anchor index per node, -1 when unclustered
	anchors   []anchor

	ordMin, ordMax float64
	hasOrdinal     bool

	alpha       float64
	alphaTarget float64
	ticks       uint64
	faults      uint64

	tree         *spatial.Tree
	treeX, treeY []float64
	treeMass     []float64
	treeStale    int // ticks since last rebuild, for throttling

	noise       opensimplex.Noise
	initialized bool
}

// NewSimulator returns an empty simulator. Initialize must be called before
// stepping.
func NewSimulator(log *slog.Logger) *Simulator {
	if log == nil {
		log = slog.Default()
	}
	return &Simulator{
		log:   log,
		noise: opensimplex.NewNormalized(1341),
	}
}

// Initialize validates the configuration and seeds the simulation arena from
// the given topology. Node positions already set are kept; unplaced nodes are
// seeded on a phyllotaxis spiral with a little noise so coincident starts do
// not lock the layout. May be called again after topology changes; surviving
// nodes keep their kinematic state through the models.Node fields.
func (s *Simulator) Initialize(nodes []*models.Node, edges []*models.Edge, cfg models.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("physics: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	n := len(nodes)
	s.nodes = nodes
	s.idx = make(map[string]int, n)
	s.x = make([]float64, n)
	s.y = make([]float64, n)
	s.vx = make([]float64, n)
	s.vy = make([]float64, n)
	s.lastX = make([]float64, n)
	s.lastY = make([]float64, n)
	s.pinned = make([]bool, n)
	s.pinX = make([]float64, n)
	s.pinY = make([]float64, n)
	s.radius = make([]float64, n)
	s.importance = make([]float64, n)
	s.treeX = make([]float64, n)
	s.treeY = make([]float64, n)
	s.treeMass = make([]float64, n)

	for i, node := range nodes {
		s.idx[node.ID] = i
		if node.X == 0 && node.Y == 0 {
			node.X, node.Y = s.seedPosition(i)
		}
		s.x[i], s.y[i] = node.X, node.Y
		s.vx[i], s.vy[i] = node.VX, node.VY
		s.lastX[i], s.lastY[i] = node.X, node.Y
		s.pinned[i] = node.Pinned
		s.pinX[i], s.pinY[i] = node.PinX, node.PinY
		s.radius[i] = math.Max(node.Radius, 1)
		s.importance[i] = math.Max(node.Importance(), 1)
	}

	s.buildLinks(edges)
	s.buildClusters()
	s.buildOrdinalRange()

	s.alpha = 1.0
	s.alphaTarget = 0
	s.tree = nil
	s.treeStale = 0
	s.initialized = true
	return nil
}

// seedPosition places node i on a phyllotaxis spiral around the model center,
// jittered by simplex noise so repeated ids do not stack.
func (s *Simulator) seedPosition(i int) (float64, float64) {
	const goldenAngle = math.Pi * (3 - 2.2360679774997896) // π(3−√5)
	r := 10 * math.Sqrt(0.5+float64(i))
	a := float64(i) * goldenAngle
	jx := (s.noise.Eval2(float64(i)*0.613, 0.0) - 0.5) * 8
	jy := (s.noise.Eval2(0.0, float64(i)*0.613) - 0.5) * 8
	return s.cfg.Width/2 + r*math.Cos(a) + jx, s.cfg.Height/2 + r*math.Sin(a) + jy
}

func (s *Simulator) buildLinks(edges []*models.Edge) {
	s.links = s.links[:0]
	var sum float64
	for _, imp := range s.importance {
		sum += imp
	}
	avg := 1.0
	if len(s.importance) > 0 {
		avg = sum / float64(len(s.importance))
	}
	for _, e := range edges {
		si, ok := s.idx[e.Source]
		if !ok {
			continue
		}
		ti, ok := s.idx[e.Target]
		if !ok {
			continue
		}
		w := math.Max(e.Weight, 1e-3)
		s.links = append(s.links, link{
			s:        si,
			t:        ti,
			dist:     linkTarget(s.cfg.LinkDistance, w, s.importance[si], s.importance[ti], avg),
			strength: s.cfg.LinkStrength * math.Sqrt(w),
		})
	}
}

// linkTarget derives the rest length of a link: the base distance shrinks
// with weight and stretches with the relative importance of the endpoints.
func linkTarget(base, weight, impS, impT, avgImp float64) float64 {
	d := base / math.Sqrt(weight)
	if avgImp > 0 {
		d *= (impS + impT) / (2 * avgImp)
	}
	return math.Max(d, 1)
}

// buildClusters groups nodes by categorical type and arranges one anchor per
// group on a circle around the model center.
func (s *Simulator) buildClusters() {
	s.clusterOf = make([]int, len(s.nodes))
	s.anchors = s.anchors[:0]
	groups := make(map[string]int)
	for i, node := range s.nodes {
		if node.Type == "" {
			s.clusterOf[i] = -1
			continue
		}
		gi, ok := groups[node.Type]
		if !ok {
			gi = len(groups)
			groups[node.Type] = gi
		}
		s.clusterOf[i] = gi
	}
	count := len(groups)
	if count == 0 {
		return
	}
	radius := math.Min(s.cfg.Width, s.cfg.Height) * 0.35
	cx, cy := s.cfg.Width/2, s.cfg.Height/2
	s.anchors = make([]anchor, count)
	for gi := 0; gi < count; gi++ {
		a := 2 * math.Pi * float64(gi) / float64(count)
		s.anchors[gi] = anchor{x: cx + radius*math.Cos(a), y: cy + radius*math.Sin(a)}
	}
}

func (s *Simulator) buildOrdinalRange() {
	s.hasOrdinal = false
	for _, node := range s.nodes {
		if !node.HasOrdinal {
			continue
		}
		if !s.hasOrdinal {
			s.ordMin, s.ordMax = node.Ordinal, node.Ordinal
			s.hasOrdinal = true
			continue
		}
		s.ordMin = math.Min(s.ordMin, node.Ordinal)
		s.ordMax = math.Max(s.ordMax, node.Ordinal)
	}
}

// Step advances the simulation by one tick. dt is expressed in nominal
// frames (1.0 = one 60Hz frame). Returns true while the simulation is
// converged and the step was skipped.
func (s *Simulator) Step(dt float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized || len(s.nodes) == 0 {
		return true
	}
	if s.alpha < s.cfg.AlphaMin && s.alphaTarget < s.cfg.AlphaMin {
		return true
	}
	if dt <= 0 {
		dt = 1
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.rebuildTree()

	s.applyLinkForce(dt)
	s.applyChargeForce(dt)
	s.applyCenterForce(dt)
	if s.cfg.ClusterStrength > 0 && len(s.anchors) > 0 {
		s.applyClusterForce(dt)
	}
	if s.cfg.OrdinalStrength > 0 && s.hasOrdinal {
		s.applyOrdinalForce(dt)
	}

	s.integrate(dt)

	for it := 0; it < s.cfg.CollisionIterations; it++ {
		s.applyCollision()
	}

	s.enforcePins()
	s.recoverNonFinite()
	s.syncNodes()

	s.ticks++
	return false
}

// rebuildTree refreshes the spatial index from current positions. For large
// graphs the rebuild is throttled to every other tick, trading one tick of
// staleness for frame-budget headroom.
func (s *Simulator) rebuildTree() {
	const throttleAbove = 20000
	if s.tree != nil && len(s.nodes) > throttleAbove && s.treeStale < 1 {
		s.treeStale++
		return
	}
	copy(s.treeX, s.x)
	copy(s.treeY, s.y)
	copy(s.treeMass, s.importance)
	s.tree = spatial.Build(s.treeX, s.treeY, s.treeMass)
	s.treeStale = 0
}

func (s *Simulator) integrate(dt float64) {
	retain := 1 - s.cfg.VelocityDecay
	for i := range s.x {
		if s.pinned[i] {
			s.vx[i], s.vy[i] = 0, 0
			continue
		}
		s.vx[i] *= retain
		s.vy[i] *= retain
		s.x[i] += s.vx[i] * dt
		s.y[i] += s.vy[i] * dt
	}
}

func (s *Simulator) enforcePins() {
	for i := range s.x {
		if s.pinned[i] {
			s.x[i], s.y[i] = s.pinX[i], s.pinY[i]
			s.vx[i], s.vy[i] = 0, 0
		}
	}
}

// recoverNonFinite restores any node whose kinematics went non-finite to its
// last valid state, or re-seeds it in bounds when no valid state survives.
// Recoverable by design: the fault is logged and counted, never propagated.
func (s *Simulator) recoverNonFinite() {
	for i := range s.x {
		if finite(s.x[i]) && finite(s.y[i]) && finite(s.vx[i]) && finite(s.vy[i]) {
			s.lastX[i], s.lastY[i] = s.x[i], s.y[i]
			continue
		}
		s.faults++
		if finite(s.lastX[i]) && finite(s.lastY[i]) {
			s.x[i], s.y[i] = s.lastX[i], s.lastY[i]
		} else {
			s.x[i], s.y[i] = s.reseedPosition(i)
			s.lastX[i], s.lastY[i] = s.x[i], s.y[i]
		}
		s.vx[i], s.vy[i] = 0, 0
		s.log.Warn("simulation fault: non-finite kinematics recovered",
			"node", s.nodes[i].ID, "tick", s.ticks)
	}
}

func (s *Simulator) reseedPosition(i int) (float64, float64) {
	t := float64(s.ticks) * 0.173
	x := s.noise.Eval2(float64(i)*0.917, t) * s.cfg.Width
	y := s.noise.Eval2(t, float64(i)*0.917) * s.cfg.Height
	return x, y
}

func (s *Simulator) syncNodes() {
	for i, node := range s.nodes {
		node.X, node.Y = s.x[i], s.y[i]
		node.VX, node.VY = s.vx[i], s.vy[i]
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SetAlphaTarget reheats (or cools) the simulation; the alpha decay pulls
// alpha toward the target each tick.
func (s *Simulator) SetAlphaTarget(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alphaTarget = math.Min(math.Max(v, 0), 1)
}

// Reheat bumps alpha so a converged simulation resumes stepping, without
// changing the target it decays back toward.
func (s *Simulator) Reheat(alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alpha = math.Max(s.alpha, math.Min(alpha, 1))
}

// Pin freezes a node at the given model position until Unpin.
func (s *Simulator) Pin(id string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.idx[id]
	if !ok {
		return
	}
	s.pinned[i] = true
	s.pinX[i], s.pinY[i] = x, y
	s.x[i], s.y[i] = x, y
	s.vx[i], s.vy[i] = 0, 0
	s.nodes[i].Pinned = true
	s.nodes[i].PinX, s.nodes[i].PinY = x, y
	s.nodes[i].X, s.nodes[i].Y = x, y
}

// Unpin releases a pinned node back to simulation control.
func (s *Simulator) Unpin(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.idx[id]
	if !ok {
		return
	}
	s.pinned[i] = false
	s.nodes[i].Pinned = false
}

// SetPosition overrides a node's position, e.g. from a host-driven move.
func (s *Simulator) SetPosition(id string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.idx[id]; ok {
		s.x[i], s.y[i] = x, y
		s.nodes[i].X, s.nodes[i].Y = x, y
	}
}

// SetVelocity overrides a node's velocity.
func (s *Simulator) SetVelocity(id string, vx, vy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.idx[id]; ok {
		s.vx[i], s.vy[i] = vx, vy
		s.nodes[i].VX, s.nodes[i].VY = vx, vy
	}
}

// Alpha returns the current simulation temperature.
func (s *Simulator) Alpha() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha
}

// Converged reports whether alpha has decayed below the configured epsilon.
func (s *Simulator) Converged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alpha < s.cfg.AlphaMin && s.alphaTarget < s.cfg.AlphaMin
}

// Faults returns the running count of recovered non-finite faults.
func (s *Simulator) Faults() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faults
}

// Ticks returns the number of completed steps.
func (s *Simulator) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Tree exposes the most recent spatial index for hit-testing. The tree is
// indexed by arena position; resolve nodes with NodeAt.
func (s *Simulator) Tree() *spatial.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil && s.initialized && len(s.nodes) > 0 {
		s.rebuildTree()
	}
	return s.tree
}

// NodeAt maps an arena index (as returned by Tree queries) to its node.
func (s *Simulator) NodeAt(i int) *models.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.nodes) {
		return nil
	}
	return s.nodes[i]
}
