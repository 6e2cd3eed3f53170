package physics

import (
	"math"

	"github.com/plexgraph/plexgraph/spatial"
)

// applyLinkForce pulls linked nodes toward their resolved rest length with a
// spring proportional to the displacement, split between the endpoints by
// importance so heavy nodes move less.
func (s *Simulator) applyLinkForce(dt float64) {
	for _, l := range s.links {
		dx := s.x[l.t] - s.x[l.s]
		dy := s.y[l.t] - s.y[l.s]
		dist := math.Hypot(dx, dy)
		if dist < 1e-6 {
			// Coincident endpoints: nudge deterministically apart.
			dx, dy, dist = 0.1, 0.1, math.Sqrt2*0.1
		}
		f := (dist - l.dist) / dist * l.strength * s.alpha * dt
		fx, fy := dx*f, dy*f

		wS := s.importance[l.t] / (s.importance[l.s] + s.importance[l.t])
		s.vx[l.s] += fx * wS
		s.vy[l.s] += fy * wS
		s.vx[l.t] -= fx * (1 - wS)
		s.vy[l.t] -= fy * (1 - wS)
	}
}

// applyChargeForce applies pairwise inverse-square repulsion approximated by
// a Barnes-Hut traversal of the spatial index: subtrees whose size-to-
// distance ratio is below theta act as a single body at their centroid.
func (s *Simulator) applyChargeForce(dt float64) {
	if s.tree == nil {
		return
	}
	theta := s.cfg.ChargeTheta
	minD := s.cfg.ChargeDistMin
	maxD := s.cfg.ChargeDistMax

	for i := range s.x {
		xi, yi := s.x[i], s.y[i]
		var fx, fy float64

		s.tree.Walk(func(c *spatial.Cell) bool {
			if c.Mass == 0 {
				return false
			}
			dx := xi - c.CenterX
			dy := yi - c.CenterY
			dist := math.Hypot(dx, dy)

			if !c.Leaf() && c.Size/math.Max(dist, 1e-9) >= theta {
				return true // too close for the aggregate, descend
			}

			if c.Leaf() {
				for _, j := range c.Bodies {
					if j == i {
						continue
					}
					bx, by := s.tree.Position(j)
					fx, fy = accumulateCharge(fx, fy, xi-bx, yi-by,
						s.treeMass[j], s.cfg.ChargeStrength, minD, maxD)
				}
				return false
			}

			fx, fy = accumulateCharge(fx, fy, dx, dy, c.Mass, s.cfg.ChargeStrength, minD, maxD)
			return false
		})

		s.vx[i] += fx * s.alpha * dt
		s.vy[i] += fy * s.alpha * dt
	}
}

// accumulateCharge adds one inverse-square contribution, clamped to the
// configured interaction range. Beyond maxD the contribution is zero; below
// minD the distance is clamped so near-coincident bodies stay bounded.
func accumulateCharge(fx, fy, dx, dy, mass, strength, minD, maxD float64) (float64, float64) {
	dist := math.Hypot(dx, dy)
	if dist > maxD {
		return fx, fy
	}
	if dist < minD {
		if dist < 1e-9 {
			// Exactly coincident: direction is arbitrary but fixed.
			dx, dy = 1, 0
		}
		dist = minD
	}
	// strength is negative for repulsion, so the force points away.
	f := -strength * mass / (dist * dist)
	return fx + dx/dist*f, fy + dy/dist*f
}

// applyCenterForce is the weak uniform pull toward the model center that
// keeps a disconnected layout from drifting off-screen.
func (s *Simulator) applyCenterForce(dt float64) {
	cx, cy := s.cfg.Width/2, s.cfg.Height/2
	k := s.cfg.CenterStrength * s.alpha * dt
	for i := range s.x {
		s.vx[i] += (cx - s.x[i]) * k
		s.vy[i] += (cy - s.y[i]) * k
	}
}

// applyClusterForce pulls nodes sharing a categorical type toward that
// type's precomputed anchor.
func (s *Simulator) applyClusterForce(dt float64) {
	k := s.cfg.ClusterStrength * s.alpha * dt
	for i := range s.x {
		gi := s.clusterOf[i]
		if gi < 0 {
			continue
		}
		a := s.anchors[gi]
		s.vx[i] += (a.x - s.x[i]) * k
		s.vy[i] += (a.y - s.y[i]) * k
	}
}

// applyOrdinalForce pulls each node with an ordinal attribute toward an x
// position proportional to that attribute across the model width.
func (s *Simulator) applyOrdinalForce(dt float64) {
	span := s.ordMax - s.ordMin
	if span <= 0 {
		span = 1
	}
	margin := s.cfg.Width * 0.1
	usable := s.cfg.Width - 2*margin
	k := s.cfg.OrdinalStrength * s.alpha * dt
	for i, node := range s.nodes {
		if !node.HasOrdinal {
			continue
		}
		target := margin + (node.Ordinal-s.ordMin)/span*usable
		s.vx[i] += (target - s.x[i]) * k
	}
}

// applyCollision resolves circle overlaps (radius plus padding) positionally,
// splitting the correction by radius so small nodes yield to large ones. One
// call is one relaxation iteration; the simulator runs a fixed small number
// per tick for stability.
func (s *Simulator) applyCollision() {
	if s.tree == nil {
		return
	}
	maxR := 0.0
	for _, r := range s.radius {
		maxR = math.Max(maxR, r)
	}
	pad := s.cfg.CollisionPadding

	for i := range s.x {
		ri := s.radius[i] + pad
		reach := ri + maxR + pad
		for _, j := range s.tree.QueryRadius(s.x[i], s.y[i], reach) {
			if j <= i {
				continue
			}
			rj := s.radius[j] + pad
			dx := s.x[j] - s.x[i]
			dy := s.y[j] - s.y[i]
			dist := math.Hypot(dx, dy)
			minDist := ri + rj
			if dist >= minDist {
				continue
			}
			if dist < 1e-6 {
				dx, dy, dist = 0.1, 0.1, math.Sqrt2*0.1
			}
			overlap := (minDist - dist) / dist
			wi := rj * rj / (ri*ri + rj*rj)
			if !s.pinned[i] {
				share := wi
				if s.pinned[j] {
					share = 1
				}
				s.x[i] -= dx * overlap * share
				s.y[i] -= dy * overlap * share
			}
			if !s.pinned[j] {
				share := 1 - wi
				if s.pinned[i] {
					share = 1
				}
				s.x[j] += dx * overlap * share
				s.y[j] += dy * overlap * share
			}
		}
	}
}
