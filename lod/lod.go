// Package lod selects the visible, budget-capped subset of a graph for a
// given viewport and assigns it a detail tier. Selection is fully derived
// state, recomputed every tick from node positions.
package lod

import (
	"log/slog"
	"sort"

	"github.com/plexgraph/plexgraph/models"
)

// Tier is a detail level; lower is stricter (more zoomed out).
type Tier int

const (
	TierMinimal Tier = iota
	TierSimplified
	TierFull
)

func (t Tier) String() string {
	switch t {
	case TierMinimal:
		return "minimal"
	case TierSimplified:
		return "simplified"
	case TierFull:
		return "full"
	}
	return "unknown"
}

// Labels reports whether text labels are drawn at this tier.
func (t Tier) Labels() bool { return t == TierFull }

// edgeWeightFloor is the minimum edge weight kept per tier; coarser tiers
// drop light edges first.
var edgeWeightFloor = map[Tier]float64{
	TierMinimal:    2.0,
	TierSimplified: 0.5,
	TierFull:       0,
}

// VisibleSet is the output of one cull pass.
type VisibleSet struct {
	Nodes []*models.Node
	Edges []*models.Edge
	Tier  Tier
}

// Selector computes visible sets. It also carries the degradation floor the
// render pipeline pushes down when the frame budget is repeatedly exceeded.
type Selector struct {
	cfg models.Config
	log *slog.Logger

	// degradedBy lowers the zoom-derived tier by this many levels.
	degradedBy int
}

// NewSelector returns a selector for the given (already validated) config.
func NewSelector(cfg models.Config, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{cfg: cfg, log: log}
}

// TierFor maps a zoom scale to a tier: a monotonic step function where more
// zoomed out means a stricter tier.
func (s *Selector) TierFor(zoom float64) Tier {
	t := 0
	for _, threshold := range s.cfg.LODThresholds {
		if zoom >= threshold {
			t++
		}
	}
	t -= s.degradedBy
	if t < 0 {
		t = 0
	}
	if t > int(TierFull) {
		t = int(TierFull)
	}
	return Tier(t)
}

// Degrade drops future selections one tier stricter. Called by the render
// pipeline's frame-budget watchdog.
func (s *Selector) Degrade() {
	if s.degradedBy >= int(TierFull) {
		return
	}
	s.degradedBy++
	s.log.Info("lod degraded", "levels", s.degradedBy)
}

// Restore lifts one level of degradation once the budget recovers.
func (s *Selector) Restore() {
	if s.degradedBy > 0 {
		s.degradedBy--
	}
}

// Select computes the visible node and edge sets for the viewport.
//
// Nodes are retained when their position lies inside the padded viewport
// bounds (boundary inclusive) and their screen-space radius meets the pixel
// threshold. Over-budget candidate sets are ranked selected > hovered >
// importance desc > id asc and truncated. Edges require both endpoints
// visible; coarser tiers additionally drop edges under the tier's weight
// floor, then truncate by descending weight.
func (s *Selector) Select(vp models.Viewport, g *models.Graph) VisibleSet {
	tier := s.TierFor(vp.Zoom)
	bounds := vp.Bounds(s.cfg.CullPadding)

	candidates := make([]*models.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		n.Visible = false
		if !bounds.Contains(n.X, n.Y) {
			continue
		}
		if n.Radius*vp.Zoom < s.cfg.MinPixelRadius {
			continue
		}
		candidates = append(candidates, n)
	}

	budget := s.cfg.MaxNodesPerTier[int(tier)]
	if len(candidates) > budget {
		sort.SliceStable(candidates, func(i, j int) bool {
			a, b := candidates[i], candidates[j]
			if a.Selected != b.Selected {
				return a.Selected
			}
			if a.Hovered != b.Hovered {
				return a.Hovered
			}
			if a.Importance() != b.Importance() {
				return a.Importance() > b.Importance()
			}
			return a.ID < b.ID
		})
		candidates = candidates[:budget]
	}
	for _, n := range candidates {
		n.Visible = true
	}

	floor := edgeWeightFloor[tier]
	edges := make([]*models.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.Weight < floor {
			continue
		}
		src, ok := g.Node(e.Source)
		if !ok || !src.Visible {
			continue
		}
		dst, ok := g.Node(e.Target)
		if !ok || !dst.Visible {
			continue
		}
		edges = append(edges, e)
	}
	edgeBudget := s.cfg.MaxEdgesPerTier[int(tier)]
	if len(edges) > edgeBudget {
		sort.SliceStable(edges, func(i, j int) bool {
			if edges[i].Weight != edges[j].Weight {
				return edges[i].Weight > edges[j].Weight
			}
			return edges[i].ID < edges[j].ID
		})
		edges = edges[:edgeBudget]
	}

	return VisibleSet{Nodes: candidates, Edges: edges, Tier: tier}
}
