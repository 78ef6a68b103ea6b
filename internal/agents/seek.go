package agents

import (
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

// nearest returns the closest placed toy of kind within radius of pos.
// Ties go to the lowest ID because Placed is ordered.
func nearest(ts ToySource, kind toys.Kind, pos world.Vec2, radius float64) (*toys.Toy, bool) {
	var best *toys.Toy
	bestDist := radius
	for _, t := range ts.Placed(kind) {
		d := pos.Dist(t.Center())
		if d > radius {
			continue
		}
		if best == nil || d < bestDist {
			best = t
			bestDist = d
		}
	}
	return best, best != nil
}

// seek sends the kitten walking toward the nearest toy of kind. Urgent seeks
// use the wide radius. Without a candidate nothing changes and it returns false.
func (b *Brain) seek(k *Kitten, kind toys.Kind, urgent bool) bool {
	if b.Toys == nil {
		return false
	}
	radius := b.Tuning.SeekRadius
	if urgent {
		radius = b.Tuning.UrgentSeekRadius
	}
	t, ok := nearest(b.Toys, kind, k.Pos, radius)
	if !ok {
		return false
	}
	b.walkTo(k, t.Center())
	k.Goal = t.ID
	return true
}

// walkTo starts walking toward a point with no goal toy. No activity timer is
// set; it is only set once an activity actually starts.
func (b *Brain) walkTo(k *Kitten, target world.Vec2) {
	b.transition(k, StateWalking)
	k.Target = target
	k.Closest = k.Pos.Dist(target)
	k.StateTimer = 0
	k.Stuck = 0
}
