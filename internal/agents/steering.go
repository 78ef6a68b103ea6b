package agents

import (
	"math"

	"github.com/talgya/kitten-world/internal/world"
)

// Level answers static obstruction queries.
type Level interface {
	BoxSolid(b world.Box) bool
}

// Steer moves a footprint of the given size from pos toward target by at most
// speed. When the straight move is blocked the displacement is rotated in
// steps of 2π/compass: only in the bias direction (compass-1 attempts) when a
// bias is recorded, otherwise alternately left then right (2·(compass-1)
// attempts). It returns the new position, the bias to remember, and whether
// the kitten moved. When every attempt fails the position is unchanged and
// the bias is cleared.
func Steer(level Level, pos, target world.Vec2, size, speed float64, compass int, bias Bias) (world.Vec2, Bias, bool) {
	d := target.Sub(pos).ClampLen(speed)
	if d.IsZero() {
		return pos, bias, false
	}

	extent := world.V(size, size)
	free := func(step world.Vec2) bool {
		return !level.BoxSolid(world.BoxAt(pos.Add(step), extent))
	}

	if free(d) {
		return pos.Add(d), bias, true
	}

	angle := 2 * math.Pi / float64(compass)
	if bias != BiasNone {
		for i := 1; i < compass; i++ {
			step := d.Rotate(float64(bias) * angle * float64(i))
			if free(step) {
				return pos.Add(step), bias, true
			}
		}
		return pos, BiasNone, false
	}

	for i := 1; i < compass; i++ {
		for _, side := range [2]Bias{BiasLeft, BiasRight} {
			step := d.Rotate(float64(side) * angle * float64(i))
			if free(step) {
				return pos.Add(step), side, true
			}
		}
	}
	return pos, BiasNone, false
}
