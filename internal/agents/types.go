// Package agents provides the kitten data model, needs, activities, and the
// per-tick decision engine.
package agents

import (
	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/world"
)

// State is the kitten's current activity. Exactly one is active at a time.
type State uint8

const (
	StateSitting State = iota
	StateWalking
	StateSleeping
	StatePlaying
	StateEating
	StatePeeing
	StateDecomposing
)

const numStates = 7

var stateNames = [numStates]string{
	"sitting", "walking", "sleeping", "playing", "eating", "peeing", "decomposing",
}

func (s State) String() string {
	if int(s) < numStates {
		return stateNames[s]
	}
	return "unknown"
}

// ParseState returns the state with the given name.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

// Bias is the remembered avoidance rotation direction.
type Bias int8

const (
	BiasRight Bias = -1 // Clockwise
	BiasNone  Bias = 0
	BiasLeft  Bias = 1 // Counter-clockwise
)

func (b Bias) String() string {
	switch b {
	case BiasLeft:
		return "left"
	case BiasRight:
		return "right"
	default:
		return "none"
	}
}

// Kitten is an autonomous agent.
type Kitten struct {
	ID      uuid.UUID  `json:"id"`
	Name    string     `json:"name"`
	Pos     world.Vec2 `json:"pos"` // Footprint centre
	Enabled bool       `json:"enabled"`

	Needs Needs `json:"needs"`

	State      State      `json:"state"`
	StateTimer float64    `json:"state_timer"` // Seconds left before the decision engine may run again
	Target     world.Vec2 `json:"target"`      // Meaningful only while walking
	Goal       uuid.UUID  `json:"goal"`        // Toy being walked to; Nil when wandering
	Closest    float64    `json:"closest"`     // Nearest approach to Target on this walk
	Bias       Bias       `json:"bias"`
	Stuck      int        `json:"stuck"` // Consecutive walking ticks without getting closer

	Anim Animation `json:"anim"`

	BornTick uint64 `json:"born_tick"`
}

// Footprint returns the kitten's collision box.
func (k *Kitten) Footprint(size float64) world.Box {
	return world.BoxAt(k.Pos, world.V(size, size))
}

// Alive reports whether the kitten has not died.
func (k *Kitten) Alive() bool {
	return k.State != StateDecomposing
}
