package agents

import (
	"math"

	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/world"
)

// Facing is the sprite direction.
type Facing uint8

const (
	FacingDown Facing = iota
	FacingLeft
	FacingUp
	FacingRight
)

// Bubble is the thought bubble shown above a kitten.
type Bubble uint8

const (
	BubbleNone Bubble = iota
	BubbleSick
	BubblePee
	BubbleFood
	BubbleSleep
	BubblePlay
)

var bubbleNames = [...]string{"", "sick", "pee", "food", "sleep", "play"}

func (b Bubble) String() string {
	if int(b) < len(bubbleNames) {
		return bubbleNames[b]
	}
	return ""
}

// Animation is purely presentational state derived from the simulation.
type Animation struct {
	Name    string  `json:"name"`
	Facing  Facing  `json:"facing"`
	Bubble  Bubble  `json:"bubble,omitempty"`
	Elapsed float64 `json:"elapsed"` // Seconds since Name last changed
}

// Presenter receives animation updates. Kittens without one are simulated
// the same; only presentation is skipped.
type Presenter interface {
	Present(k *Kitten)
}

// animate refreshes the kitten's animation from its state and last movement.
func animate(k *Kitten, moved world.Vec2, t *config.Tuning) {
	name := activities[k.State].animation()
	if name != k.Anim.Name {
		k.Anim.Name = name
		k.Anim.Elapsed = 0
	} else {
		k.Anim.Elapsed += t.TickSeconds()
	}

	if !moved.IsZero() {
		if math.Abs(moved.X) >= math.Abs(moved.Y) {
			if moved.X < 0 {
				k.Anim.Facing = FacingLeft
			} else {
				k.Anim.Facing = FacingRight
			}
		} else if moved.Y < 0 {
			k.Anim.Facing = FacingDown
		} else {
			k.Anim.Facing = FacingUp
		}
	}

	k.Anim.Bubble = bubbleFor(k, t)
}

// bubbleFor shows the most pressing need at BAD or above, in decision order.
// Bladder shows the pee bubble.
func bubbleFor(k *Kitten, t *config.Tuning) Bubble {
	if !k.Alive() {
		return BubbleNone
	}
	n := &k.Needs
	switch {
	case n.Sick > t.NeedLow:
		return BubbleSick
	case n.Needy > t.NeedBad:
		return BubblePee
	case n.Hungry > t.NeedBad:
		return BubbleFood
	case n.Tired > t.NeedBad:
		return BubbleSleep
	case n.Bored > t.NeedBad:
		return BubblePlay
	}
	return BubbleNone
}
