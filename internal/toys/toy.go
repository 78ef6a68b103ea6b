// Package toys owns the placeable objects kittens interact with, and their
// purchase/drag/drop lifecycle.
package toys

import (
	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/world"
)

// GridSize is the placement grid in pixels. Toy sizes are in grid cells.
const GridSize = 16

// Kind determines which need a toy satisfies.
type Kind uint8

const (
	KindFeed    Kind = iota // Food bowl, for hunger
	KindPlay                // Ball, for boredom
	KindRelieve             // Litter box, for bladder
	KindHeal                // Pill, for sickness
	KindSleep               // Basket, for fatigue
)

// NumKinds is the number of toy kinds.
const NumKinds = 5

var kindNames = [NumKinds]string{"feed", "play", "relieve", "heal", "sleep"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// Mask is a set of toy kinds.
type Mask uint8

// MaskOf returns a mask containing the given kinds.
func MaskOf(kinds ...Kind) Mask {
	var m Mask
	for _, k := range kinds {
		m = m.With(k)
	}
	return m
}

// With returns m plus k.
func (m Mask) With(k Kind) Mask { return m | 1<<k }

// Has reports whether k is in the set.
func (m Mask) Has(k Kind) bool { return m&(1<<k) != 0 }

// State is a toy's placement state. Only placed toys are visible to kittens.
type State uint8

const (
	StateUnplaced State = iota
	StateHeld
	StatePlaced
)

func (s State) String() string {
	switch s {
	case StateHeld:
		return "held"
	case StatePlaced:
		return "placed"
	default:
		return "unplaced"
	}
}

// Toy is a placeable object.
type Toy struct {
	ID    uuid.UUID  `json:"id"`
	Kind  Kind       `json:"kind"`
	Name  string     `json:"name"`
	W     int        `json:"w"` // Grid cells
	H     int        `json:"h"`
	Cost  int        `json:"cost"`
	Pos   world.Vec2 `json:"pos"` // Min corner, scene space
	State State      `json:"state"`
	Paid  bool       `json:"paid"` // Cost is charged once, on first placement

	// Restored by Cancel.
	startState State
	startPos   world.Vec2
}

// Size returns the footprint in pixels.
func (t *Toy) Size() world.Vec2 {
	return world.V(float64(t.W*GridSize), float64(t.H*GridSize))
}

// Box returns the footprint in scene space.
func (t *Toy) Box() world.Box {
	return world.BoxFrom(t.Pos, t.Size())
}

// Center returns the footprint centre, used as the kittens' walking target.
func (t *Toy) Center() world.Vec2 {
	return t.Box().Center()
}

// Placed reports whether kittens may interact with the toy.
func (t *Toy) Placed() bool {
	return t.State == StatePlaced
}
