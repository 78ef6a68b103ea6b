package world

import (
	"fmt"
	"math"
)

// Vec2 is a point or displacement in scene space (pixels, Y up).
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// V is shorthand for Vec2{x, y}.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{v.X * f, v.Y * f}
}

// Len returns the Euclidean length.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the Euclidean distance between two points.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Len()
}

// IsZero reports whether both components are exactly zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Rotate turns v counter-clockwise by angle radians.
func (v Vec2) Rotate(angle float64) Vec2 {
	s, c := math.Sincos(angle)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// ClampLen shortens v to at most max, keeping its direction.
func (v Vec2) ClampLen(max float64) Vec2 {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Scale(max / l)
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", v.X, v.Y)
}

// Box is an axis-aligned rectangle. Max is exclusive for tile lookups.
type Box struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

// BoxAt returns the box of the given size centred on c.
func BoxAt(c Vec2, size Vec2) Box {
	h := size.Scale(0.5)
	return Box{Min: c.Sub(h), Max: c.Add(h)}
}

// BoxFrom returns the box with its min corner at p.
func BoxFrom(p Vec2, size Vec2) Box {
	return Box{Min: p, Max: p.Add(size)}
}

// Size returns the box extent.
func (b Box) Size() Vec2 { return b.Max.Sub(b.Min) }

// Center returns the box midpoint.
func (b Box) Center() Vec2 { return b.Min.Add(b.Size().Scale(0.5)) }

// Translate moves the box by d.
func (b Box) Translate(d Vec2) Box {
	return Box{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Overlaps reports whether two boxes share interior area. Touching edges do not overlap.
func (b Box) Overlaps(o Box) bool {
	return b.Min.X < o.Max.X && o.Min.X < b.Max.X &&
		b.Min.Y < o.Max.Y && o.Min.Y < b.Max.Y
}

// Contains reports whether p lies inside the box (min inclusive, max exclusive).
func (b Box) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X < b.Max.X && p.Y >= b.Min.Y && p.Y < b.Max.Y
}
