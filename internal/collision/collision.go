// Package collision is the broad-phase hit-test store for scene bodies.
// Bodies are axis-aligned boxes tagged with a category; queries filter by mask.
package collision

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/world"
)

// Ref identifies an entity in the scene. Kittens and toys share one ID space.
type Ref = uuid.UUID

// Category is a hit-mask bit.
type Category uint8

const (
	HitSolid  Category = 0x01
	HitKitten Category = 0x02
	HitToy    Category = 0x04
)

// Body is one registered hit box.
type Body struct {
	Ref      Ref
	Box      world.Box
	Category Category
}

// World stores bodies for hit tests. It is rebuilt or updated once per tick
// after entity positions settle, and read during the next tick.
type World struct {
	bodies map[Ref]Body
}

// NewWorld creates an empty collision world.
func NewWorld() *World {
	return &World{bodies: make(map[Ref]Body)}
}

// Set adds or replaces a body.
func (w *World) Set(ref Ref, box world.Box, cat Category) {
	w.bodies[ref] = Body{Ref: ref, Box: box, Category: cat}
}

// Remove deletes a body; unknown refs are ignored.
func (w *World) Remove(ref Ref) {
	delete(w.bodies, ref)
}

// Clear removes all bodies.
func (w *World) Clear() {
	clear(w.bodies)
}

// Len returns the number of registered bodies.
func (w *World) Len() int {
	return len(w.bodies)
}

// Get returns a registered body.
func (w *World) Get(ref Ref) (Body, bool) {
	b, ok := w.bodies[ref]
	return b, ok
}

// HitTest returns every body overlapping box whose category is in mask,
// excluding exclude. Results are ordered by ref.
func (w *World) HitTest(box world.Box, mask Category, exclude Ref) []Ref {
	var hits []Ref
	for ref, b := range w.bodies {
		if b.Category&mask == 0 || ref == exclude {
			continue
		}
		if b.Box.Overlaps(box) {
			hits = append(hits, ref)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		return bytes.Compare(hits[i][:], hits[j][:]) < 0
	})
	return hits
}
