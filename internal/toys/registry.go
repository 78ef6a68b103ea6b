package toys

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/world"
)

var (
	ErrUnknownToy  = errors.New("unknown toy")
	ErrNotHeld     = errors.New("toy is not held")
	ErrNotPlaced   = errors.New("toy is not placed")
	ErrBlocked     = errors.New("toy placement blocked")
	ErrUnknownKind = errors.New("unknown toy kind")
)

// Level answers static obstruction queries for placement validation.
type Level interface {
	BoxSolid(b world.Box) bool
}

// Registry exclusively owns all toys. It is mutated only between simulation
// ticks; kittens read it through Get and Placed.
type Registry struct {
	level    Level
	toys     map[uuid.UUID]*Toy
	consumed []uuid.UUID
	ids      io.Reader
}

// NewRegistry creates an empty registry validating placement against level.
func NewRegistry(level Level) *Registry {
	return &Registry{
		level: level,
		toys:  make(map[uuid.UUID]*Toy),
		ids:   rand.Reader,
	}
}

// SetIDSource makes toy IDs reproducible (used with a seeded source).
func (r *Registry) SetIDSource(src io.Reader) {
	r.ids = src
}

func (r *Registry) newID() uuid.UUID {
	id, err := uuid.NewRandomFromReader(r.ids)
	if err != nil {
		return uuid.New()
	}
	return id
}

// Spawn creates a toy of the given kind from the catalog and starts holding it.
// A held toy that is cancelled before its first drop is destroyed.
func (r *Registry) Spawn(kind Kind) (*Toy, error) {
	if int(kind) >= NumKinds {
		return nil, fmt.Errorf("spawn %d: %w", kind, ErrUnknownKind)
	}
	m := Catalog[kind]
	t := &Toy{
		ID:         r.newID(),
		Kind:       m.Kind,
		Name:       m.Name,
		W:          m.W,
		H:          m.H,
		Cost:       m.Cost,
		State:      StateHeld,
		startState: StateUnplaced,
	}
	r.toys[t.ID] = t
	return t, nil
}

// Grab starts dragging an already placed toy.
func (r *Registry) Grab(id uuid.UUID) error {
	t, ok := r.toys[id]
	if !ok {
		return ErrUnknownToy
	}
	if t.State != StatePlaced {
		return ErrNotPlaced
	}
	t.startState = t.State
	t.startPos = t.Pos
	t.State = StateHeld
	return nil
}

// Move drags a held toy so it is centred on scenePos, snapped to the grid.
func (r *Registry) Move(id uuid.UUID, scenePos world.Vec2) error {
	t, ok := r.toys[id]
	if !ok {
		return ErrUnknownToy
	}
	if t.State != StateHeld {
		return ErrNotHeld
	}
	corner := scenePos.Sub(t.Size().Scale(0.5))
	t.Pos = world.V(
		math.Round(corner.X/GridSize)*GridSize,
		math.Round(corner.Y/GridSize)*GridSize,
	)
	return nil
}

// CanPlace reports whether a toy's current footprint is free of solid tiles
// and other placed toys.
func (r *Registry) CanPlace(id uuid.UUID) bool {
	t, ok := r.toys[id]
	if !ok {
		return false
	}
	box := t.Box()
	if r.level.BoxSolid(box) {
		return false
	}
	for _, o := range r.toys {
		if o.ID != t.ID && o.State == StatePlaced && o.Box().Overlaps(box) {
			return false
		}
	}
	return true
}

// Drop places a held toy. It returns the price to charge, which is the toy's
// cost on its first placement and zero afterwards. A blocked drop leaves the
// toy held.
func (r *Registry) Drop(id uuid.UUID) (int, error) {
	t, ok := r.toys[id]
	if !ok {
		return 0, ErrUnknownToy
	}
	if t.State != StateHeld {
		return 0, ErrNotHeld
	}
	if !r.CanPlace(id) {
		return 0, ErrBlocked
	}
	t.State = StatePlaced
	if t.Paid {
		return 0, nil
	}
	t.Paid = true
	return t.Cost, nil
}

// Cancel aborts a drag. Toys never placed are destroyed; others go back to
// where they were grabbed from. It reports whether the toy was destroyed.
func (r *Registry) Cancel(id uuid.UUID) (bool, error) {
	t, ok := r.toys[id]
	if !ok {
		return false, ErrUnknownToy
	}
	if t.State != StateHeld {
		return false, ErrNotHeld
	}
	if t.startState == StateUnplaced {
		delete(r.toys, id)
		return true, nil
	}
	t.State = t.startState
	t.Pos = t.startPos
	return false, nil
}

// Remove deletes a placed toy without refund.
func (r *Registry) Remove(id uuid.UUID) error {
	t, ok := r.toys[id]
	if !ok {
		return ErrUnknownToy
	}
	if t.State != StatePlaced {
		return ErrNotPlaced
	}
	delete(r.toys, id)
	return nil
}

// Get returns a toy by ID.
func (r *Registry) Get(id uuid.UUID) (*Toy, bool) {
	t, ok := r.toys[id]
	return t, ok
}

// Placed returns the placed toys of a kind ordered by ID.
func (r *Registry) Placed(kind Kind) []*Toy {
	var out []*Toy
	for _, t := range r.toys {
		if t.Kind == kind && t.State == StatePlaced {
			out = append(out, t)
		}
	}
	sortByID(out)
	return out
}

// All returns every toy ordered by ID.
func (r *Registry) All() []*Toy {
	out := make([]*Toy, 0, len(r.toys))
	for _, t := range r.toys {
		out = append(out, t)
	}
	sortByID(out)
	return out
}

// Len returns the number of toys.
func (r *Registry) Len() int {
	return len(r.toys)
}

// Consume marks a toy as used up. It stays visible until Flush so every
// kitten in the current tick sees the same placement snapshot.
func (r *Registry) Consume(id uuid.UUID) {
	if _, ok := r.toys[id]; ok {
		r.consumed = append(r.consumed, id)
	}
}

// Flush removes consumed toys and returns their IDs.
func (r *Registry) Flush() []uuid.UUID {
	var removed []uuid.UUID
	for _, id := range r.consumed {
		if _, ok := r.toys[id]; ok {
			delete(r.toys, id)
			removed = append(removed, id)
		}
	}
	r.consumed = r.consumed[:0]
	return removed
}

// Restore inserts a toy loaded from storage. A toy saved mid-drag comes back
// placed if it had been paid for and is dropped otherwise; it reports whether
// the toy was kept.
func (r *Registry) Restore(t *Toy) bool {
	if t.State == StateHeld {
		if !t.Paid {
			return false
		}
		t.State = StatePlaced
	}
	t.startState = t.State
	t.startPos = t.Pos
	r.toys[t.ID] = t
	return true
}

func sortByID(ts []*Toy) {
	sort.Slice(ts, func(i, j int) bool {
		return bytes.Compare(ts[i].ID[:], ts[j].ID[:]) < 0
	})
}
