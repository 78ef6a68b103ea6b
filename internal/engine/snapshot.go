package engine

import (
	"github.com/talgya/kitten-world/internal/agents"
	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

// SnapshotVersion is bumped when the snapshot layout changes incompatibly.
const SnapshotVersion = 1

// Snapshot is a self-contained copy of a game, taken between ticks.
type Snapshot struct {
	Version int             `json:"version"`
	Tick    uint64          `json:"tick"`
	Seed    int64           `json:"seed"`
	Tuning  config.Tuning   `json:"tuning"`
	State   GameState       `json:"state"`
	Level   world.TileMap   `json:"level"`
	Kittens []agents.Kitten `json:"kittens"`
	Toys    []toys.Toy      `json:"toys"`
	Events  []agents.Event  `json:"events"`
}

// Snapshot copies the current game.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Version: SnapshotVersion,
		Tick:    s.LastTick,
		Seed:    s.Rand.Seed(),
		Tuning:  s.Tuning,
		State:   s.State,
		Level: world.TileMap{
			Width:  s.Level.Width,
			Height: s.Level.Height,
			Tiles:  append([]world.TileIndex(nil), s.Level.Tiles...),
		},
		Kittens: make([]agents.Kitten, len(s.Kittens)),
		Events:  append([]agents.Event(nil), s.Events...),
	}
	for i, k := range s.Kittens {
		snap.Kittens[i] = *k
	}
	for _, t := range s.Toys.All() {
		snap.Toys = append(snap.Toys, *t)
	}
	return snap
}

// FromSnapshot rebuilds a simulation from a snapshot. The random stream is
// reseeded, so a restored run is reproducible but does not continue the
// original stream.
func FromSnapshot(snap Snapshot) *Simulation {
	level := snap.Level
	sim := NewSimulation(snap.Tuning, &level, snap.Seed)

	kittens := make([]*agents.Kitten, len(snap.Kittens))
	for i := range snap.Kittens {
		k := snap.Kittens[i]
		kittens[i] = &k
	}
	ts := make([]*toys.Toy, len(snap.Toys))
	for i := range snap.Toys {
		t := snap.Toys[i]
		ts[i] = &t
	}
	sim.Restore(kittens, ts, snap.State, snap.Tick)

	sim.mu.Lock()
	sim.Events = append(sim.Events, snap.Events...)
	sim.mu.Unlock()
	return sim
}
