// Simulation ties the level, toys and kittens together and runs them each tick.
package engine

import (
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/agents"
	"github.com/talgya/kitten-world/internal/collision"
	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/entropy"
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

// Simulation holds the complete game state. Tick and the between-tick
// commands hold the write lock; readers take a consistent view under the
// read lock.
type Simulation struct {
	mu sync.RWMutex

	Tuning  config.Tuning
	Level   *world.TileMap
	Bodies  *collision.World
	Toys    *toys.Registry
	Kittens []*agents.Kitten
	Brain   *agents.Brain
	Spawner *agents.Spawner
	Rand    *entropy.Source

	State    GameState
	Events   []agents.Event // Most recent last, bounded by Tuning.EventLogSize
	LastTick uint64

	unsaved []agents.Event // Events not yet persisted

	queue    commandQueue
	stream   broadcaster
	bubbles  map[uuid.UUID]agents.Bubble
	decision map[string]int // Rule firings since the last report
}

// NewSimulation creates a simulation on the given level with no kittens or
// toys. Seed 0 picks a random seed.
func NewSimulation(t config.Tuning, level *world.TileMap, seed int64) *Simulation {
	rng := entropy.New(seed)
	s := &Simulation{
		Tuning:   t,
		Level:    level,
		Bodies:   collision.NewWorld(),
		Toys:     toys.NewRegistry(level),
		Rand:     rng,
		Spawner:  agents.NewSpawner(rng, t),
		State:    NewGameState(t),
		bubbles:  make(map[uuid.UUID]agents.Bubble),
		decision: make(map[string]int),
	}
	s.Toys.SetIDSource(rng)
	s.Brain = agents.NewBrain(t, level, s.Bodies, s.Toys, rng)
	s.Brain.Sink = s
	s.Brain.Presenter = s
	s.Brain.Trace = func(_ *agents.Kitten, rule string) { s.decision[rule]++ }
	return s
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// Tick runs one simulation tick: queued commands first, then every kitten
// in order against the same toy placement, then consumed toys are removed.
func (s *Simulation) Tick(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick
	s.drainLocked()

	for _, k := range s.Kittens {
		if k.Enabled {
			s.Brain.Update(k, tick)
		}
	}

	for _, id := range s.Toys.Flush() {
		s.Bodies.Remove(id)
		slog.Debug("toy consumed", "toy", id, "tick", tick)
	}
	s.syncKittensLocked()
}

// Drain applies queued commands outside a tick, used while the engine is paused.
func (s *Simulation) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainLocked()
}

// SpawnKittens adds n kittens near the level's spawn point.
func (s *Simulation) SpawnKittens(n int) []*agents.Kitten {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*agents.Kitten, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.spawnKittenLocked(world.SpawnPoint(s.Level)))
	}
	return out
}

func (s *Simulation) spawnKittenLocked(near world.Vec2) *agents.Kitten {
	k := s.Spawner.Spawn(s.Level, near, s.LastTick)
	s.Kittens = append(s.Kittens, k)
	s.Bodies.Set(k.ID, k.Footprint(s.Tuning.KittenSize), collision.HitKitten)
	s.ReportEvent(agents.Event{Tick: s.LastTick, Kitten: k.ID, Name: k.Name, Kind: agents.EventBorn})
	return k
}

// Restore replaces kittens and toys with ones loaded from storage.
func (s *Simulation) Restore(kittens []*agents.Kitten, ts []*toys.Toy, state GameState, tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Kittens = kittens
	s.State = state
	s.LastTick = tick
	s.Bodies.Clear()
	s.Toys = toys.NewRegistry(s.Level)
	s.Toys.SetIDSource(s.Rand)
	s.Brain.Toys = s.Toys

	dropped := 0
	for _, t := range ts {
		if !s.Toys.Restore(t) {
			dropped++
		}
	}
	for _, k := range kittens {
		s.Spawner.Reserve(k.Name)
	}
	s.syncToysLocked()
	s.syncKittensLocked()
	slog.Info("simulation restored",
		"kittens", len(kittens),
		"toys", s.Toys.Len(),
		"dropped_unpaid", dropped,
		"tick", tick,
	)
}

// syncToysLocked makes the collision world match toy placement. Only placed
// toys have bodies.
func (s *Simulation) syncToysLocked() {
	for _, t := range s.Toys.All() {
		if t.Placed() {
			s.Bodies.Set(t.ID, t.Box(), collision.HitToy)
		} else {
			s.Bodies.Remove(t.ID)
		}
	}
}

func (s *Simulation) syncKittensLocked() {
	for _, k := range s.Kittens {
		s.Bodies.Set(k.ID, k.Footprint(s.Tuning.KittenSize), collision.HitKitten)
	}
}

// Report logs a periodic summary.
func (s *Simulation) Report(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alive, content := 0, 0
	for _, k := range s.Kittens {
		if k.Alive() {
			alive++
			if k.Needs.Content(&s.Tuning) {
				content++
			}
		}
	}
	slog.Info("status report",
		"tick", tick,
		"time", SimTime(tick),
		"alive", alive,
		"content", content,
		"toys", s.Toys.Len(),
		"happiness", humanize.FtoaWithDigits(s.State.Happiness, 2),
		"money", humanize.Comma(int64(s.State.Money)),
		"spent", humanize.Comma(int64(s.State.Spent)),
		"deaths", s.State.Deaths,
		"messes", s.State.Messes,
		"events", humanize.Comma(int64(len(s.Events))),
	)
	for rule, n := range s.decision {
		slog.Debug("decisions", "rule", rule, "count", n)
	}
	clear(s.decision)
}

// Kitten returns a copy of one kitten.
func (s *Simulation) Kitten(id uuid.UUID) (agents.Kitten, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.Kittens {
		if k.ID == id {
			return *k, true
		}
	}
	return agents.Kitten{}, false
}

// KittensAt returns copies of the kittens whose footprint contains pos.
func (s *Simulation) KittensAt(pos world.Vec2) []agents.Kitten {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []agents.Kitten
	probe := world.BoxAt(pos, world.V(1, 1))
	for _, ref := range s.Bodies.HitTest(probe, collision.HitKitten, uuid.Nil) {
		for _, k := range s.Kittens {
			if k.ID == ref {
				out = append(out, *k)
			}
		}
	}
	return out
}

// RecentEvents returns up to limit of the most recent events, newest first.
func (s *Simulation) RecentEvents(limit int) []agents.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.Events) {
		limit = len(s.Events)
	}
	out := make([]agents.Event, 0, limit)
	for i := len(s.Events) - 1; i >= len(s.Events)-limit; i-- {
		out = append(out, s.Events[i])
	}
	return out
}

// TakeUnsaved returns events recorded since the last call.
func (s *Simulation) TakeUnsaved() []agents.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.unsaved
	s.unsaved = nil
	return out
}

// KittenList returns copies of every kitten in spawn order.
func (s *Simulation) KittenList() []agents.Kitten {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agents.Kitten, len(s.Kittens))
	for i, k := range s.Kittens {
		out[i] = *k
	}
	return out
}

// ToyList returns copies of every toy ordered by ID.
func (s *Simulation) ToyList() []toys.Toy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.Toys.All()
	out := make([]toys.Toy, len(all))
	for i, t := range all {
		out[i] = *t
	}
	return out
}

// Toy returns a copy of one toy.
func (s *Simulation) Toy(id uuid.UUID) (toys.Toy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.Toys.Get(id)
	if !ok {
		return toys.Toy{}, false
	}
	return *t, true
}

// Status summarises the game.
type Status struct {
	Tick      uint64    `json:"tick"`
	SimTime   string    `json:"sim_time"`
	Seed      int64     `json:"seed"`
	Kittens   int       `json:"kittens"`
	Alive     int       `json:"alive"`
	Content   int       `json:"content"`
	Toys      int       `json:"toys"`
	Game      GameState `json:"game"`
	LevelSize [2]int    `json:"level_size"` // In tiles
}

// Status returns the current summary.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Tick:      s.LastTick,
		SimTime:   SimTime(s.LastTick),
		Seed:      s.Rand.Seed(),
		Kittens:   len(s.Kittens),
		Toys:      s.Toys.Len(),
		Game:      s.State,
		LevelSize: [2]int{s.Level.Width, s.Level.Height},
	}
	for _, k := range s.Kittens {
		if k.Alive() {
			st.Alive++
			if k.Needs.Content(&s.Tuning) {
				st.Content++
			}
		}
	}
	return st
}
