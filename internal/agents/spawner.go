// Kitten spawning: names, starting needs, and a clear spot near the spawn
// point.
package agents

import (
	"io"

	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/world"
)

// SpawnSource is the random stream a spawner draws names, jitter and IDs from.
type SpawnSource interface {
	Float64() float64
	Intn(n int) int
	io.Reader
}

// Spawner creates kittens. With a seeded source the same sequence of calls
// yields the same kittens.
type Spawner struct {
	rng    SpawnSource
	tuning config.Tuning
	used   map[string]int
}

// NewSpawner creates a kitten spawner.
func NewSpawner(rng SpawnSource, t config.Tuning) *Spawner {
	return &Spawner{rng: rng, tuning: t, used: make(map[string]int)}
}

// Reserve marks a name as taken (used when restoring from DB).
func (s *Spawner) Reserve(name string) {
	s.used[baseName(name)]++
}

// Spawn creates a sitting kitten whose footprint is clear of level geometry,
// as close to near as it can find.
func (s *Spawner) Spawn(level Level, near world.Vec2, tick uint64) *Kitten {
	id, err := uuid.NewRandomFromReader(s.rng)
	if err != nil {
		id = uuid.New()
	}
	t := &s.tuning

	// Every need but sickness starts at a small jittered baseline.
	jitter := func() float64 { return t.Baseline * (0.5 + s.rng.Float64()) }
	k := &Kitten{
		ID:      id,
		Name:    s.name(),
		Pos:     s.place(level, near),
		Enabled: true,
		Needs: Needs{
			Tired:  jitter(),
			Bored:  jitter(),
			Hungry: jitter(),
			Needy:  jitter(),
		},
		State:    StateSitting,
		BornTick: tick,
	}
	k.Target = k.Pos
	return k
}

func (s *Spawner) place(level Level, near world.Vec2) world.Vec2 {
	size := world.V(s.tuning.KittenSize, s.tuning.KittenSize)
	if !level.BoxSolid(world.BoxAt(near, size)) {
		return near
	}
	for i := 0; i < 32; i++ {
		r := s.tuning.KittenSize * float64(1+i/4)
		p := near.Add(world.V((s.rng.Float64()*2-1)*r, (s.rng.Float64()*2-1)*r))
		if !level.BoxSolid(world.BoxAt(p, size)) {
			return p
		}
	}
	return near
}

func (s *Spawner) name() string {
	n := kittenNames[s.rng.Intn(len(kittenNames))]
	s.used[n]++
	if c := s.used[n]; c > 1 {
		return n + " " + romanNumeral(c)
	}
	return n
}

// baseName strips a numeral suffix added for duplicates.
func baseName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == ' ' {
			return name[:i]
		}
	}
	return name
}

func romanNumeral(n int) string {
	vals := []int{10, 9, 5, 4, 1}
	syms := []string{"X", "IX", "V", "IV", "I"}
	out := ""
	for i, v := range vals {
		for n >= v {
			out += syms[i]
			n -= v
		}
	}
	return out
}

var kittenNames = []string{
	"Mittens", "Biscuit", "Pepper", "Tofu", "Mochi", "Pickle", "Noodle",
	"Socks", "Ginger", "Pumpkin", "Waffles", "Clover", "Button", "Smudge",
	"Olive", "Sprout", "Marble", "Whiskers", "Nutmeg", "Pebble", "Juniper",
	"Tigger", "Luna", "Ziggy", "Domino", "Cricket", "Fig", "Bean",
}
