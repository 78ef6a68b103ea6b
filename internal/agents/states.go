package agents

import (
	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/world"
)

// activity is one state variant. Each owns its entry, per-tick and exit
// behaviour plus its animation, so the state switch lives in one table.
type activity interface {
	enter(b *Brain, k *Kitten)
	update(b *Brain, k *Kitten)
	exit(b *Brain, k *Kitten)
	animation() string
}

var activities = [numStates]activity{
	StateSitting: sitting{},
	StateWalking: walking{},
	StateSleeping: timed{
		need:    NeedTired,
		anim:    "sleep",
		seconds: func(t *config.Tuning) float64 { return t.SleepMinSeconds },
		effect: func(t *config.Tuning, n *Needs) {
			n.Tired -= t.SleepRecovery
			// Sleep slows the other needs.
			n.Bored = min(n.Bored, t.NeedLow)
			n.Hungry = min(n.Hungry, t.NeedBad)
			n.Needy = min(n.Needy, t.NeedBad)
		},
	},
	StatePlaying: timed{
		need:    NeedBored,
		anim:    "play",
		seconds: func(t *config.Tuning) float64 { return t.PlayMinSeconds },
		effect: func(t *config.Tuning, n *Needs) {
			n.Bored -= t.PlayRate
			n.Tired += t.PlayFatigue
		},
	},
	StateEating: timed{
		need:    NeedHungry,
		anim:    "eat",
		seconds: func(t *config.Tuning) float64 { return t.EatMinSeconds },
		effect: func(t *config.Tuning, n *Needs) {
			n.Hungry -= t.FeedRate
			n.Bored -= t.EatBoredom
			n.Needy += t.EatBladder
		},
	},
	StatePeeing: timed{
		need:    NeedNeedy,
		anim:    "pee",
		seconds: func(t *config.Tuning) float64 { return t.PeeMinSeconds },
		effect: func(t *config.Tuning, n *Needs) {
			n.Needy -= t.RelieveRate
		},
	},
	StateDecomposing: decomposing{},
}

// transition leaves the current state and enters s. Entering the state the
// kitten is already in restarts it.
func (b *Brain) transition(k *Kitten, s State) {
	activities[k.State].exit(b, k)
	k.State = s
	activities[s].enter(b, k)
}

type sitting struct{}

func (sitting) enter(_ *Brain, k *Kitten) { k.StateTimer = 0 }
func (sitting) update(*Brain, *Kitten)    {}
func (sitting) exit(*Brain, *Kitten)      {}
func (sitting) animation() string         { return "sit" }

type walking struct{}

func (walking) enter(_ *Brain, k *Kitten) { k.Stuck = 0 }

func (walking) update(b *Brain, k *Kitten) {
	t := &b.Tuning
	if b.goalSettled(k) {
		b.transition(k, StateSitting)
		return
	}
	if k.Pos.Dist(k.Target) <= t.ArriveDistance {
		b.arrive(k)
		return
	}

	pos, bias, moved := Steer(b.Level, k.Pos, k.Target, t.KittenSize, t.Speed, t.CompassSteps, k.Bias)
	k.Bias = bias
	if moved {
		k.Pos = pos
	}

	// Progress is measured against the closest approach so far, so sliding
	// along an obstacle without closing in counts as stuck.
	d := k.Pos.Dist(k.Target)
	if d < k.Closest-t.Speed/10 {
		k.Closest = d
		k.Stuck = 0
	} else {
		k.Stuck++
	}
	switch {
	case d <= t.ArriveDistance:
		b.arrive(k)
	case k.Stuck >= t.StuckTicks:
		b.transition(k, StateSitting)
	}
}

func (walking) exit(_ *Brain, k *Kitten) {
	k.Target = k.Pos
	k.Goal = uuid.Nil
	k.Closest = 0
	k.Stuck = 0
}

func (walking) animation() string { return "walk" }

// arrive ends a walk on the target, snapping onto it only when the footprint
// there is clear.
func (b *Brain) arrive(k *Kitten) {
	size := b.Tuning.KittenSize
	if !b.Level.BoxSolid(world.BoxAt(k.Target, world.V(size, size))) {
		k.Pos = k.Target
	}
	b.transition(k, StateSitting)
}

// goalSettled reports whether a walk toward a toy is over: the kitten
// touches it, or it is no longer placed.
func (b *Brain) goalSettled(k *Kitten) bool {
	if k.Goal == uuid.Nil || b.Toys == nil {
		return false
	}
	toy, ok := b.Toys.Get(k.Goal)
	if !ok || !toy.Placed() {
		return true
	}
	return toy.Box().Overlaps(k.Footprint(b.Tuning.KittenSize))
}

// timed is an activity that satisfies one need and holds a minimum duration.
type timed struct {
	need    Need
	anim    string
	seconds func(t *config.Tuning) float64
	effect  func(t *config.Tuning, n *Needs)
}

// enter arms the timer and counts the entry tick as the first tick of the
// activity.
func (a timed) enter(b *Brain, k *Kitten) {
	k.StateTimer = a.seconds(&b.Tuning)
	a.effect(&b.Tuning, &k.Needs)
}

func (a timed) update(b *Brain, k *Kitten) {
	a.effect(&b.Tuning, &k.Needs)
	if k.Needs.Get(a.need) <= 0 && k.StateTimer <= 0 {
		b.transition(k, StateSitting)
	}
}

func (timed) exit(*Brain, *Kitten) {}

func (a timed) animation() string { return a.anim }

type decomposing struct{}

func (decomposing) enter(_ *Brain, k *Kitten) {
	k.Enabled = false
	k.StateTimer = 0
}
func (decomposing) update(*Brain, *Kitten) {}
func (decomposing) exit(*Brain, *Kitten)   {}
func (decomposing) animation() string      { return "dead" }
