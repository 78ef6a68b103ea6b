package agents

import (
	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/toys"
)

// Need enumerates the kitten's scalar needs.
type Need uint8

const (
	NeedSick Need = iota
	NeedTired
	NeedBored
	NeedHungry
	NeedNeedy
)

var needNames = [...]string{"sick", "tired", "bored", "hungry", "needy"}

func (n Need) String() string {
	if int(n) < len(needNames) {
		return needNames[n]
	}
	return "unknown"
}

// Toy returns the toy kind that satisfies the need.
func (n Need) Toy() toys.Kind {
	switch n {
	case NeedSick:
		return toys.KindHeal
	case NeedTired:
		return toys.KindSleep
	case NeedBored:
		return toys.KindPlay
	case NeedHungry:
		return toys.KindFeed
	default:
		return toys.KindRelieve
	}
}

// Activity returns the timed state that satisfies the need. Sickness has no
// activity: it is cured instantly by a pill.
func (n Need) Activity() (State, bool) {
	switch n {
	case NeedTired:
		return StateSleeping, true
	case NeedBored:
		return StatePlaying, true
	case NeedHungry:
		return StateEating, true
	case NeedNeedy:
		return StatePeeing, true
	}
	return StateSitting, false
}

// Needs holds the five need scalars. Higher is needier.
type Needs struct {
	Sick   float64 `json:"sick"`
	Tired  float64 `json:"tired"`
	Bored  float64 `json:"bored"`
	Hungry float64 `json:"hungry"`
	Needy  float64 `json:"needy"`
}

// Get returns the value of one need.
func (n *Needs) Get(need Need) float64 {
	return *n.ptr(need)
}

// Set writes the value of one need.
func (n *Needs) Set(need Need, v float64) {
	*n.ptr(need) = v
}

func (n *Needs) ptr(need Need) *float64 {
	switch need {
	case NeedSick:
		return &n.Sick
	case NeedTired:
		return &n.Tired
	case NeedBored:
		return &n.Bored
	case NeedHungry:
		return &n.Hungry
	default:
		return &n.Needy
	}
}

// ClampLow raises any negative need to zero.
func (n *Needs) ClampLow() {
	for _, v := range []*float64{&n.Sick, &n.Tired, &n.Bored, &n.Hungry, &n.Needy} {
		if *v < 0 {
			*v = 0
		}
	}
}

// Tier is a severity band.
type Tier uint8

const (
	TierNone   Tier = iota
	TierLow         // > LOW
	TierBad         // > BAD
	TierCrisis      // > MAX
)

// TierOf classifies a value. Thresholds are strict: a value exactly at a
// cut-off belongs to the band below.
func TierOf(v float64, t *config.Tuning) Tier {
	switch {
	case v > t.NeedMax:
		return TierCrisis
	case v > t.NeedBad:
		return TierBad
	case v > t.NeedLow:
		return TierLow
	}
	return TierNone
}

// Content reports whether every need is at or below LOW.
func (n *Needs) Content(t *config.Tuning) bool {
	return n.Sick <= t.NeedLow && n.Tired <= t.NeedLow && n.Bored <= t.NeedLow &&
		n.Hungry <= t.NeedLow && n.Needy <= t.NeedLow
}

// Rand is the random stream the simulation draws from.
type Rand interface {
	Float64() float64
}

// Accrue applies one tick of passive need growth. It reports whether the
// kitten spontaneously fell ill this tick.
func Accrue(n *Needs, t *config.Tuning, rng Rand) bool {
	n.Tired += t.FatigueRate
	n.Bored += t.BoredomRate
	n.Hungry += t.HungerRate
	n.Needy += t.BladderRate

	if n.Sick > 0 {
		n.Sick += n.Sick * t.SickGrowth
		return false
	}
	if rng != nil && rng.Float64() < t.SickOnsetChance {
		n.Sick = t.NeedLow
		return true
	}
	return false
}
