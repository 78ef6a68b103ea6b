package agents

import (
	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

// situation is what a rule sees: the kitten and the placed toys it touches.
type situation struct {
	k        *Kitten
	tick     uint64
	contacts toys.Mask
	touching [toys.NumKinds]uuid.UUID // First toy of each kind in contact
}

// Rule is one (predicate, action) pair of the decision engine. Rules are
// evaluated top to bottom and the first whose action reports true ends the
// evaluation for the tick. An action returning false (e.g. nothing to seek)
// lets evaluation continue.
type Rule struct {
	Name string
	// Crisis rules run every tick, mid-walk and mid-activity included.
	Crisis bool
	When   func(b *Brain, s *situation) bool
	Do     func(b *Brain, s *situation) bool
}

// tieredNeeds is the fixed evaluation order for ordinary needs.
var tieredNeeds = [...]Need{NeedNeedy, NeedHungry, NeedTired, NeedBored}

// DefaultRules returns the decision table in priority order.
func DefaultRules() []Rule {
	rules := []Rule{
		{
			Name:   "crisis/sickness-death",
			Crisis: true,
			When:   above(NeedSick, TierCrisis),
			Do: func(b *Brain, s *situation) bool {
				b.transition(s.k, StateDecomposing)
				b.report(s, EventDeath, b.Tuning.DeathPenalty)
				return true
			},
		},
		{
			Name:   "crisis/bladder-accident",
			Crisis: true,
			When:   unless(StatePeeing, above(NeedNeedy, TierCrisis)),
			Do: func(b *Brain, s *situation) bool {
				b.transition(s.k, StatePeeing)
				b.report(s, EventMess, b.Tuning.MessPenalty)
				return true
			},
		},
		{
			Name:   "crisis/starvation",
			Crisis: true,
			When:   above(NeedHungry, TierCrisis),
			Do: func(b *Brain, s *situation) bool {
				n := &s.k.Needs
				n.Hungry = b.Tuning.NeedLow
				n.Sick = max(n.Sick, b.Tuning.NeedLow)
				b.report(s, EventStarvation, b.Tuning.SicknessPenalty)
				return true
			},
		},
		{
			Name:   "crisis/exhaustion",
			Crisis: true,
			When:   unless(StateSleeping, above(NeedTired, TierCrisis)),
			Do: func(b *Brain, s *situation) bool {
				b.transition(s.k, StateSleeping)
				b.report(s, EventCollapse, b.Tuning.CollapsePenalty)
				return true
			},
		},
		{
			Name:   "crisis/boredom",
			Crisis: true,
			When:   unless(StateSleeping, above(NeedBored, TierCrisis)),
			Do: func(b *Brain, s *situation) bool {
				b.transition(s.k, StateSleeping)
				b.report(s, EventBoredom, b.Tuning.BoredomPenalty)
				return true
			},
		},
		{
			Name: "sick",
			When: above(NeedSick, TierLow),
			Do: func(b *Brain, s *situation) bool {
				if s.contacts.Has(toys.KindHeal) {
					b.cure(s)
					return true
				}
				return b.seek(s.k, toys.KindHeal, true)
			},
		},
	}

	for _, tier := range [...]Tier{TierBad, TierLow} {
		for _, need := range tieredNeeds {
			rules = append(rules, needRule(need, tier))
		}
	}

	rules = append(rules, Rule{
		Name: "wander",
		When: func(b *Brain, s *situation) bool {
			return s.k.State == StateSitting && b.Rand != nil && b.Rand.Float64() < b.Tuning.WanderChance
		},
		Do: func(b *Brain, s *situation) bool {
			return b.wander(s.k)
		},
	})
	return rules
}

// needRule starts the matching activity when a satisfying toy is touched,
// otherwise seeks one; BAD-tier seeks are urgent.
func needRule(need Need, tier Tier) Rule {
	kind := need.Toy()
	state, _ := need.Activity()
	label := "low"
	if tier == TierBad {
		label = "bad"
	}
	return Rule{
		Name: need.String() + "/" + label,
		When: above(need, tier),
		Do: func(b *Brain, s *situation) bool {
			if s.contacts.Has(kind) {
				if s.k.State != state {
					b.transition(s.k, state)
				}
				return true
			}
			return b.seek(s.k, kind, tier == TierBad)
		},
	}
}

// above matches when the need is in tier or worse.
func above(need Need, tier Tier) func(*Brain, *situation) bool {
	return func(b *Brain, s *situation) bool {
		return TierOf(s.k.Needs.Get(need), &b.Tuning) >= tier
	}
}

// unless suppresses a crisis while the kitten is already in the state the
// crisis would force.
func unless(state State, when func(*Brain, *situation) bool) func(*Brain, *situation) bool {
	return func(b *Brain, s *situation) bool {
		return s.k.State != state && when(b, s)
	}
}

// cure consumes the touched pill. The pill stays visible to other kittens
// until the end of the tick.
func (b *Brain) cure(s *situation) {
	n := &s.k.Needs
	n.Sick = 0
	n.Hungry *= b.Tuning.CureFactor
	n.Tired *= b.Tuning.CureFactor
	b.Toys.Consume(s.touching[toys.KindHeal])
	b.report(s, EventCured, 0)
}

// wander walks toward a random clear point near the kitten.
func (b *Brain) wander(k *Kitten) bool {
	r := b.Tuning.WanderRadius
	dx := (b.Rand.Float64()*2 - 1) * r
	dy := (b.Rand.Float64()*2 - 1) * r
	target := k.Pos.Add(world.V(dx, dy))
	if b.Level.BoxSolid(world.BoxAt(target, world.V(b.Tuning.KittenSize, b.Tuning.KittenSize))) {
		return false
	}
	b.walkTo(k, target)
	return true
}
