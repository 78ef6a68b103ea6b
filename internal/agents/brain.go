package agents

import (
	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/collision"
	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

// ToySource is the kittens' read view of the toy registry. Consume only
// queues removal; the toy stays visible until the registry is flushed
// between ticks.
type ToySource interface {
	Get(id uuid.UUID) (*toys.Toy, bool)
	Placed(kind toys.Kind) []*toys.Toy
	Consume(id uuid.UUID)
}

// Contacts answers dynamic hit tests against scene bodies.
type Contacts interface {
	HitTest(box world.Box, mask collision.Category, exclude collision.Ref) []collision.Ref
}

// DecisionTrace observes which rule fired for a kitten on a tick.
type DecisionTrace func(k *Kitten, rule string)

// Brain runs the per-tick update for kittens. One Brain serves every kitten
// of a simulation; it holds no per-kitten state.
type Brain struct {
	Tuning   config.Tuning
	Level    Level
	Contacts Contacts
	Toys     ToySource
	Rand     Rand
	Sink     Sink

	// Optional.
	Presenter Presenter
	Trace     DecisionTrace

	Rules []Rule
}

// NewBrain creates a brain with the default rule table and a discarding sink.
func NewBrain(t config.Tuning, level Level, contacts Contacts, ts ToySource, rng Rand) *Brain {
	return &Brain{
		Tuning:   t,
		Level:    level,
		Contacts: contacts,
		Toys:     ts,
		Rand:     rng,
		Sink:     NopSink{},
		Rules:    DefaultRules(),
	}
}

// Update advances one kitten by one tick and returns the name of the rule
// that fired, if any. Disabled and dead kittens are left untouched.
//
// Order: accrue needs, run down the activity timer, update the current state,
// clamp, sense toy contacts, evaluate rules, clamp, animate.
func (b *Brain) Update(k *Kitten, tick uint64) string {
	if !k.Enabled || !k.Alive() {
		return ""
	}
	t := &b.Tuning
	s := &situation{k: k, tick: tick}

	if Accrue(&k.Needs, t, b.Rand) {
		b.report(s, EventIllness, 0)
	}
	if k.StateTimer > 0 {
		k.StateTimer -= t.TickSeconds()
	}

	before := k.Pos
	activities[k.State].update(b, k)
	k.Needs.ClampLow()

	b.sense(s)
	fired := b.decide(s)
	k.Needs.ClampLow()

	if b.Presenter != nil {
		animate(k, k.Pos.Sub(before), t)
		b.Presenter.Present(k)
	}
	if k.Alive() && k.Needs.Content(t) {
		b.sink().ReportHappiness(t.ContentGain)
	}
	if fired != "" && b.Trace != nil {
		b.Trace(k, fired)
	}
	return fired
}

// sense folds every placed toy overlapping the kitten's footprint into the
// contact mask. References that do not resolve to a placed toy are skipped.
func (b *Brain) sense(s *situation) {
	if b.Contacts == nil || b.Toys == nil {
		return
	}
	box := s.k.Footprint(b.Tuning.KittenSize)
	for _, ref := range b.Contacts.HitTest(box, collision.HitToy, s.k.ID) {
		toy, ok := b.Toys.Get(ref)
		if !ok || !toy.Placed() {
			continue
		}
		if !s.contacts.Has(toy.Kind) {
			s.touching[toy.Kind] = toy.ID
			s.contacts = s.contacts.With(toy.Kind)
		}
	}
}

// decide evaluates the rule table. Crisis rules run every tick so no need
// passes MAX unanswered; the rest only when no activity timer is pending and
// the kitten is not walking.
func (b *Brain) decide(s *situation) string {
	gated := s.k.StateTimer > 0 || s.k.State == StateWalking
	for i := range b.Rules {
		r := &b.Rules[i]
		if !s.k.Alive() {
			break
		}
		if gated && !r.Crisis {
			continue
		}
		if r.When(b, s) && r.Do(b, s) {
			return r.Name
		}
	}
	return ""
}

func (b *Brain) report(s *situation, kind EventKind, penalty float64) {
	sink := b.sink()
	if penalty != 0 {
		sink.ReportHappiness(-penalty)
	}
	sink.ReportEvent(Event{
		Tick:      s.tick,
		Kitten:    s.k.ID,
		Name:      s.k.Name,
		Kind:      kind,
		Happiness: -penalty,
	})
}

func (b *Brain) sink() Sink {
	if b.Sink == nil {
		return NopSink{}
	}
	return b.Sink
}
