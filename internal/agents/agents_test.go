package agents

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/collision"
	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/entropy"
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

const room = `
##########
#........#
#........#
#........#
#........#
##########
`

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

type recordSink struct {
	events    []Event
	happiness float64
}

func (s *recordSink) ReportHappiness(d float64) { s.happiness += d }
func (s *recordSink) ReportEvent(e Event)       { s.events = append(s.events, e) }

func (s *recordSink) count(kind EventKind) int {
	n := 0
	for _, e := range s.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	level  *world.TileMap
	bodies *collision.World
	toys   *toys.Registry
	sink   *recordSink
	brain  *Brain
}

func testTuning() config.Tuning {
	t := config.DefaultTuning()
	t.SickOnsetChance = 0
	t.WanderChance = 0
	return t
}

func newFixture(t *testing.T, level string) *fixture {
	t.Helper()
	m, err := world.ParseLevel(level)
	if err != nil {
		t.Fatalf("parse level: %v", err)
	}
	f := &fixture{
		level:  m,
		bodies: collision.NewWorld(),
		toys:   toys.NewRegistry(m),
		sink:   &recordSink{},
	}
	f.brain = NewBrain(testTuning(), m, f.bodies, f.toys, fixedRand(0.5))
	f.brain.Sink = f.sink
	return f
}

// place buys and drops a toy centred on pos and registers its hit box.
func (f *fixture) place(t *testing.T, kind toys.Kind, pos world.Vec2) *toys.Toy {
	t.Helper()
	toy, err := f.toys.Spawn(kind)
	if err != nil {
		t.Fatalf("spawn %v: %v", kind, err)
	}
	if err := f.toys.Move(toy.ID, pos); err != nil {
		t.Fatalf("move %v: %v", kind, err)
	}
	if _, err := f.toys.Drop(toy.ID); err != nil {
		t.Fatalf("drop %v at %v: %v", kind, pos, err)
	}
	f.bodies.Set(toy.ID, toy.Box(), collision.HitToy)
	return toy
}

func (f *fixture) flush() {
	for _, id := range f.toys.Flush() {
		f.bodies.Remove(id)
	}
}

func newKitten(pos world.Vec2) *Kitten {
	return &Kitten{Name: "Test", Pos: pos, Target: pos, Enabled: true}
}

func TestAccrue(t *testing.T) {
	tun := config.DefaultTuning()
	var n Needs
	if Accrue(&n, &tun, fixedRand(0.99)) {
		t.Fatal("unexpected illness onset")
	}
	if n.Tired != tun.FatigueRate || n.Bored != tun.BoredomRate || n.Hungry != tun.HungerRate || n.Needy != tun.BladderRate {
		t.Errorf("needs after one tick = %+v", n)
	}
	if n.Sick != 0 {
		t.Errorf("sick = %v, want 0", n.Sick)
	}

	if !Accrue(&n, &tun, fixedRand(0)) {
		t.Fatal("expected illness onset")
	}
	if n.Sick != tun.NeedLow {
		t.Errorf("sick after onset = %v, want %v", n.Sick, tun.NeedLow)
	}
	before := n.Sick
	Accrue(&n, &tun, fixedRand(0))
	if want := before * (1 + tun.SickGrowth); math.Abs(n.Sick-want) > 1e-9 {
		t.Errorf("sick growth = %v, want %v", n.Sick, want)
	}
}

func TestTierOf(t *testing.T) {
	tun := config.DefaultTuning()
	tests := []struct {
		v    float64
		want Tier
	}{
		{0, TierNone},
		{25, TierNone},
		{25.01, TierLow},
		{75, TierLow},
		{75.5, TierBad},
		{100, TierBad},
		{100.01, TierCrisis},
	}
	for _, tt := range tests {
		if got := TierOf(tt.v, &tun); got != tt.want {
			t.Errorf("TierOf(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestSicknessDeathIsAbsorbing(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	k.Needs.Sick = 101

	if rule := f.brain.Update(k, 1); rule != "crisis/sickness-death" {
		t.Fatalf("rule = %q", rule)
	}
	if k.State != StateDecomposing || k.Enabled {
		t.Fatalf("state = %v enabled = %v, want decomposing and disabled", k.State, k.Enabled)
	}
	if f.sink.count(EventDeath) != 1 {
		t.Errorf("death events = %d, want 1", f.sink.count(EventDeath))
	}
	if f.sink.happiness != -f.brain.Tuning.DeathPenalty {
		t.Errorf("happiness = %v, want %v", f.sink.happiness, -f.brain.Tuning.DeathPenalty)
	}

	needs := k.Needs
	for tick := uint64(2); tick < 100; tick++ {
		f.brain.Update(k, tick)
	}
	if k.State != StateDecomposing || k.Needs != needs {
		t.Errorf("dead kitten changed: state %v needs %+v", k.State, k.Needs)
	}
	if len(f.sink.events) != 1 {
		t.Errorf("events after death = %d, want 1", len(f.sink.events))
	}
}

func TestBladderAccidentInterruptsWalk(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	f.brain.walkTo(k, world.V(400, 160))
	k.Needs.Needy = 100.5

	if rule := f.brain.Update(k, 1); rule != "crisis/bladder-accident" {
		t.Fatalf("rule = %q, want crisis/bladder-accident", rule)
	}
	if k.State != StatePeeing {
		t.Fatalf("state = %v, want peeing", k.State)
	}
	if k.StateTimer <= 0 {
		t.Errorf("timer = %v, want positive", k.StateTimer)
	}
	if f.sink.count(EventMess) != 1 {
		t.Errorf("mess events = %d, want 1", f.sink.count(EventMess))
	}
}

func TestCrisisFiresTheTickNeedPassesMax(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture, k *Kitten)
	}{
		{"sitting", func(*fixture, *Kitten) {}},
		{"walking", func(f *fixture, k *Kitten) { f.brain.walkTo(k, world.V(500, 160)) }},
		{"sleeping", func(f *fixture, k *Kitten) { f.brain.transition(k, StateSleeping) }},
		{"eating", func(f *fixture, k *Kitten) { f.brain.transition(k, StateEating) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, room)
			k := newKitten(world.V(160, 160))
			tt.setup(f, k)
			// One tick of growth carries sickness past MAX.
			k.Needs.Sick = f.brain.Tuning.NeedMax / (1 + f.brain.Tuning.SickGrowth/2)

			if rule := f.brain.Update(k, 1); rule != "crisis/sickness-death" {
				t.Fatalf("rule = %q with sick %v, want crisis/sickness-death", rule, k.Needs.Sick)
			}
			if k.State != StateDecomposing || k.Enabled {
				t.Errorf("state = %v enabled = %v, want decomposing and disabled", k.State, k.Enabled)
			}
			if f.sink.count(EventDeath) != 1 {
				t.Errorf("death events = %d, want 1", f.sink.count(EventDeath))
			}
		})
	}
}

func TestSeekEndsOnContactWithWallToy(t *testing.T) {
	f := newFixture(t, room)
	// Against the bottom wall the pill's centre is closer to the wall than
	// half a kitten, so the kitten can never stand on it.
	pill := f.place(t, toys.KindHeal, world.V(200, 72))
	k := newKitten(world.V(200, 200))
	k.Needs.Sick = 30

	f.brain.Update(k, 1)
	if k.State != StateWalking || k.Goal != pill.ID {
		t.Fatalf("state = %v goal = %v, want walking to the pill", k.State, k.Goal)
	}
	for tick := uint64(2); tick < 500 && f.sink.count(EventCured) == 0; tick++ {
		f.brain.Update(k, tick)
	}
	if f.sink.count(EventCured) != 1 || k.Needs.Sick != 0 {
		t.Fatalf("cured = %d sick = %v state = %v pos = %v, want cured",
			f.sink.count(EventCured), k.Needs.Sick, k.State, k.Pos)
	}
	if k.State == StateWalking {
		t.Errorf("still walking after cure")
	}
}

func TestSeekStopsWhenGoalLeaves(t *testing.T) {
	f := newFixture(t, room)
	bowl := f.place(t, toys.KindFeed, world.V(400, 160))
	k := newKitten(world.V(100, 160))
	k.Needs.Hungry = 30

	f.brain.Update(k, 1)
	if k.State != StateWalking {
		t.Fatalf("state = %v, want walking", k.State)
	}
	if err := f.toys.Grab(bowl.ID); err != nil {
		t.Fatalf("grab: %v", err)
	}
	f.brain.Update(k, 2)
	if k.State != StateSitting || k.Goal != uuid.Nil {
		t.Errorf("state = %v goal = %v, want sitting with no goal", k.State, k.Goal)
	}
}

func TestWalkGivesUpWithoutProgress(t *testing.T) {
	f := newFixture(t, room)
	f.brain.Tuning.StuckTicks = 30
	k := newKitten(world.V(200, 200))
	// Inside the bottom wall: the kitten reaches the wall, then can only
	// slide along it.
	f.brain.walkTo(k, world.V(200, 20))

	for tick := uint64(1); tick < 500 && k.State == StateWalking; tick++ {
		f.brain.Update(k, tick)
		if f.level.BoxSolid(k.Footprint(f.brain.Tuning.KittenSize)) {
			t.Fatalf("tick %d: kitten inside a wall at %v", tick, k.Pos)
		}
	}
	if k.State != StateSitting {
		t.Fatalf("state = %v at %v, want sitting after sliding without progress", k.State, k.Pos)
	}
}

func TestArrivalNeverSnapsIntoWall(t *testing.T) {
	f := newFixture(t, room)
	start := world.V(200, 77)
	k := newKitten(start)
	// Within arrival distance, but a footprint centred there overlaps the wall.
	f.brain.walkTo(k, world.V(200, 75.5))

	f.brain.Update(k, 1)
	if k.State != StateSitting {
		t.Fatalf("state = %v, want sitting", k.State)
	}
	if f.level.BoxSolid(k.Footprint(f.brain.Tuning.KittenSize)) {
		t.Errorf("snapped into the wall at %v", k.Pos)
	}
	if k.Pos != start {
		t.Errorf("pos = %v, want %v", k.Pos, start)
	}
}

func TestStarvationMakesSick(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	k.Needs.Hungry = 100.5

	f.brain.Update(k, 1)
	tun := f.brain.Tuning
	if k.Needs.Hungry != tun.NeedLow {
		t.Errorf("hungry = %v, want %v", k.Needs.Hungry, tun.NeedLow)
	}
	if k.Needs.Sick < tun.NeedLow {
		t.Errorf("sick = %v, want >= %v", k.Needs.Sick, tun.NeedLow)
	}
	if k.State != StateSitting {
		t.Errorf("state = %v, want sitting", k.State)
	}
	if f.sink.count(EventStarvation) != 1 {
		t.Errorf("starvation events = %d", f.sink.count(EventStarvation))
	}
}

func TestExhaustionCollapse(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	k.Needs.Tired = 100.5

	f.brain.Update(k, 1)
	if k.State != StateSleeping {
		t.Fatalf("state = %v, want sleeping", k.State)
	}
	if want := f.brain.Tuning.SleepMinSeconds; k.StateTimer != want {
		t.Errorf("timer = %v, want %v", k.StateTimer, want)
	}
	if f.sink.count(EventCollapse) != 1 {
		t.Errorf("collapse events = %d", f.sink.count(EventCollapse))
	}
}

func TestEatOnContact(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	f.place(t, toys.KindFeed, k.Pos)
	k.Needs.Hungry = 80

	f.brain.Update(k, 1)
	if k.State != StateEating {
		t.Fatalf("state = %v, want eating", k.State)
	}
	if k.Needs.Hungry >= 80 {
		t.Errorf("hungry = %v, want below 80", k.Needs.Hungry)
	}

	prev := k.Needs.Hungry
	f.brain.Update(k, 2)
	if k.Needs.Hungry >= prev {
		t.Errorf("hungry did not keep falling: %v -> %v", prev, k.Needs.Hungry)
	}
}

func TestTimerGatesTieredRules(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	f.place(t, toys.KindFeed, k.Pos)
	f.place(t, toys.KindRelieve, world.V(400, 160))
	k.Needs.Hungry = 80

	f.brain.Update(k, 1)
	if k.State != StateEating {
		t.Fatalf("state = %v, want eating", k.State)
	}
	k.Needs.Needy = 90
	f.brain.Update(k, 2)
	if k.State != StateEating {
		t.Errorf("state = %v while timer %v pending, want eating", k.State, k.StateTimer)
	}
}

func TestBladderBeatsHunger(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	f.place(t, toys.KindFeed, world.V(160, 140))
	f.place(t, toys.KindRelieve, world.V(160, 180))
	k.Needs.Hungry = 80
	k.Needs.Needy = 80

	rule := f.brain.Update(k, 1)
	if k.State != StatePeeing {
		t.Fatalf("state = %v (rule %q), want peeing", k.State, rule)
	}
}

func TestBadTierBeatsLowTier(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	f.place(t, toys.KindRelieve, k.Pos)
	feed := f.place(t, toys.KindFeed, world.V(400, 160))
	k.Needs.Needy = 30
	k.Needs.Hungry = 80

	f.brain.Update(k, 1)
	if k.State != StateWalking || k.Target != feed.Center() {
		t.Errorf("state = %v target = %v, want walking to %v", k.State, k.Target, feed.Center())
	}
}

func TestSeekNearest(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	near := f.place(t, toys.KindFeed, world.V(300, 160))
	f.place(t, toys.KindFeed, world.V(480, 160))
	k.Needs.Hungry = 30

	f.brain.Update(k, 1)
	if k.State != StateWalking {
		t.Fatalf("state = %v, want walking", k.State)
	}
	if k.Target != near.Center() {
		t.Errorf("target = %v, want %v", k.Target, near.Center())
	}
	if k.StateTimer != 0 {
		t.Errorf("timer = %v, want 0 while walking", k.StateTimer)
	}
}

func TestSeekRadiusByUrgency(t *testing.T) {
	f := newFixture(t, room)
	f.brain.Tuning.SeekRadius = 100
	k := newKitten(world.V(100, 160))
	f.place(t, toys.KindFeed, world.V(480, 160))

	k.Needs.Hungry = 30
	f.brain.Update(k, 1)
	if k.State != StateSitting {
		t.Fatalf("casual seek beyond radius: state = %v", k.State)
	}

	k.Needs.Hungry = 80
	f.brain.Update(k, 2)
	if k.State != StateWalking {
		t.Errorf("urgent seek: state = %v, want walking", k.State)
	}
}

func TestNoToyNoChange(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	k.Needs.Hungry = 80

	if rule := f.brain.Update(k, 1); rule != "" {
		t.Errorf("rule = %q, want none", rule)
	}
	if k.State != StateSitting {
		t.Errorf("state = %v, want sitting", k.State)
	}
}

func TestHeldToyIsInvisible(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	toy, _ := f.toys.Spawn(toys.KindFeed)
	f.toys.Move(toy.ID, k.Pos)
	f.bodies.Set(toy.ID, toy.Box(), collision.HitToy)
	k.Needs.Hungry = 80

	f.brain.Update(k, 1)
	if k.State != StateSitting {
		t.Errorf("state = %v, want sitting with only a held toy", k.State)
	}
}

func TestPillCuresBothKittensSameTick(t *testing.T) {
	f := newFixture(t, room)
	pill := f.place(t, toys.KindHeal, world.V(160, 160))
	a := newKitten(world.V(160, 160))
	b := newKitten(world.V(162, 160))
	for _, k := range []*Kitten{a, b} {
		k.Needs.Sick = 30
		k.Needs.Hungry = 40
		k.Needs.Tired = 20
	}

	f.brain.Update(a, 1)
	f.brain.Update(b, 1)
	for _, k := range []*Kitten{a, b} {
		if k.Needs.Sick != 0 {
			t.Errorf("sick = %v, want 0", k.Needs.Sick)
		}
		if k.Needs.Hungry > 21 {
			t.Errorf("hungry = %v, want about halved", k.Needs.Hungry)
		}
	}
	if f.sink.count(EventCured) != 2 {
		t.Errorf("cured events = %d, want 2", f.sink.count(EventCured))
	}
	if _, ok := f.toys.Get(pill.ID); !ok {
		t.Fatal("pill removed before flush")
	}
	f.flush()
	if _, ok := f.toys.Get(pill.ID); ok {
		t.Error("pill still present after flush")
	}
}

func TestTimedStateExitsWhenSatisfied(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	k.State = StatePeeing
	k.StateTimer = 0.01
	k.Needs.Needy = 0.5

	f.brain.Update(k, 1)
	if k.State != StateSitting {
		t.Errorf("state = %v, want sitting", k.State)
	}
	if k.Needs.Needy != 0 {
		t.Errorf("needy = %v, want clamped to 0", k.Needs.Needy)
	}
}

func TestTimedStateHoldsMinimumDuration(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	f.brain.transition(k, StatePeeing)
	k.Needs.Needy = 0

	f.brain.Update(k, 1)
	if k.State != StatePeeing {
		t.Errorf("state = %v before timer expired, want peeing", k.State)
	}
}

func TestNeedsNeverNegative(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	f.place(t, toys.KindPlay, k.Pos)
	k.Needs.Bored = 80
	for tick := uint64(1); tick < 2000; tick++ {
		f.brain.Update(k, tick)
		n := k.Needs
		if n.Sick < 0 || n.Tired < 0 || n.Bored < 0 || n.Hungry < 0 || n.Needy < 0 {
			t.Fatalf("tick %d: negative need %+v", tick, n)
		}
	}
}

func TestWalkArrives(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(100, 160))
	target := world.V(200, 160)
	f.brain.walkTo(k, target)

	for tick := uint64(1); tick < 200 && k.State == StateWalking; tick++ {
		f.brain.Update(k, tick)
		if f.level.BoxSolid(k.Footprint(f.brain.Tuning.KittenSize)) {
			t.Fatalf("tick %d: kitten inside a wall at %v", tick, k.Pos)
		}
	}
	if k.State != StateSitting {
		t.Fatalf("state = %v, want sitting after arrival", k.State)
	}
	if d := k.Pos.Dist(target); d > f.brain.Tuning.ArriveDistance {
		t.Errorf("stopped %v from target", d)
	}
}

const pocket = `
###
#.#
###
`

func TestWalkGivesUpWhenStuck(t *testing.T) {
	f := newFixture(t, pocket)
	f.brain.Tuning.KittenSize = world.TileSize
	f.brain.Tuning.StuckTicks = 3
	k := newKitten(world.V(96, 96))
	f.brain.walkTo(k, world.V(300, 96))

	for tick := uint64(1); tick <= 2; tick++ {
		f.brain.Update(k, tick)
		if k.State != StateWalking {
			t.Fatalf("tick %d: state = %v, want still walking", tick, k.State)
		}
	}
	f.brain.Update(k, 3)
	if k.State != StateSitting {
		t.Errorf("state = %v, want sitting after stuck limit", k.State)
	}
	if k.Pos != world.V(96, 96) {
		t.Errorf("pos = %v, want unchanged", k.Pos)
	}
}

func TestContentKittenRaisesHappiness(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	f.brain.Update(k, 1)
	if f.sink.happiness != f.brain.Tuning.ContentGain {
		t.Errorf("happiness = %v, want %v", f.sink.happiness, f.brain.Tuning.ContentGain)
	}
}

type presenter struct{ frames int }

func (p *presenter) Present(*Kitten) { p.frames++ }

func TestAnimationOnlyWithPresenter(t *testing.T) {
	f := newFixture(t, room)
	k := newKitten(world.V(160, 160))
	k.Needs.Hungry = 80
	f.brain.Update(k, 1)
	if k.Anim.Name != "" {
		t.Errorf("animated without presenter: %+v", k.Anim)
	}

	p := &presenter{}
	f.brain.Presenter = p
	f.brain.Update(k, 2)
	if p.frames != 1 || k.Anim.Name != "sit" || k.Anim.Bubble != BubbleFood {
		t.Errorf("frames = %d anim = %+v", p.frames, k.Anim)
	}
}

func TestSpawnerDeterministic(t *testing.T) {
	m, _ := world.ParseLevel(room)
	tun := config.DefaultTuning()
	a := NewSpawner(entropy.New(7), tun).Spawn(m, world.V(160, 160), 0)
	b := NewSpawner(entropy.New(7), tun).Spawn(m, world.V(160, 160), 0)
	if a.ID != b.ID || a.Name != b.Name || a.Needs != b.Needs {
		t.Errorf("spawns differ: %+v vs %+v", a, b)
	}
	if a.Needs.Sick != 0 {
		t.Errorf("sick = %v, want 0", a.Needs.Sick)
	}
	if a.Needs.Hungry <= 0 || a.Needs.Hungry > tun.NeedLow {
		t.Errorf("hungry = %v, want small positive baseline", a.Needs.Hungry)
	}
	if !a.Enabled || a.State != StateSitting {
		t.Errorf("new kitten enabled=%v state=%v", a.Enabled, a.State)
	}
}

func TestSpawnerAvoidsWalls(t *testing.T) {
	m, _ := world.ParseLevel(room)
	tun := config.DefaultTuning()
	s := NewSpawner(entropy.New(3), tun)
	k := s.Spawn(m, world.V(70, 70), 0)
	if m.BoxSolid(k.Footprint(tun.KittenSize)) {
		t.Errorf("spawned inside a wall at %v", k.Pos)
	}
}

func TestSpawnerNamesAreUnique(t *testing.T) {
	m, _ := world.ParseLevel(room)
	s := NewSpawner(entropy.New(11), config.DefaultTuning())
	seen := map[string]bool{}
	for i := 0; i < 60; i++ {
		k := s.Spawn(m, world.V(160, 160), 0)
		if seen[k.Name] {
			t.Fatalf("duplicate name %q", k.Name)
		}
		seen[k.Name] = true
	}
}
