package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/agents"
	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/engine"
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "kittens.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSim(t *testing.T) *engine.Simulation {
	t.Helper()
	m := world.Generate(world.SmallTestConfig())
	tun := config.DefaultTuning()
	tun.SickOnsetChance = 0
	sim := engine.NewSimulation(tun, m, 5)
	sim.SpawnKittens(2)
	for tick := uint64(1); tick <= 10; tick++ {
		sim.Tick(tick)
	}
	return sim
}

func TestSaveAndLoadState(t *testing.T) {
	db := openTestDB(t)
	if ok, err := db.HasState(); err != nil || ok {
		t.Fatalf("HasState on empty db = %v, %v", ok, err)
	}

	sim := testSim(t)
	sim.Kittens[0].Needs.Hungry = 42
	sim.Kittens[1].State = agents.StateSleeping
	sim.Kittens[0].State = agents.StateWalking
	sim.Kittens[0].Goal = uuid.New()
	sim.Kittens[0].Closest = 17.5
	sim.Kittens[0].Stuck = 3
	if err := db.SaveState(sim); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ok, err := db.HasState(); err != nil || !ok {
		t.Fatalf("HasState after save = %v, %v", ok, err)
	}

	saved, err := db.LoadState()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if saved.Tick != 10 || saved.Seed != 5 {
		t.Errorf("tick = %d seed = %d, want 10 and 5", saved.Tick, saved.Seed)
	}
	if saved.State != sim.State {
		t.Errorf("state = %+v, want %+v", saved.State, sim.State)
	}
	if saved.Level == nil || saved.Level.String() != sim.Level.String() {
		t.Error("level not restored")
	}
	if len(saved.Kittens) != 2 {
		t.Fatalf("kittens = %d, want 2", len(saved.Kittens))
	}
	byID := map[uuid.UUID]*agents.Kitten{}
	for _, k := range saved.Kittens {
		byID[k.ID] = k
	}
	for _, want := range sim.Kittens {
		got, ok := byID[want.ID]
		if !ok {
			t.Fatalf("kitten %s missing", want.ID)
		}
		if got.Name != want.Name || got.Needs != want.Needs || got.State != want.State || got.Pos != want.Pos ||
			got.Goal != want.Goal || got.Closest != want.Closest || got.Stuck != want.Stuck {
			t.Errorf("kitten %s = %+v, want %+v", want.ID, got, want)
		}
	}

	events, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 2 || events[0].Kind != agents.EventBorn {
		t.Errorf("events = %+v, want two births", events)
	}
}

func TestSaveToysReplaces(t *testing.T) {
	db := openTestDB(t)
	toy := toys.Toy{
		ID: uuid.New(), Kind: toys.KindHeal, Name: "pill", W: 1, H: 1, Cost: 30,
		Pos: world.V(128, 96), State: toys.StatePlaced, Paid: true,
	}
	if err := db.SaveToys([]toys.Toy{toy}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.SaveToys([]toys.Toy{toy}); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, err := db.LoadToys()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || *got[0] != toy {
		t.Errorf("toys = %+v, want %+v", got, toy)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	sim := testSim(t)
	want := sim.Snapshot()
	path := filepath.Join(t.TempDir(), "snaps", "game.zst")
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, snap, cmpopts.IgnoreUnexported(toys.Toy{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	restored := engine.FromSnapshot(snap)
	if restored.Kittens[0].ID != sim.Kittens[0].ID {
		t.Error("kitten order not preserved")
	}
}

func TestSnapshotVersionMismatch(t *testing.T) {
	sim := testSim(t)
	snap := sim.Snapshot()
	snap.Version = engine.SnapshotVersion + 1
	path := filepath.Join(t.TempDir(), "game.zst")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); !errors.Is(err, ErrSnapshotVersion) {
		t.Errorf("err = %v, want ErrSnapshotVersion", err)
	}
}
