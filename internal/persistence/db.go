// Package persistence provides SQLite-based game state storage and
// compressed snapshot files.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/kitten-world/internal/agents"
	"github.com/talgya/kitten-world/internal/engine"
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

// Meta keys.
const (
	MetaLastTick = "last_tick"
	MetaSeed     = "seed"
	MetaState    = "game_state"
	MetaLevel    = "level"
)

// DB wraps a SQLite connection for game state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kittens (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		enabled INTEGER NOT NULL,
		state INTEGER NOT NULL,
		state_timer REAL NOT NULL,
		target_x REAL NOT NULL,
		target_y REAL NOT NULL,
		goal TEXT NOT NULL,
		closest REAL NOT NULL,
		bias INTEGER NOT NULL,
		stuck INTEGER NOT NULL,
		born_tick INTEGER NOT NULL,
		needs_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS toys (
		id TEXT PRIMARY KEY,
		kind INTEGER NOT NULL,
		name TEXT NOT NULL,
		w INTEGER NOT NULL,
		h INTEGER NOT NULL,
		cost INTEGER NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		state INTEGER NOT NULL,
		paid INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		kitten TEXT NOT NULL,
		name TEXT NOT NULL,
		kind INTEGER NOT NULL,
		happiness REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS game_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_kitten ON events(kitten);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type kittenRow struct {
	ID         uuid.UUID `db:"id"`
	Name       string    `db:"name"`
	PosX       float64   `db:"pos_x"`
	PosY       float64   `db:"pos_y"`
	Enabled    bool      `db:"enabled"`
	State      int       `db:"state"`
	StateTimer float64   `db:"state_timer"`
	TargetX    float64   `db:"target_x"`
	TargetY    float64   `db:"target_y"`
	Goal       uuid.UUID `db:"goal"`
	Closest    float64   `db:"closest"`
	Bias       int       `db:"bias"`
	Stuck      int       `db:"stuck"`
	BornTick   int64     `db:"born_tick"`
	NeedsJSON  string    `db:"needs_json"`
}

// SaveKittens writes all kittens to the database (full replace).
func (db *DB) SaveKittens(kittens []agents.Kitten) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM kittens"); err != nil {
		return err
	}

	stmt, err := tx.PrepareNamed(`INSERT INTO kittens
		(id, name, pos_x, pos_y, enabled, state, state_timer,
		 target_x, target_y, goal, closest, bias, stuck, born_tick, needs_json)
		VALUES (:id, :name, :pos_x, :pos_y, :enabled, :state, :state_timer,
		 :target_x, :target_y, :goal, :closest, :bias, :stuck, :born_tick, :needs_json)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, k := range kittens {
		needsJSON, _ := json.Marshal(k.Needs)
		row := kittenRow{
			ID:         k.ID,
			Name:       k.Name,
			PosX:       k.Pos.X,
			PosY:       k.Pos.Y,
			Enabled:    k.Enabled,
			State:      int(k.State),
			StateTimer: k.StateTimer,
			TargetX:    k.Target.X,
			TargetY:    k.Target.Y,
			Goal:       k.Goal,
			Closest:    k.Closest,
			Bias:       int(k.Bias),
			Stuck:      k.Stuck,
			BornTick:   int64(k.BornTick),
			NeedsJSON:  string(needsJSON),
		}
		if _, err := stmt.Exec(row); err != nil {
			return fmt.Errorf("insert kitten %s: %w", k.ID, err)
		}
	}

	return tx.Commit()
}

// LoadKittens reads every kitten, ordered by birth.
func (db *DB) LoadKittens() ([]*agents.Kitten, error) {
	var rows []kittenRow
	if err := db.conn.Select(&rows, "SELECT * FROM kittens ORDER BY born_tick, id"); err != nil {
		return nil, fmt.Errorf("select kittens: %w", err)
	}

	out := make([]*agents.Kitten, 0, len(rows))
	for _, r := range rows {
		k := &agents.Kitten{
			ID:         r.ID,
			Name:       r.Name,
			Pos:        world.V(r.PosX, r.PosY),
			Enabled:    r.Enabled,
			State:      agents.State(r.State),
			StateTimer: r.StateTimer,
			Target:     world.V(r.TargetX, r.TargetY),
			Goal:       r.Goal,
			Closest:    r.Closest,
			Bias:       agents.Bias(r.Bias),
			Stuck:      r.Stuck,
			BornTick:   uint64(r.BornTick),
		}
		if err := json.Unmarshal([]byte(r.NeedsJSON), &k.Needs); err != nil {
			return nil, fmt.Errorf("kitten %s needs: %w", r.ID, err)
		}
		out = append(out, k)
	}
	return out, nil
}

type toyRow struct {
	ID    uuid.UUID `db:"id"`
	Kind  int       `db:"kind"`
	Name  string    `db:"name"`
	W     int       `db:"w"`
	H     int       `db:"h"`
	Cost  int       `db:"cost"`
	PosX  float64   `db:"pos_x"`
	PosY  float64   `db:"pos_y"`
	State int       `db:"state"`
	Paid  bool      `db:"paid"`
}

// SaveToys writes all toys to the database (full replace).
func (db *DB) SaveToys(ts []toys.Toy) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM toys"); err != nil {
		return err
	}

	for _, t := range ts {
		_, err := tx.NamedExec(`INSERT INTO toys
			(id, kind, name, w, h, cost, pos_x, pos_y, state, paid)
			VALUES (:id, :kind, :name, :w, :h, :cost, :pos_x, :pos_y, :state, :paid)`,
			toyRow{
				ID: t.ID, Kind: int(t.Kind), Name: t.Name, W: t.W, H: t.H, Cost: t.Cost,
				PosX: t.Pos.X, PosY: t.Pos.Y, State: int(t.State), Paid: t.Paid,
			},
		)
		if err != nil {
			return fmt.Errorf("insert toy %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// LoadToys reads every toy.
func (db *DB) LoadToys() ([]*toys.Toy, error) {
	var rows []toyRow
	if err := db.conn.Select(&rows, "SELECT * FROM toys ORDER BY id"); err != nil {
		return nil, fmt.Errorf("select toys: %w", err)
	}
	out := make([]*toys.Toy, 0, len(rows))
	for _, r := range rows {
		out = append(out, &toys.Toy{
			ID:    r.ID,
			Kind:  toys.Kind(r.Kind),
			Name:  r.Name,
			W:     r.W,
			H:     r.H,
			Cost:  r.Cost,
			Pos:   world.V(r.PosX, r.PosY),
			State: toys.State(r.State),
			Paid:  r.Paid,
		})
	}
	return out, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []agents.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, kitten, name, kind, happiness) VALUES (?, ?, ?, ?, ?)",
			int64(e.Tick), e.Kitten, e.Name, int(e.Kind), e.Happiness,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]agents.Event, error) {
	var events []agents.Event
	err := db.conn.Select(&events,
		"SELECT tick, kitten, name, kind, happiness FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in game metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO game_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM game_meta WHERE key = ?", key)
	return value, err
}

// HasState reports whether a game has been saved.
func (db *DB) HasState() (bool, error) {
	_, err := db.GetMeta(MetaLastTick)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// SaveState performs a full save of the game between ticks.
func (db *DB) SaveState(sim *engine.Simulation) error {
	snap := sim.Snapshot()
	slog.Info("saving game state", "kittens", len(snap.Kittens), "toys", len(snap.Toys), "tick", snap.Tick)

	if err := db.SaveKittens(snap.Kittens); err != nil {
		return fmt.Errorf("save kittens: %w", err)
	}
	if err := db.SaveToys(snap.Toys); err != nil {
		return fmt.Errorf("save toys: %w", err)
	}
	if err := db.SaveEvents(sim.TakeUnsaved()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	state, _ := json.Marshal(snap.State)
	level, _ := json.Marshal(snap.Level)
	meta := map[string]string{
		MetaLastTick: strconv.FormatUint(snap.Tick, 10),
		MetaSeed:     strconv.FormatInt(snap.Seed, 10),
		MetaState:    string(state),
		MetaLevel:    string(level),
	}
	for k, v := range meta {
		if err := db.SaveMeta(k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	slog.Info("game state saved")
	return nil
}

// Saved is the game as last written by SaveState.
type Saved struct {
	Tick    uint64
	Seed    int64
	State   engine.GameState
	Level   *world.TileMap
	Kittens []*agents.Kitten
	Toys    []*toys.Toy
}

// LoadState reads back everything SaveState wrote.
func (db *DB) LoadState() (*Saved, error) {
	var s Saved

	raw, err := db.GetMeta(MetaLastTick)
	if err != nil {
		return nil, fmt.Errorf("load last tick: %w", err)
	}
	if s.Tick, err = strconv.ParseUint(raw, 10, 64); err != nil {
		return nil, fmt.Errorf("parse last tick: %w", err)
	}
	if raw, err = db.GetMeta(MetaSeed); err == nil {
		s.Seed, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw, err = db.GetMeta(MetaState); err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &s.State); err != nil {
		return nil, fmt.Errorf("parse game state: %w", err)
	}
	if raw, err = db.GetMeta(MetaLevel); err == nil {
		s.Level = &world.TileMap{}
		if err := json.Unmarshal([]byte(raw), s.Level); err != nil {
			return nil, fmt.Errorf("parse level: %w", err)
		}
	}

	if s.Kittens, err = db.LoadKittens(); err != nil {
		return nil, err
	}
	if s.Toys, err = db.LoadToys(); err != nil {
		return nil, err
	}
	return &s, nil
}
