// Command kittensim runs the kitten world simulation with its HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/kitten-world/internal/api"
	"github.com/talgya/kitten-world/internal/config"
	"github.com/talgya/kitten-world/internal/engine"
	"github.com/talgya/kitten-world/internal/entropy"
	"github.com/talgya/kitten-world/internal/persistence"
	"github.com/talgya/kitten-world/internal/world"
)

func main() {
	settings, err := config.SettingsFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kittensim: %v\n", err)
		os.Exit(2)
	}

	opts := &slog.HandlerOptions{Level: settings.LogLevel}
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("kitten world starting")

	// ── Tuning ────────────────────────────────────────────────────────
	tuning := config.DefaultTuning()
	if settings.TuningPath != "" {
		tuning, err = config.LoadTuning(settings.TuningPath)
		if err != nil {
			slog.Error("failed to load tuning", "path", settings.TuningPath, "error", err)
			os.Exit(1)
		}
		slog.Info("tuning loaded", "path", settings.TuningPath)
	}

	seed := settings.Seed
	if seed == 0 {
		seed = entropy.CryptoSeed()
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(settings.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create data dir", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	db, err := persistence.Open(settings.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", settings.DBPath)

	// ── Load or Generate ──────────────────────────────────────────────
	hasState, err := db.HasState()
	if err != nil {
		slog.Error("failed to check saved state", "error", err)
		os.Exit(1)
	}

	var sim *engine.Simulation
	var startTick uint64
	if hasState {
		slog.Info("found saved game, loading...")
		saved, err := db.LoadState()
		if err != nil {
			slog.Error("failed to load saved game", "error", err)
			os.Exit(1)
		}
		level := saved.Level
		if level == nil {
			if level, err = loadLevel(settings.LevelPath, seed); err != nil {
				slog.Error("failed to build level", "error", err)
				os.Exit(1)
			}
		}
		if saved.Seed != 0 {
			seed = saved.Seed
		}
		sim = engine.NewSimulation(tuning, level, seed)
		sim.Restore(saved.Kittens, saved.Toys, saved.State, saved.Tick)
		startTick = saved.Tick
		slog.Info("game restored",
			"kittens", len(saved.Kittens),
			"toys", len(saved.Toys),
			"tick", startTick,
			"sim_time", engine.SimTime(startTick),
		)
	} else {
		slog.Info("no saved game found, starting fresh", "seed", seed)
		level, err := loadLevel(settings.LevelPath, seed)
		if err != nil {
			slog.Error("failed to build level", "error", err)
			os.Exit(1)
		}
		sim = engine.NewSimulation(tuning, level, seed)
		sim.SpawnKittens(tuning.StartingKittens)
		if err := db.SaveState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	status := sim.Status()
	slog.Info("world ready",
		"kittens", status.Kittens,
		"toys", status.Toys,
		"solid_tiles", sim.Level.SolidCount(),
	)

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(tuning.TicksPerSecond)
	eng.SetTick(startTick)

	autosave := int64(settings.AutosaveEvery / time.Second)
	var seconds int64
	eng.OnTick = sim.Tick
	eng.OnIdle = sim.Drain
	eng.OnMinute = sim.Report
	eng.OnSecond = func(tick uint64) {
		seconds++
		if autosave <= 0 || seconds%autosave != 0 {
			return
		}
		if err := db.SaveState(sim); err != nil {
			slog.Error("autosave failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if settings.AdminKey == "" {
		slog.Warn("KITTEN_ADMIN_KEY not set, admin endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:         sim,
		Eng:         eng,
		DB:          db,
		Port:        settings.Port,
		AdminKey:    settings.AdminKey,
		SnapshotDir: settings.SnapshotDir,
	}
	if err := apiServer.Start(); err != nil {
		slog.Error("failed to start API", "error", err)
		os.Exit(1)
	}

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nKitten world is alive: %d kittens, %s coins, happiness %s.\n",
		status.Kittens, humanize.Comma(int64(status.Game.Money)), humanize.FtoaWithDigits(status.Game.Happiness, 1))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", settings.Port)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %s (%s)\n", humanize.Comma(int64(startTick)), engine.SimTime(startTick))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)
	slog.Info("simulation stopped", "tick", eng.Tick())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("API shutdown failed", "error", err)
	}

	slog.Info("final save...")
	if err := db.SaveState(sim); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Simulation stopped. Game saved.")
}

// loadLevel reads an ASCII level file, or generates a room from seed when
// no path is configured.
func loadLevel(path string, seed int64) (*world.TileMap, error) {
	if path == "" {
		cfg := world.DefaultGenConfig()
		cfg.Seed = seed
		return world.Generate(cfg), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level %s: %w", path, err)
	}
	level, err := world.ParseLevel(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse level %s: %w", path, err)
	}
	return level, nil
}
