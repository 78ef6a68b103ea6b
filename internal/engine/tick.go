// Package engine provides the fixed-rate tick loop and the simulation it drives.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Default tick schedule.
const (
	TicksPerSecond = 60
	TicksPerMinute = 60 * TicksPerSecond
)

// Engine drives the simulation forward at a fixed tick rate.
type Engine struct {
	tick atomic.Uint64 // Current tick counter (monotonic, never resets)

	mu       sync.Mutex
	speed    float64 // Multiplier: 1.0 = real-time, 0 = paused
	perSec   uint64
	interval time.Duration
	stop     chan struct{}

	// Callbacks for each tick layer, populated during setup. All run on the
	// engine goroutine.
	OnTick   func(tick uint64) // Every tick
	OnSecond func(tick uint64) // Every TicksPerSecond ticks
	OnMinute func(tick uint64) // Every 60 seconds of sim time
	OnIdle   func()            // While paused, about ten times a second
}

// NewEngine creates an engine ticking ticksPerSecond times per real second.
func NewEngine(ticksPerSecond int) *Engine {
	if ticksPerSecond <= 0 {
		ticksPerSecond = TicksPerSecond
	}
	return &Engine{
		speed:    1.0,
		perSec:   uint64(ticksPerSecond),
		interval: time.Second / time.Duration(ticksPerSecond),
		stop:     make(chan struct{}),
	}
}

// Tick returns the last completed tick.
func (e *Engine) Tick() uint64 {
	return e.tick.Load()
}

// SetTick restores the tick counter (used when loading from DB).
func (e *Engine) SetTick(t uint64) {
	e.tick.Store(t)
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero pauses; negative values are
// treated as zero.
func (e *Engine) SetSpeed(s float64) {
	if s < 0 {
		s = 0
	}
	e.mu.Lock()
	e.speed = s
	e.mu.Unlock()
	slog.Info("engine speed changed", "speed", s)
}

// Run starts the simulation loop. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed(), "hz", e.perSec)

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "tick", e.Tick(), "reason", ctx.Err())
			return
		case <-e.stop:
			slog.Info("simulation engine stopped", "tick", e.Tick())
			return
		default:
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused: let queued work through and check again.
			if e.OnIdle != nil {
				e.OnIdle()
			}
			sleep(ctx, 100*time.Millisecond)
			continue
		}

		start := time.Now()
		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.interval) / speed)
		if elapsed < target {
			sleep(ctx, target-elapsed)
		}
	}
}

// Stop halts the simulation loop. It is safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	tick := e.tick.Add(1)

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if tick%e.perSec == 0 && e.OnSecond != nil {
		e.OnSecond(tick)
	}
	if tick%(60*e.perSec) == 0 && e.OnMinute != nil {
		e.OnMinute(tick)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// SimTime returns a human-readable simulation clock from a tick number at
// the default tick rate.
func SimTime(tick uint64) string {
	secs := tick / TicksPerSecond
	return fmt.Sprintf("%d:%02d:%02d.%02d", secs/3600, secs/60%60, secs%60, tick%TicksPerSecond)
}
