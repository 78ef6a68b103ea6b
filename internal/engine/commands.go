package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/agents"
	"github.com/talgya/kitten-world/internal/collision"
	"github.com/talgya/kitten-world/internal/toys"
	"github.com/talgya/kitten-world/internal/world"
)

// ErrInsufficientFunds is returned when a first placement costs more than
// the player has.
var ErrInsufficientFunds = errors.New("insufficient funds")

// command is a placement or population change applied between ticks.
type command struct {
	name  string
	apply func(s *Simulation) (any, error)
	done  chan result
}

type result struct {
	value any
	err   error
}

type commandQueue struct {
	mu      sync.Mutex
	pending []*command
}

func (q *commandQueue) push(c *command) {
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()
}

// remove withdraws a command that has not been taken yet. It reports false
// once a drain owns the command.
func (q *commandQueue) remove(c *command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, p := range q.pending {
		if p == c {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (q *commandQueue) take() []*command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// drainLocked applies queued commands in arrival order.
func (s *Simulation) drainLocked() {
	for _, c := range s.queue.take() {
		v, err := c.apply(s)
		if err != nil {
			slog.Debug("command refused", "command", c.name, "error", err)
		}
		c.done <- result{value: v, err: err}
	}
}

// submit queues a command and waits for the next tick (or idle drain) to
// apply it. A command withdrawn because ctx ended is never applied; one
// already taken by a drain is waited for, so the caller always learns
// whether the game changed.
func (s *Simulation) submit(ctx context.Context, name string, apply func(s *Simulation) (any, error)) (any, error) {
	c := &command{name: name, apply: apply, done: make(chan result, 1)}
	s.queue.push(c)
	select {
	case r := <-c.done:
		return r.value, r.err
	case <-ctx.Done():
		if s.queue.remove(c) {
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		r := <-c.done
		return r.value, r.err
	}
}

// SpawnToy buys nothing yet: it creates a held toy of kind centred on pos.
// The toy is invisible to kittens until dropped.
func (s *Simulation) SpawnToy(ctx context.Context, kind toys.Kind, pos world.Vec2) (toys.Toy, error) {
	return toyResult(s.submit(ctx, "spawn toy", func(s *Simulation) (any, error) {
		t, err := s.Toys.Spawn(kind)
		if err != nil {
			return nil, err
		}
		if err := s.Toys.Move(t.ID, pos); err != nil {
			return nil, err
		}
		s.toyChanged(t.ID, "spawned")
		return *t, nil
	}))
}

// GrabToy starts dragging a placed toy. Kittens stop seeing it until it is
// dropped or the drag is cancelled.
func (s *Simulation) GrabToy(ctx context.Context, id uuid.UUID) (toys.Toy, error) {
	return toyResult(s.submit(ctx, "grab toy", func(s *Simulation) (any, error) {
		if err := s.Toys.Grab(id); err != nil {
			return nil, err
		}
		s.syncToysLocked()
		return s.toyCopy(id)
	}))
}

// MoveToy drags a held toy so it is centred on pos.
func (s *Simulation) MoveToy(ctx context.Context, id uuid.UUID, pos world.Vec2) (toys.Toy, error) {
	return toyResult(s.submit(ctx, "move toy", func(s *Simulation) (any, error) {
		if err := s.Toys.Move(id, pos); err != nil {
			return nil, err
		}
		return s.toyCopy(id)
	}))
}

// DropToy places a held toy, charging its cost on first placement.
func (s *Simulation) DropToy(ctx context.Context, id uuid.UUID) (toys.Toy, error) {
	return toyResult(s.submit(ctx, "drop toy", func(s *Simulation) (any, error) {
		return s.dropLocked(id)
	}))
}

// CancelToy aborts a drag. A toy that was never placed is destroyed.
func (s *Simulation) CancelToy(ctx context.Context, id uuid.UUID) (bool, error) {
	v, err := s.submit(ctx, "cancel toy", func(s *Simulation) (any, error) {
		destroyed, err := s.Toys.Cancel(id)
		if err != nil {
			return false, err
		}
		if destroyed {
			s.toyChanged(id, "cancelled")
		}
		s.syncToysLocked()
		return destroyed, nil
	})
	destroyed, _ := v.(bool)
	return destroyed, err
}

// RemoveToy deletes a placed toy without refund.
func (s *Simulation) RemoveToy(ctx context.Context, id uuid.UUID) error {
	_, err := s.submit(ctx, "remove toy", func(s *Simulation) (any, error) {
		if err := s.Toys.Remove(id); err != nil {
			return nil, err
		}
		s.Bodies.Remove(id)
		s.toyChanged(id, "removed")
		return nil, nil
	})
	return err
}

// BuyToy spawns, positions and drops a toy in one step. A refused drop
// destroys the new toy and charges nothing.
func (s *Simulation) BuyToy(ctx context.Context, kind toys.Kind, pos world.Vec2) (toys.Toy, error) {
	return toyResult(s.submit(ctx, "buy toy", func(s *Simulation) (any, error) {
		t, err := s.Toys.Spawn(kind)
		if err != nil {
			return nil, err
		}
		if err := s.Toys.Move(t.ID, pos); err != nil {
			return nil, err
		}
		placed, err := s.dropLocked(t.ID)
		if err != nil {
			s.Toys.Cancel(t.ID)
			return nil, err
		}
		return placed, nil
	}))
}

// AddKitten spawns one kitten near pos.
func (s *Simulation) AddKitten(ctx context.Context, pos world.Vec2) (agents.Kitten, error) {
	v, err := s.submit(ctx, "add kitten", func(s *Simulation) (any, error) {
		return *s.spawnKittenLocked(pos), nil
	})
	k, _ := v.(agents.Kitten)
	return k, err
}

func (s *Simulation) dropLocked(id uuid.UUID) (toys.Toy, error) {
	t, ok := s.Toys.Get(id)
	if !ok {
		return toys.Toy{}, toys.ErrUnknownToy
	}
	if !t.Paid && t.Cost > s.State.Money {
		return toys.Toy{}, fmt.Errorf("%s costs %d, have %d: %w", t.Name, t.Cost, s.State.Money, ErrInsufficientFunds)
	}
	charged, err := s.Toys.Drop(id)
	if err != nil {
		return toys.Toy{}, err
	}
	s.State.Money -= charged
	s.State.Spent += charged
	s.Bodies.Set(t.ID, t.Box(), collision.HitToy)
	s.toyChanged(id, "placed")
	slog.Info("toy placed", "toy", t.Name, "pos", t.Pos.String(), "charged", charged, "money", s.State.Money)
	return *t, nil
}

func (s *Simulation) toyCopy(id uuid.UUID) (toys.Toy, error) {
	t, ok := s.Toys.Get(id)
	if !ok {
		return toys.Toy{}, toys.ErrUnknownToy
	}
	return *t, nil
}

func (s *Simulation) toyChanged(id uuid.UUID, action string) {
	s.stream.publish(Message{Type: MessageToy, Toy: &ToyChange{ID: id, Action: action}})
}

func toyResult(v any, err error) (toys.Toy, error) {
	t, _ := v.(toys.Toy)
	return t, err
}
