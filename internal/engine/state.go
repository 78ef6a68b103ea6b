package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/kitten-world/internal/agents"
	"github.com/talgya/kitten-world/internal/config"
)

// Happiness is kept within [0, MaxHappiness].
const MaxHappiness = 100

// GameState is the player-facing score, updated only from kitten reports and
// toy purchases.
type GameState struct {
	Happiness float64 `json:"happiness"`
	Money     int     `json:"money"`
	Spent     int     `json:"spent"`
	Born      int     `json:"born"`
	Deaths    int     `json:"deaths"`
	Messes    int     `json:"messes"`
	Illnesses int     `json:"illnesses"`
	Cures     int     `json:"cures"`
}

// NewGameState returns the starting score.
func NewGameState(t config.Tuning) GameState {
	return GameState{
		Happiness: t.StartingHappiness,
		Money:     t.StartingMoney,
	}
}

// ReportHappiness implements agents.Sink. Called with the simulation lock held.
func (s *Simulation) ReportHappiness(delta float64) {
	h := s.State.Happiness + delta
	s.State.Happiness = min(max(h, 0), MaxHappiness)
}

// ReportEvent implements agents.Sink. Called with the simulation lock held.
func (s *Simulation) ReportEvent(e agents.Event) {
	switch e.Kind {
	case agents.EventBorn:
		s.State.Born++
	case agents.EventDeath:
		s.State.Deaths++
	case agents.EventMess:
		s.State.Messes++
	case agents.EventIllness, agents.EventStarvation:
		s.State.Illnesses++
	case agents.EventCured:
		s.State.Cures++
	}

	s.Events = append(s.Events, e)
	if limit := s.Tuning.EventLogSize; limit > 0 && len(s.Events) > limit {
		s.Events = s.Events[len(s.Events)-limit:]
	}
	s.unsaved = append(s.unsaved, e)

	level := slog.LevelDebug
	switch e.Kind {
	case agents.EventDeath, agents.EventMess, agents.EventStarvation, agents.EventBorn:
		level = slog.LevelInfo
	}
	slog.Log(context.Background(), level, "kitten event", "kind", e.Kind.String(), "kitten", e.Name, "tick", e.Tick)

	s.stream.publish(Message{Type: MessageEvent, Event: &e})
}

// Present implements agents.Presenter: bubble changes are streamed.
func (s *Simulation) Present(k *agents.Kitten) {
	if s.bubbles[k.ID] == k.Anim.Bubble {
		return
	}
	s.bubbles[k.ID] = k.Anim.Bubble
	s.stream.publish(Message{
		Type:   MessageBubble,
		Kitten: k.ID,
		Bubble: k.Anim.Bubble.String(),
		Anim:   k.Anim.Name,
	})
}

// MessageType tags stream messages.
type MessageType string

const (
	MessageEvent  MessageType = "event"
	MessageBubble MessageType = "bubble"
	MessageToy    MessageType = "toy"
)

// Message is one entry of the live stream.
type Message struct {
	Type   MessageType   `json:"type"`
	Event  *agents.Event `json:"event,omitempty"`
	Kitten uuid.UUID     `json:"kitten,omitempty"`
	Bubble string        `json:"bubble,omitempty"`
	Anim   string        `json:"anim,omitempty"`
	Toy    *ToyChange    `json:"toy,omitempty"`
}

// ToyChange describes a placement change made between ticks.
type ToyChange struct {
	ID     uuid.UUID `json:"id"`
	Action string    `json:"action"` // "spawned", "placed", "moved", "cancelled", "removed"
}

// broadcaster fans stream messages out to subscribers. Slow subscribers
// miss messages rather than stall the tick.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan Message]struct{}
}

// Subscribe registers a stream listener. The returned function unsubscribes
// and closes the channel.
func (s *Simulation) Subscribe(buffer int) (<-chan Message, func()) {
	return s.stream.subscribe(buffer)
}

func (b *broadcaster) subscribe(buffer int) (<-chan Message, func()) {
	ch := make(chan Message, buffer)
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[chan Message]struct{})
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *broadcaster) publish(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- m:
		default:
		}
	}
}
