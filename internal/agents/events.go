package agents

import "github.com/google/uuid"

// EventKind enumerates what a kitten reports to the surrounding game.
type EventKind uint8

const (
	EventDeath      EventKind = iota // Sickness past MAX
	EventMess                        // Bladder accident
	EventStarvation                  // Hunger past MAX made the kitten sick
	EventCollapse                    // Fell asleep from exhaustion
	EventBoredom                     // Fell asleep from boredom
	EventIllness                     // Spontaneous illness onset
	EventCured                       // Took a pill
	EventBorn                        // Spawned
)

var eventNames = [...]string{"death", "mess", "starvation", "collapse", "boredom", "illness", "cured", "born"}

func (e EventKind) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "unknown"
}

// Event is a one-shot side effect of a kitten's tick.
type Event struct {
	Tick      uint64    `json:"tick" db:"tick"`
	Kitten    uuid.UUID `json:"kitten" db:"kitten"`
	Name      string    `json:"name" db:"name"`
	Kind      EventKind `json:"kind" db:"kind"`
	Happiness float64   `json:"happiness" db:"happiness"` // Delta reported alongside the event
}

// Sink consumes the simulation's outbound reports. The core never updates
// score, money or counters itself.
type Sink interface {
	ReportHappiness(delta float64)
	ReportEvent(e Event)
}

// NopSink discards all reports.
type NopSink struct{}

func (NopSink) ReportHappiness(float64) {}
func (NopSink) ReportEvent(Event)       {}
