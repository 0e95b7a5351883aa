package game

// Status is the session lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the engine. Presenters read it freely.
type Snapshot struct {
	Status         Status
	Difficulty     Difficulty
	Score          int
	TimeRemaining  int // seconds
	Targets        []Target
	Hits           int
	LastReactionMs int
	LastResult     *Result
}

// TargetAt returns the topmost unhit target containing the point.
// Later spawns are drawn on top, so they are tested first.
func (s *Snapshot) TargetAt(px, py float64) (Target, bool) {
	for i := len(s.Targets) - 1; i >= 0; i-- {
		t := s.Targets[i]
		if t.Hit || !t.Visible() {
			continue
		}
		if t.Contains(px, py) {
			return t, true
		}
	}
	return Target{}, false
}

// Target returns the active target with the given id.
func (s *Snapshot) Target(id string) (Target, bool) {
	for _, t := range s.Targets {
		if t.ID == id {
			return t, true
		}
	}
	return Target{}, false
}

// EventType classifies engine events.
type EventType int

const (
	EventStarted EventType = iota
	EventSpawned
	EventExpired
	EventRemoved
	EventHit
	EventAchievement
	EventTick
	EventGameOver
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventSpawned:
		return "spawned"
	case EventExpired:
		return "expired"
	case EventRemoved:
		return "removed"
	case EventHit:
		return "hit"
	case EventAchievement:
		return "achievement"
	case EventTick:
		return "tick"
	case EventGameOver:
		return "gameover"
	default:
		return "unknown"
	}
}

// Event is emitted after every state change.
type Event struct {
	Type       EventType
	Target     Target
	Points     int
	ReactionMs int
	Score      int
	Result     *Result
	Snapshot   *Snapshot // state right after the event
}

// HitResult describes the outcome of a successful hit.
type HitResult struct {
	TargetID    string
	Points      int
	ReactionMs  int
	Score       int
	Achievement bool
}
