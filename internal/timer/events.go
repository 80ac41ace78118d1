package timer

import "github.com/tbergstrom/focusd/internal/domain"

type EventKind string

const (
	// EventTick is emitted once per second while a session is running.
	EventTick EventKind = "tick"
	// EventCompleted is emitted exactly once per session instance when it
	// finishes, whether by natural expiry, stop or skip.
	EventCompleted EventKind = "completed"
)

type Event struct {
	Kind             EventKind          `json:"kind"`
	SessionID        string             `json:"sessionId"`
	Type             domain.SessionType `json:"type"`
	RemainingSeconds int                `json:"remainingSeconds,omitempty"`
	ActualSeconds    int                `json:"actualSeconds,omitempty"`
	Skipped          bool               `json:"skipped,omitempty"`
	SuggestedNext    domain.SessionType `json:"suggestedNext,omitempty"`
}

// Snapshot is the read-side view of a user's timer.
type Snapshot struct {
	State            string             `json:"state"` // idle | running | paused
	SessionID        string             `json:"sessionId,omitempty"`
	Type             domain.SessionType `json:"type,omitempty"`
	RemainingSeconds int                `json:"remainingSeconds"`
	ScheduledSeconds int                `json:"scheduledSeconds,omitempty"`
	FocusOrdinal     int                `json:"focusOrdinal,omitempty"`
	SuggestedNext    domain.SessionType `json:"suggestedNext,omitempty"`
}

const (
	StateIdle    = "idle"
	StateRunning = "running"
	StatePaused  = "paused"
)
