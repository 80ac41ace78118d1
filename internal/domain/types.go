package domain

import "time"

type SessionType string

const (
	TypeFocus      SessionType = "focus"
	TypeShortBreak SessionType = "short_break"
	TypeLongBreak  SessionType = "long_break"
)

func (t SessionType) Valid() bool {
	switch t {
	case TypeFocus, TypeShortBreak, TypeLongBreak:
		return true
	}
	return false
}

func (t SessionType) IsBreak() bool {
	return t == TypeShortBreak || t == TypeLongBreak
}

// CompletedRecord is an immutable ledger entry for a finished session.
type CompletedRecord struct {
	Type          SessionType `json:"type"`
	ActualSeconds int         `json:"actualSeconds"`
	CompletedAt   time.Time   `json:"completedAt"`
	Skipped       bool        `json:"skipped"`
}

// Clock supplies wall-clock time. Injected so countdown logic is testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
