package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidTransition = errors.New("invalid timer transition")
	ErrUnknownType       = errors.New("unknown session type")
)

// ActiveSession is the single in-flight timer session for a user.
//
// Elapsed time is anchored to absolute timestamps: AccumulatedSeconds holds
// time banked across pause cycles, and while Running the current interval is
// derived from StartedAt on every read. Reloading the session from storage
// therefore never resets or drifts the countdown.
type ActiveSession struct {
	ID                 string      `json:"id"`
	UserID             string      `json:"userId"`
	Type               SessionType `json:"type"`
	ScheduledSeconds   int         `json:"scheduledSeconds"`
	StartedAt          time.Time   `json:"startedAt"`
	AccumulatedSeconds int         `json:"accumulatedSeconds"`
	Running            bool        `json:"running"`
	FocusOrdinal       int         `json:"focusOrdinal"`
}

// NewSession starts a session of the given type. ScheduledSeconds is frozen
// from the configuration at start time; later configuration changes do not
// affect an in-flight session.
func NewSession(id, userID string, t SessionType, cfg SessionConfig, ordinal int, now time.Time) (*ActiveSession, error) {
	if !t.Valid() {
		return nil, ErrUnknownType
	}
	return &ActiveSession{
		ID:               id,
		UserID:           userID,
		Type:             t,
		ScheduledSeconds: cfg.DurationFor(t),
		StartedAt:        now,
		Running:          true,
		FocusOrdinal:     ordinal,
	}, nil
}

func (s *ActiveSession) Pause(now time.Time) error {
	if !s.Running {
		return ErrInvalidTransition
	}
	s.AccumulatedSeconds += int(now.Sub(s.StartedAt).Seconds())
	s.Running = false
	return nil
}

func (s *ActiveSession) Resume(now time.Time) error {
	if s.Running {
		return ErrInvalidTransition
	}
	s.StartedAt = now
	s.Running = true
	return nil
}

// Elapsed returns total elapsed seconds, banked plus the current interval.
func (s *ActiveSession) Elapsed(now time.Time) int {
	elapsed := s.AccumulatedSeconds
	if s.Running {
		elapsed += int(now.Sub(s.StartedAt).Seconds())
	}
	return elapsed
}

func (s *ActiveSession) Remaining(now time.Time) int {
	rem := s.ScheduledSeconds - s.Elapsed(now)
	if rem < 0 {
		return 0
	}
	return rem
}

func (s *ActiveSession) Expired(now time.Time) bool {
	return s.Running && s.Remaining(now) == 0
}

// Complete closes the session into a ledger record. A session ended before
// its scheduled duration is marked skipped; on natural expiry the actual
// duration is clamped to the schedule so tick lag never inflates it.
func (s *ActiveSession) Complete(now time.Time) CompletedRecord {
	elapsed := s.Elapsed(now)
	skipped := elapsed < s.ScheduledSeconds
	if !skipped {
		elapsed = s.ScheduledSeconds
	}
	return CompletedRecord{
		Type:          s.Type,
		ActualSeconds: elapsed,
		CompletedAt:   now,
		Skipped:       skipped,
	}
}

// NextAfter applies the break rotation: after the interval-th focus session a
// long break is due, any other focus session earns a short break, and every
// break leads back to focus.
func NextAfter(completed SessionType, ordinal, interval int) SessionType {
	if completed.IsBreak() {
		return TypeFocus
	}
	if interval > 0 && ordinal%interval == 0 {
		return TypeLongBreak
	}
	return TypeShortBreak
}
