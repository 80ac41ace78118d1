package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Upper bounds on configurable durations. The UI enforces tighter ranges,
// but the engine validates independently.
const (
	MaxFocusSeconds      = 120 * 60
	MaxShortBreakSeconds = 30 * 60
	MaxLongBreakSeconds  = 60 * 60

	MinLongBreakInterval = 2
	MaxLongBreakInterval = 10
)

// SessionConfig holds one user's timer settings.
type SessionConfig struct {
	FocusSeconds         int  `json:"focusSeconds"`
	ShortBreakSeconds    int  `json:"shortBreakSeconds"`
	LongBreakSeconds     int  `json:"longBreakSeconds"`
	LongBreakInterval    int  `json:"longBreakInterval"`
	AutoStartBreaks      bool `json:"autoStartBreaks"`
	AutoStartFocus       bool `json:"autoStartFocus"`
	SoundEnabled         bool `json:"soundEnabled"`
	DesktopNotifications bool `json:"desktopNotifications"`
	WeeklyGoalSessions   int  `json:"weeklyGoalSessions"`
}

func DefaultConfig() SessionConfig {
	return SessionConfig{
		FocusSeconds:         25 * 60,
		ShortBreakSeconds:    5 * 60,
		LongBreakSeconds:     15 * 60,
		LongBreakInterval:    4,
		AutoStartBreaks:      false,
		AutoStartFocus:       false,
		SoundEnabled:         true,
		DesktopNotifications: true,
		WeeklyGoalSessions:   10,
	}
}

func (c SessionConfig) DurationFor(t SessionType) int {
	switch t {
	case TypeShortBreak:
		return c.ShortBreakSeconds
	case TypeLongBreak:
		return c.LongBreakSeconds
	default:
		return c.FocusSeconds
	}
}

// ConfigPatch is a partial update; nil fields are left unchanged.
type ConfigPatch struct {
	FocusSeconds         *int  `json:"focusSeconds,omitempty"`
	ShortBreakSeconds    *int  `json:"shortBreakSeconds,omitempty"`
	LongBreakSeconds     *int  `json:"longBreakSeconds,omitempty"`
	LongBreakInterval    *int  `json:"longBreakInterval,omitempty"`
	AutoStartBreaks      *bool `json:"autoStartBreaks,omitempty"`
	AutoStartFocus       *bool `json:"autoStartFocus,omitempty"`
	SoundEnabled         *bool `json:"soundEnabled,omitempty"`
	DesktopNotifications *bool `json:"desktopNotifications,omitempty"`
	WeeklyGoalSessions   *int  `json:"weeklyGoalSessions,omitempty"`
}

// ValidationError reports every rejected field with a reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, f := range names {
		parts[i] = fmt.Sprintf("%s: %s", f, e.Fields[f])
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Apply merges a patch into the config, validating each provided field
// independently. On any failure the receiver is returned unchanged.
func (c SessionConfig) Apply(p ConfigPatch) (SessionConfig, error) {
	bad := map[string]string{}

	checkDuration := func(field string, v, max int) {
		if v <= 0 {
			bad[field] = "must be positive"
		} else if v > max {
			bad[field] = fmt.Sprintf("must be at most %d seconds", max)
		}
	}

	merged := c
	if p.FocusSeconds != nil {
		checkDuration("focusSeconds", *p.FocusSeconds, MaxFocusSeconds)
		merged.FocusSeconds = *p.FocusSeconds
	}
	if p.ShortBreakSeconds != nil {
		checkDuration("shortBreakSeconds", *p.ShortBreakSeconds, MaxShortBreakSeconds)
		merged.ShortBreakSeconds = *p.ShortBreakSeconds
	}
	if p.LongBreakSeconds != nil {
		checkDuration("longBreakSeconds", *p.LongBreakSeconds, MaxLongBreakSeconds)
		merged.LongBreakSeconds = *p.LongBreakSeconds
	}
	if p.LongBreakInterval != nil {
		if *p.LongBreakInterval < MinLongBreakInterval || *p.LongBreakInterval > MaxLongBreakInterval {
			bad["longBreakInterval"] = fmt.Sprintf("must be between %d and %d", MinLongBreakInterval, MaxLongBreakInterval)
		}
		merged.LongBreakInterval = *p.LongBreakInterval
	}
	if p.WeeklyGoalSessions != nil {
		if *p.WeeklyGoalSessions <= 0 {
			bad["weeklyGoalSessions"] = "must be positive"
		}
		merged.WeeklyGoalSessions = *p.WeeklyGoalSessions
	}
	if p.AutoStartBreaks != nil {
		merged.AutoStartBreaks = *p.AutoStartBreaks
	}
	if p.AutoStartFocus != nil {
		merged.AutoStartFocus = *p.AutoStartFocus
	}
	if p.SoundEnabled != nil {
		merged.SoundEnabled = *p.SoundEnabled
	}
	if p.DesktopNotifications != nil {
		merged.DesktopNotifications = *p.DesktopNotifications
	}

	if len(bad) > 0 {
		return c, &ValidationError{Fields: bad}
	}
	return merged, nil
}
