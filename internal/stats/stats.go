// Package stats derives usage statistics from the completed-session ledger.
// The ledger is the only source of truth: Compute is a pure fold, and the
// cached service layer is a latency optimization that is always recomputable.
package stats

import (
	"math"
	"time"

	"github.com/tbergstrom/focusd/internal/domain"
)

type UsageStatistics struct {
	TotalStudySeconds           int `json:"totalStudySeconds"`
	TotalBreakSeconds           int `json:"totalBreakSeconds"`
	TotalSessionsCompleted      int `json:"totalSessionsCompleted"`
	CompletedToday              int `json:"completedToday"`
	CompletedThisWeek           int `json:"completedThisWeek"`
	CurrentStreakDays           int `json:"currentStreakDays"`
	WeeklyGoalSessions          int `json:"weeklyGoalSessions"`
	AverageSessionLengthMinutes int `json:"averageSessionLengthMinutes"`
	MostProductiveHour          int `json:"mostProductiveHour"`
}

// weekStart returns the most recent Monday 00:00 in t's location. Weeks are
// ISO style, Monday through Sunday.
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// Compute folds the ledger into usage statistics. Day, week and hour buckets
// use now's location as local time. Every focus record counts, including
// early-stopped ones; their partial duration is still study time.
func Compute(records []domain.CompletedRecord, now time.Time, weeklyGoal int) UsageStatistics {
	loc := now.Location()
	today := dayKey(now, loc)
	week := weekStart(now)

	stats := UsageStatistics{WeeklyGoalSessions: weeklyGoal}

	focusCount := 0
	focusDays := make(map[string]bool)
	var hourCounts [24]int

	for _, rec := range records {
		stats.TotalSessionsCompleted++

		if rec.Type != domain.TypeFocus {
			stats.TotalBreakSeconds += rec.ActualSeconds
			continue
		}

		focusCount++
		stats.TotalStudySeconds += rec.ActualSeconds

		local := rec.CompletedAt.In(loc)
		focusDays[dayKey(rec.CompletedAt, loc)] = true
		hourCounts[local.Hour()]++

		if dayKey(rec.CompletedAt, loc) == today {
			stats.CompletedToday++
		}
		if !local.Before(week) {
			stats.CompletedThisWeek++
		}
	}

	if focusCount > 0 {
		stats.AverageSessionLengthMinutes = int(math.Round(float64(stats.TotalStudySeconds) / float64(focusCount) / 60))
	}

	best := 0
	for hour := 1; hour < 24; hour++ {
		if hourCounts[hour] > hourCounts[best] {
			best = hour
		}
	}
	stats.MostProductiveHour = best

	// Walk backward from today until the first day without a focus session.
	cursor := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	for focusDays[cursor.Format("2006-01-02")] {
		stats.CurrentStreakDays++
		cursor = cursor.AddDate(0, 0, -1)
	}

	return stats
}
