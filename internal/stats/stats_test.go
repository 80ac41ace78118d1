package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbergstrom/focusd/internal/domain"
	"github.com/tbergstrom/focusd/internal/storage"
)

// Wednesday, 2026-03-11, 15:00 UTC.
var now = time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)

func focusAt(t time.Time, seconds int) domain.CompletedRecord {
	return domain.CompletedRecord{Type: domain.TypeFocus, ActualSeconds: seconds, CompletedAt: t}
}

func breakAt(t time.Time, seconds int) domain.CompletedRecord {
	return domain.CompletedRecord{Type: domain.TypeShortBreak, ActualSeconds: seconds, CompletedAt: t}
}

func TestComputeTotals(t *testing.T) {
	records := []domain.CompletedRecord{
		focusAt(now.Add(-3*time.Hour), 1500),
		focusAt(now.Add(-2*time.Hour), 900),
		breakAt(now.Add(-90*time.Minute), 300),
	}

	got := Compute(records, now, 10)

	assert.Equal(t, 2400, got.TotalStudySeconds)
	assert.Equal(t, 300, got.TotalBreakSeconds)
	assert.Equal(t, 3, got.TotalSessionsCompleted)
	assert.Equal(t, 2, got.CompletedToday)
	assert.Equal(t, 10, got.WeeklyGoalSessions)
	// (1500 + 900) / 2 focus sessions = 1200s = 20min.
	assert.Equal(t, 20, got.AverageSessionLengthMinutes)
}

func TestComputeEmptyLedger(t *testing.T) {
	got := Compute(nil, now, 10)

	assert.Zero(t, got.TotalStudySeconds)
	assert.Zero(t, got.TotalSessionsCompleted)
	assert.Zero(t, got.CurrentStreakDays)
	// No focus sessions: average is 0, never a division error.
	assert.Zero(t, got.AverageSessionLengthMinutes)
	assert.Zero(t, got.MostProductiveHour)
}

func TestWeekStartsOnMonday(t *testing.T) {
	// now is Wednesday 2026-03-11; the week began Monday 2026-03-09 00:00.
	records := []domain.CompletedRecord{
		focusAt(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), 1500),  // Monday midnight: in week
		focusAt(time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC), 1500), // Sunday night: previous week
		focusAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), 1500), // Tuesday: in week
	}

	got := Compute(records, now, 10)

	assert.Equal(t, 2, got.CompletedThisWeek)
}

func TestStreakStopsAtFirstGap(t *testing.T) {
	records := []domain.CompletedRecord{
		focusAt(now.Add(-1*time.Hour), 1500),    // today
		focusAt(now.AddDate(0, 0, -1), 1500),    // yesterday
		focusAt(now.AddDate(0, 0, -2), 1500),    // two days ago
		focusAt(now.AddDate(0, 0, -4), 1500),    // gap at three days ago
	}

	got := Compute(records, now, 10)

	assert.Equal(t, 3, got.CurrentStreakDays)
}

func TestStreakZeroWithoutFocusToday(t *testing.T) {
	records := []domain.CompletedRecord{
		focusAt(now.AddDate(0, 0, -1), 1500),
		focusAt(now.AddDate(0, 0, -2), 1500),
	}

	got := Compute(records, now, 10)

	assert.Zero(t, got.CurrentStreakDays)
}

func TestMostProductiveHourTiesBreakEarlier(t *testing.T) {
	records := []domain.CompletedRecord{
		focusAt(time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC), 1500),
		focusAt(time.Date(2026, 3, 11, 9, 15, 0, 0, time.UTC), 1500),
		focusAt(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), 1500),
		focusAt(time.Date(2026, 3, 11, 14, 45, 0, 0, time.UTC), 1500),
	}

	got := Compute(records, now, 10)

	// Hours 9 and 14 both have two sessions; the earlier hour wins.
	assert.Equal(t, 9, got.MostProductiveHour)
}

func TestComputeIsPure(t *testing.T) {
	records := []domain.CompletedRecord{
		focusAt(now.Add(-1*time.Hour), 1500),
		breakAt(now.Add(-30*time.Minute), 300),
	}

	first := Compute(records, now, 10)
	second := Compute(records, now, 10)

	assert.Equal(t, first, second)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// ledgerRepo implements just enough of storage.Repository for the service.
type ledgerRepo struct {
	mu      sync.Mutex
	records []domain.CompletedRecord
	cfg     *domain.SessionConfig
	lists   int
}

func (r *ledgerRepo) ListCompleted(_ context.Context, _ string, _ time.Time) ([]domain.CompletedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	return append([]domain.CompletedRecord(nil), r.records...), nil
}

func (r *ledgerRepo) GetConfig(_ context.Context, _ string) (*domain.SessionConfig, error) {
	if r.cfg == nil {
		return nil, storage.ErrNotFound
	}
	return r.cfg, nil
}

func (r *ledgerRepo) GetActiveSession(context.Context, string) (*domain.ActiveSession, error) {
	return nil, storage.ErrNotFound
}
func (r *ledgerRepo) SaveActiveSession(context.Context, *domain.ActiveSession) error { return nil }
func (r *ledgerRepo) ClearActiveSession(context.Context, string) error                { return nil }
func (r *ledgerRepo) AppendCompleted(_ context.Context, _ string, rec domain.CompletedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}
func (r *ledgerRepo) SaveConfig(context.Context, string, domain.SessionConfig) error { return nil }
func (r *ledgerRepo) Close() error                                                    { return nil }

func TestServiceCachesUntilInvalidated(t *testing.T) {
	repo := &ledgerRepo{records: []domain.CompletedRecord{focusAt(now.Add(-time.Hour), 1500)}}
	svc := NewService(repo, fixedClock{now})
	ctx := context.Background()

	first, err := svc.Compute(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.CompletedToday)

	// Cached: the ledger is not re-read.
	_, err = svc.Compute(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)

	require.NoError(t, repo.AppendCompleted(ctx, "u1", focusAt(now, 1500)))
	svc.Invalidate("u1")

	second, err := svc.Compute(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.CompletedToday)
	assert.Equal(t, 2, repo.lists)
}

func TestServiceUsesConfiguredWeeklyGoal(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.WeeklyGoalSessions = 25
	repo := &ledgerRepo{cfg: &cfg}
	svc := NewService(repo, fixedClock{now})

	got, err := svc.Compute(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 25, got.WeeklyGoalSessions)
}
