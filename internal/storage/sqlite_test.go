package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbergstrom/focusd/internal/domain"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "focusd_test.db")

	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err, "failed to open test database")

	t.Cleanup(func() {
		assert.NoError(t, repo.Close())
	})
	return repo
}

func TestActiveSessionRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.GetActiveSession(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s := &domain.ActiveSession{
		ID:                 "sess-1",
		UserID:             "u1",
		Type:               domain.TypeFocus,
		ScheduledSeconds:   1500,
		StartedAt:          started,
		AccumulatedSeconds: 240,
		Running:            false,
		FocusOrdinal:       3,
	}
	require.NoError(t, repo.SaveActiveSession(ctx, s))

	got, err := repo.GetActiveSession(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Type, got.Type)
	assert.Equal(t, s.ScheduledSeconds, got.ScheduledSeconds)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Equal(t, 240, got.AccumulatedSeconds)
	assert.False(t, got.Running)
	assert.Equal(t, 3, got.FocusOrdinal)
}

func TestSaveActiveSessionOverwrites(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	first := &domain.ActiveSession{ID: "sess-1", UserID: "u1", Type: domain.TypeFocus, ScheduledSeconds: 1500, StartedAt: started, Running: true, FocusOrdinal: 1}
	require.NoError(t, repo.SaveActiveSession(ctx, first))

	second := *first
	second.AccumulatedSeconds = 600
	second.Running = false
	require.NoError(t, repo.SaveActiveSession(ctx, &second))

	got, err := repo.GetActiveSession(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 600, got.AccumulatedSeconds)
	assert.False(t, got.Running)
}

func TestClearActiveSession(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	s := &domain.ActiveSession{ID: "sess-1", UserID: "u1", Type: domain.TypeShortBreak, ScheduledSeconds: 300, StartedAt: time.Now().UTC(), Running: true}
	require.NoError(t, repo.SaveActiveSession(ctx, s))
	require.NoError(t, repo.ClearActiveSession(ctx, "u1"))

	_, err := repo.GetActiveSession(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing with nothing persisted is not an error.
	assert.NoError(t, repo.ClearActiveSession(ctx, "u1"))
}

func TestLedgerOrderAndSinceFilter(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Append out of chronological order.
	recs := []domain.CompletedRecord{
		{Type: domain.TypeFocus, ActualSeconds: 1500, CompletedAt: base.Add(2 * time.Hour)},
		{Type: domain.TypeShortBreak, ActualSeconds: 300, CompletedAt: base},
		{Type: domain.TypeFocus, ActualSeconds: 900, CompletedAt: base.Add(time.Hour), Skipped: true},
	}
	for _, rec := range recs {
		require.NoError(t, repo.AppendCompleted(ctx, "u1", rec))
	}

	all, err := repo.ListCompleted(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.True(t, all[0].CompletedAt.Equal(base))
	assert.True(t, all[1].CompletedAt.Equal(base.Add(time.Hour)))
	assert.True(t, all[2].CompletedAt.Equal(base.Add(2*time.Hour)))
	assert.True(t, all[1].Skipped)

	since, err := repo.ListCompleted(ctx, "u1", base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, 900, since[0].ActualSeconds)
}

func TestLedgerIsPerUser(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AppendCompleted(ctx, "u1", domain.CompletedRecord{Type: domain.TypeFocus, ActualSeconds: 1500, CompletedAt: time.Now().UTC()}))

	other, err := repo.ListCompleted(ctx, "u2", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestConfigRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.GetConfig(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := domain.DefaultConfig()
	cfg.FocusSeconds = 50 * 60
	cfg.AutoStartBreaks = true
	cfg.WeeklyGoalSessions = 20
	require.NoError(t, repo.SaveConfig(ctx, "u1", cfg))

	got, err := repo.GetConfig(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cfg, *got)

	cfg.LongBreakInterval = 6
	require.NoError(t, repo.SaveConfig(ctx, "u1", cfg))

	got, err = repo.GetConfig(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, got.LongBreakInterval)
}
