package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/tbergstrom/focusd/internal/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(connStr string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	repo := &PostgresRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *PostgresRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS active_sessions (
		user_id TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		scheduled_sec INTEGER NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		accumulated_sec INTEGER NOT NULL,
		running BOOLEAN NOT NULL,
		focus_ordinal INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS completed_sessions (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		actual_sec INTEGER NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL,
		skipped BOOLEAN NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_configs (
		user_id TEXT PRIMARY KEY,
		focus_sec INTEGER NOT NULL,
		short_break_sec INTEGER NOT NULL,
		long_break_sec INTEGER NOT NULL,
		long_break_interval INTEGER NOT NULL,
		auto_start_breaks BOOLEAN NOT NULL,
		auto_start_focus BOOLEAN NOT NULL,
		sound_enabled BOOLEAN NOT NULL,
		desktop_notifications BOOLEAN NOT NULL,
		weekly_goal INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_completed_user ON completed_sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_completed_at ON completed_sessions(completed_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *PostgresRepository) GetActiveSession(ctx context.Context, userID string) (*domain.ActiveSession, error) {
	query := `
		SELECT id, type, scheduled_sec, started_at, accumulated_sec, running, focus_ordinal
		FROM active_sessions
		WHERE user_id = $1
	`

	var s domain.ActiveSession
	s.UserID = userID
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.ID,
		&s.Type,
		&s.ScheduledSeconds,
		&s.StartedAt,
		&s.AccumulatedSeconds,
		&s.Running,
		&s.FocusOrdinal,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) SaveActiveSession(ctx context.Context, s *domain.ActiveSession) error {
	query := `
		INSERT INTO active_sessions (user_id, id, type, scheduled_sec, started_at, accumulated_sec, running, focus_ordinal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id,
			type = EXCLUDED.type,
			scheduled_sec = EXCLUDED.scheduled_sec,
			started_at = EXCLUDED.started_at,
			accumulated_sec = EXCLUDED.accumulated_sec,
			running = EXCLUDED.running,
			focus_ordinal = EXCLUDED.focus_ordinal
	`

	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.ID, s.Type, s.ScheduledSeconds, s.StartedAt, s.AccumulatedSeconds, s.Running, s.FocusOrdinal,
	)
	if err != nil {
		return fmt.Errorf("save active session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearActiveSession(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear active session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AppendCompleted(ctx context.Context, userID string, rec domain.CompletedRecord) error {
	query := `
		INSERT INTO completed_sessions (user_id, type, actual_sec, completed_at, skipped)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, userID, rec.Type, rec.ActualSeconds, rec.CompletedAt, rec.Skipped)
	if err != nil {
		return fmt.Errorf("append completed session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListCompleted(ctx context.Context, userID string, since time.Time) ([]domain.CompletedRecord, error) {
	query := `
		SELECT type, actual_sec, completed_at, skipped
		FROM completed_sessions
		WHERE user_id = $1 AND completed_at >= $2
		ORDER BY completed_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	defer rows.Close()

	return scanCompleted(rows)
}

func (r *PostgresRepository) GetConfig(ctx context.Context, userID string) (*domain.SessionConfig, error) {
	query := `
		SELECT focus_sec, short_break_sec, long_break_sec, long_break_interval,
		       auto_start_breaks, auto_start_focus, sound_enabled, desktop_notifications, weekly_goal
		FROM session_configs
		WHERE user_id = $1
	`

	var cfg domain.SessionConfig
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cfg.FocusSeconds,
		&cfg.ShortBreakSeconds,
		&cfg.LongBreakSeconds,
		&cfg.LongBreakInterval,
		&cfg.AutoStartBreaks,
		&cfg.AutoStartFocus,
		&cfg.SoundEnabled,
		&cfg.DesktopNotifications,
		&cfg.WeeklyGoalSessions,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return &cfg, nil
}

func (r *PostgresRepository) SaveConfig(ctx context.Context, userID string, cfg domain.SessionConfig) error {
	query := `
		INSERT INTO session_configs (user_id, focus_sec, short_break_sec, long_break_sec, long_break_interval,
			auto_start_breaks, auto_start_focus, sound_enabled, desktop_notifications, weekly_goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			focus_sec = EXCLUDED.focus_sec,
			short_break_sec = EXCLUDED.short_break_sec,
			long_break_sec = EXCLUDED.long_break_sec,
			long_break_interval = EXCLUDED.long_break_interval,
			auto_start_breaks = EXCLUDED.auto_start_breaks,
			auto_start_focus = EXCLUDED.auto_start_focus,
			sound_enabled = EXCLUDED.sound_enabled,
			desktop_notifications = EXCLUDED.desktop_notifications,
			weekly_goal = EXCLUDED.weekly_goal
	`

	_, err := r.db.ExecContext(ctx, query,
		userID,
		cfg.FocusSeconds,
		cfg.ShortBreakSeconds,
		cfg.LongBreakSeconds,
		cfg.LongBreakInterval,
		cfg.AutoStartBreaks,
		cfg.AutoStartFocus,
		cfg.SoundEnabled,
		cfg.DesktopNotifications,
		cfg.WeeklyGoalSessions,
	)
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
