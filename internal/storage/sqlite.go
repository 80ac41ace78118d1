package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tbergstrom/focusd/internal/domain"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS active_sessions (
		user_id TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		scheduled_sec INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		accumulated_sec INTEGER NOT NULL,
		running INTEGER NOT NULL,
		focus_ordinal INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS completed_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		actual_sec INTEGER NOT NULL,
		completed_at DATETIME NOT NULL,
		skipped INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_configs (
		user_id TEXT PRIMARY KEY,
		focus_sec INTEGER NOT NULL,
		short_break_sec INTEGER NOT NULL,
		long_break_sec INTEGER NOT NULL,
		long_break_interval INTEGER NOT NULL,
		auto_start_breaks INTEGER NOT NULL,
		auto_start_focus INTEGER NOT NULL,
		sound_enabled INTEGER NOT NULL,
		desktop_notifications INTEGER NOT NULL,
		weekly_goal INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_completed_user ON completed_sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_completed_at ON completed_sessions(completed_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRepository) GetActiveSession(ctx context.Context, userID string) (*domain.ActiveSession, error) {
	query := `
		SELECT id, type, scheduled_sec, started_at, accumulated_sec, running, focus_ordinal
		FROM active_sessions
		WHERE user_id = ?
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

func (r *SQLiteRepository) SaveActiveSession(ctx context.Context, s *domain.ActiveSession) error {
	query := `
		INSERT INTO active_sessions (user_id, id, type, scheduled_sec, started_at, accumulated_sec, running, focus_ordinal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			id = excluded.id,
			type = excluded.type,
			scheduled_sec = excluded.scheduled_sec,
			started_at = excluded.started_at,
			accumulated_sec = excluded.accumulated_sec,
			running = excluded.running,
			focus_ordinal = excluded.focus_ordinal
	`

	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.ID, s.Type, s.ScheduledSeconds, s.StartedAt, s.AccumulatedSeconds, s.Running, s.FocusOrdinal,
	)
	if err != nil {
		return fmt.Errorf("save active session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearActiveSession(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear active session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AppendCompleted(ctx context.Context, userID string, rec domain.CompletedRecord) error {
	query := `
		INSERT INTO completed_sessions (user_id, type, actual_sec, completed_at, skipped)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, userID, rec.Type, rec.ActualSeconds, rec.CompletedAt, rec.Skipped)
	if err != nil {
		return fmt.Errorf("append completed session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCompleted(ctx context.Context, userID string, since time.Time) ([]domain.CompletedRecord, error) {
	query := `
		SELECT type, actual_sec, completed_at, skipped
		FROM completed_sessions
		WHERE user_id = ? AND completed_at >= ?
		ORDER BY completed_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	defer rows.Close()

	return scanCompleted(rows)
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, userID string) (*domain.SessionConfig, error) {
	query := `
		SELECT focus_sec, short_break_sec, long_break_sec, long_break_interval,
		       auto_start_breaks, auto_start_focus, sound_enabled, desktop_notifications, weekly_goal
		FROM session_configs
		WHERE user_id = ?
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

func (r *SQLiteRepository) SaveConfig(ctx context.Context, userID string, cfg domain.SessionConfig) error {
	query := `
		INSERT INTO session_configs (user_id, focus_sec, short_break_sec, long_break_sec, long_break_interval,
			auto_start_breaks, auto_start_focus, sound_enabled, desktop_notifications, weekly_goal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			focus_sec = excluded.focus_sec,
			short_break_sec = excluded.short_break_sec,
			long_break_sec = excluded.long_break_sec,
			long_break_interval = excluded.long_break_interval,
			auto_start_breaks = excluded.auto_start_breaks,
			auto_start_focus = excluded.auto_start_focus,
			sound_enabled = excluded.sound_enabled,
			desktop_notifications = excluded.desktop_notifications,
			weekly_goal = excluded.weekly_goal
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

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanCompleted(rows *sql.Rows) ([]domain.CompletedRecord, error) {
	var records []domain.CompletedRecord

	for rows.Next() {
		var rec domain.CompletedRecord
		if err := rows.Scan(&rec.Type, &rec.ActualSeconds, &rec.CompletedAt, &rec.Skipped); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
