package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tbergstrom/focusd/internal/domain"
)

// ErrNotFound is returned when a user has no persisted row for the requested
// record kind.
var ErrNotFound = errors.New("not found")

// Repository persists timer state. All calls may fail transiently; callers
// bound them with context deadlines.
type Repository interface {
	// GetActiveSession returns the user's in-flight session, or ErrNotFound.
	GetActiveSession(ctx context.Context, userID string) (*domain.ActiveSession, error)
	SaveActiveSession(ctx context.Context, s *domain.ActiveSession) error
	ClearActiveSession(ctx context.Context, userID string) error

	// AppendCompleted writes one ledger entry. The ledger is append-only;
	// past entries are never mutated.
	AppendCompleted(ctx context.Context, userID string, rec domain.CompletedRecord) error
	// ListCompleted returns ledger entries with CompletedAt >= since (all
	// entries when since is zero), ordered by CompletedAt ascending.
	ListCompleted(ctx context.Context, userID string, since time.Time) ([]domain.CompletedRecord, error)

	// GetConfig returns the user's persisted configuration, or ErrNotFound.
	GetConfig(ctx context.Context, userID string) (*domain.SessionConfig, error)
	SaveConfig(ctx context.Context, userID string, cfg domain.SessionConfig) error

	Close() error
}
