package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tbergstrom/focusd/internal/domain"
	"github.com/tbergstrom/focusd/internal/storage"
)

const cacheTTL = 5 * time.Minute

// Service computes per-user statistics with a small read cache in front.
// Invalidate is wired to session completion so the cache never serves a
// stale count after the ledger grows.
type Service struct {
	repo  storage.Repository
	clock domain.Clock
	cache *gocache.Cache
}

func NewService(repo storage.Repository, clock domain.Clock) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Service{
		repo:  repo,
		clock: clock,
		cache: gocache.New(cacheTTL, 2*cacheTTL),
	}
}

func (s *Service) Compute(ctx context.Context, userID string) (UsageStatistics, error) {
	if v, ok := s.cache.Get(userID); ok {
		return v.(UsageStatistics), nil
	}

	records, err := s.repo.ListCompleted(ctx, userID, time.Time{})
	if err != nil {
		return UsageStatistics{}, fmt.Errorf("list ledger: %w", err)
	}

	goal := domain.DefaultConfig().WeeklyGoalSessions
	cfg, err := s.repo.GetConfig(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return UsageStatistics{}, fmt.Errorf("load config: %w", err)
	default:
		goal = cfg.WeeklyGoalSessions
	}

	result := Compute(records, s.clock.Now(), goal)
	s.cache.Set(userID, result, gocache.DefaultExpiration)
	return result, nil
}

func (s *Service) Invalidate(userID string) {
	s.cache.Delete(userID)
}
