// Package timer serializes all mutating timer operations per user and drives
// natural completion. Transitions complete in memory first; persistence is
// optimistic and failures are surfaced as ErrPersistence warnings so the
// countdown never appears stuck behind a slow backend.
package timer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbergstrom/focusd/internal/domain"
	"github.com/tbergstrom/focusd/internal/storage"
)

// ErrPersistence marks a completed in-memory transition whose storage write
// failed. The transition holds; the caller may surface the warning.
var ErrPersistence = errors.New("timer state not persisted")

const defaultOpTimeout = 5 * time.Second

type Manager struct {
	repo      storage.Repository
	clock     domain.Clock
	opTimeout time.Duration

	// OnCompletion, when set, is invoked after each finalized session.
	// It runs with the user's lock held and must not call back into the
	// manager.
	OnCompletion func(userID string, rec domain.CompletedRecord)

	// Defaults is handed to users without a persisted configuration.
	Defaults domain.SessionConfig

	mu    sync.Mutex
	users map[string]*userTimer
}

type userTimer struct {
	mu     sync.Mutex
	userID string
	loaded bool

	cfg    domain.SessionConfig
	active *domain.ActiveSession

	// lastOrdinal is the ordinal of the most recently started focus
	// session; ordinalDay is the local date it belongs to. The ordinal
	// resets at local midnight and is reconstructed from the ledger on
	// load, so break rotation survives restarts.
	lastOrdinal int
	ordinalDay  string

	suggested domain.SessionType
	events    chan Event
	tickStop  chan struct{}
}

func NewManager(repo storage.Repository, clock domain.Clock) *Manager {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Manager{
		repo:      repo,
		clock:     clock,
		opTimeout: defaultOpTimeout,
		Defaults:  domain.DefaultConfig(),
		users:     make(map[string]*userTimer),
	}
}

func (m *Manager) user(userID string) *userTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		u = &userTimer{
			userID:    userID,
			suggested: domain.TypeFocus,
			events:    make(chan Event, 16),
		}
		m.users[userID] = u
	}
	return u
}

// Events returns the user's event stream. Sends are non-blocking; slow
// consumers miss ticks, never completions of later reads.
func (m *Manager) Events(userID string) <-chan Event {
	return m.user(userID).events
}

func localDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// load reconstructs the user's timer from storage on first touch:
// configuration, any persisted in-flight session, and today's focus ordinal
// counted from the ledger.
func (m *Manager) load(ctx context.Context, u *userTimer) error {
	if u.loaded {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	cfg, err := m.repo.GetConfig(cctx, u.userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		u.cfg = m.Defaults
	case err != nil:
		return fmt.Errorf("load config: %w", err)
	default:
		u.cfg = *cfg
	}

	active, err := m.repo.GetActiveSession(cctx, u.userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load active session: %w", err)
	}

	now := m.clock.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := m.repo.ListCompleted(cctx, u.userID, midnight)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	focusCount := 0
	for _, rec := range today {
		if rec.Type == domain.TypeFocus {
			focusCount++
		}
	}

	u.lastOrdinal = focusCount
	u.ordinalDay = localDate(now)
	u.suggested = domain.TypeFocus
	if n := len(today); n > 0 {
		last := today[n-1]
		u.suggested = domain.NextAfter(last.Type, focusCount, u.cfg.LongBreakInterval)
	}

	if active != nil {
		u.active = active
		if active.Type == domain.TypeFocus {
			u.lastOrdinal = active.FocusOrdinal
		}
		if active.Running {
			m.startTickerLocked(u)
		}
	}

	u.loaded = true
	return nil
}

func (m *Manager) withUser(ctx context.Context, userID string, fn func(u *userTimer, now time.Time) error) error {
	u := m.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := m.load(ctx, u); err != nil {
		return err
	}

	now := m.clock.Now()
	// A session that ran out before this call is finalized first, so every
	// operation observes the post-completion state.
	if u.active != nil && u.active.Expired(now) {
		if err := m.finalizeLocked(u, now); err != nil {
			log.Printf("timer: user %s: %v", userID, err)
		}
		m.autoStartLocked(u, now)
	}

	return fn(u, now)
}

// Start begins a new session. Fails with domain.ErrInvalidTransition while
// another session is active.
func (m *Manager) Start(ctx context.Context, userID string, t domain.SessionType) (Snapshot, error) {
	var snap Snapshot
	var warn error
	err := m.withUser(ctx, userID, func(u *userTimer, now time.Time) error {
		if !t.Valid() {
			return domain.ErrUnknownType
		}
		if u.active != nil {
			return fmt.Errorf("%w: session already active", domain.ErrInvalidTransition)
		}
		warn = m.startLocked(u, t, now)
		snap = u.snapshot(now)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, warn
}

func (m *Manager) startLocked(u *userTimer, t domain.SessionType, now time.Time) error {
	ordinal := u.lastOrdinal
	if t == domain.TypeFocus {
		if today := localDate(now); u.ordinalDay != today {
			u.lastOrdinal = 0
			u.ordinalDay = today
		}
		ordinal = u.lastOrdinal + 1
		u.lastOrdinal = ordinal
	}

	s, err := domain.NewSession(uuid.NewString(), u.userID, t, u.cfg, ordinal, now)
	if err != nil {
		return err
	}
	u.active = s
	m.startTickerLocked(u)

	return m.persistActive(u)
}

// Pause suspends the running session, banking elapsed time.
func (m *Manager) Pause(ctx context.Context, userID string) (Snapshot, error) {
	return m.transition(ctx, userID, func(s *domain.ActiveSession, now time.Time) error {
		return s.Pause(now)
	})
}

// Resume restarts a paused session's interval.
func (m *Manager) Resume(ctx context.Context, userID string) (Snapshot, error) {
	return m.transition(ctx, userID, func(s *domain.ActiveSession, now time.Time) error {
		return s.Resume(now)
	})
}

func (m *Manager) transition(ctx context.Context, userID string, fn func(s *domain.ActiveSession, now time.Time) error) (Snapshot, error) {
	var snap Snapshot
	var warn error
	err := m.withUser(ctx, userID, func(u *userTimer, now time.Time) error {
		if u.active == nil {
			return fmt.Errorf("%w: no active session", domain.ErrInvalidTransition)
		}
		if err := fn(u.active, now); err != nil {
			return err
		}
		if u.active.Running {
			m.startTickerLocked(u)
		} else {
			m.stopTickerLocked(u)
		}
		warn = m.persistActive(u)
		snap = u.snapshot(now)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, warn
}

// Stop ends the session now and appends its ledger record. The state machine
// returns to idle even when the append fails; the failure comes back wrapped
// in ErrPersistence alongside the record.
func (m *Manager) Stop(ctx context.Context, userID string) (domain.CompletedRecord, error) {
	var rec domain.CompletedRecord
	var warn error
	err := m.withUser(ctx, userID, func(u *userTimer, now time.Time) error {
		if u.active == nil {
			return fmt.Errorf("%w: no active session", domain.ErrInvalidTransition)
		}
		rec, warn = m.finalizeWithRecordLocked(u, now)
		return nil
	})
	if err != nil {
		return domain.CompletedRecord{}, err
	}
	return rec, warn
}

// Skip stops the session and, when the matching auto-start flag is enabled,
// immediately starts the next session in the rotation. Otherwise the timer
// stays idle with the suggested type exposed in the snapshot.
func (m *Manager) Skip(ctx context.Context, userID string) (Snapshot, error) {
	var snap Snapshot
	var warn error
	err := m.withUser(ctx, userID, func(u *userTimer, now time.Time) error {
		if u.active == nil {
			return fmt.Errorf("%w: no active session", domain.ErrInvalidTransition)
		}
		_, warn = m.finalizeWithRecordLocked(u, now)
		m.autoStartLocked(u, now)
		snap = u.snapshot(now)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, warn
}

// Status reports the timer's current state, finalizing a naturally expired
// session first.
func (m *Manager) Status(ctx context.Context, userID string) (Snapshot, error) {
	var snap Snapshot
	err := m.withUser(ctx, userID, func(u *userTimer, now time.Time) error {
		snap = u.snapshot(now)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Config returns the user's timer configuration, falling back to defaults.
func (m *Manager) Config(ctx context.Context, userID string) (domain.SessionConfig, error) {
	var cfg domain.SessionConfig
	err := m.withUser(ctx, userID, func(u *userTimer, now time.Time) error {
		cfg = u.cfg
		return nil
	})
	return cfg, err
}

// UpdateConfig validates and persists a partial configuration update. A
// validation or storage failure leaves the prior configuration untouched.
// An in-flight session keeps the duration it was started with.
func (m *Manager) UpdateConfig(ctx context.Context, userID string, patch domain.ConfigPatch) (domain.SessionConfig, error) {
	var cfg domain.SessionConfig
	err := m.withUser(ctx, userID, func(u *userTimer, now time.Time) error {
		merged, err := u.cfg.Apply(patch)
		if err != nil {
			return err
		}

		cctx, cancel := context.WithTimeout(ctx, m.opTimeout)
		defer cancel()
		if err := m.repo.SaveConfig(cctx, u.userID, merged); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		u.cfg = merged
		cfg = merged
		return nil
	})
	if err != nil {
		return domain.SessionConfig{}, err
	}
	return cfg, nil
}

// finalizeWithRecordLocked closes the active session and returns its record
// plus any persistence warning.
func (m *Manager) finalizeWithRecordLocked(u *userTimer, now time.Time) (domain.CompletedRecord, error) {
	s := u.active
	rec := s.Complete(now)

	u.suggested = domain.NextAfter(rec.Type, s.FocusOrdinal, u.cfg.LongBreakInterval)
	u.active = nil
	m.stopTickerLocked(u)

	u.emit(Event{
		Kind:          EventCompleted,
		SessionID:     s.ID,
		Type:          rec.Type,
		ActualSeconds: rec.ActualSeconds,
		Skipped:       rec.Skipped,
		SuggestedNext: u.suggested,
	})

	if m.OnCompletion != nil {
		m.OnCompletion(u.userID, rec)
	}

	cctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
	defer cancel()

	var warn error
	if err := m.repo.AppendCompleted(cctx, u.userID, rec); err != nil {
		warn = fmt.Errorf("%w: append ledger record: %v", ErrPersistence, err)
	}
	if err := m.repo.ClearActiveSession(cctx, u.userID); err != nil && warn == nil {
		warn = fmt.Errorf("%w: clear active session: %v", ErrPersistence, err)
	}
	return rec, warn
}

func (m *Manager) finalizeLocked(u *userTimer, now time.Time) error {
	_, warn := m.finalizeWithRecordLocked(u, now)
	return warn
}

// autoStartLocked starts the suggested next session if the flag matching its
// type allows it.
func (m *Manager) autoStartLocked(u *userTimer, now time.Time) {
	next := u.suggested
	auto := (next.IsBreak() && u.cfg.AutoStartBreaks) ||
		(next == domain.TypeFocus && u.cfg.AutoStartFocus)
	if !auto || u.active != nil {
		return
	}
	if err := m.startLocked(u, next, now); err != nil {
		log.Printf("timer: user %s: auto-start %s: %v", u.userID, next, err)
	}
}

func (m *Manager) persistActive(u *userTimer) error {
	cctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
	defer cancel()

	if err := m.repo.SaveActiveSession(cctx, u.active); err != nil {
		return fmt.Errorf("%w: save active session: %v", ErrPersistence, err)
	}
	return nil
}

func (m *Manager) startTickerLocked(u *userTimer) {
	if u.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	u.tickStop = stop
	go m.runTicker(u, u.active.ID, stop)
}

func (m *Manager) stopTickerLocked(u *userTimer) {
	if u.tickStop != nil {
		close(u.tickStop)
		u.tickStop = nil
	}
}

// runTicker emits a tick per second while the session runs and finalizes it
// on natural expiry. The session ID pins the goroutine to one instance so a
// stale ticker can never touch a successor session.
func (m *Manager) runTicker(u *userTimer, sessionID string, stop chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !m.tick(u, sessionID) {
				return
			}
		case <-stop:
			return
		}
	}
}

func (m *Manager) tick(u *userTimer, sessionID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := u.active
	if s == nil || s.ID != sessionID || !s.Running {
		return false
	}

	now := m.clock.Now()
	if s.Expired(now) {
		if err := m.finalizeLocked(u, now); err != nil {
			log.Printf("timer: user %s: %v", u.userID, err)
		}
		m.autoStartLocked(u, now)
		return false
	}

	u.emit(Event{
		Kind:             EventTick,
		SessionID:        s.ID,
		Type:             s.Type,
		RemainingSeconds: s.Remaining(now),
	})
	return true
}

func (u *userTimer) emit(e Event) {
	select {
	case u.events <- e:
	default:
	}
}

func (u *userTimer) snapshot(now time.Time) Snapshot {
	if u.active == nil {
		return Snapshot{
			State:         StateIdle,
			FocusOrdinal:  u.lastOrdinal,
			SuggestedNext: u.suggested,
		}
	}

	state := StatePaused
	if u.active.Running {
		state = StateRunning
	}
	return Snapshot{
		State:            state,
		SessionID:        u.active.ID,
		Type:             u.active.Type,
		RemainingSeconds: u.active.Remaining(now),
		ScheduledSeconds: u.active.ScheduledSeconds,
		FocusOrdinal:     u.active.FocusOrdinal,
	}
}
