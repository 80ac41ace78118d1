package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tbergstrom/focusd/internal/config"
	"github.com/tbergstrom/focusd/internal/domain"
	httpapi "github.com/tbergstrom/focusd/internal/http"
	"github.com/tbergstrom/focusd/internal/stats"
	"github.com/tbergstrom/focusd/internal/storage"
	"github.com/tbergstrom/focusd/internal/timer"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer repo.Close()

	manager := timer.NewManager(repo, domain.SystemClock{})
	manager.Defaults = cfg.SessionDefaults()

	statsSvc := stats.NewService(repo, domain.SystemClock{})
	manager.OnCompletion = func(userID string, _ domain.CompletedRecord) {
		statsSvc.Invalidate(userID)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(ExtractUserMiddleware)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Use(RequireSameUser)

		r.Get("/timer", getTimer(manager))
		r.Post("/timer/start", startTimer(manager))
		r.Post("/timer/pause", pauseTimer(manager))
		r.Post("/timer/resume", resumeTimer(manager))
		r.Post("/timer/stop", stopTimer(manager))
		r.Post("/timer/skip", skipTimer(manager))
		r.Get("/timer/events", httpapi.StreamTimerEvents(manager))

		r.Get("/config", getConfig(manager))
		r.Put("/config", putConfig(manager))

		r.Get("/stats", getStats(statsSvc))
	})

	log.Println("listening on", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatal(err)
	}
}

func openRepository(cfg *config.Config) (storage.Repository, error) {
	if cfg.Database.Driver == "postgres" {
		return storage.NewPostgresRepository(cfg.Database.DSN)
	}
	return storage.NewSQLiteRepository(cfg.Database.DSN)
}

// snapshotResponse carries a timer snapshot plus an optional warning for
// transitions that completed in memory but could not be persisted yet.
type snapshotResponse struct {
	timer.Snapshot
	Warning string `json:"warning,omitempty"`
}

func startTimer(m *timer.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Type domain.SessionType `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, "invalid request body", http.StatusBadRequest)
			return
		}

		snap, err := m.Start(r.Context(), GetUserId(r), req.Type)
		respondSnapshot(w, snap, err, http.StatusCreated)
	}
}

func pauseTimer(m *timer.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Pause(r.Context(), GetUserId(r))
		respondSnapshot(w, snap, err, http.StatusOK)
	}
}

func resumeTimer(m *timer.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Resume(r.Context(), GetUserId(r))
		respondSnapshot(w, snap, err, http.StatusOK)
	}
}

func skipTimer(m *timer.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Skip(r.Context(), GetUserId(r))
		respondSnapshot(w, snap, err, http.StatusOK)
	}
}

func stopTimer(m *timer.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := m.Stop(r.Context(), GetUserId(r))
		if err != nil && !errors.Is(err, timer.ErrPersistence) {
			respondOperationError(w, err)
			return
		}

		resp := struct {
			domain.CompletedRecord
			Warning string `json:"warning,omitempty"`
		}{CompletedRecord: rec}
		if err != nil {
			resp.Warning = err.Error()
		}
		respondJSON(w, resp, http.StatusOK)
	}
}

func getTimer(m *timer.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := m.Status(r.Context(), GetUserId(r))
		if err != nil {
			respondOperationError(w, err)
			return
		}
		respondJSON(w, snap, http.StatusOK)
	}
}

func getConfig(m *timer.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := m.Config(r.Context(), GetUserId(r))
		if err != nil {
			respondOperationError(w, err)
			return
		}
		respondJSON(w, cfg, http.StatusOK)
	}
}

func putConfig(m *timer.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.ConfigPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			respondError(w, "invalid request body", http.StatusBadRequest)
			return
		}

		cfg, err := m.UpdateConfig(r.Context(), GetUserId(r), patch)
		if err != nil {
			respondOperationError(w, err)
			return
		}
		respondJSON(w, cfg, http.StatusOK)
	}
}

func getStats(s *stats.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usage, err := s.Compute(r.Context(), GetUserId(r))
		if err != nil {
			respondError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, usage, http.StatusOK)
	}
}

func respondSnapshot(w http.ResponseWriter, snap timer.Snapshot, err error, okStatus int) {
	if err != nil && !errors.Is(err, timer.ErrPersistence) {
		respondOperationError(w, err)
		return
	}

	resp := snapshotResponse{Snapshot: snap}
	if err != nil {
		resp.Warning = err.Error()
	}
	respondJSON(w, resp, okStatus)
}

func respondOperationError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		}, http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrInvalidTransition):
		respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrUnknownType):
		respondError(w, err.Error(), http.StatusBadRequest)
	default:
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
