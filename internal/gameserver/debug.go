package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
)

// SessionSource is the read side of the session manager.
type SessionSource interface {
	IDs() []string
	Get(id string) (*combat.Session, error)
}

// DebugConfig holds the dependencies of the debug router.
type DebugConfig struct {
	// Sessions is required.
	Sessions SessionSource
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
	// Health checks backing stores for /healthz when non-nil.
	Health func(ctx context.Context) error
}

// NewDebugRouter builds the HTTP router for health, metrics and session inspection.
// It starts no goroutines and opens no listeners.
func NewDebugRouter(cfg DebugConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string][]string{"sessions": cfg.Sessions.IDs()})
		})
		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			s, err := cfg.Sessions.Get(chi.URLParam(req, "id"))
			if errors.Is(err, combat.ErrSessionNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, s.Snapshot())
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
