// Package status exposes the watch-mode operational surface: a health check
// and the last dispatch pass summary. There is no public API beyond this.
package status

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fermicalendar/notifier/internal/db"
	"github.com/fermicalendar/notifier/internal/notifications"
)

// Tracker holds the most recent pass result for the /status endpoint.
type Tracker struct {
	mu     sync.Mutex
	last   *notifications.RunResult
	lastAt time.Time
}

// Update records a completed pass.
func (t *Tracker) Update(r notifications.RunResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = &r
	t.lastAt = time.Now()
}

func (t *Tracker) snapshot() (notifications.RunResult, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return notifications.RunResult{}, time.Time{}, false
	}
	return *t.last, t.lastAt, true
}

// NewRouter creates the chi router for the status server.
func NewRouter(pool *db.Pool, tracker *Tracker) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.HealthCheck(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy", "error": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		result, at, ok := tracker.snapshot()
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"last_run": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"last_run": map[string]any{
				"at":             at.Format(time.RFC3339),
				"events_fetched": result.EventsFetched,
				"subscribers":    result.Subscribers,
				"notified":       result.Notified,
				"errors":         len(result.Errors),
				"setup_failed":   result.SetupFailed,
				"duration_ms":    result.Duration.Milliseconds(),
			},
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
