package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports liveness and, when a session backend is configured,
// whether it answers.
type HealthHandler struct {
	sessions Pinger
}

// NewHealthHandler creates a health handler. sessions may be nil.
func NewHealthHandler(sessions Pinger) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

// HealthCheck returns a simple health check response.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.sessions != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.sessions.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"sessions": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
