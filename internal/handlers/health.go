package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/silverline-jewels/storefront-api/internal/platform/httpx"
)

const readyCheckTimeout = 2 * time.Second

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	ready func(ctx context.Context) error
	start time.Time
}

// NewHealthHandlers constructs health handlers. The ready check is optional;
// without one readiness always succeeds.
func NewHealthHandlers(ready func(ctx context.Context) error) *HealthHandlers {
	return &HealthHandlers{
		ready: ready,
		start: time.Now(),
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.start).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether downstream dependencies answer.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("not_ready", err.Error(), http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
