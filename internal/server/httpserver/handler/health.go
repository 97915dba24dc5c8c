package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/yndnr/quotaledger/internal/infra/buildinfo"
)

// readyTimeout bounds the store ping behind GET /ready.
const readyTimeout = 2 * time.Second

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: buildinfo.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. The node is ready when the store answers
// and an authority identity is loaded.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  "ready",
		Version: buildinfo.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	err := h.ledger.Ping(ctx)
	if err == nil {
		_, err = h.authority.Describe(ctx)
	}
	if err != nil {
		resp.Status = "not_ready"
		resp.Error = err.Error()
		h.writeJSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}
