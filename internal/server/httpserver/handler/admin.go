package handler

import (
	"net/http"
)

// handleCreateAuthority handles POST /api/admin/meta.
func (h *Handler) handleCreateAuthority(w http.ResponseWriter, r *http.Request) {
	view, err := h.authority.Create(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, view)
}

// handleRotateAuthority handles PUT /api/admin/meta.
func (h *Handler) handleRotateAuthority(w http.ResponseWriter, r *http.Request) {
	var req RotateAuthorityRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	seed, err := decodeHex("seed", req.Seed)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	view, err := h.authority.Rotate(r.Context(), seed)
	for i := range seed {
		seed[i] = 0
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, view)
}

// handleDescribeAuthority handles GET /api/admin/meta.
func (h *Handler) handleDescribeAuthority(w http.ResponseWriter, r *http.Request) {
	view, err := h.authority.Describe(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, view)
}
