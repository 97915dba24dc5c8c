package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/core/envelope"
)

// handleIssue handles POST /api/quota.
func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req IssueQuotaRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	raw, err := decodeHex("issue_quota_request", req.IssueQuotaRequest)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	envs, err := h.ledger.Issue(r.Context(), raw)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, hexList(envs))
}

// handleRecycle handles DELETE /api/quota. The body is a JSON array of
// hex quota envelopes; the response lists the recycled ids in input order.
func (h *Handler) handleRecycle(w http.ResponseWriter, r *http.Request) {
	var req []string
	if !h.decodeBody(w, r, &req) {
		return
	}
	raws := make([][]byte, len(req))
	for i, s := range req {
		b, err := decodeHex("quota", s)
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}
		raws[i] = b
	}

	ids, err := h.ledger.Recycle(r.Context(), raws)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	h.writeJSON(w, r, http.StatusOK, out)
}

// handleConvert handles PUT /api/quota.
func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertQuotaRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	raw, err := decodeHex("convert_quota_request", req.ConvertQuotaRequest)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	envs, err := h.ledger.Convert(r.Context(), raw)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, hexList(envs))
}

// handleGetQuota handles GET /api/quota/{id}.
func (h *Handler) handleGetQuota(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseQuotaID(chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	rec, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, rec)
}

func hexList(envs []*envelope.QuotaEnvelope) []string {
	out := make([]string, len(envs))
	for i, e := range envs {
		out[i] = e.Hex()
	}
	return out
}
