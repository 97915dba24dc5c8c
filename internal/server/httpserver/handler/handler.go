package handler

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/core/service"
	"github.com/yndnr/quotaledger/internal/telemetry/logger"
)

// maxBodyBytes bounds every request body. A full recycle batch of 1000
// quotas is well under 1 MiB of hex.
const maxBodyBytes = 4 << 20

// Handler serves the ledger API.
type Handler struct {
	ledger     *service.Ledger
	authority  *service.AuthorityService
	logger     *slog.Logger
	adminGuard func(http.Handler) http.Handler
	router     chi.Router
}

// New creates a Handler. adminGuard wraps the /api/admin routes; nil
// leaves them open, which only tests should do.
func New(ledger *service.Ledger, authority *service.AuthorityService, logger *slog.Logger, adminGuard func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		ledger:     ledger,
		authority:  authority,
		logger:     logger,
		adminGuard: adminGuard,
		router:     chi.NewRouter(),
	}
	h.Register(h.router)
	return h
}

// ServeHTTP serves the API on the handler's own router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Register adds every API route to r. r should be a root router: its
// NotFound and MethodNotAllowed handlers are replaced.
func (h *Handler) Register(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusNotFound, domain.ErrRouteNotFound.Code, domain.ErrRouteNotFound.Message)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusMethodNotAllowed, domain.ErrMethodNotAllowed.Code, domain.ErrMethodNotAllowed.Message)
	})

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	r.Route("/api/quota", func(r chi.Router) {
		r.Post("/", h.handleIssue)
		r.Delete("/", h.handleRecycle)
		r.Put("/", h.handleConvert)
		r.Get("/{id}", h.handleGetQuota)
	})

	r.Route("/api/admin", func(r chi.Router) {
		if h.adminGuard != nil {
			r.Use(h.adminGuard)
		}
		r.Post("/meta", h.handleCreateAuthority)
		r.Put("/meta", h.handleRotateAuthority)
		r.Get("/meta", h.handleDescribeAuthority)
	})
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message, nil)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// decodeBody reads a JSON body into v. Oversized and malformed bodies are
// reported as QL-SYS-4000.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body")
		return false
	}
	return true
}

// getRequestID returns the id set by the RequestID middleware.
func getRequestID(r *http.Request) string {
	if reqID := logger.RequestIDFromContext(r.Context()); reqID != "" {
		return reqID
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses. Only the
// code and message of a domain error reach the client.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		status := errorToHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Attach(r.Context(), h.logger).Error("request failed", "code", de.Code, "error", err)
		}
		h.writeError(w, r, status, de.Code, de.Message)
		return
	}

	logger.Attach(r.Context(), h.logger).Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, domain.ErrInternalServer.Message)
}

// errorToHTTPStatus maps an error to its HTTP status: a handful of codes
// are special, the rest follow the error kind.
func errorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrKeyMaterialMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRequesterNotAuthorized):
		return http.StatusForbidden
	}

	switch domain.KindOf(err) {
	case domain.KindDecode, domain.KindArgument:
		return http.StatusBadRequest
	case domain.KindSignature:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeHex(field, s string) ([]byte, error) {
	if s == "" {
		return nil, domain.ErrMissingArgument.WithDetails(field)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, domain.ErrEncodingInvalid.WithDetails(field).WithCause(err)
	}
	return b, nil
}
