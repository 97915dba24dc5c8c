package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yndnr/quotaledger/internal/core/service"
	"github.com/yndnr/quotaledger/internal/server/httpserver/handler"
	"github.com/yndnr/quotaledger/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Ledger    *service.Ledger
	Authority *service.AuthorityService

	// Metrics receives request series and backs /metrics.
	Metrics *metric.Registry

	Logger *slog.Logger

	// AdminToken guards /api/admin. Empty disables the admin API.
	AdminToken string

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// RateLimitRPS and RateLimitBurst size the per-IP token bucket. Zero
	// RPS disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// TrustProxyHeaders takes the client address from forwarding headers.
	TrustProxyHeaders bool

	// EnableMetrics exposes GET /metrics.
	EnableMetrics bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		RateLimitRPS:   100,
		RateLimitBurst: 200,
		EnableMetrics:  true,
	}
}

// NewRouter builds the full handler: global middleware, /metrics and the
// ledger API.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	h := handler.New(cfg.Ledger, cfg.Authority, log, AdminAuth(cfg.AdminToken))

	r := chi.NewRouter()
	r.Use(
		Recover(log),
		RequestID(),
		Audit(log, cfg.Metrics, cfg.TrustProxyHeaders),
		CORS(cfg.CORSAllowedOrigins),
	)
	if limiter := newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute); limiter != nil {
		r.Use(RateLimit(limiter, cfg.TrustProxyHeaders))
	}

	if cfg.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	h.Register(r)

	return r
}
