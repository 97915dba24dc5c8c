package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every series.
const Namespace = "quotaledger"

// Workflow labels.
const (
	WorkflowIssue   = "issue"
	WorkflowRecycle = "recycle"
	WorkflowConvert = "convert"
	WorkflowGet     = "get"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	QuotasMinted    prometheus.Counter
	QuotasRecycled  prometheus.Counter
	QuotasConverted prometheus.Counter

	WorkflowFailures *prometheus.CounterVec
	WorkflowDuration *prometheus.HistogramVec

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with every ledger series registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		QuotasMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "quotas_minted_total",
			Help:      "Quotas minted by issuance or conversion.",
		}),
		QuotasRecycled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "quotas_recycled_total",
			Help:      "Quotas moved from issued to recycled by a recycle request.",
		}),
		QuotasConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "quotas_converted_total",
			Help:      "Quotas consumed as conversion inputs.",
		}),
		WorkflowFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "workflow_failures_total",
			Help:      "Failed ledger workflows by error kind.",
		}, []string{"workflow", "kind"}),
		WorkflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "workflow_duration_seconds",
			Help:      "Ledger workflow latency, including the store transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"workflow"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		r.QuotasMinted,
		r.QuotasRecycled,
		r.QuotasConverted,
		r.WorkflowFailures,
		r.WorkflowDuration,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registerer lets other components add their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// AddMinted records n minted quotas.
func (r *Registry) AddMinted(n int) {
	if r == nil {
		return
	}
	r.QuotasMinted.Add(float64(n))
}

// AddRecycled records n recycled quotas.
func (r *Registry) AddRecycled(n int) {
	if r == nil {
		return
	}
	r.QuotasRecycled.Add(float64(n))
}

// AddConverted records n consumed conversion inputs.
func (r *Registry) AddConverted(n int) {
	if r == nil {
		return
	}
	r.QuotasConverted.Add(float64(n))
}

// RecordFailure counts a failed workflow.
func (r *Registry) RecordFailure(workflow, kind string) {
	if r == nil {
		return
	}
	r.WorkflowFailures.WithLabelValues(workflow, kind).Inc()
}

// ObserveWorkflow records the latency of a workflow in seconds.
func (r *Registry) ObserveWorkflow(workflow string, seconds float64) {
	if r == nil {
		return
	}
	r.WorkflowDuration.WithLabelValues(workflow).Observe(seconds)
}

// RecordRequest counts an HTTP request.
func (r *Registry) RecordRequest(method, route, status string) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// ObserveRequestDuration records HTTP latency in seconds.
func (r *Registry) ObserveRequestDuration(method, route string, seconds float64) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}
