// Package metric provides Prometheus metrics for the quota ledger.
//
// A Registry owns a private prometheus.Registry carrying the Go runtime and
// process collectors plus the ledger's own series:
//
//   - quotaledger_quotas_minted_total, _recycled_total, _converted_total
//   - quotaledger_workflow_failures_total{workflow,kind}
//   - quotaledger_workflow_duration_seconds{workflow}
//   - quotaledger_http_requests_total{method,route,status}
//   - quotaledger_http_request_duration_seconds{method,route}
//
// Storage adapters register their own gauges through Registerer.
// Metrics are exposed at /metrics in Prometheus format.
//
// A nil *Registry is valid and records nothing.
package metric
