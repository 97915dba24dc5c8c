// Package handler provides the HTTP handlers of the quota ledger.
//
// Files:
//
//   - quota.go: issue, recycle, convert and lookup
//   - admin.go: authority identity administration
//   - health.go: liveness and readiness
//
// Every handler decodes its request, calls one service method and writes
// the result in the Response envelope. Domain errors keep their stable
// code; the HTTP status is derived from the error kind.
package handler
