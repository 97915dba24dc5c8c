// Package httpserver serves the ledger API over HTTP and HTTPS.
//
// Routing uses chi. Every request passes Recover, RequestID, Audit, CORS
// and a per-IP rate limit; /api/admin additionally requires the admin
// bearer token. When TLS is configured the certificate is reloaded from
// disk on change.
package httpserver
