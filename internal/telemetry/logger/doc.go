// Package logger provides structured logging for the quota ledger.
//
// It wraps log/slog:
//
//   - logger.go: handler construction and the dynamic level
//   - context.go: request-scoped loggers and request IDs
//   - redact.go: masking of key material before it reaches any sink
//
// Components take a *slog.Logger (see Logger.Slog); the redaction hook is
// installed on the handler so it applies to every record regardless of the
// call site.
package logger
