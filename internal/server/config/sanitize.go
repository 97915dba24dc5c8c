package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Security.AdminToken != "" {
		sanitized.Security.AdminToken = maskSecret(sanitized.Security.AdminToken)
	}
	if sanitized.Identity.Passphrase != "" {
		sanitized.Identity.Passphrase = maskSecret(sanitized.Identity.Passphrase)
	}
	if sanitized.Storage.Postgres.DSN != "" {
		sanitized.Storage.Postgres.DSN = maskDSN(sanitized.Storage.Postgres.DSN)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// maskDSN hides the password of a postgres URL, leaving host and database.
func maskDSN(dsn string) string {
	scheme := strings.Index(dsn, "://")
	at := strings.LastIndex(dsn, "@")
	if scheme < 0 || at < scheme {
		return maskSecret(dsn)
	}
	userinfo := dsn[scheme+3 : at]
	user, _, hasPass := strings.Cut(userinfo, ":")
	if !hasPass {
		return dsn
	}
	return dsn[:scheme+3] + user + ":****" + dsn[at:]
}
