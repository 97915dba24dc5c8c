package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys containing any of these are redacted. Certificates and
// codes are public and deliberately absent ("public_key" stays readable).
var sensitiveKeyPatterns = []string{
	"seed",
	"secret",
	"mnemonic",
	"passphrase",
	"password",
	"private_key",
	"token",
	"credential",
	"authorization",
	"bearer",
}

const redactedValue = "***REDACTED***"

// mnemonicMinWords is the shortest BIP-39 phrase.
const mnemonicMinWords = 12

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if IsSensitiveKey(a.Key) || looksLikeMnemonic(v) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindAny:
		// []byte under a sensitive key is raw key material.
		if b, ok := a.Value.Any().([]byte); ok && len(b) > 0 && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// looksLikeMnemonic reports whether v is a run of at least twelve
// lower-case words, the shape of a BIP-39 backup phrase.
func looksLikeMnemonic(v string) bool {
	words := strings.Fields(v)
	if len(words) < mnemonicMinWords {
		return false
	}
	for _, w := range words {
		for _, r := range w {
			if r < 'a' || r > 'z' {
				return false
			}
		}
	}
	return true
}

// maskValue keeps the first and last three characters.
func maskValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// RedactString masks a value before it is logged under a non-sensitive key,
// e.g. an admin token prefix in an audit line.
func RedactString(value string) string {
	if looksLikeMnemonic(value) {
		return redactedValue
	}
	return maskValue(value)
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
