// Package token generates and checks admin bearer tokens.
//
// Token format: "qlat_" followed by 43 characters of base64url (32 random
// bytes). Servers keep only the SHA-256 hex digest of the configured token
// and compare digests in constant time.
package token
