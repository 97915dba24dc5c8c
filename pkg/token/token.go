package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Prefix marks admin tokens so they are recognizable in configs and
// secret scanners.
const Prefix = "qlat_"

// DefaultLength is the number of random bytes behind a token.
const DefaultLength = 32

// Generate returns a new admin token.
func Generate() (string, error) {
	b, err := GenerateBytes(DefaultLength)
	if err != nil {
		return "", err
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateBytes returns length bytes from crypto/rand.
func GenerateBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// HasPrefix reports whether s looks like a generated token.
func HasPrefix(s string) bool {
	return strings.HasPrefix(s, Prefix) && len(s) > len(Prefix)
}

// Hash returns the hex SHA-256 digest of token.
func Hash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Verify reports whether token hashes to expectedHash. The comparison
// runs in constant time.
func Verify(token, expectedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(token)), []byte(expectedHash)) == 1
}
