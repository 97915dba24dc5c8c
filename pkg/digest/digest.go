package digest

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest length in bytes.
const Size = blake2b.Size256

// Sum256 computes the BLAKE2b-256 digest of the concatenation of parts.
func Sum256(parts ...[]byte) [Size]byte {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
	for _, p := range parts {
		h.Write(p)
	}
	var out [Size]byte
	h.Sum(out[:0])
	return out
}

// Hex computes Sum256 and returns it hex encoded.
func Hex(parts ...[]byte) string {
	sum := Sum256(parts...)
	return hex.EncodeToString(sum[:])
}

// Random32 reads 32 bytes from r, or from crypto/rand when r is nil.
func Random32(r io.Reader) ([32]byte, error) {
	var out [32]byte
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// RandomBytes generates length random bytes using crypto/rand.
func RandomBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Equal reports whether a and b are equal in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
