package domain

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// testCertificate returns a valid certificate derived from a one-byte key.
func testCertificate(t *testing.T, k byte) Certificate {
	t.Helper()
	var secret [32]byte
	secret[31] = k
	pub := secp256k1.PrivKeyFromBytes(secret[:]).PubKey().SerializeCompressed()
	c, err := DecodeCertificate(pub)
	if err != nil {
		t.Fatalf("DecodeCertificate() error = %v", err)
	}
	return c
}
