package domain

import (
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Size constants for the fixed-width primitives.
const (
	// CertificateSize is the length of a compressed secp256k1 public key.
	CertificateSize = 33

	// SignatureSize is the length of an R‖S signature.
	SignatureSize = 64

	// EnvelopeOverhead is the envelope framing around a body:
	// discriminant(1) ‖ body ‖ signer(33) ‖ signature(64).
	EnvelopeOverhead = 1 + CertificateSize + SignatureSize
)

// Certificate is a public-key certificate: the 33-byte compressed
// secp256k1 point of the holder's key.
type Certificate [CertificateSize]byte

// DecodeCertificate parses a certificate and checks that it is a point on
// the curve.
func DecodeCertificate(b []byte) (Certificate, error) {
	var c Certificate
	if len(b) != CertificateSize {
		return c, ErrLengthMismatch.WithDetailsf("certificate: got %d bytes, want %d", len(b), CertificateSize)
	}
	if _, err := secp256k1.ParsePubKey(b); err != nil {
		return c, ErrFieldInvalid.WithDetails("certificate: not a compressed curve point").WithCause(err)
	}
	copy(c[:], b)
	return c, nil
}

// ParseCertificate decodes a hex encoded certificate.
func ParseCertificate(s string) (Certificate, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Certificate{}, ErrEncodingInvalid.WithCause(err)
	}
	return DecodeCertificate(b)
}

// Bytes returns the certificate encoding.
func (c Certificate) Bytes() []byte {
	return append([]byte(nil), c[:]...)
}

// String returns the lower-case hex form.
func (c Certificate) String() string {
	return hex.EncodeToString(c[:])
}

// IsZero reports whether the certificate is unset.
func (c Certificate) IsZero() bool {
	return c == Certificate{}
}

// PublicKey parses the certificate into a curve point.
func (c Certificate) PublicKey() (*secp256k1.PublicKey, error) {
	pub, err := secp256k1.ParsePubKey(c[:])
	if err != nil {
		return nil, ErrFieldInvalid.WithDetails("certificate: not a compressed curve point").WithCause(err)
	}
	return pub, nil
}
