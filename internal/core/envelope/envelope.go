package envelope

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/pkg/digest"
)

// MsgType is the one-byte discriminant that prefixes every envelope.
type MsgType byte

const (
	TypeIssueQuotaRequest   MsgType = 0x01
	TypeQuota               MsgType = 0x02
	TypeQuotaControlField   MsgType = 0x03
	TypeCurrency            MsgType = 0x04
	TypeConvertQuotaRequest MsgType = 0x05
)

// String returns the message type name.
func (t MsgType) String() string {
	switch t {
	case TypeIssueQuotaRequest:
		return "issue_quota_request"
	case TypeQuota:
		return "quota"
	case TypeQuotaControlField:
		return "quota_control_field"
	case TypeCurrency:
		return "currency"
	case TypeConvertQuotaRequest:
		return "convert_quota_request"
	default:
		return fmt.Sprintf("msg_type(0x%02x)", byte(t))
	}
}

// Body is anything with a canonical encoding.
type Body interface {
	Bytes() []byte
}

// Signer produces signatures for a certificate it holds the key for.
type Signer interface {
	Certificate() domain.Certificate
	SignDigest(digest [digest.Size]byte) ([domain.SignatureSize]byte, error)
}

// SignedEnvelope is a typed body with the signer's certificate and signature.
type SignedEnvelope[B Body] struct {
	Type      MsgType
	Body      B
	Signer    domain.Certificate
	Signature [domain.SignatureSize]byte
}

// Common instantiations.
type (
	QuotaEnvelope          = SignedEnvelope[*domain.Quota]
	IssueRequestEnvelope   = SignedEnvelope[domain.Issue]
	CurrencyEnvelope       = SignedEnvelope[*domain.Currency]
	ConvertRequestEnvelope = SignedEnvelope[*domain.ConvertRequest]
)

// Digest returns BLAKE2b-256(type ‖ body), the value that is signed.
func Digest(t MsgType, body []byte) [digest.Size]byte {
	return digest.Sum256([]byte{byte(t)}, body)
}

// Sign wraps body in an envelope signed by s.
func Sign[B Body](t MsgType, body B, s Signer) (*SignedEnvelope[B], error) {
	sig, err := s.SignDigest(Digest(t, body.Bytes()))
	if err != nil {
		return nil, err
	}
	return &SignedEnvelope[B]{
		Type:      t,
		Body:      body,
		Signer:    s.Certificate(),
		Signature: sig,
	}, nil
}

// Digest returns the signed digest of e.
func (e *SignedEnvelope[B]) Digest() [digest.Size]byte {
	return Digest(e.Type, e.Body.Bytes())
}

// Verify checks the signature against the embedded signer certificate.
func (e *SignedEnvelope[B]) Verify() error {
	if !VerifyDigest(e.Signer, e.Digest(), e.Signature) {
		return domain.ErrSignatureInvalid.WithDetailsf("%s envelope", e.Type)
	}
	return nil
}

// Bytes returns the binary envelope.
func (e *SignedEnvelope[B]) Bytes() []byte {
	body := e.Body.Bytes()
	b := make([]byte, 0, len(body)+domain.EnvelopeOverhead)
	b = append(b, byte(e.Type))
	b = append(b, body...)
	b = append(b, e.Signer[:]...)
	return append(b, e.Signature[:]...)
}

// Hex returns the lower-case hex form of Bytes.
func (e *SignedEnvelope[B]) Hex() string {
	return hex.EncodeToString(e.Bytes())
}

// Decode splits raw into its parts and decodes the body. It does not verify.
func Decode[B Body](raw []byte, t MsgType, decodeBody func([]byte) (B, error)) (*SignedEnvelope[B], error) {
	if len(raw) < domain.EnvelopeOverhead {
		return nil, domain.ErrLengthMismatch.WithDetailsf("envelope: got %d bytes, want at least %d", len(raw), domain.EnvelopeOverhead)
	}
	if MsgType(raw[0]) != t {
		return nil, domain.ErrMessageType.WithDetailsf("got %s, want %s", MsgType(raw[0]), t)
	}

	sigOff := len(raw) - domain.SignatureSize
	certOff := sigOff - domain.CertificateSize

	signer, err := domain.DecodeCertificate(raw[certOff:sigOff])
	if err != nil {
		return nil, err
	}
	body, err := decodeBody(raw[1:certOff])
	if err != nil {
		return nil, err
	}

	e := &SignedEnvelope[B]{Type: t, Body: body, Signer: signer}
	copy(e.Signature[:], raw[sigOff:])
	return e, nil
}

// DecodeHex is Decode for the hex form.
func DecodeHex[B Body](s string, t MsgType, decodeBody func([]byte) (B, error)) (*SignedEnvelope[B], error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, domain.ErrEncodingInvalid.WithCause(err)
	}
	return Decode(raw, t, decodeBody)
}

// Open decodes raw and verifies its signature.
func Open[B Body](raw []byte, t MsgType, decodeBody func([]byte) (B, error)) (*SignedEnvelope[B], error) {
	e, err := Decode(raw, t, decodeBody)
	if err != nil {
		return nil, err
	}
	if err := e.Verify(); err != nil {
		return nil, err
	}
	return e, nil
}

// OpenQuota opens a quota control field envelope.
func OpenQuota(raw []byte) (*QuotaEnvelope, error) {
	if len(raw) != domain.QuotaEnvelopeSize {
		return nil, domain.ErrLengthMismatch.WithDetailsf("quota envelope: got %d bytes, want %d", len(raw), domain.QuotaEnvelopeSize)
	}
	return Open(raw, TypeQuotaControlField, domain.DecodeQuota)
}

// OpenIssueRequest opens an issuance request envelope.
func OpenIssueRequest(raw []byte) (*IssueRequestEnvelope, error) {
	return Open(raw, TypeIssueQuotaRequest, domain.DecodeIssue)
}

// OpenConvertRequest opens a conversion request envelope.
func OpenConvertRequest(raw []byte) (*ConvertRequestEnvelope, error) {
	return Open(raw, TypeConvertQuotaRequest, domain.DecodeConvertRequest)
}

// OpenCurrency opens a currency envelope.
func OpenCurrency(raw []byte) (*CurrencyEnvelope, error) {
	return Open(raw, TypeCurrency, domain.DecodeCurrency)
}

// VerifyDigest reports whether sig is a valid low-S signature of d by cert.
func VerifyDigest(cert domain.Certificate, d [digest.Size]byte, sig [domain.SignatureSize]byte) bool {
	pub, err := secp256k1.ParsePubKey(cert[:])
	if err != nil {
		return false
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow || r.IsZero() {
		return false
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow || s.IsZero() {
		return false
	}
	if s.IsOverHalfOrder() {
		return false
	}
	return ecdsa.NewSignature(&r, &s).Verify(d[:], pub)
}
