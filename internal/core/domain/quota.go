package domain

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/yndnr/quotaledger/pkg/digest"
)

// Quota layout constants.
const (
	// QuotaIDSize is the length of a quota content address.
	QuotaIDSize = digest.Size

	// TradeHashSize is the length of a trade hash.
	TradeHashSize = digest.Size

	// QuotaSize is the fixed encoded length:
	// id(32) ‖ timestamp(8) ‖ face_value(8) ‖ issuer(33) ‖ trade_hash(32).
	QuotaSize = QuotaIDSize + 8 + 8 + CertificateSize + TradeHashSize

	// QuotaEnvelopeSize is the length of a signed quota envelope.
	QuotaEnvelopeSize = QuotaSize + EnvelopeOverhead
)

const (
	offID        = 0
	offTimestamp = offID + QuotaIDSize
	offFaceValue = offTimestamp + 8
	offIssuer    = offFaceValue + 8
	offTradeHash = offIssuer + CertificateSize
)

// QuotaID is the content address of a quota.
type QuotaID [QuotaIDSize]byte

// String returns the lower-case hex form used as the store key.
func (id QuotaID) String() string {
	return hex.EncodeToString(id[:])
}

// ParseQuotaID decodes a hex quota id.
func ParseQuotaID(s string) (QuotaID, error) {
	var id QuotaID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, ErrEncodingInvalid.WithCause(err)
	}
	if len(b) != QuotaIDSize {
		return id, ErrLengthMismatch.WithDetailsf("quota id: got %d bytes, want %d", len(b), QuotaIDSize)
	}
	copy(id[:], b)
	return id, nil
}

// Quota is the atomic token record. It is immutable once created.
type Quota struct {
	ID        QuotaID
	Timestamp int64 // milliseconds
	FaceValue uint64
	Issuer    Certificate
	TradeHash [TradeHashSize]byte
}

// DeriveQuotaID computes the content address
// H(timestamp_le ‖ face_value_le ‖ issuer ‖ trade_hash ‖ nonce).
//
// The nonce is never stored; without it the id cannot be recomputed.
func DeriveQuotaID(timestamp int64, faceValue uint64, issuer Certificate, tradeHash [TradeHashSize]byte, nonce [32]byte) QuotaID {
	var ts, fv [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(timestamp))
	binary.LittleEndian.PutUint64(fv[:], faceValue)
	return QuotaID(digest.Sum256(ts[:], fv[:], issuer[:], tradeHash[:], nonce[:]))
}

// Bytes returns the canonical 113-byte encoding.
func (q *Quota) Bytes() []byte {
	b := make([]byte, QuotaSize)
	copy(b[offID:], q.ID[:])
	binary.LittleEndian.PutUint64(b[offTimestamp:], uint64(q.Timestamp))
	binary.LittleEndian.PutUint64(b[offFaceValue:], q.FaceValue)
	copy(b[offIssuer:], q.Issuer[:])
	copy(b[offTradeHash:], q.TradeHash[:])
	return b
}

// DecodeQuota decodes the canonical encoding. Every field is read from its
// own byte range.
func DecodeQuota(b []byte) (*Quota, error) {
	if len(b) != QuotaSize {
		return nil, ErrLengthMismatch.WithDetailsf("quota: got %d bytes, want %d", len(b), QuotaSize)
	}

	issuer, err := DecodeCertificate(b[offIssuer:offTradeHash])
	if err != nil {
		return nil, ErrFieldInvalid.WithDetails("quota: issuer certificate").WithCause(err)
	}

	q := &Quota{
		Timestamp: int64(binary.LittleEndian.Uint64(b[offTimestamp:offFaceValue])),
		FaceValue: binary.LittleEndian.Uint64(b[offFaceValue:offIssuer]),
		Issuer:    issuer,
	}
	copy(q.ID[:], b[offID:offTimestamp])
	copy(q.TradeHash[:], b[offTradeHash:QuotaSize])
	return q, nil
}

// Time returns the issuance timestamp.
func (q *Quota) Time() time.Time {
	return time.UnixMilli(q.Timestamp)
}

// QuotaField enumerates the fields of a Quota for selective access.
type QuotaField int

const (
	FieldID QuotaField = iota
	FieldTimestamp
	FieldFaceValue
	FieldIssuer
	FieldTradeHash
)

// Field returns the canonical encoding of a single field, or nil for an
// unknown field.
func (q *Quota) Field(f QuotaField) []byte {
	b := q.Bytes()
	switch f {
	case FieldID:
		return b[offID:offTimestamp]
	case FieldTimestamp:
		return b[offTimestamp:offFaceValue]
	case FieldFaceValue:
		return b[offFaceValue:offIssuer]
	case FieldIssuer:
		return b[offIssuer:offTradeHash]
	case FieldTradeHash:
		return b[offTradeHash:QuotaSize]
	default:
		return nil
	}
}

// QuotaView is the JSON explanation of a quota stored alongside its envelope.
type QuotaView struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	FaceValue uint64 `json:"face_value"`
	Issuer    string `json:"issuer_certificate"`
	TradeHash string `json:"trade_hash"`
}

// View returns the JSON-friendly form of q.
func (q *Quota) View() QuotaView {
	return QuotaView{
		ID:        q.ID.String(),
		Timestamp: q.Timestamp,
		FaceValue: q.FaceValue,
		Issuer:    q.Issuer.String(),
		TradeHash: hex.EncodeToString(q.TradeHash[:]),
	}
}
