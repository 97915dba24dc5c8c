package domain

import (
	"encoding/binary"
	"io"
	"math/bits"
	"time"

	"github.com/yndnr/quotaledger/pkg/digest"
)

// DenominationSize is the encoded length of one (face_value, count) record.
const DenominationSize = 16

// Denomination asks for Count tokens of FaceValue each.
type Denomination struct {
	FaceValue uint64 `json:"face_value"`
	Count     uint64 `json:"count"`
}

// Issue is a batch specification. Denominations are an ordered sequence,
// not a set: the same face value may appear more than once and order
// changes the trade hash.
type Issue struct {
	Denominations []Denomination
}

// NewIssue creates an Issue from (face_value, count) pairs.
func NewIssue(denominations ...Denomination) Issue {
	return Issue{Denominations: denominations}
}

// Bytes returns the canonical encoding: repeated face_value(8 LE) ‖ count(8 LE).
func (i Issue) Bytes() []byte {
	b := make([]byte, len(i.Denominations)*DenominationSize)
	for n, d := range i.Denominations {
		off := n * DenominationSize
		binary.LittleEndian.PutUint64(b[off:], d.FaceValue)
		binary.LittleEndian.PutUint64(b[off+8:], d.Count)
	}
	return b
}

// DecodeIssue decodes a sequence of 16-byte denomination records.
func DecodeIssue(b []byte) (Issue, error) {
	if len(b)%DenominationSize != 0 {
		return Issue{}, ErrLengthMismatch.WithDetailsf("issue: %d bytes is not a multiple of %d", len(b), DenominationSize)
	}
	ds := make([]Denomination, 0, len(b)/DenominationSize)
	for off := 0; off < len(b); off += DenominationSize {
		ds = append(ds, Denomination{
			FaceValue: binary.LittleEndian.Uint64(b[off : off+8]),
			Count:     binary.LittleEndian.Uint64(b[off+8 : off+DenominationSize]),
		})
	}
	return Issue{Denominations: ds}, nil
}

// TradeHash is the digest of the canonical encoding. Every token minted
// from this batch carries it.
func (i Issue) TradeHash() [TradeHashSize]byte {
	return digest.Sum256(i.Bytes())
}

// TokenCount returns the number of tokens the batch expands to.
func (i Issue) TokenCount() (uint64, error) {
	var n uint64
	for _, d := range i.Denominations {
		sum, carry := bits.Add64(n, d.Count, 0)
		if carry != 0 {
			return 0, ErrValueOverflow.WithDetails("token count")
		}
		n = sum
	}
	return n, nil
}

// Total returns the sum of face_value × count over the batch.
func (i Issue) Total() (uint64, error) {
	var total uint64
	for _, d := range i.Denominations {
		hi, lo := bits.Mul64(d.FaceValue, d.Count)
		if hi != 0 {
			return 0, ErrValueOverflow.WithDetailsf("face value %d × count %d", d.FaceValue, d.Count)
		}
		sum, carry := bits.Add64(total, lo, 0)
		if carry != 0 {
			return 0, ErrValueOverflow.WithDetails("batch total")
		}
		total = sum
	}
	return total, nil
}

// Validate checks that the batch can be minted. maxTokens <= 0 disables
// the size limit.
func (i Issue) Validate(maxTokens int) error {
	if len(i.Denominations) == 0 {
		return ErrInvalidArgument.WithDetails("issue has no denominations")
	}
	for n, d := range i.Denominations {
		if d.FaceValue == 0 {
			return ErrInvalidArgument.WithDetailsf("denomination %d: face value is zero", n)
		}
		if d.Count == 0 {
			return ErrInvalidArgument.WithDetailsf("denomination %d: count is zero", n)
		}
	}
	count, err := i.TokenCount()
	if err != nil {
		return err
	}
	if _, err := i.Total(); err != nil {
		return err
	}
	if maxTokens > 0 && count > uint64(maxTokens) {
		return ErrBatchTooLarge.WithDetailsf("%d tokens requested, limit is %d", count, maxTokens)
	}
	return nil
}

// Expand mints the batch for issuer: one timestamp for the whole call, one
// trade hash from the batch encoding, and a fresh random nonce per token.
func (i Issue) Expand(issuer Certificate) ([]*Quota, error) {
	return i.ExpandWith(issuer, time.Now().UnixMilli(), i.TradeHash(), nil)
}

// ExpandWith is Expand with the timestamp, trade hash and nonce source
// supplied by the caller. A nil rnd uses crypto/rand.
//
// Quotas are returned in declared denomination order, then mint order.
func (i Issue) ExpandWith(issuer Certificate, timestamp int64, tradeHash [TradeHashSize]byte, rnd io.Reader) ([]*Quota, error) {
	count, err := i.TokenCount()
	if err != nil {
		return nil, err
	}
	quotas := make([]*Quota, 0, min(count, 1024))
	for _, d := range i.Denominations {
		for n := uint64(0); n < d.Count; n++ {
			nonce, err := digest.Random32(rnd)
			if err != nil {
				return nil, ErrInternalServer.WithDetails("draw quota nonce").WithCause(err)
			}
			quotas = append(quotas, &Quota{
				ID:        DeriveQuotaID(timestamp, d.FaceValue, issuer, tradeHash, nonce),
				Timestamp: timestamp,
				FaceValue: d.FaceValue,
				Issuer:    issuer,
				TradeHash: tradeHash,
			})
		}
	}
	return quotas, nil
}
