package domain

import (
	"encoding/binary"

	"github.com/yndnr/quotaledger/pkg/digest"
)

// ConvertRequest is the body of a conversion request: the signed quota
// envelopes to consume and the denominations to mint in exchange.
//
// Encoding: input_count(8 LE) ‖ inputs (QuotaEnvelopeSize each) ‖ target
// denomination records. The count prefix separates the two repeating
// record kinds.
type ConvertRequest struct {
	Inputs [][]byte
	Target Issue
}

// Bytes returns the canonical encoding.
func (r *ConvertRequest) Bytes() []byte {
	target := r.Target.Bytes()
	b := make([]byte, 8, 8+len(r.Inputs)*QuotaEnvelopeSize+len(target))
	binary.LittleEndian.PutUint64(b, uint64(len(r.Inputs)))
	for _, in := range r.Inputs {
		b = append(b, in...)
	}
	return append(b, target...)
}

// DecodeConvertRequest decodes a conversion request body. Inputs are
// returned as raw envelopes; they are decoded and verified by the ledger.
func DecodeConvertRequest(b []byte) (*ConvertRequest, error) {
	if len(b) < 8 {
		return nil, ErrLengthMismatch.WithDetailsf("convert request: got %d bytes, want at least 8", len(b))
	}
	n := binary.LittleEndian.Uint64(b[:8])
	rest := b[8:]
	if n > uint64(len(rest)/QuotaEnvelopeSize) {
		return nil, ErrLengthMismatch.WithDetailsf("convert request: %d inputs do not fit in %d bytes", n, len(rest))
	}

	inputs := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		inputs = append(inputs, append([]byte(nil), rest[:QuotaEnvelopeSize]...))
		rest = rest[QuotaEnvelopeSize:]
	}

	target, err := DecodeIssue(rest)
	if err != nil {
		return nil, err
	}
	return &ConvertRequest{Inputs: inputs, Target: target}, nil
}

// ConvertTradeHash binds conversion outputs to the exact inputs consumed:
// H(id_1 ‖ … ‖ id_n) in request order.
func ConvertTradeHash(inputs []QuotaID) [TradeHashSize]byte {
	parts := make([][]byte, len(inputs))
	for i := range inputs {
		parts[i] = inputs[i][:]
	}
	return digest.Sum256(parts...)
}
