package domain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func sampleQuota(t *testing.T) *Quota {
	t.Helper()
	var trade [TradeHashSize]byte
	for i := range trade {
		trade[i] = byte(i)
	}
	issuer := testCertificate(t, 3)
	q := &Quota{
		Timestamp: 1_700_000_000_123,
		FaceValue: 500,
		Issuer:    issuer,
		TradeHash: trade,
	}
	q.ID = DeriveQuotaID(q.Timestamp, q.FaceValue, issuer, trade, [32]byte{1})
	return q
}

func TestQuota_RoundTrip(t *testing.T) {
	q := sampleQuota(t)

	b := q.Bytes()
	if len(b) != QuotaSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(b), QuotaSize)
	}

	got, err := DecodeQuota(b)
	if err != nil {
		t.Fatalf("DecodeQuota() error = %v", err)
	}
	if *got != *q {
		t.Errorf("DecodeQuota() = %+v, want %+v", got, q)
	}
}

// Timestamp and face value sit in adjacent fields and must not be
// confused when they differ.
func TestDecodeQuota_TimestampFromOwnField(t *testing.T) {
	q := sampleQuota(t)
	q.Timestamp = 42
	q.FaceValue = 9_999

	got, err := DecodeQuota(q.Bytes())
	if err != nil {
		t.Fatalf("DecodeQuota() error = %v", err)
	}
	if got.Timestamp != 42 {
		t.Errorf("Timestamp = %d, want 42", got.Timestamp)
	}
	if got.FaceValue != 9_999 {
		t.Errorf("FaceValue = %d, want 9999", got.FaceValue)
	}
}

func TestQuota_Layout(t *testing.T) {
	q := sampleQuota(t)
	b := q.Bytes()

	if !bytes.Equal(b[:32], q.ID[:]) {
		t.Error("id not at offset 0")
	}
	if int64(binary.LittleEndian.Uint64(b[32:40])) != q.Timestamp {
		t.Error("timestamp not little-endian at offset 32")
	}
	if binary.LittleEndian.Uint64(b[40:48]) != q.FaceValue {
		t.Error("face value not little-endian at offset 40")
	}
	if !bytes.Equal(b[48:81], q.Issuer[:]) {
		t.Error("issuer not at offset 48")
	}
	if !bytes.Equal(b[81:113], q.TradeHash[:]) {
		t.Error("trade hash not at offset 81")
	}

	for f, want := range map[QuotaField][]byte{
		FieldID:        b[0:32],
		FieldTimestamp: b[32:40],
		FieldFaceValue: b[40:48],
		FieldIssuer:    b[48:81],
		FieldTradeHash: b[81:113],
	} {
		if got := q.Field(f); !bytes.Equal(got, want) {
			t.Errorf("Field(%d) = %x, want %x", f, got, want)
		}
	}
	if q.Field(QuotaField(99)) != nil {
		t.Error("unknown field should return nil")
	}
}

func TestDecodeQuota_Errors(t *testing.T) {
	q := sampleQuota(t)
	b := q.Bytes()

	for _, n := range []int{0, QuotaSize - 1, QuotaSize + 1} {
		buf := make([]byte, n)
		copy(buf, b)
		if _, err := DecodeQuota(buf); !errors.Is(err, ErrLengthMismatch) {
			t.Errorf("len %d: error = %v, want ErrLengthMismatch", n, err)
		}
	}

	bad := append([]byte(nil), b...)
	bad[offIssuer] = 0x07
	if _, err := DecodeQuota(bad); !errors.Is(err, ErrFieldInvalid) {
		t.Errorf("bad issuer: error = %v, want ErrFieldInvalid", err)
	}
}

func TestDeriveQuotaID(t *testing.T) {
	issuer := testCertificate(t, 4)
	var trade [TradeHashSize]byte

	a := DeriveQuotaID(1, 100, issuer, trade, [32]byte{1})
	b := DeriveQuotaID(1, 100, issuer, trade, [32]byte{1})
	c := DeriveQuotaID(1, 100, issuer, trade, [32]byte{2})
	d := DeriveQuotaID(2, 100, issuer, trade, [32]byte{1})

	if a != b {
		t.Error("same inputs should derive the same id")
	}
	if a == c {
		t.Error("different nonce should derive a different id")
	}
	if a == d {
		t.Error("different timestamp should derive a different id")
	}
}

func TestParseQuotaID(t *testing.T) {
	q := sampleQuota(t)

	id, err := ParseQuotaID(q.ID.String())
	if err != nil {
		t.Fatalf("ParseQuotaID() error = %v", err)
	}
	if id != q.ID {
		t.Error("ParseQuotaID() did not round-trip")
	}

	if _, err := ParseQuotaID("abcd"); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("short id: error = %v, want ErrLengthMismatch", err)
	}
	if _, err := ParseQuotaID("not-hex"); !errors.Is(err, ErrEncodingInvalid) {
		t.Errorf("bad hex: error = %v, want ErrEncodingInvalid", err)
	}
}

func TestQuota_View(t *testing.T) {
	q := sampleQuota(t)
	v := q.View()

	if v.ID != q.ID.String() || v.Issuer != q.Issuer.String() {
		t.Error("View() should carry hex id and issuer")
	}
	if v.FaceValue != q.FaceValue || v.Timestamp != q.Timestamp {
		t.Error("View() should carry numeric fields unchanged")
	}
	if len(v.TradeHash) != 2*TradeHashSize {
		t.Errorf("TradeHash length = %d", len(v.TradeHash))
	}
}
