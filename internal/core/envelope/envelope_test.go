package envelope_test

import (
	"errors"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/core/envelope"
	"github.com/yndnr/quotaledger/internal/core/identity"
)

func testIdentity(t *testing.T, b byte) *identity.Identity {
	t.Helper()
	var seed [identity.SeedSize]byte
	for i := range seed {
		seed[i] = b
	}
	id, err := identity.FromSeed(seed)
	if err != nil {
		t.Fatalf("FromSeed() error = %v", err)
	}
	return id
}

func testQuota(issuer domain.Certificate) *domain.Quota {
	var trade [domain.TradeHashSize]byte
	trade[0] = 0xAB
	q := &domain.Quota{
		Timestamp: 1_700_000_000_000,
		FaceValue: 25,
		Issuer:    issuer,
		TradeHash: trade,
	}
	q.ID = domain.DeriveQuotaID(q.Timestamp, q.FaceValue, issuer, trade, [32]byte{9})
	return q
}

func signedQuota(t *testing.T) (*envelope.QuotaEnvelope, *identity.Identity) {
	t.Helper()
	id := testIdentity(t, 1)
	env, err := envelope.Sign(envelope.TypeQuotaControlField, testQuota(id.Certificate()), id)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return env, id
}

func TestSignAndOpenQuota(t *testing.T) {
	env, id := signedQuota(t)

	raw := env.Bytes()
	if len(raw) != domain.QuotaEnvelopeSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(raw), domain.QuotaEnvelopeSize)
	}
	if raw[0] != byte(envelope.TypeQuotaControlField) {
		t.Errorf("type byte = 0x%02x", raw[0])
	}

	got, err := envelope.OpenQuota(raw)
	if err != nil {
		t.Fatalf("OpenQuota() error = %v", err)
	}
	if *got.Body != *env.Body {
		t.Error("decoded body differs")
	}
	if got.Signer != id.Certificate() {
		t.Error("decoded signer differs")
	}
	if got.Signature != env.Signature {
		t.Error("decoded signature differs")
	}
}

func TestSign_Deterministic(t *testing.T) {
	a, _ := signedQuota(t)
	b, _ := signedQuota(t)
	if a.Hex() != b.Hex() {
		t.Error("signing the same body twice should give identical envelopes")
	}
}

func TestOpenQuota_AnyByteFlipFails(t *testing.T) {
	env, _ := signedQuota(t)
	raw := env.Bytes()

	for i := range raw {
		mutated := append([]byte(nil), raw...)
		mutated[i] ^= 0x01
		if _, err := envelope.OpenQuota(mutated); err == nil {
			t.Fatalf("flip at byte %d was accepted", i)
		}
	}
}

func TestOpenQuota_Length(t *testing.T) {
	env, _ := signedQuota(t)
	raw := env.Bytes()

	for _, n := range []int{0, 1, domain.EnvelopeOverhead, len(raw) - 1} {
		if _, err := envelope.OpenQuota(raw[:n]); !errors.Is(err, domain.ErrLengthMismatch) {
			t.Errorf("len %d: error = %v, want ErrLengthMismatch", n, err)
		}
	}
	if _, err := envelope.OpenQuota(append(raw, 0)); !errors.Is(err, domain.ErrLengthMismatch) {
		t.Errorf("trailing byte: error = %v, want ErrLengthMismatch", err)
	}
}

func TestOpen_WrongType(t *testing.T) {
	id := testIdentity(t, 2)
	env, err := envelope.Sign(envelope.TypeQuota, testQuota(id.Certificate()), id)
	if err != nil {
		t.Fatal(err)
	}

	_, err = envelope.OpenQuota(env.Bytes())
	if !errors.Is(err, domain.ErrMessageType) {
		t.Errorf("error = %v, want ErrMessageType", err)
	}
}

func TestVerify_WrongSigner(t *testing.T) {
	env, _ := signedQuota(t)
	other := testIdentity(t, 3)
	env.Signer = other.Certificate()

	if err := env.Verify(); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Errorf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifyDigest_RejectsHighS(t *testing.T) {
	env, id := signedQuota(t)
	d := env.Digest()

	if !envelope.VerifyDigest(id.Certificate(), d, env.Signature) {
		t.Fatal("low-S signature should verify")
	}

	var s secp256k1.ModNScalar
	s.SetByteSlice(env.Signature[32:])
	s.Negate()
	high := env.Signature
	sb := s.Bytes()
	copy(high[32:], sb[:])

	if envelope.VerifyDigest(id.Certificate(), d, high) {
		t.Error("high-S twin of a valid signature must be rejected")
	}
}

func TestVerifyDigest_RejectsZeroAndOverflow(t *testing.T) {
	env, id := signedQuota(t)
	d := env.Digest()

	zeroR := env.Signature
	for i := 0; i < 32; i++ {
		zeroR[i] = 0
	}
	if envelope.VerifyDigest(id.Certificate(), d, zeroR) {
		t.Error("zero R accepted")
	}

	overflowS := env.Signature
	for i := 32; i < 64; i++ {
		overflowS[i] = 0xFF
	}
	if envelope.VerifyDigest(id.Certificate(), d, overflowS) {
		t.Error("S >= N accepted")
	}
}

func TestDecodeHex(t *testing.T) {
	env, _ := signedQuota(t)

	got, err := envelope.DecodeHex(env.Hex(), envelope.TypeQuotaControlField, domain.DecodeQuota)
	if err != nil {
		t.Fatalf("DecodeHex() error = %v", err)
	}
	if got.Hex() != env.Hex() {
		t.Error("hex round trip differs")
	}

	if _, err := envelope.DecodeHex("zz", envelope.TypeQuotaControlField, domain.DecodeQuota); !errors.Is(err, domain.ErrEncodingInvalid) {
		t.Errorf("bad hex error = %v, want ErrEncodingInvalid", err)
	}
}

func TestIssueRequestEnvelope(t *testing.T) {
	requester := testIdentity(t, 4)
	issue := domain.NewIssue(domain.Denomination{FaceValue: 10, Count: 2}, domain.Denomination{FaceValue: 5, Count: 1})

	env, err := envelope.Sign(envelope.TypeIssueQuotaRequest, issue, requester)
	if err != nil {
		t.Fatal(err)
	}
	got, err := envelope.OpenIssueRequest(env.Bytes())
	if err != nil {
		t.Fatalf("OpenIssueRequest() error = %v", err)
	}
	if len(got.Body.Denominations) != 2 || got.Body.Denominations[0].FaceValue != 10 {
		t.Errorf("decoded issue = %+v", got.Body)
	}
	if got.Signer != requester.Certificate() {
		t.Error("signer should be the requester")
	}
}

func TestMsgType_String(t *testing.T) {
	if got := envelope.TypeQuotaControlField.String(); got != "quota_control_field" {
		t.Errorf("String() = %q", got)
	}
	if got := envelope.MsgType(0x7f).String(); got != "msg_type(0x7f)" {
		t.Errorf("String() = %q", got)
	}
}
