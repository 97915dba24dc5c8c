package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/core/envelope"
	"github.com/yndnr/quotaledger/internal/core/identity"
	"github.com/yndnr/quotaledger/internal/storage"
)

func TestLedger_IssueRecycleConvertScenario(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	authority := f.authority.Current()

	// Issue 10×2 and 5×1.
	envs := f.issue(t, domain.Denomination{FaceValue: 10, Count: 2}, domain.Denomination{FaceValue: 5, Count: 1})
	if len(envs) != 3 {
		t.Fatalf("Issue() returned %d quotas, want 3", len(envs))
	}
	wantValues := []uint64{10, 10, 5}
	for i, e := range envs {
		if e.Body.FaceValue != wantValues[i] {
			t.Errorf("quota %d face value = %d, want %d", i, e.Body.FaceValue, wantValues[i])
		}
		if e.Body.Issuer != authority.Certificate() || e.Signer != authority.Certificate() {
			t.Errorf("quota %d not issued by the authority", i)
		}
		if err := e.Verify(); err != nil {
			t.Errorf("quota %d does not verify: %v", i, err)
		}
		if got := f.state(t, e.Body.ID); got != domain.StateIssued {
			t.Errorf("quota %d state = %s, want issued", i, got)
		}
	}
	if f.store.Len() != 3 {
		t.Fatalf("store holds %d records, want 3", f.store.Len())
	}

	// Recycle one 10.
	ids, err := f.ledger.Recycle(ctx, rawOf(envs[0]))
	if err != nil {
		t.Fatalf("Recycle() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != envs[0].Body.ID {
		t.Errorf("Recycle() ids = %v", ids)
	}
	if got := f.state(t, envs[0].Body.ID); got != domain.StateRecycled {
		t.Errorf("state after recycle = %s", got)
	}

	// Recycling again is refused.
	if _, err := f.ledger.Recycle(ctx, rawOf(envs[0])); !errors.Is(err, domain.ErrQuotaRecycled) {
		t.Errorf("second Recycle() error = %v, want ErrQuotaRecycled", err)
	}

	// Convert the remaining 10 and 5 into five 3s.
	outs, err := f.ledger.Convert(ctx, convertRequest(t, f.requester, rawOf(envs[1], envs[2]), domain.Denomination{FaceValue: 3, Count: 5}))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if len(outs) != 5 || sumOf(outs) != 15 {
		t.Fatalf("Convert() returned %d quotas worth %d", len(outs), sumOf(outs))
	}
	for _, id := range []domain.QuotaID{envs[1].Body.ID, envs[2].Body.ID} {
		if got := f.state(t, id); got != domain.StateRecycled {
			t.Errorf("input %s state = %s, want recycled", id, got)
		}
	}
	for _, o := range outs {
		if got := f.state(t, o.Body.ID); got != domain.StateIssued {
			t.Errorf("output %s state = %s, want issued", o.Body.ID, got)
		}
	}

	// Converting spent inputs is refused.
	_, err = f.ledger.Convert(ctx, convertRequest(t, f.requester, rawOf(envs[1], envs[2]), domain.Denomination{FaceValue: 15, Count: 1}))
	if !errors.Is(err, domain.ErrQuotaRecycled) {
		t.Errorf("Convert() of spent inputs error = %v, want ErrQuotaRecycled", err)
	}

	if got := testutil.ToFloat64(f.metrics.QuotasMinted); got != 8 {
		t.Errorf("minted counter = %v, want 8", got)
	}
	if got := testutil.ToFloat64(f.metrics.QuotasRecycled); got != 1 {
		t.Errorf("recycled counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.metrics.QuotasConverted); got != 2 {
		t.Errorf("converted counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(f.metrics.WorkflowFailures.WithLabelValues("recycle", "conflict")); got != 1 {
		t.Errorf("recycle conflict failures = %v, want 1", got)
	}
}

func TestLedger_Issue_SharedBatchFields(t *testing.T) {
	f := newFixture(t)
	envs := f.issue(t, domain.Denomination{FaceValue: 1, Count: 4}, domain.Denomination{FaceValue: 2, Count: 1})

	trade := domain.NewIssue(domain.Denomination{FaceValue: 1, Count: 4}, domain.Denomination{FaceValue: 2, Count: 1}).TradeHash()
	seen := make(map[domain.QuotaID]bool)
	for _, e := range envs {
		if e.Body.TradeHash != trade {
			t.Error("every quota of a batch should carry the batch trade hash")
		}
		if e.Body.Timestamp != envs[0].Body.Timestamp {
			t.Error("every quota of a batch should share one timestamp")
		}
		if seen[e.Body.ID] {
			t.Errorf("duplicate id %s", e.Body.ID)
		}
		seen[e.Body.ID] = true
	}
}

func TestLedger_Issue_UniqueIDs(t *testing.T) {
	if testing.Short() {
		t.Skip("mints 10,000 quotas")
	}
	f := newFixtureWithConfig(t, &LedgerConfig{MaxBatchSize: 10_000})
	envs := f.issue(t, domain.Denomination{FaceValue: 1, Count: 10_000})

	if f.store.Len() != 10_000 {
		t.Fatalf("store holds %d records, want 10000", f.store.Len())
	}
	seen := make(map[domain.QuotaID]struct{}, len(envs))
	for _, e := range envs {
		seen[e.Body.ID] = struct{}{}
	}
	if len(seen) != 10_000 {
		t.Errorf("%d distinct ids, want 10000", len(seen))
	}
}

func TestLedger_Issue_Errors(t *testing.T) {
	stranger := seededIdentity(t, 9)

	tests := []struct {
		name    string
		raw     func(f *fixture) []byte
		wantErr error
	}{
		{
			name:    "unauthorized requester",
			raw:     func(f *fixture) []byte { return issueRequest(t, stranger, domain.Denomination{FaceValue: 1, Count: 1}) },
			wantErr: domain.ErrRequesterNotAuthorized,
		},
		{
			name:    "empty batch",
			raw:     func(f *fixture) []byte { return issueRequest(t, f.requester) },
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "zero face value",
			raw:     func(f *fixture) []byte { return issueRequest(t, f.requester, domain.Denomination{FaceValue: 0, Count: 1}) },
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:    "batch too large",
			raw:     func(f *fixture) []byte { return issueRequest(t, f.requester, domain.Denomination{FaceValue: 1, Count: 1001}) },
			wantErr: domain.ErrBatchTooLarge,
		},
		{
			name: "overflowing total",
			raw: func(f *fixture) []byte {
				return issueRequest(t, f.requester, domain.Denomination{FaceValue: 1 << 63, Count: 2})
			},
			wantErr: domain.ErrValueOverflow,
		},
		{
			name: "bad signature",
			raw: func(f *fixture) []byte {
				raw := issueRequest(t, f.requester, domain.Denomination{FaceValue: 1, Count: 1})
				raw[len(raw)-1] ^= 0xFF
				return raw
			},
			wantErr: domain.ErrSignatureInvalid,
		},
		{
			name: "wrong message type",
			raw: func(f *fixture) []byte {
				raw := issueRequest(t, f.requester, domain.Denomination{FaceValue: 1, Count: 1})
				raw[0] = byte(envelope.TypeCurrency)
				return raw
			},
			wantErr: domain.ErrMessageType,
		},
		{
			name:    "truncated",
			raw:     func(f *fixture) []byte { return []byte{byte(envelope.TypeIssueQuotaRequest), 1, 2} },
			wantErr: domain.ErrLengthMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.ledger.Issue(t.Context(), tt.raw(f))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Issue() error = %v, want %v", err, tt.wantErr)
			}
			if f.store.Len() != 0 {
				t.Errorf("store holds %d records after a failed issue", f.store.Len())
			}
		})
	}
}

func TestLedger_Issue_AuthorityIsAlwaysAllowed(t *testing.T) {
	f := newFixture(t)
	envs, err := f.ledger.Issue(t.Context(), issueRequest(t, f.authority.Current(), domain.Denomination{FaceValue: 7, Count: 1}))
	if err != nil {
		t.Fatalf("Issue() by the authority error = %v", err)
	}
	if len(envs) != 1 {
		t.Errorf("Issue() returned %d quotas", len(envs))
	}
}

func TestLedger_Issue_NoAuthority(t *testing.T) {
	f := newFixture(t)
	f.ledger.authority = identity.NewAuthority(nil, nil, nil)

	_, err := f.ledger.Issue(t.Context(), issueRequest(t, f.requester, domain.Denomination{FaceValue: 1, Count: 1}))
	if !errors.Is(err, domain.ErrKeyMaterialMissing) {
		t.Errorf("Issue() error = %v, want ErrKeyMaterialMissing", err)
	}
}

func TestLedger_Recycle_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	authority := f.authority.Current()
	rogue := seededIdentity(t, 7)

	envs := f.issue(t, domain.Denomination{FaceValue: 10, Count: 2})
	genuine := envs[0]

	// Signed by the authority but never issued.
	unknownQuota := *genuine.Body
	unknownQuota.ID[0] ^= 0xFF
	unknown, _ := envelope.Sign(envelope.TypeQuotaControlField, &unknownQuota, authority)

	// Genuine id with a different face value, self-signed by a rogue key.
	inflated := *genuine.Body
	inflated.FaceValue = 1000
	inflated.Issuer = rogue.Certificate()
	forged, _ := envelope.Sign(envelope.TypeQuotaControlField, &inflated, rogue)

	// Claims the authority as issuer but signed by the rogue.
	impostor, _ := envelope.Sign(envelope.TypeQuotaControlField, genuine.Body, rogue)

	tests := []struct {
		name    string
		raws    [][]byte
		wantErr error
	}{
		{"empty", nil, domain.ErrMissingArgument},
		{"never issued", rawOf(unknown), domain.ErrQuotaNotFound},
		{"forged content", rawOf(forged), domain.ErrQuotaForged},
		{"signer is not issuer", rawOf(impostor), domain.ErrQuotaForged},
		{"duplicate in one call", rawOf(genuine, genuine), domain.ErrDuplicateInput},
		{"mixed valid and unknown", rawOf(genuine, unknown), domain.ErrQuotaNotFound},
		{"bad length", [][]byte{genuine.Bytes()[:100]}, domain.ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.Recycle(ctx, tt.raws); !errors.Is(err, tt.wantErr) {
				t.Errorf("Recycle() error = %v, want %v", err, tt.wantErr)
			}
			for _, e := range envs {
				if got := f.state(t, e.Body.ID); got != domain.StateIssued {
					t.Errorf("quota %s state = %s after a failed recycle", e.Body.ID, got)
				}
			}
		})
	}
}

func TestLedger_Recycle_BatchLimit(t *testing.T) {
	f := newFixtureWithConfig(t, &LedgerConfig{MaxBatchSize: 2})
	envs := f.issue(t, domain.Denomination{FaceValue: 1, Count: 2})

	raws := append(rawOf(envs...), envs[0].Bytes())
	if _, err := f.ledger.Recycle(t.Context(), raws); !errors.Is(err, domain.ErrBatchTooLarge) {
		t.Errorf("Recycle() error = %v, want ErrBatchTooLarge", err)
	}
}

func TestLedger_Recycle_AfterRotation(t *testing.T) {
	f := newFixture(t)
	envs := f.issue(t, domain.Denomination{FaceValue: 4, Count: 1})

	if _, err := f.authority.Rotate(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.Recycle(t.Context(), rawOf(envs...)); err != nil {
		t.Errorf("quota from a previous authority should still recycle: %v", err)
	}
}

func TestLedger_Convert_Errors(t *testing.T) {
	stranger := seededIdentity(t, 9)

	tests := []struct {
		name    string
		raw     func(f *fixture, in []*envelope.QuotaEnvelope) []byte
		wantErr error
	}{
		{
			name: "value not conserved",
			raw: func(f *fixture, in []*envelope.QuotaEnvelope) []byte {
				return convertRequest(t, f.requester, rawOf(in...), domain.Denomination{FaceValue: 7, Count: 2})
			},
			wantErr: domain.ErrValueNotConserved,
		},
		{
			name: "duplicate input",
			raw: func(f *fixture, in []*envelope.QuotaEnvelope) []byte {
				return convertRequest(t, f.requester, rawOf(in[0], in[0]), domain.Denomination{FaceValue: 10, Count: 1})
			},
			wantErr: domain.ErrDuplicateInput,
		},
		{
			name: "no inputs",
			raw: func(f *fixture, in []*envelope.QuotaEnvelope) []byte {
				return convertRequest(t, f.requester, nil, domain.Denomination{FaceValue: 1, Count: 1})
			},
			wantErr: domain.ErrMissingArgument,
		},
		{
			name: "empty target",
			raw: func(f *fixture, in []*envelope.QuotaEnvelope) []byte {
				return convertRequest(t, f.requester, rawOf(in...))
			},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name: "unauthorized requester",
			raw: func(f *fixture, in []*envelope.QuotaEnvelope) []byte {
				return convertRequest(t, stranger, rawOf(in...), domain.Denomination{FaceValue: 15, Count: 1})
			},
			wantErr: domain.ErrRequesterNotAuthorized,
		},
		{
			name: "tampered input",
			raw: func(f *fixture, in []*envelope.QuotaEnvelope) []byte {
				bad := in[0].Bytes()
				bad[45] ^= 0x01
				return convertRequest(t, f.requester, [][]byte{bad, in[1].Bytes()}, domain.Denomination{FaceValue: 15, Count: 1})
			},
			wantErr: domain.ErrSignatureInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := f.issue(t, domain.Denomination{FaceValue: 10, Count: 1}, domain.Denomination{FaceValue: 5, Count: 1})

			_, err := f.ledger.Convert(t.Context(), tt.raw(f, in))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Convert() error = %v, want %v", err, tt.wantErr)
			}
			if f.store.Len() != 2 {
				t.Errorf("store holds %d records after a failed convert", f.store.Len())
			}
			for _, e := range in {
				if got := f.state(t, e.Body.ID); got != domain.StateIssued {
					t.Errorf("input %s state = %s after a failed convert", e.Body.ID, got)
				}
			}
		})
	}
}

func TestLedger_Convert_PartiallySpentRollsBack(t *testing.T) {
	f := newFixture(t)
	in := f.issue(t, domain.Denomination{FaceValue: 10, Count: 1}, domain.Denomination{FaceValue: 5, Count: 1})

	if _, err := f.ledger.Recycle(t.Context(), rawOf(in[1])); err != nil {
		t.Fatal(err)
	}
	_, err := f.ledger.Convert(t.Context(), convertRequest(t, f.requester, rawOf(in...), domain.Denomination{FaceValue: 15, Count: 1}))
	if !errors.Is(err, domain.ErrQuotaRecycled) {
		t.Fatalf("Convert() error = %v, want ErrQuotaRecycled", err)
	}
	if got := f.state(t, in[0].Body.ID); got != domain.StateIssued {
		t.Errorf("unspent input state = %s, want issued", got)
	}
	if f.store.Len() != 2 {
		t.Errorf("no outputs should be stored, store holds %d", f.store.Len())
	}
}

func TestLedger_Convert_OutputsBoundToInputs(t *testing.T) {
	f := newFixture(t)
	in := f.issue(t, domain.Denomination{FaceValue: 6, Count: 2})

	outs, err := f.ledger.Convert(t.Context(), convertRequest(t, f.requester, rawOf(in...), domain.Denomination{FaceValue: 4, Count: 3}))
	if err != nil {
		t.Fatal(err)
	}
	want := domain.ConvertTradeHash([]domain.QuotaID{in[0].Body.ID, in[1].Body.ID})
	for _, o := range outs {
		if o.Body.TradeHash != want {
			t.Error("output trade hash should commit to the consumed inputs")
		}
	}
}

func TestLedger_ConcurrentConvertsOfOneInput(t *testing.T) {
	f := newFixture(t)
	in := f.issue(t, domain.Denomination{FaceValue: 8, Count: 1})
	req := convertRequest(t, f.requester, rawOf(in...), domain.Denomination{FaceValue: 4, Count: 2})

	const workers = 2
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Convert(t.Context(), req)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("%d converts succeeded, want exactly 1", wins)
	}
	for _, err := range errs {
		if !errors.Is(err, domain.ErrQuotaRecycled) && !errors.Is(err, domain.ErrConcurrentUpdate) {
			t.Errorf("losing convert error = %v", err)
		}
	}
	if f.store.Len() != 3 {
		t.Errorf("store holds %d records, want 1 input and 2 outputs", f.store.Len())
	}
}

func TestLedger_Get(t *testing.T) {
	f := newFixture(t)
	envs := f.issue(t, domain.Denomination{FaceValue: 3, Count: 1})

	rec, err := f.ledger.Get(t.Context(), envs[0].Body.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Envelope != envs[0].Hex() {
		t.Error("stored envelope differs from the issued one")
	}
	if rec.State != domain.StateIssued {
		t.Errorf("state = %s", rec.State)
	}
	if len(rec.ExplainInfo) == 0 {
		t.Error("explain info should be stored")
	}

	var missing domain.QuotaID
	if _, err := f.ledger.Get(t.Context(), missing); !errors.Is(err, domain.ErrQuotaNotFound) {
		t.Errorf("Get() of a missing id error = %v, want ErrQuotaNotFound", err)
	}
}

// failingStore fails every transaction with err.
type failingStore struct {
	storage.Store
	err error
}

func (s *failingStore) InTx(ctx context.Context, fn func(storage.Tx) error) error {
	return s.err
}

func TestLedger_StoreErrorsAreMapped(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"conflict", storage.ErrTxConflict, domain.ErrConcurrentUpdate},
		{"closed", storage.ErrClosed, domain.ErrPersistence},
		{"other", errors.New("disk on fire"), domain.ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ledger.store = &failingStore{Store: f.store, err: tt.err}

			_, err := f.ledger.Issue(t.Context(), issueRequest(t, f.requester, domain.Denomination{FaceValue: 1, Count: 1}))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Issue() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
