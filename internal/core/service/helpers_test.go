package service

import (
	"testing"
	"time"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/core/envelope"
	"github.com/yndnr/quotaledger/internal/core/identity"
	"github.com/yndnr/quotaledger/internal/storage/memory"
	"github.com/yndnr/quotaledger/internal/telemetry/metric"
)

func seededIdentity(t *testing.T, b byte) *identity.Identity {
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

// fixture is a ledger over an in-memory store with one allowed requester.
type fixture struct {
	store     *memory.Store
	authority *identity.Authority
	requester *identity.Identity
	metrics   *metric.Registry
	ledger    *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, DefaultLedgerConfig())
}

func newFixtureWithConfig(t *testing.T, cfg *LedgerConfig) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.New(),
		authority: identity.NewAuthority(seededIdentity(t, 1), nil, nil),
		requester: seededIdentity(t, 2),
		metrics:   metric.NewRegistry(),
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	}
	policy := NewStaticPolicy(false, f.requester.Certificate())
	f.ledger = NewLedger(f.store, f.authority, policy, f.metrics, nil, cfg)
	return f
}

func issueRequest(t *testing.T, signer envelope.Signer, denoms ...domain.Denomination) []byte {
	t.Helper()
	env, err := envelope.Sign(envelope.TypeIssueQuotaRequest, domain.NewIssue(denoms...), signer)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return env.Bytes()
}

func convertRequest(t *testing.T, signer envelope.Signer, inputs [][]byte, target ...domain.Denomination) []byte {
	t.Helper()
	req := &domain.ConvertRequest{Inputs: inputs, Target: domain.NewIssue(target...)}
	env, err := envelope.Sign(envelope.TypeConvertQuotaRequest, req, signer)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	return env.Bytes()
}

// issue mints through the ledger and fails the test on error.
func (f *fixture) issue(t *testing.T, denoms ...domain.Denomination) []*envelope.QuotaEnvelope {
	t.Helper()
	envs, err := f.ledger.Issue(t.Context(), issueRequest(t, f.requester, denoms...))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return envs
}

func (f *fixture) state(t *testing.T, id domain.QuotaID) domain.QuotaState {
	t.Helper()
	rec, err := f.store.Get(t.Context(), id.String())
	if err != nil {
		t.Fatalf("store.Get(%s) error = %v", id, err)
	}
	return rec.State
}

func rawOf(envs ...*envelope.QuotaEnvelope) [][]byte {
	out := make([][]byte, len(envs))
	for i, e := range envs {
		out[i] = e.Bytes()
	}
	return out
}

func sumOf(envs []*envelope.QuotaEnvelope) uint64 {
	var total uint64
	for _, e := range envs {
		total += e.Body.FaceValue
	}
	return total
}
