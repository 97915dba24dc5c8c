package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"math/bits"
	"time"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/core/envelope"
	"github.com/yndnr/quotaledger/internal/core/identity"
	"github.com/yndnr/quotaledger/internal/storage"
	"github.com/yndnr/quotaledger/internal/telemetry/metric"
)

// AuthoritySource yields the identity currently signing quotas.
// Current returns nil when no identity exists yet.
type AuthoritySource interface {
	Current() *identity.Identity
}

// LedgerConfig holds configuration for Ledger.
type LedgerConfig struct {
	// MaxBatchSize caps the tokens minted by one issue or convert call and
	// the quotas retired by one recycle or convert call (default: 1000).
	// Zero or less disables the cap.
	MaxBatchSize int

	// Rand is the nonce source. Nil uses crypto/rand.
	Rand io.Reader

	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
}

// DefaultLedgerConfig returns default configuration.
func DefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		MaxBatchSize: 1000,
	}
}

// Ledger issues, recycles and converts quotas against the store of record.
type Ledger struct {
	store     storage.Store
	authority AuthoritySource
	policy    RequesterPolicy
	metrics   *metric.Registry
	logger    *slog.Logger

	maxBatch int
	rnd      io.Reader
	now      func() time.Time
}

// NewLedger creates a Ledger. A nil policy admits only the authority
// itself; nil metrics disables recording.
func NewLedger(store storage.Store, authority AuthoritySource, policy RequesterPolicy, metrics *metric.Registry, logger *slog.Logger, config *LedgerConfig) *Ledger {
	if config == nil {
		config = DefaultLedgerConfig()
	}
	if policy == nil {
		policy = NewStaticPolicy(false)
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &Ledger{
		store:     store,
		authority: authority,
		policy:    policy,
		metrics:   metrics,
		logger:    logger,
		maxBatch:  config.MaxBatchSize,
		rnd:       config.Rand,
		now:       now,
	}
}

// Issue mints the batch described by a signed issuance request.
//
// Every minted quota is persisted in state issued within one transaction,
// and the signed envelopes are returned in denomination order.
func (l *Ledger) Issue(ctx context.Context, raw []byte) (out []*envelope.QuotaEnvelope, err error) {
	defer l.observe(ctx, metric.WorkflowIssue, time.Now(), &err)

	// 1. Decode and verify the request
	req, err := envelope.OpenIssueRequest(raw)
	if err != nil {
		return nil, err
	}

	// 2. Authorize the requester against the current authority
	authority, err := l.currentAuthority()
	if err != nil {
		return nil, err
	}
	if err := l.policy.Authorize(req.Signer, authority.Certificate()); err != nil {
		return nil, err
	}

	// 3. Validate and expand
	issue := req.Body
	if err := issue.Validate(l.maxBatch); err != nil {
		return nil, err
	}
	total, _ := issue.Total()

	quotas, err := issue.ExpandWith(authority.Certificate(), l.now().UnixMilli(), issue.TradeHash(), l.rnd)
	if err != nil {
		return nil, err
	}

	// 4. Sign
	envs, records, err := l.mint(quotas, authority)
	if err != nil {
		return nil, err
	}

	// 5. Persist
	err = l.store.InTx(ctx, func(tx storage.Tx) error {
		return insertAll(ctx, tx, records)
	})
	if err != nil {
		return nil, mapStoreError(err, "")
	}

	l.metrics.AddMinted(len(envs))
	l.logger.InfoContext(ctx, "quotas issued",
		"requester", req.Signer.String(),
		"count", len(envs),
		"total", total,
	)
	return envs, nil
}

// Recycle retires quotas. Either every listed quota moves from issued to
// recycled or none does. It returns the retired ids in request order.
func (l *Ledger) Recycle(ctx context.Context, raws [][]byte) (ids []domain.QuotaID, err error) {
	defer l.observe(ctx, metric.WorkflowRecycle, time.Now(), &err)

	if len(raws) == 0 {
		return nil, domain.ErrMissingArgument.WithDetails("no quotas to recycle")
	}
	if l.maxBatch > 0 && len(raws) > l.maxBatch {
		return nil, domain.ErrBatchTooLarge.WithDetailsf("%d quotas listed, limit is %d", len(raws), l.maxBatch)
	}

	inputs, err := openInputs(raws)
	if err != nil {
		return nil, err
	}

	err = l.store.InTx(ctx, func(tx storage.Tx) error {
		return retireAll(ctx, tx, inputs)
	})
	if err != nil {
		return nil, mapStoreError(err, "")
	}

	ids = make([]domain.QuotaID, len(inputs))
	for i, in := range inputs {
		ids[i] = in.env.Body.ID
	}

	l.metrics.AddRecycled(len(ids))
	l.logger.InfoContext(ctx, "quotas recycled", "count", len(ids))
	return ids, nil
}

// Convert consumes the input quotas of a signed conversion request and
// mints the requested target denominations in their place.
//
// The target must carry exactly the value of the inputs. The requester
// declares the split; the ledger never chooses one. Retiring inputs and
// inserting outputs happen in one transaction.
func (l *Ledger) Convert(ctx context.Context, raw []byte) (out []*envelope.QuotaEnvelope, err error) {
	defer l.observe(ctx, metric.WorkflowConvert, time.Now(), &err)

	// 1. Decode and verify the request
	req, err := envelope.OpenConvertRequest(raw)
	if err != nil {
		return nil, err
	}

	// 2. Authorize the requester
	authority, err := l.currentAuthority()
	if err != nil {
		return nil, err
	}
	if err := l.policy.Authorize(req.Signer, authority.Certificate()); err != nil {
		return nil, err
	}

	// 3. Open every input
	if len(req.Body.Inputs) == 0 {
		return nil, domain.ErrMissingArgument.WithDetails("conversion has no inputs")
	}
	if l.maxBatch > 0 && len(req.Body.Inputs) > l.maxBatch {
		return nil, domain.ErrBatchTooLarge.WithDetailsf("%d inputs listed, limit is %d", len(req.Body.Inputs), l.maxBatch)
	}
	inputs, err := openInputs(req.Body.Inputs)
	if err != nil {
		return nil, err
	}

	// 4. Check value conservation
	var sum uint64
	ids := make([]domain.QuotaID, len(inputs))
	for i, in := range inputs {
		s, carry := bits.Add64(sum, in.env.Body.FaceValue, 0)
		if carry != 0 {
			return nil, domain.ErrValueOverflow.WithDetails("input total")
		}
		sum = s
		ids[i] = in.env.Body.ID
	}

	target := req.Body.Target
	if err := target.Validate(l.maxBatch); err != nil {
		return nil, err
	}
	total, _ := target.Total()
	if total != sum {
		return nil, domain.ErrValueNotConserved.WithDetailsf("inputs total %d, target total %d", sum, total)
	}

	// 5. Mint outputs bound to the consumed inputs
	quotas, err := target.ExpandWith(authority.Certificate(), l.now().UnixMilli(), domain.ConvertTradeHash(ids), l.rnd)
	if err != nil {
		return nil, err
	}
	envs, records, err := l.mint(quotas, authority)
	if err != nil {
		return nil, err
	}

	// 6. Retire and insert atomically
	err = l.store.InTx(ctx, func(tx storage.Tx) error {
		if err := retireAll(ctx, tx, inputs); err != nil {
			return err
		}
		return insertAll(ctx, tx, records)
	})
	if err != nil {
		return nil, mapStoreError(err, "")
	}

	l.metrics.AddConverted(len(inputs))
	l.metrics.AddMinted(len(envs))
	l.logger.InfoContext(ctx, "quotas converted",
		"requester", req.Signer.String(),
		"inputs", len(inputs),
		"outputs", len(envs),
		"value", sum,
	)
	return envs, nil
}

// Get returns the persisted record of a quota.
func (l *Ledger) Get(ctx context.Context, id domain.QuotaID) (rec *storage.Record, err error) {
	defer l.observe(ctx, metric.WorkflowGet, time.Now(), &err)

	rec, err = l.store.Get(ctx, id.String())
	if err != nil {
		return nil, mapStoreError(err, id.String())
	}
	return rec, nil
}

// Ping checks the store of record.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.store.Ping(ctx); err != nil {
		return mapStoreError(err, "")
	}
	return nil
}

func (l *Ledger) currentAuthority() (*identity.Identity, error) {
	if l.authority == nil {
		return nil, domain.ErrKeyMaterialMissing
	}
	id := l.authority.Current()
	if id == nil {
		return nil, domain.ErrKeyMaterialMissing
	}
	return id, nil
}

// mint signs each quota and builds its issued record.
func (l *Ledger) mint(quotas []*domain.Quota, authority *identity.Identity) ([]*envelope.QuotaEnvelope, []*storage.Record, error) {
	now := l.now().UTC()
	envs := make([]*envelope.QuotaEnvelope, 0, len(quotas))
	records := make([]*storage.Record, 0, len(quotas))

	for _, q := range quotas {
		env, err := envelope.Sign(envelope.TypeQuotaControlField, q, authority)
		if err != nil {
			return nil, nil, domain.ErrInternalServer.WithDetails("sign quota").WithCause(err)
		}
		explain, err := json.Marshal(q.View())
		if err != nil {
			return nil, nil, domain.ErrInternalServer.WithCause(err)
		}

		envs = append(envs, env)
		records = append(records, &storage.Record{
			ID:          q.ID.String(),
			Envelope:    env.Hex(),
			ExplainInfo: explain,
			State:       domain.StateIssued,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return envs, records, nil
}

// input is a presented quota envelope after signature verification.
type input struct {
	env *envelope.QuotaEnvelope
	hex string
}

// openInputs verifies each presented envelope, requires it to be signed by
// the issuer it names, and rejects repeats.
func openInputs(raws [][]byte) ([]input, error) {
	inputs := make([]input, 0, len(raws))
	seen := make(map[domain.QuotaID]struct{}, len(raws))

	for _, raw := range raws {
		env, err := envelope.OpenQuota(raw)
		if err != nil {
			return nil, err
		}
		if env.Signer != env.Body.Issuer {
			return nil, domain.ErrQuotaForged.WithDetailsf("%s: signer is not the issuer", env.Body.ID)
		}
		if _, dup := seen[env.Body.ID]; dup {
			return nil, domain.ErrDuplicateInput.WithDetails(env.Body.ID.String())
		}
		seen[env.Body.ID] = struct{}{}
		inputs = append(inputs, input{env: env, hex: hex.EncodeToString(raw)})
	}
	return inputs, nil
}

// retireAll moves every input from issued to recycled. A presented
// envelope must match the issued one byte for byte.
func retireAll(ctx context.Context, tx storage.Tx, inputs []input) error {
	for _, in := range inputs {
		id := in.env.Body.ID.String()

		rec, err := tx.Get(ctx, id)
		if err != nil {
			return mapStoreError(err, id)
		}
		if rec.Envelope != in.hex {
			return domain.ErrQuotaForged.WithDetails(id)
		}
		if rec.State == domain.StateRecycled {
			return domain.ErrQuotaRecycled.WithDetails(id)
		}
		if err := tx.Transition(ctx, id, domain.StateIssued, domain.StateRecycled); err != nil {
			return mapStoreError(err, id)
		}
	}
	return nil
}

func insertAll(ctx context.Context, tx storage.Tx, records []*storage.Record) error {
	for _, r := range records {
		if err := tx.Insert(ctx, r); err != nil {
			return mapStoreError(err, r.ID)
		}
	}
	return nil
}

// observe records latency and, on failure, the error kind.
func (l *Ledger) observe(ctx context.Context, workflow string, start time.Time, errp *error) {
	l.metrics.ObserveWorkflow(workflow, time.Since(start).Seconds())

	err := *errp
	if err == nil {
		return
	}
	kind := domain.KindOf(err)
	l.metrics.RecordFailure(workflow, kind.String())

	level := slog.LevelWarn
	switch kind {
	case domain.KindNotFound, domain.KindDecode, domain.KindArgument:
		level = slog.LevelDebug
	case domain.KindPersistence, domain.KindInternal, domain.KindKeyMaterial:
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, "ledger workflow failed",
		"workflow", workflow,
		"code", domain.GetErrorCode(err),
		"kind", kind.String(),
		"error", err,
	)
}
