package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/yndnr/quotaledger/internal/core/domain"
)

// Common errors returned by every adapter.
var (
	ErrNotFound      = errors.New("storage: record not found")
	ErrDuplicate     = errors.New("storage: record already exists")
	ErrStateConflict = errors.New("storage: record not in expected state")
	ErrTxConflict    = errors.New("storage: transaction conflict")
	ErrClosed        = errors.New("storage: store closed")
)

// Record is one persisted quota control field.
type Record struct {
	// ID is the lower-hex quota id.
	ID string `json:"id"`

	// Envelope is the lower-hex signed quota envelope, exactly as issued.
	Envelope string `json:"envelope"`

	// ExplainInfo is a JSON rendering of the quota for operators.
	ExplainInfo json.RawMessage `json:"explain_info"`

	State     domain.QuotaState `json:"state"`
	CreatedAt time.Time         `json:"create_time"`
	UpdatedAt time.Time         `json:"update_time"`
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	c.ExplainInfo = append(json.RawMessage(nil), r.ExplainInfo...)
	return &c
}

// Store is the store of record.
type Store interface {
	// InTx runs fn in one transaction. If fn returns an error, nothing it
	// wrote is kept and the error is returned unchanged.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Get reads a record outside any transaction.
	// Returns ErrNotFound if the id does not exist.
	Get(ctx context.Context, id string) (*Record, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources. Later calls return ErrClosed.
	Close() error
}

// Tx is the view of the store inside InTx.
type Tx interface {
	// Get reads a record, locking it for the rest of the transaction where
	// the adapter supports row locks.
	Get(ctx context.Context, id string) (*Record, error)

	// Insert adds a new record. Returns ErrDuplicate if the id exists.
	Insert(ctx context.Context, r *Record) error

	// Transition moves a record from one state to another. Returns
	// ErrNotFound if the id does not exist and ErrStateConflict if the
	// record is not in state from.
	Transition(ctx context.Context, id string, from, to domain.QuotaState) error
}
