package service

import (
	"context"
	"errors"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/storage"
)

// mapStoreError converts a storage error into the ledger's taxonomy.
// Domain errors raised inside a transaction pass through unchanged.
func mapStoreError(err error, id string) error {
	if err == nil {
		return nil
	}
	if domain.IsDomainError(err, "") {
		return err
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrQuotaNotFound.WithDetails(id).WithCause(err)
	case errors.Is(err, storage.ErrStateConflict):
		return domain.ErrQuotaRecycled.WithDetails(id).WithCause(err)
	case errors.Is(err, storage.ErrTxConflict):
		return domain.ErrConcurrentUpdate.WithCause(err)
	case errors.Is(err, storage.ErrDuplicate):
		return domain.ErrQuotaDuplicate.WithDetails(id).WithCause(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.ErrPersistence.WithDetails("transaction abandoned").WithCause(err)
	default:
		return domain.ErrPersistence.WithCause(err)
	}
}
