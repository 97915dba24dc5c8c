package identity

import (
	"log/slog"
	"sync"

	"github.com/yndnr/quotaledger/internal/core/domain"
)

// Authority holds the identity currently used to sign issued quotas.
//
// Replacing the identity swaps a pointer under the write lock. Callers that
// already obtained the previous identity finish with it; new callers see
// the new one.
type Authority struct {
	mu      sync.RWMutex
	current *Identity
	store   Store
	logger  *slog.Logger
}

// NewAuthority creates a holder backed by store. current may be nil until
// an identity is created or loaded.
func NewAuthority(current *Identity, store Store, logger *slog.Logger) *Authority {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authority{current: current, store: store, logger: logger}
}

// LoadAuthority loads the persisted identity. With createIfMissing, a
// missing identity is generated and persisted instead.
func LoadAuthority(store Store, createIfMissing bool, logger *slog.Logger) (*Authority, error) {
	a := NewAuthority(nil, store, logger)

	id, err := store.Load()
	switch {
	case err == nil:
		a.current = id
		a.logger.Info("authority identity loaded", "code", id.Code())
	case createIfMissing && domain.IsDomainError(err, domain.ErrKeyMaterialMissing.Code):
		if _, err := a.Rotate(nil); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return a, nil
}

// Current returns the identity in effect, or nil if none exists yet.
func (a *Authority) Current() *Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Require is Current, failing with ErrKeyMaterialMissing when unset.
func (a *Authority) Require() (*Identity, error) {
	id := a.Current()
	if id == nil {
		return nil, domain.ErrKeyMaterialMissing
	}
	return id, nil
}

// Rotate replaces the identity. A nil seed generates a random one. The new
// identity is persisted before it takes effect; if persisting fails the
// old identity stays in place.
func (a *Authority) Rotate(seed *[SeedSize]byte) (*Identity, error) {
	var (
		next *Identity
		err  error
	)
	if seed == nil {
		next, err = Generate()
	} else {
		next, err = FromSeed(*seed)
	}
	if err != nil {
		return nil, err
	}
	if err := a.replace(next, seed != nil); err != nil {
		return nil, err
	}
	return next, nil
}

// Replace installs id, e.g. one restored from a backup mnemonic. Like
// Rotate it persists first and keeps the old identity on failure.
func (a *Authority) Replace(id *Identity) error {
	if id == nil {
		return domain.ErrKeyMaterialMissing.WithDetails("nil identity")
	}
	return a.replace(id, true)
}

func (a *Authority) replace(next *Identity, deterministic bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Persist(next); err != nil {
			return err
		}
	}

	prev := a.current
	a.current = next

	attrs := []any{"new_code", next.Code(), "deterministic", deterministic}
	if prev != nil {
		attrs = append(attrs, "old_code", prev.Code())
	}
	a.logger.Warn("authority identity replaced", attrs...)
	return nil
}
