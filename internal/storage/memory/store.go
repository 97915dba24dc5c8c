package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/storage"
)

// Store implements storage.Store in memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]*storage.Record
	closed  bool
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records: make(map[string]*storage.Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// InTx implements storage.Store.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &tx{store: s, staged: make(map[string]*storage.Record)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, rec := range tx.staged {
		s.records[id] = rec
	}
	return nil
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rec.Clone(), nil
}

// Ping implements storage.Store.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

// Close implements storage.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.closed = true
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// tx runs with the store's writer lock held.
type tx struct {
	store  *Store
	staged map[string]*storage.Record
}

func (t *tx) lookup(id string) (*storage.Record, bool) {
	if rec, ok := t.staged[id]; ok {
		return rec, true
	}
	rec, ok := t.store.records[id]
	return rec, ok
}

func (t *tx) Get(ctx context.Context, id string) (*storage.Record, error) {
	rec, ok := t.lookup(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rec.Clone(), nil
}

func (t *tx) Insert(ctx context.Context, r *storage.Record) error {
	if _, ok := t.lookup(r.ID); ok {
		return storage.ErrDuplicate
	}
	rec := r.Clone()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t.store.now()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	t.staged[rec.ID] = rec
	return nil
}

func (t *tx) Transition(ctx context.Context, id string, from, to domain.QuotaState) error {
	rec, ok := t.lookup(id)
	if !ok {
		return storage.ErrNotFound
	}
	if rec.State != from {
		return storage.ErrStateConflict
	}
	next := rec.Clone()
	next.State = to
	next.UpdatedAt = t.store.now()
	t.staged[id] = next
	return nil
}
