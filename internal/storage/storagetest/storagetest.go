// Package storagetest holds the behavioural suite every storage.Store
// adapter must pass.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/storage"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// NewRecord returns an issued record with a unique id.
func NewRecord(n int) *storage.Record {
	id := fmt.Sprintf("%064x", n)
	return &storage.Record{
		ID:          id,
		Envelope:    "03" + id,
		ExplainInfo: []byte(fmt.Sprintf(`{"id":%q,"face_value":%d}`, id, n)),
		State:       domain.StateIssued,
	}
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAndGet", func(t *testing.T) { testInsertAndGet(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("DuplicateInsert", func(t *testing.T) { testDuplicateInsert(t, newStore(t)) })
	t.Run("Transition", func(t *testing.T) { testTransition(t, newStore(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("ReadYourWrites", func(t *testing.T) { testReadYourWrites(t, newStore(t)) })
	t.Run("ConcurrentTransition", func(t *testing.T) { testConcurrentTransition(t, newStore(t)) })
	t.Run("CancelledContext", func(t *testing.T) { testCancelled(t, newStore(t)) })
	t.Run("Close", func(t *testing.T) { testClose(t, newStore(t)) })
}

func insert(t *testing.T, s storage.Store, recs ...*storage.Record) {
	t.Helper()
	err := s.InTx(context.Background(), func(tx storage.Tx) error {
		for _, r := range recs {
			if err := tx.Insert(context.Background(), r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func testInsertAndGet(t *testing.T, s storage.Store) {
	defer s.Close()
	ctx := context.Background()
	rec := NewRecord(1)
	insert(t, s, rec)

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != rec.ID || got.Envelope != rec.Envelope || got.State != domain.StateIssued {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on insert")
	}
	if len(got.ExplainInfo) == 0 {
		t.Error("explain info should be stored")
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func testGetMissing(t *testing.T, s storage.Store) {
	defer s.Close()
	if _, err := s.Get(context.Background(), NewRecord(99).ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	err := s.InTx(context.Background(), func(tx storage.Tx) error {
		return tx.Transition(context.Background(), NewRecord(99).ID, domain.StateIssued, domain.StateRecycled)
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Transition() error = %v, want ErrNotFound", err)
	}
}

func testDuplicateInsert(t *testing.T, s storage.Store) {
	defer s.Close()
	rec := NewRecord(2)
	insert(t, s, rec)

	err := s.InTx(context.Background(), func(tx storage.Tx) error {
		return tx.Insert(context.Background(), NewRecord(2))
	})
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("Insert() error = %v, want ErrDuplicate", err)
	}
}

func testTransition(t *testing.T, s storage.Store) {
	defer s.Close()
	ctx := context.Background()
	rec := NewRecord(3)
	insert(t, s, rec)

	transition := func() error {
		return s.InTx(ctx, func(tx storage.Tx) error {
			return tx.Transition(ctx, rec.ID, domain.StateIssued, domain.StateRecycled)
		})
	}

	if err := transition(); err != nil {
		t.Fatalf("first Transition() error = %v", err)
	}
	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != domain.StateRecycled {
		t.Errorf("State = %q, want recycled", got.State)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Error("UpdatedAt should not precede CreatedAt")
	}

	if err := transition(); !errors.Is(err, storage.ErrStateConflict) {
		t.Errorf("second Transition() error = %v, want ErrStateConflict", err)
	}
}

func testRollback(t *testing.T, s storage.Store) {
	defer s.Close()
	ctx := context.Background()
	kept := NewRecord(4)
	insert(t, s, kept)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.Insert(ctx, NewRecord(5)); err != nil {
			return err
		}
		if err := tx.Transition(ctx, kept.ID, domain.StateIssued, domain.StateRecycled); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	if _, err := s.Get(ctx, NewRecord(5).ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("rolled-back insert is visible: %v", err)
	}
	got, err := s.Get(ctx, kept.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != domain.StateIssued {
		t.Errorf("rolled-back transition is visible: state %q", got.State)
	}
}

func testReadYourWrites(t *testing.T, s storage.Store) {
	defer s.Close()
	ctx := context.Background()
	rec := NewRecord(6)

	err := s.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.Insert(ctx, rec); err != nil {
			return err
		}
		got, err := tx.Get(ctx, rec.ID)
		if err != nil {
			return err
		}
		if got.State != domain.StateIssued {
			return fmt.Errorf("state %q", got.State)
		}
		return tx.Transition(ctx, rec.ID, domain.StateIssued, domain.StateRecycled)
	})
	if err != nil {
		t.Fatalf("InTx() error = %v", err)
	}
}

// Exactly one of many concurrent transitions of the same record wins.
func testConcurrentTransition(t *testing.T, s storage.Store) {
	defer s.Close()
	ctx := context.Background()
	rec := NewRecord(7)
	insert(t, s, rec)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := s.InTx(ctx, func(tx storage.Tx) error {
				if _, err := tx.Get(ctx, rec.ID); err != nil {
					return err
				}
				return tx.Transition(ctx, rec.ID, domain.StateIssued, domain.StateRecycled)
			})
			switch {
			case err == nil:
				mu.Lock()
				wins++
				mu.Unlock()
			case errors.Is(err, storage.ErrStateConflict), errors.Is(err, storage.ErrTxConflict):
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d transitions succeeded, want exactly 1", wins)
	}
}

func testCancelled(t *testing.T, s storage.Store) {
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	rec := NewRecord(8)

	err := s.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.Insert(ctx, rec); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if err == nil {
		t.Fatal("InTx() should fail when the context is cancelled")
	}
	if _, err := s.Get(context.Background(), rec.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("write from a cancelled transaction is visible: %v", err)
	}
}

func testClose(t *testing.T, s storage.Store) {
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := s.Get(context.Background(), NewRecord(1).ID); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Get() after Close error = %v, want ErrClosed", err)
	}
	err := s.InTx(context.Background(), func(storage.Tx) error { return nil })
	if !errors.Is(err, storage.ErrClosed) {
		t.Errorf("InTx() after Close error = %v, want ErrClosed", err)
	}
}
