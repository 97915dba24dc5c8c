package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/quotaledger/internal/core/domain"
)

// keyPrefix namespaces quota control field records.
const keyPrefix = "qcf/"

// BadgerStore implements Store on Badger v3 with conflict detection, so
// concurrent transactions that read the same record cannot both commit.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger
	closed atomic.Bool

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	stopCh chan struct{}
	doneCh chan struct{}
}

// Stats contains storage statistics.
type Stats struct {
	LSMSize      uint64
	ValueLogSize uint64
	TotalSize    uint64
	LastGCTime   int64 // Unix milliseconds
	GCRuns       uint64
}

// NewBadgerStore opens a Badger-backed store.
func NewBadgerStore(cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.DetectConflicts = true
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	logger.Info("badger store started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"sync_writes", cfg.SyncWrites,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

// InTx implements Store.
func (s *BadgerStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(&badgerTx{txn: txn}); err != nil {
		return err
	}
	// A cancelled caller must not see its writes land.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return mapBadgerErr(err)
	}
	return nil
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, id string) (*Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, mapBadgerErr(err)
	}
	return rec, nil
}

// Ping implements Store.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.closed.Load() || s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// GC runs value-log garbage collection until nothing more is reclaimed.
// Returns the number of rewritten value log files.
func (s *BadgerStore) GC(ctx context.Context) (int, error) {
	if s.cfg.InMemory {
		return 0, nil
	}
	start := time.Now()

	rewrites := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			return rewrites, fmt.Errorf("gc: %w", err)
		}
		rewrites++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(1)

	s.logger.Debug("gc completed",
		"rewrites", rewrites,
		"elapsed", time.Since(start))

	return rewrites, nil
}

// Stats returns storage statistics.
func (s *BadgerStore) Stats() Stats {
	lsm, vlog := s.db.Size()
	return Stats{
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		TotalSize:    uint64(lsm + vlog),
		LastGCTime:   s.lastGCTime.Load(),
		GCRuns:       s.gcRuns.Load(),
	}
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	s.logger.Info("shutting down badger store")

	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// RegisterMetrics exposes Badger size and GC gauges. Values are read at
// scrape time.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) error {
	gauge := func(name, help string, fn func(Stats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "quotaledger",
			Subsystem: "badger",
			Name:      name,
			Help:      help,
		}, func() float64 { return fn(s.Stats()) })
	}

	for _, c := range []prometheus.Collector{
		gauge("lsm_size_bytes", "Badger LSM tree size in bytes",
			func(st Stats) float64 { return float64(st.LSMSize) }),
		gauge("value_log_size_bytes", "Badger value log size in bytes",
			func(st Stats) float64 { return float64(st.ValueLogSize) }),
		gauge("last_gc_timestamp_seconds", "Unix timestamp of the last Badger GC run",
			func(st Stats) float64 { return float64(st.LastGCTime) / 1000.0 }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "quotaledger",
			Subsystem: "badger",
			Name:      "gc_runs_total",
			Help:      "Completed Badger value log GC passes",
		}, func() float64 { return float64(s.gcRuns.Load()) }),
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	if s.cfg.InMemory {
		<-s.stopCh
		return
	}

	interval := s.cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

type badgerTx struct {
	txn *badger.Txn
}

func (t *badgerTx) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := getRecord(t.txn, id)
	if err != nil {
		return nil, mapBadgerErr(err)
	}
	return rec, nil
}

func (t *badgerTx) Insert(ctx context.Context, r *Record) error {
	_, err := t.txn.Get(recordKey(r.ID))
	if err == nil {
		return ErrDuplicate
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return mapBadgerErr(err)
	}

	rec := r.Clone()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	return putRecord(t.txn, rec)
}

func (t *badgerTx) Transition(ctx context.Context, id string, from, to domain.QuotaState) error {
	rec, err := getRecord(t.txn, id)
	if err != nil {
		return mapBadgerErr(err)
	}
	if rec.State != from {
		return ErrStateConflict
	}
	rec.State = to
	rec.UpdatedAt = time.Now().UTC()
	return putRecord(t.txn, rec)
}

func recordKey(id string) []byte {
	return []byte(keyPrefix + id)
}

func getRecord(txn *badger.Txn, id string) (*Record, error) {
	item, err := txn.Get(recordKey(id))
	if err != nil {
		return nil, err
	}
	var rec Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &rec, nil
}

func putRecord(txn *badger.Txn, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	if err := txn.Set(recordKey(rec.ID), data); err != nil {
		return mapBadgerErr(err)
	}
	return nil
}

func mapBadgerErr(err error) error {
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, badger.ErrConflict):
		return ErrTxConflict
	case errors.Is(err, badger.ErrDBClosed):
		return ErrClosed
	default:
		return err
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
