package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgreSQL error codes.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Config configures the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Store implements storage.Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects, verifies the connection and applies migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pcfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres store started",
		"max_conns", pcfg.MaxConns,
		"min_conns", pcfg.MinConns)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("postgres: migrate %s: %w", name, err)
		}
	}
	return nil
}

// InTx implements storage.Store.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if s.pool == nil {
		return storage.ErrClosed
	}
	ptx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapErr(err)
	}
	defer ptx.Rollback(ctx)

	if err := fn(&tx{tx: ptx}); err != nil {
		return err
	}
	if err := ptx.Commit(ctx); err != nil {
		return mapErr(err)
	}
	return nil
}

const selectRecord = `SELECT id, envelope, explain_info, state, create_time, update_time
FROM quota_control_field WHERE id = $1`

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	if s.pool == nil {
		return nil, storage.ErrClosed
	}
	return scanRecord(s.pool.QueryRow(ctx, selectRecord, id))
}

// Ping implements storage.Store.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return storage.ErrClosed
	}
	return s.pool.Ping(ctx)
}

// Close implements storage.Store.
func (s *Store) Close() error {
	if s.pool == nil {
		return storage.ErrClosed
	}
	s.pool.Close()
	s.pool = nil
	return nil
}

type tx struct {
	tx pgx.Tx
}

func (t *tx) Get(ctx context.Context, id string) (*storage.Record, error) {
	return scanRecord(t.tx.QueryRow(ctx, selectRecord+" FOR UPDATE", id))
}

func (t *tx) Insert(ctx context.Context, r *storage.Record) error {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	explain := r.ExplainInfo
	if len(explain) == 0 {
		explain = []byte("{}")
	}

	_, err := t.tx.Exec(ctx, `INSERT INTO quota_control_field
		(id, envelope, explain_info, state, create_time, update_time)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.Envelope, string(explain), string(r.State), created, updated)
	return mapErr(err)
}

func (t *tx) Transition(ctx context.Context, id string, from, to domain.QuotaState) error {
	tag, err := t.tx.Exec(ctx, `UPDATE quota_control_field
		SET state = $3, update_time = now()
		WHERE id = $1 AND state = $2`,
		id, string(from), string(to))
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quota_control_field WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapErr(err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrStateConflict
}

func scanRecord(row pgx.Row) (*storage.Record, error) {
	var (
		rec     storage.Record
		explain []byte
		state   string
	)
	err := row.Scan(&rec.ID, &rec.Envelope, &explain, &state, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	rec.ExplainInfo = explain
	rec.State = domain.QuotaState(state)
	return &rec, nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return storage.ErrDuplicate
		case codeSerializationFailure, codeDeadlockDetected:
			return storage.ErrTxConflict
		}
	}
	return err
}
