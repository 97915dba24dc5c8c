package config

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/yndnr/quotaledger/internal/core/domain"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyIdentity(&cfg.Identity); err != nil {
		return err
	}
	if err := verifyLedger(&cfg.Ledger); err != nil {
		return err
	}
	if err := verifySecurity(&cfg.Security); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("tls file: %w", err)
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Driver {
	case DriverMemory:
		return nil
	case DriverBadger:
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger driver")
		}
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
		if cfg.Badger.GCInterval < 0 {
			return errors.New("storage.badger.gc_interval must not be negative")
		}
		return nil
	case DriverPostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required for the postgres driver")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("storage.postgres.max_conns must be at least 1")
		}
		if cfg.Postgres.MinConns < 0 || cfg.Postgres.MinConns > cfg.Postgres.MaxConns {
			return errors.New("storage.postgres.min_conns must be between 0 and max_conns")
		}
		return nil
	default:
		return fmt.Errorf("storage.driver %q: must be memory, badger or postgres", cfg.Driver)
	}
}

func verifyIdentity(cfg *IdentitySection) error {
	if cfg.Path == "" {
		return errors.New("identity.path is required")
	}
	return nil
}

func verifyLedger(cfg *LedgerSection) error {
	if cfg.MaxBatchSize < 0 {
		return errors.New("ledger.max_batch_size must not be negative")
	}
	for _, r := range cfg.Requesters {
		if _, err := domain.ParseCertificate(r); err != nil {
			return fmt.Errorf("ledger.requesters: %q: %w", r, err)
		}
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	if cfg.RateLimit.RPS < 0 {
		return errors.New("security.rate_limit.rps must not be negative")
	}
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst < 1 {
		return errors.New("security.rate_limit.burst must be at least 1")
	}
	if cfg.AdminToken != "" && len(cfg.AdminToken) < 16 {
		return errors.New("security.admin_token must be at least 16 characters")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q: must be json or text", cfg.Format)
	}
	return nil
}
