package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/yndnr/quotaledger/internal/core/identity"
	"github.com/yndnr/quotaledger/internal/core/service"
	"github.com/yndnr/quotaledger/internal/infra/buildinfo"
	"github.com/yndnr/quotaledger/internal/infra/confloader"
	"github.com/yndnr/quotaledger/internal/infra/shutdown"
	"github.com/yndnr/quotaledger/internal/server/config"
	"github.com/yndnr/quotaledger/internal/server/httpserver"
	"github.com/yndnr/quotaledger/internal/storage"
	"github.com/yndnr/quotaledger/internal/storage/memory"
	"github.com/yndnr/quotaledger/internal/storage/postgres"
	"github.com/yndnr/quotaledger/internal/telemetry/logger"
	"github.com/yndnr/quotaledger/internal/telemetry/metric"
)

// listKeys are config keys whose environment values are comma-separated.
var listKeys = []string{"ledger.requesters", "security.cors_allowed_origins"}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "path to configuration file")
		showVersion = flag.Bool("version", false, "show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("quota-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logImpl, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(logImpl)
	log := logImpl.Slog()

	info := buildinfo.Get()
	log.Info("starting quota-server",
		"version", info.Version,
		"commit", info.Commit,
		"go", info.GoVersion,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx := context.Background()
	metrics := metric.NewRegistry()

	store, err := openStore(ctx, cfg, metrics, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	authority, err := identity.LoadAuthority(
		identity.NewFileStore(cfg.Identity.Path, cfg.Identity.Passphrase),
		cfg.Identity.CreateIfMissing, log)
	if err != nil {
		store.Close()
		return fmt.Errorf("load authority: %w", err)
	}

	policy, err := service.ParseStaticPolicy(cfg.Ledger.AllowAnyRequester, cfg.Ledger.Requesters)
	if err != nil {
		store.Close()
		return fmt.Errorf("requester policy: %w", err)
	}
	if cfg.Ledger.AllowAnyRequester {
		log.Warn("requester allow list disabled: any signer may request issuance")
	}

	ledgerCfg := service.DefaultLedgerConfig()
	ledgerCfg.MaxBatchSize = cfg.Ledger.MaxBatchSize
	ledger := service.NewLedger(store, authority, policy, metrics, log, ledgerCfg)

	routerCfg := httpserver.DefaultRouterConfig()
	routerCfg.Ledger = ledger
	routerCfg.Authority = service.NewAuthorityService(authority, log)
	routerCfg.Metrics = metrics
	routerCfg.Logger = log
	routerCfg.AdminToken = cfg.Security.AdminToken
	routerCfg.CORSAllowedOrigins = cfg.Security.CORSAllowedOrigins
	routerCfg.RateLimitRPS = cfg.Security.RateLimit.RPS
	routerCfg.RateLimitBurst = cfg.Security.RateLimit.Burst
	routerCfg.TrustProxyHeaders = cfg.Security.TrustProxyHeaders
	routerCfg.EnableMetrics = cfg.Metrics.Enabled
	if cfg.Security.AdminToken == "" {
		log.Warn("security.admin_token is empty: admin API disabled")
	}

	srv, err := httpserver.New(cfg.Server.HTTP, httpserver.NewRouter(routerCfg), log)
	if err != nil {
		store.Close()
		return fmt.Errorf("create http server: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Server.HTTP.Addr)
	if err != nil {
		store.Close()
		return fmt.Errorf("listen %s: %w", cfg.Server.HTTP.Addr, err)
	}

	// Hooks run in reverse order: stop serving before closing the store.
	sd := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, log)
	sd.OnShutdown("store", func(context.Context) error {
		return store.Close()
	})
	sd.OnShutdown("http", srv.Shutdown)

	if *configFile != "" {
		watcher, err := watchConfig(*configFile, log)
		if err != nil {
			log.Warn("config hot reload unavailable", "error", err)
		} else {
			sd.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	go func() {
		log.Info("HTTP server listening",
			"addr", ln.Addr().String(),
			"tls", srv.TLS())
		if err := srv.Serve(ln); err != nil {
			log.Error("HTTP server error", "error", err)
			sd.Trigger("http server failed")
		}
	}()

	if err := sd.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

// loadConfig layers the file and QUOTA_* environment over the defaults.
func loadConfig(path string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithListKeys(listKeys...)}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured store of record.
func openStore(ctx context.Context, cfg *config.ServerConfig, metrics *metric.Registry, log *slog.Logger) (storage.Store, error) {
	sc := cfg.Storage
	switch sc.Driver {
	case config.DriverMemory:
		log.Warn("memory storage: quotas are lost on restart")
		return memory.New(), nil

	case config.DriverPostgres:
		return postgres.Open(ctx, postgres.Config{
			DSN:             sc.Postgres.DSN,
			MaxConns:        sc.Postgres.MaxConns,
			MinConns:        sc.Postgres.MinConns,
			MaxConnLifetime: sc.Postgres.MaxConnLifetime,
		}, log)

	case config.DriverBadger:
		bc := storage.DefaultBadgerConfig(sc.DataDir)
		bc.GCInterval = sc.Badger.GCInterval
		bc.SyncWrites = sc.Badger.SyncWrites
		bs, err := storage.NewBadgerStore(bc, log)
		if err != nil {
			return nil, err
		}
		if err := bs.RegisterMetrics(metrics.Registerer()); err != nil {
			log.Warn("badger metrics not registered", "error", err)
		}
		return bs, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}

// watchConfig reloads the log level when the config file changes. Other
// settings need a restart.
func watchConfig(path string, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		cfg, err := loadConfig(path)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w, nil
}
