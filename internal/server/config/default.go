package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDriver  = DriverBadger
	DefaultDataDir = "/var/lib/quota-server/data"

	DefaultPostgresMaxConns        = 10
	DefaultPostgresMinConns        = 1
	DefaultPostgresMaxConnLifetime = 30 * time.Minute

	DefaultBadgerGCInterval = 10 * time.Minute

	DefaultIdentityPath = "/var/lib/quota-server/meta.json"
	DefaultMaxBatchSize = 1000

	DefaultRateLimitRPS   = 100
	DefaultRateLimitBurst = 200

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ReadTimeout:     DefaultReadTimeout,
				WriteTimeout:    DefaultWriteTimeout,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		Storage: StorageSection{
			Driver:  DefaultDriver,
			DataDir: DefaultDataDir,
			Postgres: PostgresConfig{
				MaxConns:        DefaultPostgresMaxConns,
				MinConns:        DefaultPostgresMinConns,
				MaxConnLifetime: DefaultPostgresMaxConnLifetime,
			},
			Badger: BadgerConfig{
				GCInterval: DefaultBadgerGCInterval,
				SyncWrites: true,
			},
		},
		Identity: IdentitySection{
			Path:            DefaultIdentityPath,
			CreateIfMissing: true,
		},
		Ledger: LedgerSection{
			MaxBatchSize: DefaultMaxBatchSize,
		},
		Security: SecuritySection{
			RateLimit: RateLimitConfig{
				RPS:   DefaultRateLimitRPS,
				Burst: DefaultRateLimitBurst,
			},
		},
		Metrics: MetricsSection{
			Enabled: true,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
