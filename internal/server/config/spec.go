package config

import "time"

// ServerConfig is the root configuration for quota-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Identity IdentitySection `koanf:"identity"`
	Ledger   LedgerSection   `koanf:"ledger"`
	Security SecuritySection `koanf:"security"`
	Metrics  MetricsSection  `koanf:"metrics"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// TLSEnabled reports whether both certificate and key are configured.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// StorageSection configures the store of record.
type StorageSection struct {
	// Driver is one of "memory", "badger" or "postgres".
	Driver  string `koanf:"driver"`
	DataDir string `koanf:"data_dir"`

	Postgres PostgresConfig `koanf:"postgres"`
	Badger   BadgerConfig   `koanf:"badger"`
}

// PostgresConfig configures the postgres driver.
type PostgresConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxConns        int32         `koanf:"max_conns"`
	MinConns        int32         `koanf:"min_conns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime"`
}

// BadgerConfig configures the badger driver.
type BadgerConfig struct {
	GCInterval time.Duration `koanf:"gc_interval"`
	SyncWrites bool          `koanf:"sync_writes"`
}

// IdentitySection configures where the authority identity lives.
type IdentitySection struct {
	Path string `koanf:"path"`

	// Passphrase seals the key material at rest. Empty stores it in clear.
	Passphrase string `koanf:"passphrase"`

	// CreateIfMissing generates an identity on first start.
	CreateIfMissing bool `koanf:"create_if_missing"`
}

// LedgerSection configures the ledger engine.
type LedgerSection struct {
	// Requesters are hex certificates allowed to request issuance.
	Requesters []string `koanf:"requesters"`

	// AllowAnyRequester disables the requester allow list.
	AllowAnyRequester bool `koanf:"allow_any_requester"`

	// MaxBatchSize caps tokens per issue/convert and quotas per recycle.
	MaxBatchSize int `koanf:"max_batch_size"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// AdminToken guards /api/admin. Empty disables the admin API.
	AdminToken string `koanf:"admin_token"`

	RateLimit          RateLimitConfig `koanf:"rate_limit"`
	CORSAllowedOrigins []string        `koanf:"cors_allowed_origins"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For
	// and X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`
}

// RateLimitConfig configures per-IP rate limiting. Zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// MetricsSection configures the /metrics endpoint.
type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
