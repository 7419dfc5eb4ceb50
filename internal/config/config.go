// Package config loads catalogcore's runtime configuration from the
// environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, loaded from environment
// variables.
type Config struct {
	// Mode selects the runtime mode: "api" or "refresher".
	Mode string `env:"CATALOGCORE_MODE" envDefault:"api"`

	// Server
	Host string `env:"CATALOGCORE_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"CATALOGCORE_PORT" envDefault:"8080"`

	// Redis (C1 networked KV backend; falls back to in-process when unset
	// or unreachable).
	RedisURL string `env:"REDIS_URL"`

	// Postgres (C4 reference ConfigStore; falls back to in-memory when unset).
	DatabaseURL         string `env:"DATABASE_URL"`
	MigrationsConfigDir string `env:"MIGRATIONS_CONFIG_DIR" envDefault:"migrations"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Telemetry
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Cache façade (C2)
	CacheVersion string `env:"CACHE_VERSION" envDefault:"v1"`

	// Upstream client (C3)
	UpstreamBaseURL      string   `env:"UPSTREAM_BASE_URL" envDefault:"https://api.themoviedb.org/3"`
	UpstreamAllowedHosts []string `env:"UPSTREAM_ALLOWED_HOSTS" envDefault:"api.themoviedb.org" envSeparator:","`
	UpstreamAPIKey       string   `env:"UPSTREAM_API_KEY"`
	UpstreamRPS          float64  `env:"UPSTREAM_RPS" envDefault:"35"`
	UpstreamTimeout      string   `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	// Config resolver (C4)
	ConfigCacheSize    int    `env:"CONFIG_CACHE_SIZE" envDefault:"1000"`
	ConfigCacheTTL     string `env:"CONFIG_CACHE_TTL" envDefault:"5m"`
	CredentialPepper   string `env:"CREDENTIAL_PEPPER"`
	CredentialAEADKey  string `env:"CREDENTIAL_AEAD_KEY"` // 32 raw bytes, base64
	SessionSigningKey  string `env:"SESSION_SIGNING_KEY"`
	SessionMaxAge      string `env:"SESSION_MAX_AGE" envDefault:"720h"`
	RevocationSweep    string `env:"REVOCATION_SWEEP_INTERVAL" envDefault:"10m"`

	// Dataset engine (C5)
	DatasetRatingsURL  string `env:"DATASET_RATINGS_URL" envDefault:"https://datasets.imdbws.com/title.ratings.tsv.gz"`
	DatasetBasicsURL   string `env:"DATASET_BASICS_URL" envDefault:"https://datasets.imdbws.com/title.basics.tsv.gz"`
	DatasetMinVotes    int    `env:"DATASET_MIN_VOTES" envDefault:"10"`
	DatasetRefreshEach string `env:"DATASET_REFRESH_INTERVAL" envDefault:"24h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
