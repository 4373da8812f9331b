package domain

import (
	"time"
)

// Config represents the main application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Review   ReviewConfig   `mapstructure:"review"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	RateBurst     int           `mapstructure:"rate_burst"`
	TLSEnabled    bool          `mapstructure:"tls_enabled"`
	CertFile      string        `mapstructure:"cert_file"`
	KeyFile       string        `mapstructure:"key_file"`
}

// DatabaseConfig represents the Postgres connection configuration used by
// the assessment repository. Persistence is optional; the engine runs fully
// in-process without it.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig configures the optional Redis-backed state store, used when
// smoothing state must survive restarts or be shared across replicas.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// EngineConfig tunes the risk engine's statistical machinery.
type EngineConfig struct {
	// BaselineCohortSize is the number of synthetic baseline profiles
	// generated at construction.
	BaselineCohortSize int `mapstructure:"baseline_cohort_size"`
	// BaselineSeed seeds the deterministic cohort generator.
	BaselineSeed uint64 `mapstructure:"baseline_seed"`
	// ObservationVariance is the fixed measurement-noise assumption used
	// by the conjugate normal-normal update.
	ObservationVariance float64 `mapstructure:"observation_variance"`
	// MinSubgroupSize is the smallest filtered cohort compared against
	// before falling back to the full population.
	MinSubgroupSize int `mapstructure:"min_subgroup_size"`
}

// NotifierConfig selects and configures the alert notification collaborator.
type NotifierConfig struct {
	// Kind is "none", "webhook" or "kafka".
	Kind string `mapstructure:"kind"`

	Webhook WebhookConfig `mapstructure:"webhook"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
}

// WebhookConfig configures the HTTP webhook notifier.
type WebhookConfig struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinSeverity string        `mapstructure:"min_severity"`
}

// KafkaConfig configures the Kafka alert publisher.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ReviewConfig configures the alert review store.
type ReviewConfig struct {
	// Backend is "sqlite" or "postgres".
	Backend string `mapstructure:"backend"`
	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
