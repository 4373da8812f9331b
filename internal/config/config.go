// Package config loads and validates application configuration from a
// YAML file and POSTOP_RISK_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/postop-risk-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper.
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a configuration manager. A missing config file is not
// an error; defaults and environment variables apply.
func NewManager() (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	m.v.SetConfigName("config")
	m.v.SetConfigType("yaml")
	m.v.AddConfigPath(".")
	m.v.AddConfigPath("./config")
	m.v.AddConfigPath("/etc/postop-risk-server/")

	m.v.SetEnvPrefix("POSTOP_RISK")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	m.setDefaults()

	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	// Server defaults
	m.v.SetDefault("server.host", "0.0.0.0")
	m.v.SetDefault("server.port", 8080)
	m.v.SetDefault("server.read_timeout", "30s")
	m.v.SetDefault("server.write_timeout", "30s")
	m.v.SetDefault("server.idle_timeout", "120s")
	m.v.SetDefault("server.rate_per_second", 50.0)
	m.v.SetDefault("server.rate_burst", 100)
	m.v.SetDefault("server.tls_enabled", false)

	// Database defaults (persistence is opt-in)
	m.v.SetDefault("database.enabled", false)
	m.v.SetDefault("database.host", "localhost")
	m.v.SetDefault("database.port", 5432)
	m.v.SetDefault("database.database", "postop_risk")
	m.v.SetDefault("database.username", "postgres")
	m.v.SetDefault("database.password", "")
	m.v.SetDefault("database.ssl_mode", "disable")
	m.v.SetDefault("database.max_open_conns", 25)
	m.v.SetDefault("database.max_idle_conns", 5)
	m.v.SetDefault("database.conn_max_lifetime", "5m")
	m.v.SetDefault("database.migrations_path", "migrations")

	// Cache defaults (Redis state store is opt-in)
	m.v.SetDefault("cache.enabled", false)
	m.v.SetDefault("cache.redis_url", "redis://localhost:6379")
	m.v.SetDefault("cache.default_ttl", "0")
	m.v.SetDefault("cache.max_retries", 3)
	m.v.SetDefault("cache.pool_size", 10)
	m.v.SetDefault("cache.pool_timeout", "4s")

	// Engine defaults
	m.v.SetDefault("engine.baseline_cohort_size", 250)
	m.v.SetDefault("engine.baseline_seed", 987654321)
	m.v.SetDefault("engine.observation_variance", 100.0)
	m.v.SetDefault("engine.min_subgroup_size", 5)

	// Notifier defaults
	m.v.SetDefault("notifier.kind", "none")
	m.v.SetDefault("notifier.webhook.url", "")
	m.v.SetDefault("notifier.webhook.timeout", "10s")
	m.v.SetDefault("notifier.webhook.min_severity", "warning")
	m.v.SetDefault("notifier.kafka.brokers", []string{"localhost:9092"})
	m.v.SetDefault("notifier.kafka.topic", "postop-risk-alerts")
	m.v.SetDefault("notifier.kafka.write_timeout", "10s")

	// Review store defaults
	m.v.SetDefault("review.backend", "sqlite")
	m.v.SetDefault("review.sqlite_path", "alert_review.db")

	// Logging defaults
	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "json")
	m.v.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration.
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatabaseConfig returns database configuration.
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetEngineConfig returns engine tuning configuration.
func (m *Manager) GetEngineConfig() *domain.EngineConfig {
	return &m.config.Engine
}

// Reload re-reads configuration from all sources.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate checks the loaded configuration for values the server cannot
// start with.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RatePerSecond <= 0 {
		return fmt.Errorf("invalid rate limit: %f", config.Server.RatePerSecond)
	}

	if config.Database.Enabled {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache is enabled")
	}

	if config.Engine.BaselineCohortSize <= 0 {
		return fmt.Errorf("baseline cohort size must be positive: %d", config.Engine.BaselineCohortSize)
	}
	if config.Engine.ObservationVariance <= 0 {
		return fmt.Errorf("observation variance must be positive: %f", config.Engine.ObservationVariance)
	}
	if config.Engine.MinSubgroupSize <= 0 {
		return fmt.Errorf("minimum subgroup size must be positive: %d", config.Engine.MinSubgroupSize)
	}

	switch config.Notifier.Kind {
	case "none":
	case "webhook":
		if config.Notifier.Webhook.URL == "" {
			return fmt.Errorf("webhook URL is required for the webhook notifier")
		}
	case "kafka":
		if len(config.Notifier.Kafka.Brokers) == 0 {
			return fmt.Errorf("at least one Kafka broker is required for the kafka notifier")
		}
		if config.Notifier.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required for the kafka notifier")
		}
	default:
		return fmt.Errorf("unknown notifier kind: %s", config.Notifier.Kind)
	}

	switch config.Review.Backend {
	case "sqlite":
		if config.Review.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite review backend")
		}
	case "postgres":
	default:
		return fmt.Errorf("unknown review backend: %s", config.Review.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a Postgres connection string.
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetRedisConnectionString returns the Redis connection string.
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}
