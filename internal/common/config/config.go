// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Matching MatchingConfig `mapstructure:"matching"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig holds both source stores plus the dedup cache. Preferences
// and the property catalog live in separate databases, mirroring the services
// that own them.
type DatabaseConfig struct {
	Users   PostgresConfig `mapstructure:"users"`
	Catalog PostgresConfig `mapstructure:"catalog"`
	Redis   RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig holds the lead topic producer settings.
type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	LeadsTopic     string   `mapstructure:"leads_topic"`
	PublishTimeout int      `mapstructure:"publish_timeout"` // milliseconds
}

// MatchingConfig holds the cycle settings.
type MatchingConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
	Workers         int `mapstructure:"workers"` // per-cycle preference pool size
}

// DedupConfig controls the cross-cycle duplicate-lead window.
type DedupConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLMinutes int  `mapstructure:"ttl_minutes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
