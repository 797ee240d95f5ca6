// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_USERS_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)
		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "matching-engine"
	}

	applyPostgresDefaults(&cfg.Database.Users, 5433, "users")
	applyPostgresDefaults(&cfg.Database.Catalog, 5432, "realtor")

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.LeadsTopic == "" {
		cfg.Kafka.LeadsTopic = "property_leads"
	}
	if cfg.Kafka.PublishTimeout == 0 {
		cfg.Kafka.PublishTimeout = 10000
	}

	if cfg.Matching.IntervalMinutes == 0 {
		cfg.Matching.IntervalMinutes = 5
	}
	if cfg.Matching.Workers == 0 {
		cfg.Matching.Workers = 4
	}

	// Dedup window defaults to twice the cycle interval so an unchanged
	// pairing is suppressed for at least one full follow-up cycle.
	if cfg.Dedup.TTLMinutes == 0 {
		cfg.Dedup.TTLMinutes = 2 * cfg.Matching.IntervalMinutes
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9108"
	}
}

func applyPostgresDefaults(p *PostgresConfig, defaultPort int, defaultDB string) {
	if p.Host == "" {
		p.Host = "localhost"
	}
	if p.Port == 0 {
		p.Port = defaultPort
	}
	if p.Database == "" {
		p.Database = defaultDB
	}
	if p.User == "" {
		p.User = "postgres"
	}
	if p.MaxConnections == 0 {
		p.MaxConnections = 10
	}
	if p.MaxIdle == 0 {
		p.MaxIdle = 2
	}
	if p.SSLMode == "" {
		p.SSLMode = "disable"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Users.Host == "" {
		return fmt.Errorf("database.users.host is required")
	}
	if cfg.Database.Catalog.Host == "" {
		return fmt.Errorf("database.catalog.host is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if cfg.Kafka.LeadsTopic == "" {
		return fmt.Errorf("kafka.leads_topic is required")
	}
	if cfg.Dedup.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when dedup is enabled")
	}
	if cfg.Matching.IntervalMinutes < 1 {
		return fmt.Errorf("matching.interval_minutes must be at least 1")
	}
	if cfg.Matching.Workers < 1 {
		return fmt.Errorf("matching.workers must be at least 1")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
