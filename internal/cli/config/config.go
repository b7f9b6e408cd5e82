package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the rtti tool configuration
type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Store StoreConfig `mapstructure:"store"`
	Redis RedisConfig `mapstructure:"redis"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// StoreConfig selects the snapshot backend
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// RedisConfig represents the redis snapshot backend configuration
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Snapshot backends
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// DefaultSQLiteDSN is the database file used by the sqlite backend when no
// dsn is configured
const DefaultSQLiteDSN = "rtti.db"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load loads the configuration from rtti.yaml in the working directory
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads the configuration from path, or from rtti.yaml in the
// working directory when path is empty. Environment variables prefixed with
// RTTI_ override file values (RTTI_STORE_BACKEND for store.backend).
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "rtti_snapshots")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "rtti:snapshot:")
	v.SetDefault("redis.ttl", time.Duration(0))

	// Set config name and paths
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rtti")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix("RTTI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", cfg.Log.Level)
	}

	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	switch cfg.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendSQLite:
		if cfg.Store.DSN == "" {
			cfg.Store.DSN = DefaultSQLiteDSN
		}
	case BackendPostgres:
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s backend", cfg.Store.Backend)
		}
	default:
		return fmt.Errorf("store.backend must be one of memory, sqlite, postgres, redis, got: %s", cfg.Store.Backend)
	}

	if !tableNamePattern.MatchString(cfg.Store.Table) {
		return fmt.Errorf("store.table must be a plain identifier, got: %s", cfg.Store.Table)
	}
	if cfg.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative, got: %s", cfg.Redis.TTL)
	}
	return nil
}
