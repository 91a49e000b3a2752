package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Matching MatchingConfig
	Fee      FeeConfig
	API      APIConfig
	Logger   LoggerConfig
	Memory   MemoryConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// MatchingConfig holds matching engine configuration
type MatchingConfig struct {
	Interval       time.Duration
	BatchLimit     int
	AllowSelfTrade bool
	MinFill        decimal.Decimal
}

// FeeConfig holds grid fee configuration. A zero rate disables the fee.
type FeeConfig struct {
	Rate      decimal.Decimal
	Collector string
}

// APIConfig holds API-specific configuration
type APIConfig struct {
	DefaultPageLimit int
	MaxPageLimit     int
	AdminToken       string
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level  string // debug, info, warn, error
	Pretty bool
}

// MemoryConfig holds in-memory storage configuration
type MemoryConfig struct {
	Enabled bool
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	MaxConns        int
	ConnMaxLifetime time.Duration
	SSLMode         string
}

// RedisConfig holds Redis trade tape configuration
type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	MaxTrades    int
}

// Load loads configuration from .env file (if exists) and environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Matching: MatchingConfig{
			Interval:       getEnvDuration("MATCH_INTERVAL", 5*time.Second),
			BatchLimit:     getEnvInt("MATCH_BATCH_LIMIT", 10),
			AllowSelfTrade: getEnvBool("MATCH_ALLOW_SELF_TRADE", true),
			MinFill:        getEnvDecimal("MATCH_MIN_FILL", decimal.Zero),
		},
		Fee: FeeConfig{
			Rate:      getEnvDecimal("GRID_FEE_RATE", decimal.Zero),
			Collector: getEnv("GRID_FEE_COLLECTOR", ""),
		},
		API: APIConfig{
			DefaultPageLimit: getEnvInt("DEFAULT_PAGE_LIMIT", 100),
			MaxPageLimit:     getEnvInt("MAX_PAGE_LIMIT", 1000),
			AdminToken:       getEnv("ADMIN_TOKEN", ""),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Memory: MemoryConfig{
			Enabled: getEnvBool("MEMORY_ENABLED", true),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DATABASE_ENABLED", false),
			Host:            getEnv("DATABASE_HOST", "localhost"),
			Port:            getEnvInt("DATABASE_PORT", 5432),
			Name:            getEnv("DATABASE_NAME", "energymarket"),
			User:            getEnv("DATABASE_USER", "postgres"),
			Password:        getEnv("DATABASE_PASSWORD", ""),
			MaxConns:        getEnvInt("DATABASE_MAX_CONNECTIONS", 20),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			SSLMode:         getEnv("DATABASE_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			MaxRetries:   getEnvInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			MaxTrades:    getEnvInt("REDIS_MAX_TRADES", 10000),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.Matching.Interval <= 0 {
		return fmt.Errorf("MATCH_INTERVAL must be > 0")
	}
	if c.Matching.BatchLimit < 1 {
		return fmt.Errorf("MATCH_BATCH_LIMIT must be > 0")
	}
	if c.Matching.MinFill.IsNegative() {
		return fmt.Errorf("MATCH_MIN_FILL must be >= 0")
	}

	if c.Fee.Rate.IsNegative() || c.Fee.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("GRID_FEE_RATE must be in [0, 1)")
	}
	if c.Fee.Rate.IsPositive() && c.Fee.Collector == "" {
		return fmt.Errorf("GRID_FEE_COLLECTOR required when GRID_FEE_RATE > 0")
	}

	if c.API.DefaultPageLimit < 1 {
		return fmt.Errorf("DEFAULT_PAGE_LIMIT must be > 0")
	}
	if c.API.MaxPageLimit < c.API.DefaultPageLimit {
		return fmt.Errorf("MAX_PAGE_LIMIT must be >= DEFAULT_PAGE_LIMIT")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	if !c.Memory.Enabled && !c.Database.Enabled {
		return fmt.Errorf("either MEMORY_ENABLED or DATABASE_ENABLED must be set")
	}
	if c.Database.Enabled {
		if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
			return fmt.Errorf("DATABASE_HOST, DATABASE_NAME and DATABASE_USER are required when DATABASE_ENABLED")
		}
	}

	return nil
}

// Helper functions to read environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
