package postgres

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the connection and pool settings for the Postgres-backed
// taskdb.Store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv loads the Postgres configuration from TASKDB_* environment
// variables, applying the same production-ready defaults and pool-size
// validation as any other environment-driven database client config.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("TASKDB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TASKDB_PORT: %w", err)
	}

	maxOpen, _ := strconv.Atoi(getEnvOrDefault("TASKDB_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("TASKDB_MAX_IDLE_CONNS", "10"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("TASKDB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TASKDB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("TASKDB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TASKDB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("TASKDB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("TASKDB_USER", "orchestrator"),
		Password:        os.Getenv("TASKDB_PASSWORD"),
		Database:        getEnvOrDefault("TASKDB_NAME", "orchestrator"),
		SSLMode:         getEnvOrDefault("TASKDB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Password == "" {
		return fmt.Errorf("TASKDB_PASSWORD is required")
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("TASKDB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("TASKDB_MAX_IDLE_CONNS cannot be negative")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("TASKDB_MAX_IDLE_CONNS (%d) cannot exceed TASKDB_MAX_OPEN_CONNS (%d)",
			c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// dsn builds a pgx-compatible connection string.
func (c Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
