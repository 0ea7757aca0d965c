package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all gateway configuration.
type Config struct {
	ServerHost    string
	ServerPort    int
	TransportMode string
	Mode          string
	LogLevel      string
	LogFormat     string
	Timezone      string

	QueryTimeout      time.Duration
	PoolBorrowTimeout time.Duration
	MaxResultRows     int
	MaxQueryLength    int
	MaxQueryParams    int
	RateLimitPerMin   int
	RateLimitWindow   time.Duration

	DBConfig DatabaseConfig
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type        string
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	PoolSize    int
	MaxOverflow int
}

// Mode values accepted for MCP_MODE.
const (
	ModeReadOnly   = "READ_ONLY"
	ModeFullAccess = "FULL_ACCESS"
)

// LoadConfig loads the configuration from environment variables. A .env
// file in the working directory is honored when present.
func LoadConfig() (*Config, error) {
	// Missing .env is not an error; env vars may be set by the runtime.
	_ = godotenv.Load()

	cfg := &Config{
		ServerHost:        getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:        getEnvInt("SERVER_PORT", 4000),
		TransportMode:     getEnv("TRANSPORT_MODE", "http"),
		Mode:              getEnv("MCP_MODE", ModeReadOnly),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		Timezone:          getEnv("TZ", ""),
		QueryTimeout:      time.Duration(getEnvInt("QUERY_TIMEOUT", 30)) * time.Second,
		PoolBorrowTimeout: time.Duration(getEnvInt("POOL_BORROW_TIMEOUT", 5)) * time.Second,
		MaxResultRows:     getEnvInt("MAX_RESULT_ROWS", 1000),
		MaxQueryLength:    getEnvInt("MAX_QUERY_LENGTH", 10000),
		MaxQueryParams:    getEnvInt("MAX_QUERY_PARAMS", 100),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitWindow:   time.Minute,
		DBConfig: DatabaseConfig{
			Type:        getEnv("DB_TYPE", "mssql"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", 1433),
			User:        getEnv("DB_USER", "sa"),
			Password:    getEnv("DB_PASSWORD", ""),
			Name:        getEnv("DB_NAME", "master"),
			PoolSize:    getEnvInt("CONNECTION_POOL_SIZE", 10),
			MaxOverflow: getEnvInt("CONNECTION_POOL_MAX_OVERFLOW", 20),
		},
	}

	if cfg.Mode != ModeReadOnly && cfg.Mode != ModeFullAccess {
		return nil, fmt.Errorf("MCP_MODE must be %q or %q, got: %q", ModeReadOnly, ModeFullAccess, cfg.Mode)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
