package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 4000, cfg.ServerPort)
	assert.Equal(t, "http", cfg.TransportMode)
	assert.Equal(t, ModeReadOnly, cfg.Mode)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 5*time.Second, cfg.PoolBorrowTimeout)
	assert.Equal(t, 1000, cfg.MaxResultRows)
	assert.Equal(t, 60, cfg.RateLimitPerMin)
	assert.Equal(t, "mssql", cfg.DBConfig.Type)
	assert.Equal(t, 1433, cfg.DBConfig.Port)
	assert.Equal(t, 10, cfg.DBConfig.PoolSize)
	assert.Equal(t, 20, cfg.DBConfig.MaxOverflow)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MCP_MODE", "FULL_ACCESS")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("QUERY_TIMEOUT", "10")
	t.Setenv("MAX_RESULT_ROWS", "250")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "5")
	t.Setenv("CONNECTION_POOL_SIZE", "3")
	t.Setenv("CONNECTION_POOL_MAX_OVERFLOW", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ModeFullAccess, cfg.Mode)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBConfig.Type)
	assert.Equal(t, 5432, cfg.DBConfig.Port)
	assert.Equal(t, 10*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 250, cfg.MaxResultRows)
	assert.Equal(t, 5, cfg.RateLimitPerMin)
	assert.Equal(t, 3, cfg.DBConfig.PoolSize)
	assert.Equal(t, 4, cfg.DBConfig.MaxOverflow)
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	t.Setenv("MCP_MODE", "ADMIN")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.ServerPort)
}
