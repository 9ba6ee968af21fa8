package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsToMemoryWithoutDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SEED_DEMO_USERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreBackendMemory, cfg.Store.Backend)
	assert.True(t, cfg.Store.SeedUsers)
	assert.Equal(t, "session", cfg.Auth.CookieName)
	assert.Equal(t, "@every 5m", cfg.SLA.MonitorSchedule)
}

func TestLoad_PostgresWhenDSNPresent(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/helpdesk")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SEED_DEMO_USERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreBackendPostgres, cfg.Store.Backend)
	assert.False(t, cfg.Store.SeedUsers)
}

func TestLoad_RejectsBadBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("REDIS_DB", "two")
	_, err := Load()
	assert.Error(t, err)
}

func TestDurations(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 15*time.Second, AppConfig{RequestTimeoutSeconds: 15}.RequestTimeout())
	assert.Equal(t, time.Hour, AuthConfig{}.AccessTokenTTL())
	assert.Equal(t, 30*time.Minute, AuthConfig{AccessTokenTTLMinutes: 30}.AccessTokenTTL())
	assert.Equal(t, "0.0.0.0:8080", AppConfig{Host: "0.0.0.0", Port: "8080"}.Addr())
}
