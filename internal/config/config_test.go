package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "dob-oracle", cfg.AppName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.PostgresDSN)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ORACLE_BACKEND_URL", "http://4.187.227.149")
	t.Setenv("ORACLE_POLL_INTERVAL", "250ms")
	t.Setenv("ORACLE_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "http://4.187.227.149", cfg.BackendURL)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoad_RejectsBadBackendURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ORACLE_BACKEND_URL", "not a url")

	_, err := Load(viper.New())
	assert.ErrorContains(t, err, "invalid backend_url")
}
