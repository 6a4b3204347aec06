package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLiteConfigDefaults(t *testing.T) {
	cfg, err := LoadLiteConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/water_ml.db", cfg.DBPath)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadLiteConfigFromEnv(t *testing.T) {
	t.Setenv("WATER_ML_LITE_HOST", "0.0.0.0")
	t.Setenv("WATER_ML_LITE_PORT", "9090")
	t.Setenv("WATER_ML_LITE_DB_PATH", "/tmp/test.db")
	t.Setenv("WATER_ML_LITE_SESSION_TTL", "1h")

	cfg, err := LoadLiteConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoadLiteConfigRejectsBadValues(t *testing.T) {
	t.Setenv("WATER_ML_LITE_PORT", "not-a-port")
	_, err := LoadLiteConfig()
	assert.Error(t, err)

	t.Setenv("WATER_ML_LITE_PORT", "8080")
	t.Setenv("WATER_ML_LITE_SESSION_TTL", "-5m")
	_, err = LoadLiteConfig()
	assert.Error(t, err)
}
