package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsEnvOnly(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.DB.DSN)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.ProposalTTL)
	assert.Equal(t, 1000, cfg.Optimizer.RandomMaxAttempts)
	assert.Equal(t, 2.0, cfg.Optimizer.MeanTolerance)
	assert.Equal(t, 250.0, cfg.Optimizer.BagWeight)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blend.yaml")
	data := []byte(`
server:
  http_addr: ":9090"
db:
  dsn: "postgres://blend@localhost/blend"
optimizer:
  mean_tolerance: 1.5
cron:
  pool_report: "@every 1h"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	t.Setenv("BLEND_SERVER_HTTP_ADDR", ":7070")
	t.Setenv("BLEND_REDIS_ENABLED", "true")

	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.HTTPAddr)
	assert.Equal(t, "postgres://blend@localhost/blend", cfg.DB.DSN)
	assert.Equal(t, 1.5, cfg.Optimizer.MeanTolerance)
	assert.Equal(t, "@every 1h", cfg.Cron.PoolReport)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false)
	assert.Error(t, err)
}
