package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Matching.Interval)
	assert.Equal(t, 10, cfg.Matching.BatchLimit)
	assert.True(t, cfg.Matching.AllowSelfTrade)
	assert.True(t, cfg.Matching.MinFill.IsZero())
	assert.True(t, cfg.Fee.Rate.IsZero())
	assert.True(t, cfg.Memory.Enabled)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MATCH_BATCH_LIMIT", "25")
	t.Setenv("MATCH_ALLOW_SELF_TRADE", "false")
	t.Setenv("GRID_FEE_RATE", "0.05")
	t.Setenv("GRID_FEE_COLLECTOR", "grid")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Matching.BatchLimit)
	assert.False(t, cfg.Matching.AllowSelfTrade)
	assert.True(t, cfg.Fee.Rate.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, "grid", cfg.Fee.Collector)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Matching.BatchLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Fee.Rate = decimal.NewFromInt(1)
	assert.Error(t, cfg.Validate(), "fee rate of 100% or more is rejected")

	cfg = base()
	cfg.Fee.Rate = decimal.RequireFromString("0.05")
	cfg.Fee.Collector = ""
	assert.Error(t, cfg.Validate(), "positive fee requires a collector")

	cfg = base()
	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Memory.Enabled = false
	cfg.Database.Enabled = false
	assert.Error(t, cfg.Validate(), "some backend must be enabled")
}

func TestBadEnvValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("MATCH_BATCH_LIMIT", "lots")
	t.Setenv("GRID_FEE_RATE", "free")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Matching.BatchLimit)
	assert.True(t, cfg.Fee.Rate.IsZero())
}
