package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/intraday/criteria"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "leader", cfg.Account.Strategy)
	assert.Equal(t, 100000.0, cfg.Account.InitialCash)
	assert.Equal(t, 20*time.Second, cfg.Interval())
	assert.Equal(t, 2*time.Second, cfg.CriterionTimeout())
	assert.NoError(t, cfg.Validate())

	sessions, err := cfg.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "09:14:00-11:31:00", sessions[0].String())
}

func TestParamsMatchCriteriaDefaults(t *testing.T) {
	p := Default().Params()
	want := criteria.DefaultParams()

	assert.Equal(t, want.AllowPriorDayRebuy, p.AllowPriorDayRebuy)
	assert.Equal(t, want.AuctionEnd, p.AuctionEnd)
	assert.True(t, want.StrongPeerRise.Equal(p.StrongPeerRise))
	assert.True(t, want.MaxPreopenRise.Equal(p.MaxPreopenRise))
	assert.Equal(t, want.ContractionFactor, p.ContractionFactor)
	require.Len(t, p.Sizing.Tiers, len(want.Sizing.Tiers))
	for i := range want.Sizing.Tiers {
		assert.True(t, want.Sizing.Tiers[i].Fraction.Equal(p.Sizing.Tiers[i].Fraction))
	}
	assert.NoError(t, p.Sizing.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"missing account id", func(c *Config) { c.Account.ID = "" }, "account.id is required"},
		{"negative cash", func(c *Config) { c.Account.InitialCash = -1000 }, "account.initial_cash must be positive"},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, "database.path is required"},
		{"bad query timeout", func(c *Config) { c.Database.QueryTimeout = "soon" }, "database.query_timeout"},
		{"unknown timezone", func(c *Config) { c.Market.Timezone = "Mars/Olympus" }, "market.timezone"},
		{"zero lot", func(c *Config) { c.Market.LotSize = 0 }, "market.lot_size must be positive"},
		{"bad auction end", func(c *Config) { c.Market.AuctionEnd = "9.30" }, "market.auction_end"},
		{"zero interval", func(c *Config) { c.Schedule.Interval = "0s" }, "schedule.interval must be positive"},
		{"no windows", func(c *Config) { c.Schedule.Windows = nil }, "at least one window"},
		{
			"overlapping windows",
			func(c *Config) {
				c.Schedule.Windows = []WindowConfig{{"09:00:00", "10:00:00"}, {"09:30:00", "11:00:00"}}
			},
			"overlaps",
		},
		{"inverted window", func(c *Config) { c.Schedule.Windows = []WindowConfig{{"10:00:00", "09:00:00"}} }, "end must be after start"},
		{"peer rise out of range", func(c *Config) { c.Strategy.StrongPeerRise = 1.5 }, "strategy.strong_peer_rise"},
		{"min volume bars", func(c *Config) { c.Strategy.MinVolumeBars = 9 }, "strategy.min_volume_bars"},
		{"tier above one", func(c *Config) { c.Strategy.Tiers[2].Fraction = 1.5 }, "strategy.tiers"},
		{"tiers decreasing", func(c *Config) { c.Strategy.Tiers[1].Fraction = 0.1 }, "strategy.tiers"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Strategy.AllowPriorDayRebuy = false
			cfg.Strategy.Tiers[0].Fraction = 0.25
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  id: LIVE-7\n  strategy: leader\n  initial_cash: 50000\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "LIVE-7", cfg.Account.ID)
	assert.Equal(t, 50000.0, cfg.Account.InitialCash)
	assert.True(t, cfg.Strategy.AllowPriorDayRebuy)
	assert.Len(t, cfg.Schedule.Windows, 2)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, Default().SaveToFile(path))

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(EnvMetricsAddr+"=:9102\n"), 0644))
	t.Setenv(EnvDBPath, "/var/lib/intraday/prod.db")
	t.Setenv(EnvLogLevel, "debug")
	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { _ = os.Unsetenv(EnvMetricsAddr) })

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/intraday/prod.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
}

func TestLoadEnvMalformed(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TRADER_ENV_LOADED=1\nTRADER-LOG-LEVEL=debug\n"), 0644))

	err := LoadEnv(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), envFile)
	assert.Empty(t, os.Getenv("TRADER_ENV_LOADED"))
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: [1, 2"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}
