package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/intraday/calendar"
	"github.com/rustyeddy/intraday/criteria"
	"github.com/rustyeddy/intraday/market"
	"github.com/rustyeddy/intraday/risk"
)

// Environment variables that override the file.
const (
	EnvDBPath      = "TRADER_DB_PATH"
	EnvLogLevel    = "TRADER_LOG_LEVEL"
	EnvMetricsAddr = "TRADER_METRICS_ADDR"
)

// Config represents the complete engine configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Market   MarketConfig   `json:"market" yaml:"market"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// AccountConfig names the ledger account and its opening cash
type AccountConfig struct {
	ID          string  `json:"id" yaml:"id"`
	Strategy    string  `json:"strategy" yaml:"strategy"`
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
}

type DatabaseConfig struct {
	Path         string `json:"path" yaml:"path"`
	QueryTimeout string `json:"query_timeout" yaml:"query_timeout"` // e.g. "2s"
}

type MarketConfig struct {
	Timezone   string `json:"timezone" yaml:"timezone"`
	LotSize    int64  `json:"lot_size" yaml:"lot_size"`
	AuctionEnd string `json:"auction_end" yaml:"auction_end"`
}

// WindowConfig is one intraday session, HH:MM:SS clocks
type WindowConfig struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type ScheduleConfig struct {
	Interval string         `json:"interval" yaml:"interval"`
	Windows  []WindowConfig `json:"windows" yaml:"windows"`
}

type TierConfig struct {
	MinPeers int     `json:"min_peers" yaml:"min_peers"`
	Fraction float64 `json:"fraction" yaml:"fraction"`
}

// StrategyConfig holds the criterion thresholds
type StrategyConfig struct {
	AllowPriorDayRebuy bool   `json:"allow_prior_day_rebuy" yaml:"allow_prior_day_rebuy"`
	CriterionTimeout   string `json:"criterion_timeout" yaml:"criterion_timeout"`

	StrongPeerRise  float64 `json:"strong_peer_rise" yaml:"strong_peer_rise"`
	MinStrongTheme1 int     `json:"min_strong_theme1" yaml:"min_strong_theme1"`
	MinStrongTheme2 int     `json:"min_strong_theme2" yaml:"min_strong_theme2"`
	TopPeers        int     `json:"top_peers" yaml:"top_peers"`
	MaxHeldPerTheme int     `json:"max_held_per_theme" yaml:"max_held_per_theme"`

	VolumeBars        int     `json:"volume_bars" yaml:"volume_bars"`
	MinVolumeBars     int     `json:"min_volume_bars" yaml:"min_volume_bars"`
	ContractionFactor float64 `json:"contraction_factor" yaml:"contraction_factor"`
	MinExpansionDays  int     `json:"min_expansion_days" yaml:"min_expansion_days"`
	MaxContractDays   int     `json:"max_contract_days" yaml:"max_contract_days"`
	BigBarRise        float64 `json:"big_bar_rise" yaml:"big_bar_rise"`

	MinVolumeRatio  float64 `json:"min_volume_ratio" yaml:"min_volume_ratio"`
	MinPreopenRatio float64 `json:"min_preopen_ratio" yaml:"min_preopen_ratio"`
	MaxPreopenRise  float64 `json:"max_preopen_rise" yaml:"max_preopen_rise"`

	MaxStallGain    float64 `json:"max_stall_gain" yaml:"max_stall_gain"`
	ExitRatio       float64 `json:"exit_ratio" yaml:"exit_ratio"`
	DropVolumeRatio float64 `json:"drop_volume_ratio" yaml:"drop_volume_ratio"`

	Tiers []TierConfig `json:"tiers" yaml:"tiers"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

// MetricsConfig enables the Prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// LoadEnv loads .env style files into the environment. Missing files are
// ignored; a file that exists but does not parse is an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a file (YAML, falling back to
// JSON) over the defaults, then applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from TRADER_* environment variables.
func (c *Config) ApplyEnv() {
	if val := os.Getenv(EnvDBPath); val != "" {
		c.Database.Path = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv(EnvMetricsAddr); val != "" {
		c.Metrics.Addr = val
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func positiveDuration(name, s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.ID == "" {
		return fmt.Errorf("account.id is required")
	}
	if c.Account.Strategy == "" {
		return fmt.Errorf("account.strategy is required")
	}
	if c.Account.InitialCash <= 0 {
		return fmt.Errorf("account.initial_cash must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if err := positiveDuration("database.query_timeout", c.Database.QueryTimeout); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Market.LotSize <= 0 {
		return fmt.Errorf("market.lot_size must be positive")
	}
	if _, err := market.ParseClock(c.Market.AuctionEnd); err != nil {
		return fmt.Errorf("market.auction_end: %w", err)
	}
	if err := positiveDuration("schedule.interval", c.Schedule.Interval); err != nil {
		return err
	}
	if _, err := c.Sessions(); err != nil {
		return err
	}
	if err := positiveDuration("strategy.criterion_timeout", c.Strategy.CriterionTimeout); err != nil {
		return err
	}
	s := c.Strategy
	if s.StrongPeerRise <= 0 || s.StrongPeerRise >= 1 {
		return fmt.Errorf("strategy.strong_peer_rise must be between 0 and 1")
	}
	if s.VolumeBars <= 0 || s.MinVolumeBars <= 0 || s.MinVolumeBars > s.VolumeBars {
		return fmt.Errorf("strategy.min_volume_bars must be in 1..volume_bars")
	}
	if s.ContractionFactor <= 0 || s.ContractionFactor > 1 {
		return fmt.Errorf("strategy.contraction_factor must be in (0, 1]")
	}
	if s.MinVolumeRatio <= 0 || s.ExitRatio <= 0 || s.DropVolumeRatio <= 0 {
		return fmt.Errorf("strategy volume ratios must be positive")
	}
	if s.TopPeers <= 0 || s.MaxHeldPerTheme <= 0 {
		return fmt.Errorf("strategy.top_peers and max_held_per_theme must be positive")
	}
	if err := c.sizing().Validate(); err != nil {
		return fmt.Errorf("strategy.tiers: %w", err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	p := criteria.DefaultParams()
	tiers := make([]TierConfig, 0, len(p.Sizing.Tiers))
	for _, t := range p.Sizing.Tiers {
		tiers = append(tiers, TierConfig{MinPeers: t.MinPeers, Fraction: t.Fraction.InexactFloat64()})
	}
	var windows []WindowConfig
	for _, w := range calendar.DefaultSessions() {
		windows = append(windows, WindowConfig{Start: market.FormatClock(w.Start), End: market.FormatClock(w.End)})
	}

	return &Config{
		Account: AccountConfig{
			ID:          "SIM-001",
			Strategy:    "leader",
			InitialCash: 100000,
		},
		Database: DatabaseConfig{
			Path:         "./intraday.db",
			QueryTimeout: "2s",
		},
		Market: MarketConfig{
			Timezone:   "Asia/Shanghai",
			LotSize:    p.Sizing.LotSize,
			AuctionEnd: p.AuctionEnd,
		},
		Schedule: ScheduleConfig{
			Interval: "20s",
			Windows:  windows,
		},
		Strategy: StrategyConfig{
			AllowPriorDayRebuy: p.AllowPriorDayRebuy,
			CriterionTimeout:   "2s",

			StrongPeerRise:  p.StrongPeerRise.InexactFloat64(),
			MinStrongTheme1: p.MinStrongTheme1,
			MinStrongTheme2: p.MinStrongTheme2,
			TopPeers:        p.TopPeers,
			MaxHeldPerTheme: p.MaxHeldPerTheme,

			VolumeBars:        p.VolumeBars,
			MinVolumeBars:     p.MinVolumeBars,
			ContractionFactor: p.ContractionFactor,
			MinExpansionDays:  p.MinExpansionDays,
			MaxContractDays:   p.MaxContractDays,
			BigBarRise:        p.BigBarRise.InexactFloat64(),

			MinVolumeRatio:  p.MinVolumeRatio,
			MinPreopenRatio: p.MinPreopenRatio,
			MaxPreopenRise:  p.MaxPreopenRise.InexactFloat64(),

			MaxStallGain:    p.MaxStallGain.InexactFloat64(),
			ExitRatio:       p.ExitRatio,
			DropVolumeRatio: p.DropVolumeRatio,

			Tiers: tiers,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return nil, fmt.Errorf("market.timezone: %w", err)
	}
	return loc, nil
}

func (c *Config) Interval() time.Duration {
	d, _ := time.ParseDuration(c.Schedule.Interval)
	return d
}

func (c *Config) QueryTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Database.QueryTimeout)
	return d
}

func (c *Config) CriterionTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Strategy.CriterionTimeout)
	return d
}

func (c *Config) InitialCash() decimal.Decimal {
	return decimal.NewFromFloat(c.Account.InitialCash)
}

// Sessions parses the schedule windows.
func (c *Config) Sessions() (calendar.Sessions, error) {
	if len(c.Schedule.Windows) == 0 {
		return nil, fmt.Errorf("schedule.windows: at least one window is required")
	}
	ws := make([]calendar.Window, 0, len(c.Schedule.Windows))
	for i, w := range c.Schedule.Windows {
		pw, err := calendar.ParseWindow(w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("schedule.windows[%d]: %w", i, err)
		}
		ws = append(ws, pw)
	}
	s, err := calendar.NewSessions(ws...)
	if err != nil {
		return nil, fmt.Errorf("schedule.windows: %w", err)
	}
	return s, nil
}

func (c *Config) sizing() risk.Policy {
	p := risk.Policy{LotSize: c.Market.LotSize}
	for _, t := range c.Strategy.Tiers {
		p.Tiers = append(p.Tiers, risk.Tier{MinPeers: t.MinPeers, Fraction: decimal.NewFromFloat(t.Fraction)})
	}
	return p
}

// Params converts the strategy section into criterion parameters.
func (c *Config) Params() criteria.Params {
	s := c.Strategy
	return criteria.Params{
		AllowPriorDayRebuy: s.AllowPriorDayRebuy,
		AuctionEnd:         c.Market.AuctionEnd,

		StrongPeerRise:  decimal.NewFromFloat(s.StrongPeerRise),
		MinStrongTheme1: s.MinStrongTheme1,
		MinStrongTheme2: s.MinStrongTheme2,
		TopPeers:        s.TopPeers,
		MaxHeldPerTheme: s.MaxHeldPerTheme,

		VolumeBars:        s.VolumeBars,
		MinVolumeBars:     s.MinVolumeBars,
		ContractionFactor: s.ContractionFactor,
		MinExpansionDays:  s.MinExpansionDays,
		MaxContractDays:   s.MaxContractDays,
		BigBarRise:        decimal.NewFromFloat(s.BigBarRise),

		MinVolumeRatio:  s.MinVolumeRatio,
		MinPreopenRatio: s.MinPreopenRatio,
		MaxPreopenRise:  decimal.NewFromFloat(s.MaxPreopenRise),

		MaxStallGain:    decimal.NewFromFloat(s.MaxStallGain),
		ExitRatio:       s.ExitRatio,
		DropVolumeRatio: s.DropVolumeRatio,

		Sizing: c.sizing(),
	}
}
