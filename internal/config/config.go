package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Venues    VenuesConfig    `yaml:"venues"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	State     StateConfig     `yaml:"state"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Timescale TimescaleConfig `yaml:"timescale"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// VenuesConfig names the two exchanges the hedge trades across. Venue A is
// the reference venue: rate differences and price spreads are quoted A minus B
// and relative to A's mark price.
type VenuesConfig struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

type LedgerConfig struct {
	Path string `yaml:"path"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type StrategyConfig struct {
	Pairs                 []string      `yaml:"pairs"`
	MinRateDifference     float64       `yaml:"min_rate_difference"`
	CloseRateDifference   float64       `yaml:"close_rate_difference"`
	MaxPriceSpread        float64       `yaml:"max_price_spread"`
	PositionSizeUSD       float64       `yaml:"position_size_usd"`
	MaxTotalExposureUSD   float64       `yaml:"max_total_exposure_usd"`
	StopLossUSD           float64       `yaml:"stop_loss_usd"`
	MaxHoldingPriceSpread float64       `yaml:"max_holding_price_spread"`
	MaxHoldingHours       float64       `yaml:"max_holding_hours"`
	MinReversalHoldHours  float64       `yaml:"min_reversal_hold_hours"`
	LoopInterval          time.Duration `yaml:"loop_interval"`
	ReloadInterval        time.Duration `yaml:"reload_interval"`
	ErrorCooldown         time.Duration `yaml:"error_cooldown"`
	TestMode              bool          `yaml:"test_mode"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Venues.A == "" {
		cfg.Venues.A = "gateio"
	}
	if cfg.Venues.B == "" {
		cfg.Venues.B = "bitget"
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "data/trading_history.csv"
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/funding-arb-bot.db"
	}
	s := &cfg.Strategy
	if s.MinRateDifference == 0 {
		s.MinRateDifference = 0.10
	}
	if s.CloseRateDifference == 0 {
		s.CloseRateDifference = 0.02
	}
	if s.MaxPriceSpread == 0 {
		s.MaxPriceSpread = 0.005
	}
	if s.PositionSizeUSD == 0 {
		s.PositionSizeUSD = 100
	}
	if s.MaxTotalExposureUSD == 0 {
		s.MaxTotalExposureUSD = 1000
	}
	if s.StopLossUSD == 0 {
		s.StopLossUSD = -2.0
	}
	if s.MaxHoldingPriceSpread == 0 {
		s.MaxHoldingPriceSpread = 0.01
	}
	if s.MaxHoldingHours == 0 {
		s.MaxHoldingHours = 168
	}
	if s.MinReversalHoldHours == 0 {
		s.MinReversalHoldHours = 4
	}
	if s.LoopInterval == 0 {
		s.LoopInterval = 60 * time.Second
	}
	if s.ReloadInterval == 0 {
		s.ReloadInterval = 30 * time.Second
	}
	if s.ErrorCooldown == 0 {
		s.ErrorCooldown = 60 * time.Second
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
}

// applyEnvOverrides honors the flat option names the deployment surface has
// always used, taking precedence over file values.
func applyEnvOverrides(cfg *Config) error {
	s := &cfg.Strategy
	if v, ok := lookupEnv("TRADING_PAIRS"); ok {
		var pairs []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				pairs = append(pairs, p)
			}
		}
		s.Pairs = pairs
	}
	floats := []struct {
		key string
		dst *float64
	}{
		{"MIN_FUNDING_RATE_DIFFERENCE", &s.MinRateDifference},
		{"CLOSE_FUNDING_RATE_DIFFERENCE", &s.CloseRateDifference},
		{"MAX_PRICE_SPREAD", &s.MaxPriceSpread},
		{"POSITION_SIZE_USDT", &s.PositionSizeUSD},
		{"MAX_TOTAL_EXPOSURE_USDT", &s.MaxTotalExposureUSD},
		{"STOP_LOSS_USDT", &s.StopLossUSD},
		{"MAX_HOLDING_PRICE_SPREAD", &s.MaxHoldingPriceSpread},
		{"MAX_HOLDING_DURATION_HOURS", &s.MaxHoldingHours},
		{"MIN_HOLDING_HOURS_FOR_REVERSAL", &s.MinReversalHoldHours},
	}
	for _, f := range floats {
		v, ok := lookupEnv(f.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", f.key, v, err)
		}
		*f.dst = parsed
	}
	if v, ok := lookupEnv("LOOP_INTERVAL_SECONDS"); ok {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LOOP_INTERVAL_SECONDS=%q: %w", v, err)
		}
		s.LoopInterval = time.Duration(secs) * time.Second
	}
	if v, ok := lookupEnv("TEST_MODE"); ok {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			s.TestMode = true
		default:
			s.TestMode = false
		}
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func validate(cfg *Config) error {
	if len(cfg.Strategy.Pairs) == 0 {
		return errors.New("strategy.pairs is required")
	}
	if cfg.Venues.A == cfg.Venues.B {
		return errors.New("venues.a and venues.b must differ")
	}
	if cfg.Strategy.PositionSizeUSD <= 0 {
		return errors.New("strategy.position_size_usd must be > 0")
	}
	if cfg.Strategy.MaxTotalExposureUSD < cfg.Strategy.PositionSizeUSD {
		return errors.New("strategy.max_total_exposure_usd must cover at least one position")
	}
	if cfg.Strategy.StopLossUSD >= 0 {
		return errors.New("strategy.stop_loss_usd must be negative")
	}
	if cfg.Strategy.LoopInterval <= 0 {
		return errors.New("strategy.loop_interval must be > 0")
	}
	return nil
}
