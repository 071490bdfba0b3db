package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearOverrides unsets every environment override the loader honors, so a
// polluted test environment cannot leak into assertions.
func clearOverrides(t *testing.T) {
	t.Helper()
	keys := []string{
		"TRADING_PAIRS",
		"MIN_FUNDING_RATE_DIFFERENCE",
		"CLOSE_FUNDING_RATE_DIFFERENCE",
		"MAX_PRICE_SPREAD",
		"POSITION_SIZE_USDT",
		"MAX_TOTAL_EXPOSURE_USDT",
		"STOP_LOSS_USDT",
		"MAX_HOLDING_PRICE_SPREAD",
		"MAX_HOLDING_DURATION_HOURS",
		"MIN_HOLDING_HOURS_FOR_REVERSAL",
		"LOOP_INTERVAL_SECONDS",
		"TEST_MODE",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
strategy:
  pairs:
    - FUN/USDT
    - SNT/USDT
`

func TestLoadDefaults(t *testing.T) {
	clearOverrides(t)
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Venues.A != "gateio" || cfg.Venues.B != "bitget" {
		t.Fatalf("default venues = %s/%s", cfg.Venues.A, cfg.Venues.B)
	}
	s := cfg.Strategy
	if s.MinRateDifference != 0.10 {
		t.Fatalf("min rate difference = %v", s.MinRateDifference)
	}
	if s.CloseRateDifference != 0.02 {
		t.Fatalf("close rate difference = %v", s.CloseRateDifference)
	}
	if s.MaxPriceSpread != 0.005 {
		t.Fatalf("max price spread = %v", s.MaxPriceSpread)
	}
	if s.PositionSizeUSD != 100 || s.MaxTotalExposureUSD != 1000 {
		t.Fatalf("sizing = %v/%v", s.PositionSizeUSD, s.MaxTotalExposureUSD)
	}
	if s.StopLossUSD != -2.0 {
		t.Fatalf("stop loss = %v", s.StopLossUSD)
	}
	if s.MaxHoldingPriceSpread != 0.01 {
		t.Fatalf("max holding price spread = %v", s.MaxHoldingPriceSpread)
	}
	if s.MaxHoldingHours != 168 || s.MinReversalHoldHours != 4 {
		t.Fatalf("holding windows = %v/%v", s.MaxHoldingHours, s.MinReversalHoldHours)
	}
	if s.LoopInterval != 60*time.Second {
		t.Fatalf("loop interval = %v", s.LoopInterval)
	}
	if s.TestMode {
		t.Fatal("test mode should default off")
	}
	if cfg.Ledger.Path != "data/trading_history.csv" {
		t.Fatalf("ledger path = %q", cfg.Ledger.Path)
	}
}

func TestLoadFileValues(t *testing.T) {
	clearOverrides(t)
	cfg, err := Load(writeConfig(t, `
venues:
  a: gateio
  b: bitget
strategy:
  pairs: [RSS3/USDT]
  min_rate_difference: 0.25
  position_size_usd: 50
  max_total_exposure_usd: 400
  loop_interval: 30s
  test_mode: true
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Strategy.Pairs) != 1 || cfg.Strategy.Pairs[0] != "RSS3/USDT" {
		t.Fatalf("pairs = %v", cfg.Strategy.Pairs)
	}
	if cfg.Strategy.MinRateDifference != 0.25 {
		t.Fatalf("min rate difference = %v", cfg.Strategy.MinRateDifference)
	}
	if cfg.Strategy.PositionSizeUSD != 50 || cfg.Strategy.MaxTotalExposureUSD != 400 {
		t.Fatalf("sizing = %v/%v", cfg.Strategy.PositionSizeUSD, cfg.Strategy.MaxTotalExposureUSD)
	}
	if cfg.Strategy.LoopInterval != 30*time.Second {
		t.Fatalf("loop interval = %v", cfg.Strategy.LoopInterval)
	}
	if !cfg.Strategy.TestMode {
		t.Fatal("test mode should be on")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearOverrides(t)
	t.Setenv("TRADING_PAIRS", "FUN/USDT, TLM/USDT ,")
	t.Setenv("MIN_FUNDING_RATE_DIFFERENCE", "0.30")
	t.Setenv("STOP_LOSS_USDT", "-5")
	t.Setenv("LOOP_INTERVAL_SECONDS", "15")
	t.Setenv("TEST_MODE", "yes")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Strategy.Pairs) != 2 || cfg.Strategy.Pairs[1] != "TLM/USDT" {
		t.Fatalf("pairs = %v", cfg.Strategy.Pairs)
	}
	if cfg.Strategy.MinRateDifference != 0.30 {
		t.Fatalf("min rate difference = %v", cfg.Strategy.MinRateDifference)
	}
	if cfg.Strategy.StopLossUSD != -5 {
		t.Fatalf("stop loss = %v", cfg.Strategy.StopLossUSD)
	}
	if cfg.Strategy.LoopInterval != 15*time.Second {
		t.Fatalf("loop interval = %v", cfg.Strategy.LoopInterval)
	}
	if !cfg.Strategy.TestMode {
		t.Fatal("TEST_MODE=yes should enable test mode")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearOverrides(t)
	cases := []struct {
		name string
		body string
		env  map[string]string
	}{
		{"no pairs", `strategy: {min_rate_difference: 0.2}`, nil},
		{"same venues", `
venues: {a: gateio, b: gateio}
strategy: {pairs: [FUN/USDT]}
`, nil},
		{"positive stop loss", `
strategy:
  pairs: [FUN/USDT]
  stop_loss_usd: 2.0
`, nil},
		{"exposure below one position", `
strategy:
  pairs: [FUN/USDT]
  position_size_usd: 500
  max_total_exposure_usd: 400
`, nil},
		{"bad float override", minimalConfig, map[string]string{"MAX_PRICE_SPREAD": "wide"}},
		{"bad interval override", minimalConfig, map[string]string{"LOOP_INTERVAL_SECONDS": "soon"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			clearOverrides(t)
			for k, v := range c.env {
				t.Setenv(k, v)
			}
			if _, err := Load(writeConfig(t, c.body)); err == nil {
				t.Fatal("expected load to fail")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing config file")
	}
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for an empty path")
	}
}
