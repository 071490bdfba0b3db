package strategy

import (
	"math"

	"funding-arb-bot/internal/config"
)

// PositionMetrics carries the per-cycle measurements the close conditions are
// evaluated against.
type PositionMetrics struct {
	UnrealizedPnL float64
	// RateDifference is annualized venue A minus venue B, fractional.
	RateDifference float64
	PriceSpread    float64
	HoldingHours   float64
	RateReversed   bool
}

type closeCondition struct {
	reason CloseReason
	fired  func(cfg config.StrategyConfig, m PositionMetrics) bool
}

// closeConditions is evaluated in order; the first condition that fires wins
// and no later condition is consulted in the same cycle. The order is a
// contract: stop-loss outranks everything, the holding-time ceiling is the
// backstop.
var closeConditions = []closeCondition{
	{ReasonStopLoss, func(cfg config.StrategyConfig, m PositionMetrics) bool {
		return m.UnrealizedPnL <= cfg.StopLossUSD
	}},
	{ReasonLowArbitrageRate, func(cfg config.StrategyConfig, m PositionMetrics) bool {
		return math.Abs(m.RateDifference) <= cfg.CloseRateDifference
	}},
	{ReasonMaxHoldingPriceSpread, func(cfg config.StrategyConfig, m PositionMetrics) bool {
		return m.PriceSpread > cfg.MaxHoldingPriceSpread
	}},
	{ReasonRateReversal, func(cfg config.StrategyConfig, m PositionMetrics) bool {
		return m.RateReversed && m.HoldingHours > cfg.MinReversalHoldHours
	}},
	{ReasonMaxHoldingTime, func(cfg config.StrategyConfig, m PositionMetrics) bool {
		return m.HoldingHours >= cfg.MaxHoldingHours
	}},
}

// EvaluateClose runs the priority-ordered close checks for a live position.
func EvaluateClose(cfg config.StrategyConfig, m PositionMetrics) (CloseReason, bool) {
	for _, c := range closeConditions {
		if c.fired(cfg, m) {
			return c.reason, true
		}
	}
	return "", false
}

// OpenDecision is the hedge direction chosen for a new position. ArbitrageRate
// is the captured annualized spread, non-negative by construction.
type OpenDecision struct {
	ShortVenue    string
	LongVenue     string
	ArbitrageRate float64
}

// EvaluateOpen decides whether a flat pair qualifies for a new hedge. The
// exposure cap is enforced by the caller, which owns the live-position set.
func EvaluateOpen(cfg config.StrategyConfig, venueA, venueB string, rateDifference, priceSpread float64) (OpenDecision, bool) {
	if math.Abs(rateDifference) < cfg.MinRateDifference || priceSpread > cfg.MaxPriceSpread {
		return OpenDecision{}, false
	}
	if rateDifference > 0 {
		// A pays more than B: short A, long B.
		return OpenDecision{ShortVenue: venueA, LongVenue: venueB, ArbitrageRate: rateDifference}, true
	}
	return OpenDecision{ShortVenue: venueB, LongVenue: venueA, ArbitrageRate: -rateDifference}, true
}
