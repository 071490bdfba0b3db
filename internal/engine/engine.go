package engine

import (
	"context"
	"fmt"
	"time"

	"funding-arb-bot/internal/config"
	"funding-arb-bot/internal/exec"
	"funding-arb-bot/internal/ledger"
	"funding-arb-bot/internal/market"
	"funding-arb-bot/internal/metrics"
	"funding-arb-bot/internal/state"
	"funding-arb-bot/internal/strategy"
	"funding-arb-bot/internal/timescale"

	"go.uber.org/zap"
)

// LegExecutor places one hedge leg. The engine only consumes the outcome.
type LegExecutor interface {
	ExecuteLeg(ctx context.Context, leg exec.Leg) error
}

// Alerter notifies an operator out of band.
type Alerter interface {
	Send(ctx context.Context, message string) error
}

// Engine owns the per-pair FLAT/OPEN lifecycle: once per cycle it evaluates
// close conditions on live positions and open conditions on flat pairs,
// writing every transition to the trade ledger before mutating the live set.
// All decision making runs on a single goroutine.
type Engine struct {
	cfg      *config.Manager
	log      *zap.Logger
	ledger   ledger.Store
	executor LegExecutor
	provider market.Provider
	store    state.Store
	metrics  *metrics.Metrics
	alerts   Alerter
	archive  *timescale.Writer

	venueA string
	venueB string

	positions map[string]strategy.Position
	now       func() time.Time
}

type Options struct {
	Config   *config.Manager
	Log      *zap.Logger
	Ledger   ledger.Store
	Executor LegExecutor
	Provider market.Provider
	Store    state.Store
	Metrics  *metrics.Metrics
	Alerts   Alerter
	Archive  *timescale.Writer
}

func New(opts Options) *Engine {
	cfg := opts.Config.Current()
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Engine{
		cfg:       opts.Config,
		log:       opts.Log,
		ledger:    opts.Ledger,
		executor:  opts.Executor,
		provider:  opts.Provider,
		store:     opts.Store,
		metrics:   m,
		alerts:    opts.Alerts,
		archive:   opts.Archive,
		venueA:    cfg.Venues.A,
		venueB:    cfg.Venues.B,
		positions: RebuildFromStore(opts.Ledger, opts.Log),
		now:       time.Now,
	}
}

// Positions returns a copy of the live-position set.
func (e *Engine) Positions() map[string]strategy.Position {
	out := make(map[string]strategy.Position, len(e.positions))
	for pair, pos := range e.positions {
		out[pair] = pos
	}
	return out
}

// Cycle evaluates every configured pair against a fresh snapshot. The config
// is read once at the top, so a hot reload mid-cycle cannot mix thresholds
// within one decision.
func (e *Engine) Cycle(ctx context.Context) error {
	cfg := e.cfg.Current()
	skipped := 0
	var lastErr error
	for _, pair := range cfg.Strategy.Pairs {
		snap, ok := e.provider.Snapshot(ctx, pair)
		if !ok || !snap.Complete() {
			e.log.Warn("incomplete market data, skipping pair", zap.String("pair", pair))
			e.metrics.PairsSkipped.Inc()
			skipped++
			continue
		}
		if err := e.evaluatePair(ctx, cfg, snap); err != nil {
			e.log.Error("pair evaluation failed", zap.String("pair", pair), zap.Error(err))
			lastErr = err
		}
	}
	e.saveCycleSnapshot(ctx, skipped, lastErr)
	return lastErr
}

func (e *Engine) evaluatePair(ctx context.Context, cfg *config.Config, snap market.Snapshot) error {
	annualA := strategy.AnnualizedRate(snap.A.FundingRate)
	annualB := strategy.AnnualizedRate(snap.B.FundingRate)
	rateDifference := annualA - annualB
	priceSpread := strategy.PriceSpread(snap.A.MarkPrice, snap.B.MarkPrice)

	if pos, ok := e.positions[snap.Pair]; ok {
		return e.manageOpenPosition(ctx, cfg, pos, snap, rateDifference, priceSpread)
	}
	return e.tryOpenPosition(ctx, cfg, snap, rateDifference, priceSpread)
}

func (e *Engine) manageOpenPosition(ctx context.Context, cfg *config.Config, pos strategy.Position, snap market.Snapshot, rateDifference, priceSpread float64) error {
	now := e.now().UTC()
	curShort := e.markFor(pos.ShortVenue, snap)
	curLong := e.markFor(pos.LongVenue, snap)

	m := strategy.PositionMetrics{
		UnrealizedPnL:  strategy.RealizedPnL(pos.OpenShortPrice, pos.OpenLongPrice, curShort, curLong, pos.SizeUSD),
		RateDifference: rateDifference,
		PriceSpread:    priceSpread,
		HoldingHours:   now.Sub(time.Unix(pos.OpenTimestamp, 0)).Hours(),
		RateReversed:   strategy.RateReversed(pos, e.venueA, rateDifference),
	}
	e.log.Info("managing position",
		zap.String("pair", pos.Pair),
		zap.Float64("unrealized_pnl", m.UnrealizedPnL),
		zap.Float64("holding_hours", m.HoldingHours),
		zap.Float64("price_spread", m.PriceSpread),
		zap.Float64("rate_difference", m.RateDifference),
	)
	e.recordCycle(pos.Pair, "OPEN", snap, rateDifference, priceSpread, m.UnrealizedPnL)

	reason, fire := strategy.EvaluateClose(cfg.Strategy, m)
	if !fire {
		return nil
	}
	return e.closePosition(ctx, pos, reason, snap, rateDifference, curShort, curLong, m.UnrealizedPnL, now)
}

// closePosition appends the CLOSE row and only then drops the position from
// the live map. If the append fails the position stays live and the close is
// retried next cycle; dropping it first would lose the trade on restart.
func (e *Engine) closePosition(ctx context.Context, pos strategy.Position, reason strategy.CloseReason, snap market.Snapshot, rateDifference, curShort, curLong, realizedPnL float64, now time.Time) error {
	currentArb := strategy.CurrentArbitrageRate(pos, e.venueA, rateDifference)
	fundingProfit := strategy.FundingProfitEstimate(pos, currentArb, now.Unix())

	row := ledger.Row{
		Timestamp:        now,
		Pair:             pos.Pair,
		Action:           ledger.ActionClose,
		ShortVenue:       pos.ShortVenue,
		LongVenue:        pos.LongVenue,
		SizeUSD:          pos.SizeUSD,
		ShortPrice:       curShort,
		LongPrice:        curLong,
		RateDiffPercent:  currentArb * 100,
		CloseReason:      string(reason),
		RealizedPnL:      realizedPnL,
		HasRealizedPnL:   true,
		FundingProfit:    fundingProfit,
		HasFundingProfit: true,
		TradeID:          pos.TradeID,
	}
	if err := e.ledger.Append(row); err != nil {
		e.metrics.LedgerAppendFailures.Inc()
		e.log.Error("close not recorded, position stays live for retry",
			zap.String("pair", pos.Pair),
			zap.String("trade_id", pos.TradeID),
			zap.Error(err),
		)
		return fmt.Errorf("append close row: %w", err)
	}
	delete(e.positions, pos.Pair)
	e.metrics.PositionsClosed.Inc()
	e.log.Info("closed position",
		zap.String("pair", pos.Pair),
		zap.String("reason", string(reason)),
		zap.Float64("realized_pnl", realizedPnL),
		zap.Float64("funding_profit", fundingProfit),
	)
	e.notify(ctx, fmt.Sprintf("Closed %s (%s): PnL %.2f USDT, funding %.4f USDT", pos.Pair, reason, realizedPnL, fundingProfit))
	e.recordTrade(row)
	return nil
}

func (e *Engine) tryOpenPosition(ctx context.Context, cfg *config.Config, snap market.Snapshot, rateDifference, priceSpread float64) error {
	e.recordCycle(snap.Pair, "FLAT", snap, rateDifference, priceSpread, 0)

	size := cfg.Strategy.PositionSizeUSD
	if exposure := e.totalExposure(); exposure+size > cfg.Strategy.MaxTotalExposureUSD {
		e.log.Info("exposure cap reached, skipping pair",
			zap.String("pair", snap.Pair),
			zap.Float64("exposure_usd", exposure),
			zap.Float64("max_exposure_usd", cfg.Strategy.MaxTotalExposureUSD),
		)
		e.metrics.PairsSkipped.Inc()
		return nil
	}
	dec, ok := strategy.EvaluateOpen(cfg.Strategy, e.venueA, e.venueB, rateDifference, priceSpread)
	if !ok {
		return nil
	}

	now := e.now().UTC()
	tradeID := e.pendingTradeID(ctx, snap.Pair)
	shortErr := e.executeLeg(ctx, exec.Leg{
		ClientID:  tradeID + "-short",
		Direction: exec.DirectionShort,
		Venue:     dec.ShortVenue,
		Pair:      snap.Pair,
		SizeUSD:   size,
	})
	longErr := e.executeLeg(ctx, exec.Leg{
		ClientID:  tradeID + "-long",
		Direction: exec.DirectionLong,
		Venue:     dec.LongVenue,
		Pair:      snap.Pair,
		SizeUSD:   size,
	})
	if shortErr != nil && longErr != nil {
		// Neither leg executed, so no idempotency markers exist; a later
		// attempt starts clean with a fresh trade ID.
		e.clearPendingTradeID(ctx, snap.Pair)
		e.log.Warn("both legs failed, no position opened", zap.String("pair", snap.Pair), zap.Error(shortErr))
		return nil
	}
	if shortErr != nil || longErr != nil {
		// One leg is live on an exchange with no hedge. Nothing is recorded
		// and no position exists; an operator must reconcile by hand.
		e.metrics.PartialOpens.Inc()
		err := shortErr
		if err == nil {
			err = longErr
		}
		e.log.Error("partial open: one leg executed without its hedge, manual intervention required",
			zap.String("pair", snap.Pair),
			zap.String("short_venue", dec.ShortVenue),
			zap.String("long_venue", dec.LongVenue),
			zap.Error(err),
		)
		e.notify(ctx, fmt.Sprintf("MANUAL INTERVENTION: partial open on %s (short %s / long %s): %v", snap.Pair, dec.ShortVenue, dec.LongVenue, err))
		return nil
	}

	shortPrice := e.markFor(dec.ShortVenue, snap)
	longPrice := e.markFor(dec.LongVenue, snap)
	pos := strategy.Position{
		Pair:                  snap.Pair,
		ShortVenue:            dec.ShortVenue,
		LongVenue:             dec.LongVenue,
		SizeUSD:               size,
		OpenShortPrice:        shortPrice,
		OpenLongPrice:         longPrice,
		OpenTimestamp:         now.Unix(),
		InitialRateDifference: dec.ArbitrageRate,
		TradeID:               tradeID,
	}
	e.positions[snap.Pair] = pos
	e.metrics.PositionsOpened.Inc()

	row := ledger.Row{
		Timestamp:       now,
		Pair:            snap.Pair,
		Action:          ledger.ActionOpen,
		ShortVenue:      dec.ShortVenue,
		LongVenue:       dec.LongVenue,
		SizeUSD:         size,
		ShortPrice:      shortPrice,
		LongPrice:       longPrice,
		RateDiffPercent: dec.ArbitrageRate * 100,
		TradeID:         tradeID,
	}
	if err := e.ledger.Append(row); err != nil {
		// Both legs are live but the open is not durable: a restart will not
		// rebuild this position.
		e.metrics.LedgerAppendFailures.Inc()
		e.log.Error("open executed but not recorded in ledger",
			zap.String("pair", snap.Pair),
			zap.String("trade_id", tradeID),
			zap.Error(err),
		)
		e.notify(ctx, fmt.Sprintf("WARNING: open on %s executed but ledger append failed (trade %s)", snap.Pair, tradeID))
		return fmt.Errorf("append open row: %w", err)
	}
	e.clearPendingTradeID(ctx, snap.Pair)
	e.log.Info("opened position",
		zap.String("pair", snap.Pair),
		zap.String("short_venue", dec.ShortVenue),
		zap.String("long_venue", dec.LongVenue),
		zap.Float64("size_usd", size),
		zap.Float64("arbitrage_rate", dec.ArbitrageRate),
	)
	e.notify(ctx, fmt.Sprintf("Opened %s: short %s / long %s, size %.0f USDT, rate %.2f%%", snap.Pair, dec.ShortVenue, dec.LongVenue, size, dec.ArbitrageRate*100))
	e.recordTrade(row)
	return nil
}

// pendingTradeID returns the trade ID for an open attempt on pair, reusing the
// ID of an earlier attempt that executed at least one leg but never reached the
// ledger. Reuse keeps the executor's leg markers effective: a retried open
// re-presents the same client IDs, so legs that already went through are not
// placed again.
func (e *Engine) pendingTradeID(ctx context.Context, pair string) string {
	key := "open:pending:" + pair
	if e.store != nil {
		if id, ok, err := e.store.Get(ctx, key); err != nil {
			e.log.Warn("failed to read pending open marker", zap.String("pair", pair), zap.Error(err))
		} else if ok && id != "" {
			e.log.Info("resuming pending open", zap.String("pair", pair), zap.String("trade_id", id))
			return id
		}
	}
	id := strategy.NewTradeID(pair)
	if e.store != nil {
		if err := e.store.Set(ctx, key, id); err != nil {
			e.log.Warn("failed to persist pending open marker", zap.String("pair", pair), zap.Error(err))
		}
	}
	return id
}

func (e *Engine) clearPendingTradeID(ctx context.Context, pair string) {
	if e.store == nil {
		return
	}
	if err := e.store.Delete(ctx, "open:pending:"+pair); err != nil {
		e.log.Warn("failed to clear pending open marker", zap.String("pair", pair), zap.Error(err))
	}
}

func (e *Engine) executeLeg(ctx context.Context, leg exec.Leg) error {
	err := e.executor.ExecuteLeg(ctx, leg)
	if err != nil {
		e.metrics.LegsFailed.Inc()
		return err
	}
	e.metrics.LegsExecuted.Inc()
	return nil
}

func (e *Engine) totalExposure() float64 {
	var total float64
	for _, pos := range e.positions {
		total += pos.SizeUSD
	}
	return total
}

// markFor maps a venue name to its mark price in the snapshot. Snapshot leg A
// always belongs to the configured venue A. A venue matching neither side can
// only come from a rebuilt position recorded under an older venue config; it
// is valued against venue B, with a warning.
func (e *Engine) markFor(venue string, snap market.Snapshot) float64 {
	if venue == e.venueA {
		return snap.A.MarkPrice
	}
	if venue != e.venueB {
		e.log.Warn("position venue not in configured venue set, valuing against venue b",
			zap.String("venue", venue),
			zap.String("pair", snap.Pair),
			zap.String("venue_a", e.venueA),
			zap.String("venue_b", e.venueB),
		)
	}
	return snap.B.MarkPrice
}

func (e *Engine) notify(ctx context.Context, message string) {
	if e.alerts == nil {
		return
	}
	if err := e.alerts.Send(ctx, message); err != nil {
		e.log.Warn("alert send failed", zap.Error(err))
	}
}

func (e *Engine) saveCycleSnapshot(ctx context.Context, skipped int, lastErr error) {
	if e.store == nil {
		return
	}
	snap := state.CycleSnapshot{
		TimeMS:           e.now().UTC().UnixMilli(),
		OpenPositions:    len(e.positions),
		TotalExposureUSD: e.totalExposure(),
		PairsSkipped:     skipped,
	}
	if lastErr != nil {
		snap.LastError = lastErr.Error()
	}
	if err := state.SaveCycleSnapshot(ctx, e.store, snap); err != nil {
		e.log.Warn("failed to persist cycle snapshot", zap.Error(err))
	}
}

func (e *Engine) recordCycle(pair, st string, snap market.Snapshot, rateDifference, priceSpread, unrealized float64) {
	if e.archive == nil {
		return
	}
	e.archive.EnqueueCycle(timescale.CycleRecord{
		Time:           e.now().UTC(),
		Pair:           pair,
		State:          st,
		FundingRateA:   snap.A.FundingRate,
		FundingRateB:   snap.B.FundingRate,
		MarkPriceA:     snap.A.MarkPrice,
		MarkPriceB:     snap.B.MarkPrice,
		RateDifference: rateDifference,
		PriceSpread:    priceSpread,
		UnrealizedPnL:  unrealized,
		ExposureUSD:    e.totalExposure(),
	})
}

func (e *Engine) recordTrade(row ledger.Row) {
	if e.archive == nil {
		return
	}
	e.archive.EnqueueTrade(timescale.TradeEvent{
		Time:          row.Timestamp,
		Pair:          row.Pair,
		Action:        string(row.Action),
		ShortVenue:    row.ShortVenue,
		LongVenue:     row.LongVenue,
		SizeUSD:       row.SizeUSD,
		ShortPrice:    row.ShortPrice,
		LongPrice:     row.LongPrice,
		RatePercent:   row.RateDiffPercent,
		CloseReason:   row.CloseReason,
		RealizedPnL:   row.RealizedPnL,
		FundingProfit: row.FundingProfit,
		TradeID:       row.TradeID,
	})
}
