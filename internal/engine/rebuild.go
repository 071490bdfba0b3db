package engine

import (
	"funding-arb-bot/internal/ledger"
	"funding-arb-bot/internal/strategy"

	"go.uber.org/zap"
)

// Rebuild derives the live-position set from the full ledger row sequence.
// Rows are grouped by trade ID; a group containing a CLOSE is settled, a
// group holding a single OPEN row is a live position. Rows without a trade ID
// predate the correlation column and cannot be reconstructed reliably, so
// they are never re-opened. Rebuilding is pure and idempotent.
func Rebuild(rows []ledger.Row, log *zap.Logger) map[string]strategy.Position {
	positions := make(map[string]strategy.Position)
	groups := make(map[string][]ledger.Row)
	legacy := 0
	for _, row := range rows {
		if row.TradeID == "" {
			legacy++
			continue
		}
		groups[row.TradeID] = append(groups[row.TradeID], row)
	}
	for tradeID, group := range groups {
		closed := false
		for _, row := range group {
			if row.Action == ledger.ActionClose {
				closed = true
				break
			}
		}
		if closed {
			continue
		}
		if len(group) != 1 || group[0].Action != ledger.ActionOpen {
			log.Warn("unreconstructible ledger group",
				zap.String("trade_id", tradeID),
				zap.Int("rows", len(group)),
			)
			continue
		}
		open := group[0]
		positions[open.Pair] = strategy.Position{
			Pair:           open.Pair,
			ShortVenue:     open.ShortVenue,
			LongVenue:      open.LongVenue,
			SizeUSD:        open.SizeUSD,
			OpenShortPrice: open.ShortPrice,
			OpenLongPrice:  open.LongPrice,
			OpenTimestamp:  open.Timestamp.Unix(),
			// The ledger stores the annualized rate as a percentage.
			InitialRateDifference: open.RateDiffPercent / 100,
			TradeID:               tradeID,
		}
	}
	if legacy > 0 {
		log.Info("ignored legacy ledger rows without trade id", zap.Int("rows", legacy))
	}
	return positions
}

// RebuildFromStore reads the ledger and rebuilds live positions. A total read
// failure yields an empty set: losing reconstructed state is recoverable
// (flat pairs are simply re-evaluated), crashing at startup is not.
func RebuildFromStore(store ledger.Store, log *zap.Logger) map[string]strategy.Position {
	rows, err := store.ReadAll()
	if err != nil {
		log.Error("failed to read trade ledger, starting with empty state", zap.Error(err))
		return make(map[string]strategy.Position)
	}
	positions := Rebuild(rows, log)
	if len(positions) > 0 {
		pairs := make([]string, 0, len(positions))
		for pair := range positions {
			pairs = append(pairs, pair)
		}
		log.Info("rebuilt open positions from ledger", zap.Strings("pairs", pairs))
	}
	return positions
}
