package market

import (
	"context"

	"go.uber.org/zap"
)

// Live is the placeholder for real venue market-data adapters. Until those are
// wired up it reports every pair as unavailable, so the engine skips the pair
// instead of trading on fabricated quotes.
type Live struct {
	log *zap.Logger
}

func NewLive(log *zap.Logger) *Live {
	return &Live{log: log}
}

func (l *Live) Snapshot(ctx context.Context, pair string) (Snapshot, bool) {
	_ = ctx
	l.log.Warn("live market data requested but not implemented, skipping pair",
		zap.String("pair", pair),
	)
	return Snapshot{}, false
}
