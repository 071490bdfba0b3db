package exec

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Sim is the test-mode venue: every leg succeeds without touching an
// exchange.
type Sim struct {
	log *zap.Logger
}

func NewSim(log *zap.Logger) *Sim {
	return &Sim{log: log}
}

func (s *Sim) ExecuteLeg(ctx context.Context, leg Leg) error {
	_ = ctx
	s.log.Info("test mode: simulated leg",
		zap.String("direction", string(leg.Direction)),
		zap.String("venue", leg.Venue),
		zap.String("pair", leg.Pair),
		zap.Float64("size_usd", leg.SizeUSD),
	)
	return nil
}

// ErrLiveExecutionUnavailable is returned by Live until real order routing is
// wired up; legs fail and no position is opened.
var ErrLiveExecutionUnavailable = errors.New("live execution is not implemented")

// Live is the placeholder for real exchange order routing.
type Live struct {
	log *zap.Logger
}

func NewLive(log *zap.Logger) *Live {
	return &Live{log: log}
}

func (l *Live) ExecuteLeg(ctx context.Context, leg Leg) error {
	_ = ctx
	l.log.Warn("live execution requested but not implemented",
		zap.String("direction", string(leg.Direction)),
		zap.String("venue", leg.Venue),
		zap.String("pair", leg.Pair),
	)
	return ErrLiveExecutionUnavailable
}
