package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Run drives trading cycles until the context is cancelled. A failed cycle is
// logged and followed by a cooldown sleep; a single bad iteration never takes
// the process down. The loop interval is re-read every iteration so a config
// reload takes effect without a restart.
func (e *Engine) Run(ctx context.Context) error {
	for {
		interval := e.cfg.Current().Strategy.LoopInterval
		if err := e.safeCycle(ctx); err != nil {
			e.metrics.CycleErrors.Inc()
			e.log.Error("trading cycle failed", zap.Error(err))
			interval = e.cfg.Current().Strategy.ErrorCooldown
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (e *Engine) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()
	return e.Cycle(ctx)
}
