package exec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"funding-arb-bot/internal/state"

	"go.uber.org/zap"
)

type Direction string

const (
	DirectionShort Direction = "SHORT"
	DirectionLong  Direction = "LONG"
)

// Leg is one side of a hedge. ClientID makes the execution idempotent across
// retries: a leg with a ClientID the executor has already completed is not
// sent again.
type Leg struct {
	ClientID  string
	Direction Direction
	Venue     string
	Pair      string
	SizeUSD   float64
}

// Venue places one leg against an exchange. Implementations own their own
// transport; a nil error means the leg is filled.
type Venue interface {
	ExecuteLeg(ctx context.Context, leg Leg) error
}

// Executor wraps a Venue with retry and durable idempotency markers, so a
// decision retried after a partial failure or a ledger write error cannot
// double-execute a leg that already went through.
type Executor struct {
	venue Venue
	store state.Store
	log   *zap.Logger

	mu   sync.Mutex
	done map[string]struct{}
}

func New(venue Venue, store state.Store, log *zap.Logger) *Executor {
	return &Executor{
		venue: venue,
		store: store,
		log:   log,
		done:  make(map[string]struct{}),
	}
}

func (e *Executor) ExecuteLeg(ctx context.Context, leg Leg) error {
	if leg.ClientID == "" {
		return e.executeWithRetry(ctx, leg)
	}
	key := "leg:" + leg.ClientID
	e.mu.Lock()
	_, seen := e.done[key]
	e.mu.Unlock()
	if seen {
		return nil
	}
	if e.store != nil {
		if _, ok, err := e.store.Get(ctx, key); err != nil {
			return err
		} else if ok {
			e.markDone(key)
			return nil
		}
	}
	if err := e.executeWithRetry(ctx, leg); err != nil {
		return err
	}
	if e.store != nil {
		if err := e.store.Set(ctx, key, time.Now().UTC().Format(time.RFC3339)); err != nil {
			e.log.Warn("failed to persist leg marker", zap.String("client_id", leg.ClientID), zap.Error(err))
		}
	}
	e.markDone(key)
	return nil
}

func (e *Executor) markDone(key string) {
	e.mu.Lock()
	e.done[key] = struct{}{}
	e.mu.Unlock()
}

func (e *Executor) executeWithRetry(ctx context.Context, leg Leg) error {
	backoff := 200 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if lastErr = e.venue.ExecuteLeg(ctx, leg); lastErr == nil {
			return nil
		}
		if attempt == 2 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return fmt.Errorf("leg %s %s %s failed: %w", leg.Direction, leg.Pair, leg.Venue, lastErr)
}
