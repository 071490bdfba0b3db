package market

import (
	"context"
	"math/rand"
	"sync"
)

// Sim is a deterministic snapshot provider for test-mode runs: funding rates
// and mark prices follow a seeded random walk per pair, with a small funding
// spread between the venues so the strategy has something to capture.
type Sim struct {
	mu    sync.Mutex
	rng   *rand.Rand
	state map[string]Snapshot
}

func NewSim(seed int64) *Sim {
	return &Sim{
		rng:   rand.New(rand.NewSource(seed)),
		state: make(map[string]Snapshot),
	}
}

func (s *Sim) Snapshot(ctx context.Context, pair string) (Snapshot, bool) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.state[pair]
	if !ok {
		price := 0.05 + s.rng.Float64()*10
		snap = Snapshot{
			Pair: pair,
			A:    Quote{FundingRate: 0.0003 + s.rng.Float64()*0.0004, MarkPrice: price},
			B:    Quote{FundingRate: 0.0001, MarkPrice: price * (1 + (s.rng.Float64()-0.5)*0.002)},
		}
	} else {
		snap.A = s.walk(snap.A)
		snap.B = s.walk(snap.B)
	}
	s.state[pair] = snap
	return snap, snap.Complete()
}

func (s *Sim) walk(q Quote) Quote {
	q.FundingRate += (s.rng.Float64() - 0.5) * 0.0001
	q.MarkPrice *= 1 + (s.rng.Float64()-0.5)*0.004
	return q
}
