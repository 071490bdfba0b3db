package market

import "context"

// Quote is the normalized per-venue view of one perpetual contract.
type Quote struct {
	FundingRate float64
	MarkPrice   float64
}

// Snapshot pairs the two venues' quotes for one instrument within a cycle.
type Snapshot struct {
	Pair string
	A    Quote
	B    Quote
}

// Provider supplies one snapshot per pair per cycle. ok is false when either
// venue's data is missing or incomplete; the engine then skips the pair for
// the cycle instead of retrying. Fetch adapters own their own timeout and
// error handling behind this boundary.
type Provider interface {
	Snapshot(ctx context.Context, pair string) (Snapshot, bool)
}

func (q Quote) valid() bool {
	return q.MarkPrice > 0
}

// Complete reports whether both legs of the snapshot are usable.
func (s Snapshot) Complete() bool {
	return s.A.valid() && s.B.valid()
}
