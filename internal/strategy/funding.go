package strategy

// Funding settles on a fixed 8-hour grid anchored at the epoch: 00:00, 08:00
// and 16:00 UTC.
const (
	settlementIntervalSeconds = 8 * 3600
	settlementsPerYear        = 365 * 3
)

// SettlementEvents counts the funding settlements between openTS and closeTS
// (unix seconds). A position opened and closed inside the same 8-hour window
// never lives through a settlement and counts 0.
func SettlementEvents(openTS, closeTS int64) int {
	startSlot := openTS / settlementIntervalSeconds
	endSlot := closeTS / settlementIntervalSeconds
	firstBoundary := (startSlot + 1) * settlementIntervalSeconds
	if closeTS < firstBoundary {
		return 0
	}
	return int(endSlot - startSlot)
}

// FundingProfitEstimate estimates the funding fees collected by a hedge held
// from its open until closeTS. The rate drifts over the holding period, so the
// initial and current arbitrage rates are averaged rather than assuming either
// endpoint held throughout. currentArbRate must be expressed in the position's
// captured direction (positive means the hedge is still profitable).
func FundingProfitEstimate(pos Position, currentArbRate float64, closeTS int64) float64 {
	events := SettlementEvents(pos.OpenTimestamp, closeTS)
	if events == 0 {
		return 0
	}
	avgRate := (pos.InitialRateDifference + currentArbRate) / 2
	ratePerEvent := avgRate / settlementsPerYear
	return pos.SizeUSD * ratePerEvent * float64(events)
}
