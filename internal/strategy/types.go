package strategy

// Position is the in-memory projection of an OPEN ledger row with no matching
// CLOSE row. At most one live Position exists per pair.
type Position struct {
	Pair           string
	ShortVenue     string
	LongVenue      string
	SizeUSD        float64
	OpenShortPrice float64
	OpenLongPrice  float64
	// OpenTimestamp is seconds since epoch, UTC.
	OpenTimestamp int64
	// InitialRateDifference is the annualized funding-rate spread captured at
	// open, expressed as a fraction and sign-normalized to the hedge's
	// profitable direction, so it is >= 0 at open.
	InitialRateDifference float64
	TradeID               string
}

type CloseReason string

const (
	ReasonStopLoss              CloseReason = "STOP_LOSS"
	ReasonLowArbitrageRate      CloseReason = "LOW_ARBITRAGE_RATE"
	ReasonMaxHoldingPriceSpread CloseReason = "MAX_HOLDING_PRICE_SPREAD"
	ReasonRateReversal          CloseReason = "RATE_REVERSAL"
	ReasonMaxHoldingTime        CloseReason = "MAX_HOLDING_TIME"
)
