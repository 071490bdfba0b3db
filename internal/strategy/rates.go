package strategy

import "math"

// AnnualizedRate converts a per-settlement funding rate to its annualized
// form (three settlements per day).
func AnnualizedRate(fundingRate float64) float64 {
	return fundingRate * 3 * 365
}

// PriceSpread is the relative mark-price gap between the venues, quoted
// against venue A.
func PriceSpread(markA, markB float64) float64 {
	return math.Abs(markA-markB) / markA
}

// CurrentArbitrageRate re-expresses the venue-A-minus-venue-B rate difference
// in the position's captured direction: positive means the hedge is still
// collecting the spread it was opened for.
func CurrentArbitrageRate(pos Position, venueA string, rateDifference float64) float64 {
	if pos.ShortVenue == venueA {
		return rateDifference
	}
	return -rateDifference
}

// RateReversed reports whether the sign of the funding spread has flipped
// against the position's hedge direction.
func RateReversed(pos Position, venueA string, rateDifference float64) bool {
	if pos.ShortVenue == venueA {
		return rateDifference < 0
	}
	return rateDifference > 0
}
