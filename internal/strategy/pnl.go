package strategy

import "math"

// RealizedPnL values a hedge pair against a set of close prices, rounded to
// cents. The short leg profits when its price falls, the long leg when its
// price rises. Passing live marks instead of close prices yields the
// unrealized PnL; the formula is identical.
func RealizedPnL(openShort, openLong, closeShort, closeLong, sizeUSD float64) float64 {
	shortPnL := (openShort - closeShort) / openShort * sizeUSD
	longPnL := (closeLong - openLong) / openLong * sizeUSD
	return math.Round((shortPnL+longPnL)*100) / 100
}
