package analyze

import "github.com/Alias1177/SetupScanner/models"

// MinConfluenceChecks is how many timeframe checks must pass, trend included
const MinConfluenceChecks = 4

// TimeframeConfluence compares the snapshot of a lower timeframe with the
// snapshot of a higher one for the same asset. Both trends must agree; on top
// of that ADX, RSI room, MACD side and lower-timeframe volume are counted.
// It returns the shared trend when enough checks pass and 0 otherwise.
func TimeframeConfluence(lower, higher models.IndicatorSnapshot) int {
	if lower.Asset != higher.Asset {
		return 0
	}
	if ValidateSnapshot(lower) != nil || ValidateSnapshot(higher) != nil {
		return 0
	}

	lo, hi := NewReading(lower), NewReading(higher)
	trend := lo.Trend
	if trend == 0 || hi.Trend != trend {
		return 0
	}

	checks := 1
	if lo.ADX >= 20 && hi.ADX >= 20 {
		checks++
	}
	if rsiLeavesRoom(lo.RSI, hi.RSI, trend) {
		checks++
	}
	if sign(lo.MACDHist) == trend && sign(hi.MACDHist) == trend {
		checks++
	}
	if lo.VolumeRatio > 1.2 {
		checks++
	}

	if checks < MinConfluenceChecks {
		return 0
	}
	return trend
}

// rsiLeavesRoom reports whether neither timeframe is stretched in the trend direction
func rsiLeavesRoom(lower, higher float64, trend int) bool {
	if trend > 0 {
		return lower > 25 && lower < 65 && higher < 70
	}
	return lower > 35 && lower < 75 && higher > 30
}
