package calculate

import "github.com/Alias1177/SetupScanner/models"

// SupertrendSeries returns the Supertrend direction (+1 up, -1 down) aligned
// with candles. Positions before the first ATR value are 0.
func SupertrendSeries(candles []models.Candle, period int, multiplier float64) []int {
	out := make([]int, len(candles))
	atr := ATRSeries(candles, period)
	if len(candles) < period+1 {
		return out
	}

	var finalUpper, finalLower float64
	dir := 1
	for i := period; i < len(candles); i++ {
		c := candles[i]
		hl2 := (c.High + c.Low) / 2
		upper := hl2 + multiplier*atr[i]
		lower := hl2 - multiplier*atr[i]

		if i == period {
			finalUpper, finalLower = upper, lower
			if c.Close < hl2 {
				dir = -1
			}
			out[i] = dir
			continue
		}

		prevClose := candles[i-1].Close
		prevUpper, prevLower := finalUpper, finalLower

		// Bands only tighten while price stays inside them
		if upper < prevUpper || prevClose > prevUpper {
			finalUpper = upper
		}
		if lower > prevLower || prevClose < prevLower {
			finalLower = lower
		}

		switch {
		case c.Close > prevUpper:
			dir = 1
		case c.Close < prevLower:
			dir = -1
		}
		out[i] = dir
	}

	return out
}

// Supertrend returns the direction of the last candle
func Supertrend(candles []models.Candle, period int, multiplier float64) models.Direction {
	series := SupertrendSeries(candles, period, multiplier)
	if len(series) == 0 {
		return ""
	}
	switch series[len(series)-1] {
	case 1:
		return models.DirectionUp
	case -1:
		return models.DirectionDown
	}
	return ""
}

