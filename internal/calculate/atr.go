package calculate

import (
	"math"

	"github.com/Alias1177/SetupScanner/models"
)

// trueRange is the greatest of high-low, |high-prevClose| and |low-prevClose|
func trueRange(prev, cur models.Candle) float64 {
	highLow := cur.High - cur.Low
	highPrevClose := math.Abs(cur.High - prev.Close)
	lowPrevClose := math.Abs(cur.Low - prev.Close)
	return math.Max(highLow, math.Max(highPrevClose, lowPrevClose))
}

// ATRSeries calculates Wilder's average true range aligned with candles.
// The first value is at index period.
func ATRSeries(candles []models.Candle, period int) []float64 {
	out := nanSeries(len(candles))
	if period <= 0 || len(candles) < period+1 {
		return out
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += trueRange(candles[i-1], candles[i])
	}
	atr := sum / float64(period)
	out[period] = atr

	for i := period + 1; i < len(candles); i++ {
		atr = (atr*float64(period-1) + trueRange(candles[i-1], candles[i])) / float64(period)
		out[i] = atr
	}

	return out
}

// ATR returns the last average true range, NaN if there is not enough data
func ATR(candles []models.Candle, period int) float64 {
	return last(ATRSeries(candles, period))
}
