package calculate

import (
	"math"

	"github.com/Alias1177/SetupScanner/models"
)

// squeezeBandDistance is how close (as a share of price) the close must sit to a band
const squeezeBandDistance = 0.015

// BollingerBands calculates the bands over the last period closes
func BollingerBands(closes []float64, period int, stdDev float64) (upper, middle, lower float64) {
	if period <= 0 || len(closes) < period {
		nan := math.NaN()
		return nan, nan, nan
	}

	window := closes[len(closes)-period:]
	middle = Average(window)

	// Calculate standard deviation
	var variance float64
	for _, c := range window {
		variance += (c - middle) * (c - middle)
	}
	sd := math.Sqrt(variance / float64(period))

	return middle + sd*stdDev, middle, middle - sd*stdDev
}

// BollingerWidth is the band width relative to the middle band
func BollingerWidth(closes []float64, period int, stdDev float64) float64 {
	upper, middle, lower := BollingerBands(closes, period, stdDev)
	if math.IsNaN(middle) || middle <= 0 {
		return math.NaN()
	}
	return (upper - lower) / middle
}

// BollingerSqueeze detects compressed bands about to resolve: the current
// width is below ratio times its average over the last period bars, the close
// sits within 1.5% of a band and the last 3 volumes beat the 3 before. It
// returns +1 at the upper band, -1 at the lower band and 0 when there is no
// squeeze.
func BollingerSqueeze(candles []models.Candle, period int, stdDev, ratio float64) int {
	n := len(candles)
	if period <= 0 || n < 2*period-1 || n < 6 {
		return 0
	}

	closes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
	}

	widths := make([]float64, period)
	for k := range widths {
		widths[k] = BollingerWidth(closes[:n-k], period, stdDev)
		if math.IsNaN(widths[k]) {
			return 0
		}
	}
	if widths[0] >= Average(widths)*ratio {
		return 0
	}

	upper, _, lower := BollingerBands(closes, period, stdDev)
	price := closes[n-1]
	if price <= 0 {
		return 0
	}
	toUpper := math.Abs(price-upper) / price
	toLower := math.Abs(price-lower) / price
	if math.Min(toUpper, toLower) >= squeezeBandDistance {
		return 0
	}

	recent := (candles[n-1].Volume + candles[n-2].Volume + candles[n-3].Volume) / 3
	before := (candles[n-4].Volume + candles[n-5].Volume + candles[n-6].Volume) / 3
	if recent <= before {
		return 0
	}

	if toUpper <= toLower {
		return 1
	}
	return -1
}
