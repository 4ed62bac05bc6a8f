package patterns

import (
	"math"

	"github.com/Alias1177/SetupScanner/models"
)

// RSI levels the latest swing must reach for a divergence to count
const (
	bearishDivergenceRSI = 65.0
	bullishDivergenceRSI = 35.0
)

// RSIDivergence looks for a regular divergence between price and RSI over the
// last window candles. rsi must be aligned with candles.
//
// Bearish (-1): price makes a higher swing high while RSI makes a lower one
// above 65. Bullish (+1): price makes a lower swing low while RSI makes a
// higher one below 35. Bearish is checked first.
func RSIDivergence(candles []models.Candle, rsi []float64, window int) int {
	if window < 5 || len(candles) < window || len(rsi) != len(candles) {
		return 0
	}

	start := len(candles) - window
	values := rsi[start:]
	highs := make([]float64, window)
	lows := make([]float64, window)
	for i, c := range candles[start:] {
		if math.IsNaN(values[i]) {
			return 0
		}
		highs[i], lows[i] = c.High, c.Low
	}

	rsiHighs, rsiLows := findSwings(values, 1)

	priceHighs, _ := findSwings(highs, 1)
	if p1, p2, ok := lastTwo(priceHighs); ok && highs[p2] > highs[p1] {
		r1, r2 := findClosestSwings(p1, p2, rsiHighs)
		if r1 >= 0 && values[r2] < values[r1] && values[r2] > bearishDivergenceRSI {
			return -1
		}
	}

	_, priceLows := findSwings(lows, 1)
	if p1, p2, ok := lastTwo(priceLows); ok && lows[p2] < lows[p1] {
		r1, r2 := findClosestSwings(p1, p2, rsiLows)
		if r1 >= 0 && values[r2] > values[r1] && values[r2] < bullishDivergenceRSI {
			return 1
		}
	}

	return 0
}

// findSwings returns the indexes strictly above (highs) or below (lows) the
// strength values on each side
func findSwings(values []float64, strength int) (highs, lows []int) {
	for i := strength; i < len(values)-strength; i++ {
		isHigh, isLow := true, true
		for j := i - strength; j <= i+strength; j++ {
			if j == i {
				continue
			}
			if values[j] >= values[i] {
				isHigh = false
			}
			if values[j] <= values[i] {
				isLow = false
			}
		}

		if isHigh {
			highs = append(highs, i)
		}
		if isLow {
			lows = append(lows, i)
		}
	}
	return highs, lows
}

func lastTwo(idx []int) (int, int, bool) {
	if len(idx) < 2 {
		return 0, 0, false
	}
	return idx[len(idx)-2], idx[len(idx)-1], true
}

// findClosestSwings matches two price swings with the nearest indicator
// swings. Pairs that collapse onto one swing or cross return -1, -1.
func findClosestSwings(p1, p2 int, swings []int) (int, int) {
	closest1, closest2 := -1, -1
	minDist1, minDist2 := math.MaxInt, math.MaxInt

	for _, s := range swings {
		if d := abs(s - p1); d < minDist1 {
			minDist1 = d
			closest1 = s
		}
		if d := abs(s - p2); d < minDist2 {
			minDist2 = d
			closest2 = s
		}
	}

	if closest1 < closest2 {
		return closest1, closest2
	}
	return -1, -1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
