package calculate

import "github.com/Alias1177/SetupScanner/models"

// OBVSeries calculates on-balance volume aligned with candles
func OBVSeries(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	if len(candles) == 0 {
		return out
	}

	obv := 0.0
	for i := 1; i < len(candles); i++ {
		if candles[i].Close > candles[i-1].Close {
			// Price up, add volume
			obv += candles[i].Volume
		} else if candles[i].Close < candles[i-1].Close {
			// Price down, subtract volume
			obv -= candles[i].Volume
		}
		out[i] = obv
	}

	return out
}

// OBVAboveMean reports whether the last OBV is above the mean of the last
// window values
func OBVAboveMean(candles []models.Candle, window int) bool {
	obv := OBVSeries(candles)
	if window <= 0 || len(obv) < window {
		return false
	}
	return obv[len(obv)-1] > Average(obv[len(obv)-window:])
}
