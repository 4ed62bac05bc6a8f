package calculate

import "math"

// EMASeries returns the exponential moving average aligned with values.
// It is seeded with the simple average of the first period values; earlier
// positions are NaN.
func EMASeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	// Calculate simple moving average for the initial value
	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	// Multiplier for weighting the EMA
	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}

	return out
}

// EMA returns the last EMA value, NaN if there is not enough data
func EMA(values []float64, period int) float64 {
	return last(EMASeries(values, period))
}

// SlopeSign compares the last value of a series with the one lookback bars
// earlier. Relative moves within tolerance count as flat.
func SlopeSign(series []float64, lookback int, tolerance float64) int {
	if lookback <= 0 || len(series) <= lookback {
		return 0
	}

	now := series[len(series)-1]
	before := series[len(series)-1-lookback]
	if math.IsNaN(now) || math.IsNaN(before) || before == 0 {
		return 0
	}

	change := (now - before) / math.Abs(before)
	switch {
	case change > tolerance:
		return 1
	case change < -tolerance:
		return -1
	}
	return 0
}
