package calculate

import "math"

// MACD calculates the MACD line, its signal line and the histogram, all
// aligned with closes. Undefined positions are NaN.
func MACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) (macd, signal, hist []float64) {
	n := len(closes)
	macd, signal, hist = nanSeries(n), nanSeries(n), nanSeries(n)

	// Cannot calculate MACD with insufficient data
	if n < slowPeriod+signalPeriod-1 || fastPeriod >= slowPeriod {
		return macd, signal, hist
	}

	fast := EMASeries(closes, fastPeriod)
	slow := EMASeries(closes, slowPeriod)

	start := slowPeriod - 1
	line := make([]float64, 0, n-start)
	for i := start; i < n; i++ {
		macd[i] = fast[i] - slow[i]
		line = append(line, macd[i])
	}

	// Signal line is the EMA of the MACD line
	sig := EMASeries(line, signalPeriod)
	for j, v := range sig {
		if math.IsNaN(v) {
			continue
		}
		signal[start+j] = v
		hist[start+j] = macd[start+j] - v
	}

	return macd, signal, hist
}
