package calculate

import "math"

// Average calculates simple average
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}

// VolumeRatio is the last volume divided by the simple average of the last
// period volumes (the last one included)
func VolumeRatio(volumes []float64, period int) float64 {
	if period <= 0 || len(volumes) < period {
		return math.NaN()
	}

	mean := Average(volumes[len(volumes)-period:])
	if mean == 0 {
		return 0
	}
	return volumes[len(volumes)-1] / mean
}

// last returns the final value of a series, NaN when empty
func last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// nanSeries allocates a series of n undefined values
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
