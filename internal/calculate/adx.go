package calculate

import (
	"math"

	"github.com/Alias1177/SetupScanner/models"
)

// ADX calculates Wilder's average directional index with +DI and -DI.
// It needs at least 2*period candles, otherwise all three values are NaN.
func ADX(candles []models.Candle, period int) (adx, plusDI, minusDI float64) {
	if period <= 0 || len(candles) < period*2 {
		return math.NaN(), math.NaN(), math.NaN()
	}

	// Smoothed +DM, -DM and TR over the first period
	var smoothedPlusDM, smoothedMinusDM, smoothedTR float64
	for i := 1; i <= period; i++ {
		p, m, tr := directionalMove(candles[i-1], candles[i])
		smoothedPlusDM += p
		smoothedMinusDM += m
		smoothedTR += tr
	}

	plusDI, minusDI = directionalIndex(smoothedPlusDM, smoothedTR), directionalIndex(smoothedMinusDM, smoothedTR)
	dxValues := []float64{dx(plusDI, minusDI)}

	for i := period + 1; i < len(candles); i++ {
		p, m, tr := directionalMove(candles[i-1], candles[i])
		smoothedPlusDM = smoothedPlusDM - smoothedPlusDM/float64(period) + p
		smoothedMinusDM = smoothedMinusDM - smoothedMinusDM/float64(period) + m
		smoothedTR = smoothedTR - smoothedTR/float64(period) + tr

		plusDI = directionalIndex(smoothedPlusDM, smoothedTR)
		minusDI = directionalIndex(smoothedMinusDM, smoothedTR)
		dxValues = append(dxValues, dx(plusDI, minusDI))
	}

	// ADX is the Wilder average of DX, seeded with the mean of the first period values
	seed := period
	if len(dxValues) < seed {
		seed = len(dxValues)
	}
	adx = Average(dxValues[:seed])
	for _, v := range dxValues[seed:] {
		adx = (adx*float64(period-1) + v) / float64(period)
	}

	return adx, plusDI, minusDI
}

func directionalMove(prev, cur models.Candle) (plusDM, minusDM, tr float64) {
	upMove := cur.High - prev.High
	downMove := prev.Low - cur.Low

	if upMove > downMove && upMove > 0 {
		plusDM = upMove
	}
	if downMove > upMove && downMove > 0 {
		minusDM = downMove
	}
	return plusDM, minusDM, trueRange(prev, cur)
}

func directionalIndex(dm, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	return dm / tr * 100
}

func dx(plusDI, minusDI float64) float64 {
	if plusDI+minusDI == 0 {
		return 0
	}
	return math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100
}
