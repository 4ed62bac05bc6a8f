package market

import (
	"github.com/Alias1177/SetupScanner/models"
)

// Regime thresholds
const (
	HighRiskVIXPercentile = 80.0
	GreedExtreme          = 80.0
	FearExtreme           = 20.0
	HighRiskCorrelation   = 0.8
	TrendingADX           = 25.0
)

// Classify maps trend strength and the macro context to a market regime.
// Rules are checked in order and the first match wins: risk conditions,
// then a strong sloped trend, otherwise ranging. ADX in [20,25] is ranging.
func Classify(adx float64, emaSlopeSign int, vixPercentile, fearGreed, btcSPCorr float64) models.Regime {
	// Macro risk overrides any trend reading
	if vixPercentile > HighRiskVIXPercentile ||
		fearGreed > GreedExtreme ||
		fearGreed < FearExtreme ||
		btcSPCorr > HighRiskCorrelation {
		return models.RegimeHighRisk
	}

	if adx > TrendingADX && emaSlopeSign != 0 {
		return models.RegimeTrending
	}

	return models.RegimeRanging
}

// ClassifySnapshot classifies a validated snapshot under the cycle's macro context
func ClassifySnapshot(s models.IndicatorSnapshot, macro models.MacroContext) models.Regime {
	adx := 0.0
	if s.ADX != nil {
		adx = *s.ADX
	}
	return Classify(adx, s.EMASlopeSign, macro.VIXPercentile, macro.FearGreed, macro.BTCSPCorrelation)
}
