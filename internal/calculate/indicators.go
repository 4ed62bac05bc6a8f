package calculate

import (
	"errors"
	"fmt"
	"math"

	"github.com/Alias1177/SetupScanner/internal/patterns"
	"github.com/Alias1177/SetupScanner/models"
	"github.com/creasty/defaults"
)

// ErrInsufficientData is returned when there are too few candles for the
// longest indicator
var ErrInsufficientData = errors.New("insufficient candle data")

// Params holds indicator periods
type Params struct {
	EMAFast   int `default:"9"`
	EMAMid    int `default:"21"`
	EMATrend  int `default:"50"`
	EMALong   int `default:"200"`
	RSIPeriod int `default:"14"`

	MACDFast   int `default:"12"`
	MACDSlow   int `default:"26"`
	MACDSignal int `default:"9"`

	ADXPeriod int `default:"14"`
	ATRPeriod int `default:"14"`

	SupertrendPeriod     int     `default:"10"`
	SupertrendMultiplier float64 `default:"3"`

	VolumePeriod int `default:"20"`
	OBVWindow    int `default:"5"`

	BollingerPeriod int     `default:"20"`
	BollingerStdDev float64 `default:"2"`
	// Squeeze when the band width drops under SqueezeRatio of its average
	SqueezeRatio float64 `default:"0.6"`

	DivergenceWindow int `default:"20"`

	// EMA21 slope over SlopeLookback bars; moves under SlopeTolerance are flat
	SlopeLookback  int     `default:"3"`
	SlopeTolerance float64 `default:"0.0005"`
}

// DefaultParams returns the standard periods
func DefaultParams() Params {
	var p Params
	if err := defaults.Set(&p); err != nil {
		panic(fmt.Sprintf("indicator defaults: %v", err))
	}
	return p
}

// MinCandles is the number of candles needed for every indicator to be defined
func (p Params) MinCandles() int {
	n := p.EMALong
	if m := p.MACDSlow + p.MACDSignal; m > n {
		n = m
	}
	if m := p.ADXPeriod * 2; m > n {
		n = m
	}
	if m := p.VolumePeriod; m > n {
		n = m
	}
	return n + 1
}

// BuildSnapshot computes the indicator snapshot of the last candle.
// Candles must be sorted oldest first.
func BuildSnapshot(asset, timeframe string, candles []models.Candle, p Params) (models.IndicatorSnapshot, error) {
	if need := p.MinCandles(); len(candles) < need {
		return models.IndicatorSnapshot{}, fmt.Errorf("%w: %s %s has %d candles, need %d",
			ErrInsufficientData, asset, timeframe, len(candles), need)
	}

	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	ema21Series := EMASeries(closes, p.EMAMid)
	rsiSeries := RSISeries(closes, p.RSIPeriod)
	_, _, hist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	adx, _, _ := ADX(candles, p.ADXPeriod)

	ema9 := EMA(closes, p.EMAFast)
	ema21 := last(ema21Series)
	ema200 := EMA(closes, p.EMALong)
	rsi := last(rsiSeries)
	macdHist := last(hist)
	volumeRatio := VolumeRatio(volumes, p.VolumePeriod)

	s := models.IndicatorSnapshot{
		Asset:          asset,
		Timeframe:      timeframe,
		Timestamp:      candles[len(candles)-1].Time,
		EMA9:           &ema9,
		EMA21:          &ema21,
		EMA200:         &ema200,
		RSI:            &rsi,
		MACDHist:       &macdHist,
		ADX:            &adx,
		VolumeRatio:    &volumeRatio,
		Supertrend:     Supertrend(candles, p.SupertrendPeriod, p.SupertrendMultiplier),
		Close:          closes[len(closes)-1],
		EMA50:          zeroIfNaN(EMA(closes, p.EMATrend)),
		ATR:            zeroIfNaN(ATR(candles, p.ATRPeriod)),
		EMASlopeSign:   SlopeSign(ema21Series, p.SlopeLookback, p.SlopeTolerance),
		OBVAboveMean:   OBVAboveMean(candles, p.OBVWindow),
		ReversalCandle: patterns.IsReversal(candles),
		StrongCandle:   patterns.IsStrongCandle(candles),

		RSIDivergence:    patterns.RSIDivergence(candles, rsiSeries, p.DivergenceWindow),
		BollingerSqueeze: BollingerSqueeze(candles, p.BollingerPeriod, p.BollingerStdDev, p.SqueezeRatio),
	}

	if len(rsiSeries) > 1 {
		if prev := rsiSeries[len(rsiSeries)-2]; !math.IsNaN(prev) {
			s.RSIPrev = &prev
		}
	}

	return s, nil
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
