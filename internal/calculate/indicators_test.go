package calculate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Alias1177/SetupScanner/internal/analyze"
	"github.com/Alias1177/SetupScanner/models"
)

func generateTestCandles(n int, generator func(int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
		candles[i].Time = start.Add(time.Duration(i) * time.Hour)
	}
	return candles
}

func rising(i int) models.Candle {
	base := 100 + float64(i)
	return models.Candle{Open: base, High: base + 1.5, Low: base - 0.5, Close: base + 1, Volume: 1000 + float64(i%5)*100}
}

func falling(i int) models.Candle {
	base := 500 - float64(i)
	return models.Candle{Open: base, High: base + 0.5, Low: base - 1.5, Close: base - 1, Volume: 1000}
}

func closesOf(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	series := EMASeries(values, 3)
	if !math.IsNaN(series[1]) {
		t.Errorf("EMASeries()[1] = %v, want NaN", series[1])
	}
	if !almostEqual(series[2], 2) {
		t.Errorf("EMASeries()[2] = %v, want 2", series[2])
	}
	if got := EMA(values, 3); !almostEqual(got, 9) {
		t.Errorf("EMA() = %v, want 9", got)
	}
	if got := EMA(values, 20); !math.IsNaN(got) {
		t.Errorf("EMA() with short data = %v, want NaN", got)
	}
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		expected float64
	}{
		{"Только рост", closesOf(generateTestCandles(30, rising)), 100},
		{"Только падение", closesOf(generateTestCandles(30, falling)), 0},
		{"Флэт", []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := last(RSISeries(tt.closes, 14))
			if !almostEqual(got, tt.expected) {
				t.Errorf("RSISeries() last = %v, want %v", got, tt.expected)
			}
		})
	}

	zigzag := make([]float64, 60)
	for i := range zigzag {
		zigzag[i] = 100 + float64(i%2)*3
	}
	got := last(RSISeries(zigzag, 14))
	if got <= 0 || got >= 100 {
		t.Errorf("RSISeries() zigzag = %v, want inside (0,100)", got)
	}
}

func TestMACD(t *testing.T) {
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 42
	}
	_, _, hist := MACD(flat, 12, 26, 9)
	if got := last(hist); !almostEqual(got, 0) {
		t.Errorf("MACD() flat histogram = %v, want 0", got)
	}
	if !math.IsNaN(hist[32]) || math.IsNaN(hist[33]) {
		t.Errorf("MACD() histogram should start at index 33")
	}

	macd, _, _ := MACD(closesOf(generateTestCandles(80, rising)), 12, 26, 9)
	if last(macd) <= 0 {
		t.Errorf("MACD() on rising prices = %v, want > 0", last(macd))
	}
}

func TestATR(t *testing.T) {
	candles := generateTestCandles(30, func(i int) models.Candle {
		return models.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 1}
	})
	if got := ATR(candles, 14); !almostEqual(got, 2) {
		t.Errorf("ATR() = %v, want 2", got)
	}
	if got := ATR(candles[:10], 14); !math.IsNaN(got) {
		t.Errorf("ATR() with short data = %v, want NaN", got)
	}
}

func TestADX(t *testing.T) {
	adx, plusDI, minusDI := ADX(generateTestCandles(60, rising), 14)
	if adx <= 25 || adx > 100 {
		t.Errorf("ADX() rising = %v, want in (25,100]", adx)
	}
	if plusDI <= minusDI {
		t.Errorf("ADX() +DI = %v, -DI = %v, want +DI > -DI", plusDI, minusDI)
	}

	_, plusDI, minusDI = ADX(generateTestCandles(60, falling), 14)
	if minusDI <= plusDI {
		t.Errorf("ADX() falling +DI = %v, -DI = %v, want -DI > +DI", plusDI, minusDI)
	}

	flat := generateTestCandles(60, func(i int) models.Candle {
		return models.Candle{Open: 100, High: 100, Low: 100, Close: 100}
	})
	if adx, _, _ := ADX(flat, 14); adx != 0 {
		t.Errorf("ADX() flat = %v, want 0", adx)
	}

	if adx, _, _ := ADX(generateTestCandles(20, rising), 14); !math.IsNaN(adx) {
		t.Errorf("ADX() with short data = %v, want NaN", adx)
	}
}

func TestSupertrend(t *testing.T) {
	if got := Supertrend(generateTestCandles(60, rising), 10, 3); got != models.DirectionUp {
		t.Errorf("Supertrend() rising = %v, want up", got)
	}
	if got := Supertrend(generateTestCandles(60, falling), 10, 3); got != models.DirectionDown {
		t.Errorf("Supertrend() falling = %v, want down", got)
	}
	if got := Supertrend(generateTestCandles(5, rising), 10, 3); got != "" {
		t.Errorf("Supertrend() with short data = %v, want empty", got)
	}
}

func TestOBVAndVolume(t *testing.T) {
	candles := []models.Candle{
		{Close: 10, Volume: 100},
		{Close: 11, Volume: 50},
		{Close: 10.5, Volume: 20},
		{Close: 10.5, Volume: 70},
		{Close: 12, Volume: 40},
	}
	obv := OBVSeries(candles)
	want := []float64{0, 50, 30, 30, 70}
	for i := range want {
		if obv[i] != want[i] {
			t.Errorf("OBVSeries()[%d] = %v, want %v", i, obv[i], want[i])
		}
	}
	if !OBVAboveMean(candles, 5) {
		t.Errorf("OBVAboveMean() = false, want true")
	}

	if got := VolumeRatio([]float64{1, 1, 1, 3}, 4); !almostEqual(got, 2) {
		t.Errorf("VolumeRatio() = %v, want 2", got)
	}
	if got := VolumeRatio([]float64{0, 0}, 2); got != 0 {
		t.Errorf("VolumeRatio() zero volume = %v, want 0", got)
	}
	if got := VolumeRatio([]float64{1}, 20); !math.IsNaN(got) {
		t.Errorf("VolumeRatio() short = %v, want NaN", got)
	}
}

func TestSlopeSign(t *testing.T) {
	tests := []struct {
		series []float64
		want   int
	}{
		{[]float64{100, 101, 102, 103}, 1},
		{[]float64{103, 102, 101, 100}, -1},
		{[]float64{100, 100.01, 100, 100.02}, 0},
		{[]float64{100, 101}, 0},
		{[]float64{math.NaN(), 1, 2, 3}, 0},
	}
	for _, tt := range tests {
		if got := SlopeSign(tt.series, 3, 0.0005); got != tt.want {
			t.Errorf("SlopeSign(%v) = %v, want %v", tt.series, got, tt.want)
		}
	}
}

func TestStats(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{3, 5, 7, 9, 11}
	if got := Pearson(x, y); !almostEqual(got, 1) {
		t.Errorf("Pearson() = %v, want 1", got)
	}
	if got := Pearson(x, []float64{5, 4, 3, 2, 1}); !almostEqual(got, -1) {
		t.Errorf("Pearson() = %v, want -1", got)
	}
	if got := Pearson(x, []float64{2, 2, 2, 2, 2}); !math.IsNaN(got) {
		t.Errorf("Pearson() constant = %v, want NaN", got)
	}
	if got := Pearson(x, y[:3]); !math.IsNaN(got) {
		t.Errorf("Pearson() length mismatch = %v, want NaN", got)
	}

	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}
	for v, want := range map[float64]float64{10: 100, 5: 50, 0: 0, 5.5: 50} {
		if got := PercentileRank(values, v); !almostEqual(got, want) {
			t.Errorf("PercentileRank(%v) = %v, want %v", v, got, want)
		}
	}

	r := Returns([]float64{100, 110, 99})
	if len(r) != 2 || !almostEqual(r[0], 0.1) || !almostEqual(r[1], -0.1) {
		t.Errorf("Returns() = %v, want [0.1 -0.1]", r)
	}
}

func TestBuildSnapshot(t *testing.T) {
	params := DefaultParams()
	if params.MinCandles() != 201 {
		t.Fatalf("MinCandles() = %d, want 201", params.MinCandles())
	}

	candles := generateTestCandles(260, rising)
	s, err := BuildSnapshot("BTC/USDT", "1h", candles, params)
	if err != nil {
		t.Fatalf("BuildSnapshot() error = %v", err)
	}
	if err := analyze.ValidateSnapshot(s); err != nil {
		t.Fatalf("BuildSnapshot() produced invalid snapshot: %v", err)
	}

	if s.Supertrend != models.DirectionUp {
		t.Errorf("Supertrend = %v, want up", s.Supertrend)
	}
	if s.EMASlopeSign != 1 {
		t.Errorf("EMASlopeSign = %v, want 1", s.EMASlopeSign)
	}
	if !(*s.EMA9 > *s.EMA21 && *s.EMA21 > *s.EMA200) {
		t.Errorf("EMAs not stacked: %v %v %v", *s.EMA9, *s.EMA21, *s.EMA200)
	}
	if s.Close != candles[len(candles)-1].Close || !s.Timestamp.Equal(candles[len(candles)-1].Time) {
		t.Errorf("snapshot not taken at last candle")
	}
	if s.RSIPrev == nil {
		t.Errorf("RSIPrev = nil, want value")
	}
	if s.ATR <= 0 {
		t.Errorf("ATR = %v, want > 0", s.ATR)
	}
	if s.RSIDivergence != 0 || s.BollingerSqueeze != 0 {
		t.Errorf("steady trend flagged divergence %v, squeeze %v", s.RSIDivergence, s.BollingerSqueeze)
	}
	if s.TimeframeConfluence != 0 {
		t.Errorf("TimeframeConfluence = %v, the builder never sets it", s.TimeframeConfluence)
	}

	_, err = BuildSnapshot("BTC/USDT", "1h", candles[:150], params)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("BuildSnapshot() short error = %v, want ErrInsufficientData", err)
	}
}

func TestBollingerBands(t *testing.T) {
	upper, middle, lower := BollingerBands([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	if !almostEqual(upper, 9) || !almostEqual(middle, 5) || !almostEqual(lower, 1) {
		t.Errorf("BollingerBands() = %v, %v, %v, want 9, 5, 1", upper, middle, lower)
	}
	if _, middle, _ := BollingerBands([]float64{1, 2}, 20, 2); !math.IsNaN(middle) {
		t.Errorf("BollingerBands() with short data = %v, want NaN", middle)
	}
}

// squeezeCandles alternates 95/105 closes, then drifts by step per bar for
// the last 20 bars. The last 3 volumes are doubled when volumeUp is set.
func squeezeCandles(step float64, volumeUp bool) []models.Candle {
	return generateTestCandles(80, func(i int) models.Candle {
		price := 95.0
		if i%2 == 0 {
			price = 105
		}
		if i >= 60 {
			price = 100 + step*float64(i-60)
		}
		volume := 1000.0
		if volumeUp && i >= 77 {
			volume = 2000
		}
		return models.Candle{Open: price, High: price + 0.05, Low: price - 0.05, Close: price, Volume: volume}
	})
}

func TestBollingerSqueeze(t *testing.T) {
	tests := []struct {
		name     string
		candles  []models.Candle
		expected int
	}{
		{"Сжатие у верхней полосы", squeezeCandles(0.01, true), 1},
		{"Сжатие у нижней полосы", squeezeCandles(-0.01, true), -1},
		{"Объём не растёт", squeezeCandles(0.01, false), 0},
		{"Нет сжатия", generateTestCandles(80, rising), 0},
		{"Мало свечей", squeezeCandles(0.01, true)[50:], 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BollingerSqueeze(tt.candles, 20, 2, 0.6); got != tt.expected {
				t.Errorf("BollingerSqueeze() = %v, want %v", got, tt.expected)
			}
		})
	}
}
