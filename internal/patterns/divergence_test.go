package patterns

import (
	"math"
	"testing"

	"github.com/Alias1177/SetupScanner/models"
)

// divergenceSeries builds flat candles (high 100, low 90) with an RSI of 50
// and applies the given overrides by index
func divergenceSeries(n int, highs, lows, rsi map[int]float64) ([]models.Candle, []float64) {
	candles := make([]models.Candle, n)
	values := make([]float64, n)
	for i := range candles {
		candles[i] = candle(95, 100, 90, 95)
		values[i] = 50
	}
	for i, v := range highs {
		candles[i].High = v
	}
	for i, v := range lows {
		candles[i].Low = v
	}
	for i, v := range rsi {
		values[i] = v
	}
	return candles, values
}

func TestRSIDivergence(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		highs    map[int]float64
		lows     map[int]float64
		rsi      map[int]float64
		expected int
	}{
		{
			name:     "Медвежья дивергенция",
			n:        30,
			highs:    map[int]float64{15: 110, 25: 115},
			rsi:      map[int]float64{15: 80, 25: 70},
			expected: -1,
		},
		{
			name:     "RSI не перекуплен",
			n:        30,
			highs:    map[int]float64{15: 110, 25: 115},
			rsi:      map[int]float64{15: 60, 25: 55},
			expected: 0,
		},
		{
			name:     "RSI подтверждает максимум",
			n:        30,
			highs:    map[int]float64{15: 110, 25: 115},
			rsi:      map[int]float64{15: 70, 25: 80},
			expected: 0,
		},
		{
			name:     "Бычья дивергенция",
			n:        30,
			lows:     map[int]float64{15: 80, 25: 75},
			rsi:      map[int]float64{15: 20, 25: 30},
			expected: 1,
		},
		{
			name:     "RSI не перепродан",
			n:        30,
			lows:     map[int]float64{15: 80, 25: 75},
			rsi:      map[int]float64{15: 40, 25: 45},
			expected: 0,
		},
		{
			name:     "Ровный рынок",
			n:        30,
			expected: 0,
		},
		{
			name:     "Пропуск RSI в окне",
			n:        30,
			highs:    map[int]float64{15: 110, 25: 115},
			rsi:      map[int]float64{15: 80, 20: math.NaN(), 25: 70},
			expected: 0,
		},
		{
			name:     "Мало свечей",
			n:        10,
			highs:    map[int]float64{3: 110, 7: 115},
			rsi:      map[int]float64{3: 80, 7: 70},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles, rsi := divergenceSeries(tt.n, tt.highs, tt.lows, tt.rsi)
			if got := RSIDivergence(candles, rsi, 20); got != tt.expected {
				t.Errorf("RSIDivergence() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFindSwings(t *testing.T) {
	highs, lows := findSwings([]float64{1, 3, 2, 2, 0, 4, 4, 5}, 1)
	if len(highs) != 1 || highs[0] != 1 {
		t.Errorf("findSwings() highs = %v, want [1]", highs)
	}
	// plateaus are not swings
	if len(lows) != 1 || lows[0] != 4 {
		t.Errorf("findSwings() lows = %v, want [4]", lows)
	}
}
