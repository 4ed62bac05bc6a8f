package patterns

import (
	"math"

	"github.com/Alias1177/SetupScanner/models"
)

// Pattern names
const (
	StrongCandle      = "STRONG_CANDLE"
	BullishEngulfing  = "BULLISH_ENGULFING"
	BearishEngulfing  = "BEARISH_ENGULFING"
	Hammer            = "HAMMER"
	ShootingStar      = "SHOOTING_STAR"
	ThreeWhiteSoldier = "THREE_WHITE_SOLDIERS"
	ThreeBlackCrows   = "THREE_BLACK_CROWS"
)

type shape struct {
	body      float64
	upperWick float64
	lowerWick float64
	bullish   bool
	bearish   bool
}

func shapeOf(c models.Candle) shape {
	return shape{
		body:      math.Abs(c.Close - c.Open),
		upperWick: c.High - math.Max(c.Open, c.Close),
		lowerWick: math.Min(c.Open, c.Close) - c.Low,
		bullish:   c.Close > c.Open,
		bearish:   c.Close < c.Open,
	}
}

// IsStrongCandle reports a last candle whose body is more than twice each wick
func IsStrongCandle(candles []models.Candle) bool {
	if len(candles) == 0 {
		return false
	}
	s := shapeOf(candles[len(candles)-1])
	return s.body > 0 && s.body > s.upperWick*2 && s.body > s.lowerWick*2
}

// IsBullishEngulfing: бычья свеча полностью поглощает тело предыдущей медвежьей
func IsBullishEngulfing(candles []models.Candle) bool {
	if len(candles) < 2 {
		return false
	}
	c1 := candles[len(candles)-2] // предыдущая
	c2 := candles[len(candles)-1] // текущая
	return c2.Close > c2.Open &&
		c1.Close < c1.Open &&
		c2.Open < c1.Close &&
		c2.Close > c1.Open
}

// IsBearishEngulfing mirrors IsBullishEngulfing
func IsBearishEngulfing(candles []models.Candle) bool {
	if len(candles) < 2 {
		return false
	}
	c1 := candles[len(candles)-2]
	c2 := candles[len(candles)-1]
	return c2.Close < c2.Open &&
		c1.Close > c1.Open &&
		c2.Open > c1.Close &&
		c2.Close < c1.Open
}

// IsHammer: длинная нижняя тень, короткая верхняя
func IsHammer(candles []models.Candle) bool {
	if len(candles) == 0 {
		return false
	}
	s := shapeOf(candles[len(candles)-1])
	return s.body > 0 && s.lowerWick > s.body*2 && s.upperWick < s.body*0.5
}

// IsShootingStar mirrors IsHammer
func IsShootingStar(candles []models.Candle) bool {
	if len(candles) == 0 {
		return false
	}
	s := shapeOf(candles[len(candles)-1])
	return s.body > 0 && s.upperWick > s.body*2 && s.lowerWick < s.body*0.5
}

// IsReversal reports any reversal pattern on the last candles
func IsReversal(candles []models.Candle) bool {
	return IsBullishEngulfing(candles) || IsBearishEngulfing(candles) ||
		IsHammer(candles) || IsShootingStar(candles)
}

// Identify lists every pattern present on the last candles
func Identify(candles []models.Candle) []string {
	var found []string

	if IsStrongCandle(candles) {
		found = append(found, StrongCandle)
	}
	if IsBullishEngulfing(candles) {
		found = append(found, BullishEngulfing)
	}
	if IsBearishEngulfing(candles) {
		found = append(found, BearishEngulfing)
	}
	if IsHammer(candles) {
		found = append(found, Hammer)
	}
	if IsShootingStar(candles) {
		found = append(found, ShootingStar)
	}

	// Три свечи подряд в одну сторону
	if len(candles) >= 3 {
		tail := candles[len(candles)-3:]
		up, down := 0, 0
		for _, c := range tail {
			s := shapeOf(c)
			if s.bullish {
				up++
			} else if s.bearish {
				down++
			}
		}
		if up == 3 {
			found = append(found, ThreeWhiteSoldier)
		}
		if down == 3 {
			found = append(found, ThreeBlackCrows)
		}
	}

	return found
}
