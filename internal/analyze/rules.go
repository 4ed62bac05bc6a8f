package analyze

import "github.com/Alias1177/SetupScanner/models"

// Reading is a validated snapshot with the pointers resolved and the signal
// direction worked out. Rules only ever see a Reading.
type Reading struct {
	EMA9        float64
	EMA21       float64
	EMA200      float64
	Close       float64
	RSI         float64
	RSIPrev     float64
	HasRSIPrev  bool
	MACDHist    float64
	ADX         float64
	VolumeRatio float64
	Supertrend  int

	ReversalCandle bool
	StrongCandle   bool
	OBVAboveMean   bool

	// Signed context flags, 0 when absent
	RSIDivergence       int
	BollingerSqueeze    int
	TimeframeConfluence int

	// Direction is the side the setup would trade: +1 long, -1 short
	Direction int
	// Trend is the recent trend: sign(EMA21 - EMA200)
	Trend int
}

// NewReading resolves a snapshot that already passed ValidateSnapshot
func NewReading(s models.IndicatorSnapshot) Reading {
	r := Reading{
		EMA9:           *s.EMA9,
		EMA21:          *s.EMA21,
		EMA200:         *s.EMA200,
		Close:          s.Close,
		RSI:            *s.RSI,
		MACDHist:       *s.MACDHist,
		ADX:            *s.ADX,
		VolumeRatio:    *s.VolumeRatio,
		Supertrend:     s.Supertrend.Sign(),
		ReversalCandle: s.ReversalCandle,
		StrongCandle:   s.StrongCandle,
		OBVAboveMean:   s.OBVAboveMean,

		RSIDivergence:       s.RSIDivergence,
		BollingerSqueeze:    s.BollingerSqueeze,
		TimeframeConfluence: s.TimeframeConfluence,
	}
	if s.RSIPrev != nil {
		r.RSIPrev = *s.RSIPrev
		r.HasRSIPrev = true
	}

	// Momentum decides the side; a flat histogram defers to Supertrend
	r.Direction = sign(r.MACDHist)
	if r.Direction == 0 {
		r.Direction = r.Supertrend
	}
	r.Trend = sign(r.EMA21 - r.EMA200)

	return r
}

// OpposesTrend reports whether the signal direction goes against the recent trend
func (r Reading) OpposesTrend() bool {
	return r.Direction*r.Trend == -1
}

// Rule is one row of the confluence table
type Rule struct {
	Name   string
	Weight float64
	Detail string
	Fires  func(r Reading) bool
}

// DefaultRules is the confluence table, evaluated top to bottom. Paired rows
// (adx_*, rsi_*, volume_*) are mutually exclusive, so the base rows sum to 100.
// The context rows at the bottom only add points when the snapshot carries
// the flag; the total is clamped to 100.
func DefaultRules() []Rule {
	return []Rule{
		// Trend strength
		{
			Name:   "adx_strong",
			Weight: 15,
			Detail: "ADX above 25",
			Fires:  func(r Reading) bool { return r.ADX > 25 },
		},
		{
			Name:   "adx_building",
			Weight: 8,
			Detail: "ADX between 20 and 25",
			Fires:  func(r Reading) bool { return r.ADX >= 20 && r.ADX <= 25 },
		},

		// Moving averages
		{
			Name:   "ema_alignment",
			Weight: 15,
			Detail: "EMA9 crossed EMA21 in signal direction",
			Fires:  func(r Reading) bool { return sign(r.EMA9-r.EMA21) == r.Direction },
		},
		{
			Name:   "ema200_bias",
			Weight: 10,
			Detail: "price on the signal side of EMA200",
			Fires: func(r Reading) bool {
				price := r.Close
				if price == 0 {
					price = r.EMA9
				}
				return sign(price-r.EMA200) == r.Direction
			},
		},

		{
			Name:   "supertrend",
			Weight: 15,
			Detail: "Supertrend agrees with signal",
			Fires:  func(r Reading) bool { return r.Supertrend == r.Direction },
		},
		{
			Name:   "macd_momentum",
			Weight: 10,
			Detail: "MACD histogram expanding in signal direction",
			Fires:  func(r Reading) bool { return r.MACDHist*float64(r.Direction) > 0 },
		},

		// RSI: healthy zone for continuation, stretched zone for reversals
		{
			Name:   "rsi_zone",
			Weight: 10,
			Detail: "RSI in healthy zone",
			Fires: func(r Reading) bool {
				if r.Direction > 0 {
					return r.RSI >= 40 && r.RSI <= 65
				}
				return r.RSI >= 35 && r.RSI <= 60
			},
		},
		{
			Name:   "rsi_extreme",
			Weight: 10,
			Detail: "RSI stretched and turning",
			Fires: func(r Reading) bool {
				if r.Direction > 0 {
					return r.RSI < 30 && (!r.HasRSIPrev || r.RSI > r.RSIPrev)
				}
				return r.RSI > 70 && (!r.HasRSIPrev || r.RSI < r.RSIPrev)
			},
		},

		// Participation
		{
			Name:   "volume_surge",
			Weight: 15,
			Detail: "volume at least 1.5x average",
			Fires:  func(r Reading) bool { return r.VolumeRatio >= 1.5 },
		},
		{
			Name:   "volume_above_mean",
			Weight: 8,
			Detail: "volume above average",
			Fires:  func(r Reading) bool { return r.VolumeRatio >= 1.0 && r.VolumeRatio < 1.5 },
		},

		{
			Name:   "candle_confirmation",
			Weight: 10,
			Detail: "confirmation candle",
			Fires:  func(r Reading) bool { return r.ReversalCandle || r.StrongCandle },
		},

		// Context
		{
			Name:   "rsi_divergence",
			Weight: 10,
			Detail: "RSI divergence in signal direction",
			Fires:  func(r Reading) bool { return r.RSIDivergence != 0 && r.RSIDivergence == r.Direction },
		},
		{
			Name:   "bollinger_squeeze",
			Weight: 5,
			Detail: "Bollinger squeeze at the band",
			Fires: func(r Reading) bool {
				return r.BollingerSqueeze != 0 && r.BollingerSqueeze == r.Direction && r.ADX < 20
			},
		},
		{
			Name:   "timeframe_confluence",
			Weight: 10,
			Detail: "higher timeframe agrees",
			Fires: func(r Reading) bool {
				return r.TimeframeConfluence != 0 && r.TimeframeConfluence == r.Direction
			},
		},
	}
}

// MaxScore returns the best achievable sum of a rule table, honouring the
// exclusive pairs of DefaultRules
func MaxScore(rules []Rule) float64 {
	exclusive := map[string]string{
		"adx_building":      "adx_strong",
		"rsi_extreme":       "rsi_zone",
		"volume_above_mean": "volume_surge",
		// a squeeze needs a weak ADX
		"bollinger_squeeze": "adx_strong",
	}
	present := make(map[string]bool, len(rules))
	for _, rule := range rules {
		present[rule.Name] = true
	}

	total := 0.0
	for _, rule := range rules {
		if partner, ok := exclusive[rule.Name]; ok && present[partner] {
			continue
		}
		total += rule.Weight
	}
	return total
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
