package models

import (
	"time"
)

// Candle represents a single price candle
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Direction is the Supertrend direction of the last candle
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Sign returns +1 for up, -1 for down and 0 otherwise
func (d Direction) Sign() int {
	switch d {
	case DirectionUp:
		return 1
	case DirectionDown:
		return -1
	}
	return 0
}

// IndicatorSnapshot holds the indicator readings of one asset/timeframe at one
// candle close. Required readings are pointers so a missing value can be told
// apart from a zero one. A snapshot is built once per scan cycle and never mutated.
type IndicatorSnapshot struct {
	Asset     string    `json:"asset" validate:"required"`
	Timeframe string    `json:"timeframe" validate:"required"`
	Timestamp time.Time `json:"timestamp"`

	EMA9        *float64  `json:"ema9" validate:"required,finite,gt=0"`
	EMA21       *float64  `json:"ema21" validate:"required,finite,gt=0"`
	EMA200      *float64  `json:"ema200" validate:"required,finite,gt=0"`
	RSI         *float64  `json:"rsi" validate:"required,finite,gte=0,lte=100"`
	MACDHist    *float64  `json:"macd_hist" validate:"required,finite"`
	ADX         *float64  `json:"adx" validate:"required,finite,gte=0,lte=100"`
	VolumeRatio *float64  `json:"volume_ratio" validate:"required,finite,gte=0"`
	Supertrend  Direction `json:"supertrend" validate:"required,oneof=up down"`

	// Optional context. Zero values are valid.
	Close          float64  `json:"close" validate:"finite,gte=0"`
	EMA50          float64  `json:"ema50" validate:"finite,gte=0"`
	ATR            float64  `json:"atr" validate:"finite,gte=0"`
	EMASlopeSign   int      `json:"ema_slope_sign" validate:"gte=-1,lte=1"`
	RSIPrev        *float64 `json:"rsi_prev,omitempty" validate:"omitempty,finite,gte=0,lte=100"`
	OBVAboveMean   bool     `json:"obv_above_mean"`
	ReversalCandle bool     `json:"reversal_candle"`
	StrongCandle   bool     `json:"strong_candle"`

	// Signed context flags: +1 bullish, -1 bearish, 0 absent
	RSIDivergence       int `json:"rsi_divergence" validate:"gte=-1,lte=1"`
	BollingerSqueeze    int `json:"bollinger_squeeze" validate:"gte=-1,lte=1"`
	TimeframeConfluence int `json:"timeframe_confluence" validate:"gte=-1,lte=1"` // set by the scanner from the higher timeframe
}

// MacroContext is the market-wide context of one scan cycle. It is shared
// read-only by every evaluation of the cycle.
type MacroContext struct {
	VIXPercentile    float64   `json:"vix_percentile" validate:"finite,gte=0,lte=100"`
	FearGreed        float64   `json:"fear_greed" validate:"finite,gte=0,lte=100"`
	FearGreedLabel   string    `json:"fear_greed_label,omitempty"`
	BTCSPCorrelation float64   `json:"btc_sp_correlation" validate:"finite,gte=-1,lte=1"`
	FetchedAt        time.Time `json:"fetched_at"`
	Degraded         []string  `json:"degraded,omitempty"` // sources that fell back to neutral values
}

// Regime is the prevailing market condition
type Regime string

const (
	RegimeTrending Regime = "TRENDING"
	RegimeRanging  Regime = "RANGING"
	RegimeHighRisk Regime = "HIGH_RISK"
)

// SetupCategory classifies a scored setup
type SetupCategory string

const (
	CategoryConservative SetupCategory = "CONSERVATIVE"
	CategoryMomentum     SetupCategory = "MOMENTUM"
	CategoryReversal     SetupCategory = "REVERSAL"
	CategoryNone         SetupCategory = "NONE"
)

// Factor is one line of the score breakdown
type Factor struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"` // points awarded, 0 when the rule did not fire
	Max    float64 `json:"max"`
	Fired  bool    `json:"fired"`
	Detail string  `json:"detail"`
}

// SetupResult is the outcome of scoring one snapshot under one regime
type SetupResult struct {
	Asset     string        `json:"asset"`
	Timeframe string        `json:"timeframe"`
	Timestamp time.Time     `json:"timestamp"`
	Regime    Regime        `json:"regime"`
	Category  SetupCategory `json:"category"`
	Score     float64       `json:"score"`     // 0-100
	RawScore  float64       `json:"raw_score"` // clamped confluence sum before the category cap
	Direction int           `json:"direction"` // +1 long, -1 short
	Vetoed    bool          `json:"vetoed"`
	Factors   []Factor      `json:"factors"`
}

// Alertable reports whether the result should reach the dispatcher
func (r SetupResult) Alertable() bool {
	return r.Category != CategoryNone && !r.Vetoed
}

// Setup log status constants
const (
	StatusSent      = "sent"
	StatusThrottled = "throttled"
	StatusRejected  = "rejected"
	StatusOpen      = "open"
	StatusTargetHit = "target_hit"
	StatusStopHit   = "stop_hit"
	StatusExpired   = "expired"
)

// SetupLog is one persisted alert decision
type SetupLog struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Asset     string        `json:"asset"`
	Timeframe string        `json:"timeframe"`
	Category  SetupCategory `json:"category"`
	Score     float64       `json:"score"`
	Regime    Regime        `json:"regime"`
	Status    string        `json:"status"`
	Direction int           `json:"direction"`
	Entry     float64       `json:"entry"`
	Stop      float64       `json:"stop"`
	Target    float64       `json:"target"`
	ClosedAt  time.Time     `json:"closed_at,omitempty"`
	ExitPrice float64       `json:"exit_price,omitempty"`
}

// IsOpen reports whether the entry is still monitored
func (l SetupLog) IsOpen() bool {
	return l.Status == StatusOpen
}

// SetupStats counts setup log entries by status over a period
type SetupStats struct {
	Throttled int `json:"throttled"`
	Rejected  int `json:"rejected"`
	Open      int `json:"open"`
	TargetHit int `json:"target_hit"`
	StopHit   int `json:"stop_hit"`
	Expired   int `json:"expired"`
}

// Add counts n entries with the given status
func (s *SetupStats) Add(status string, n int) {
	switch status {
	case StatusThrottled:
		s.Throttled += n
	case StatusRejected:
		s.Rejected += n
	case StatusOpen:
		s.Open += n
	case StatusTargetHit:
		s.TargetHit += n
	case StatusStopHit:
		s.StopHit += n
	case StatusExpired:
		s.Expired += n
	}
}

// Alerts is the number of alerts that were actually sent
func (s SetupStats) Alerts() int {
	return s.Open + s.TargetHit + s.StopHit + s.Expired
}

// WinRate is the share of closed-at-level signals that hit the target, in percent
func (s SetupStats) WinRate() float64 {
	decided := s.TargetHit + s.StopHit
	if decided == 0 {
		return 0
	}
	return float64(s.TargetHit) / float64(decided) * 100
}
