package risk

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/creasty/defaults"
	"github.com/shopspring/decimal"
)

// ErrRejected is returned for alert levels that fail pre-send validation
var ErrRejected = errors.New("alert levels rejected")

// Multipliers are the ATR distances of stop and target
type Multipliers struct {
	StopATR   float64 `default:"1.5"`
	TargetATR float64 `default:"3.0"`
}

// Params holds the level calculation settings
type Params struct {
	Default       Multipliers
	MinRewardRisk float64 `default:"1.5"`
}

// Levels are the entry, stop and target of an alert
type Levels struct {
	Entry      float64 `json:"entry"`
	Stop       float64 `json:"stop"`
	Target     float64 `json:"target"`
	RewardRisk float64 `json:"reward_risk"`
	Direction  int     `json:"direction"`
}

// Calculator derives alert levels from ATR
type Calculator struct {
	params   Params
	perAsset map[string]Multipliers
}

// NewCalculator creates a calculator with the default multipliers. BTC uses
// a tighter stop; overrides replace the multipliers of single assets.
func NewCalculator(overrides map[string]Multipliers) (*Calculator, error) {
	var p Params
	if err := defaults.Set(&p); err != nil {
		return nil, fmt.Errorf("risk defaults: %w", err)
	}

	perAsset := map[string]Multipliers{
		"BTC/USDT": {StopATR: 1.2, TargetATR: 2.5},
	}
	c := &Calculator{params: p, perAsset: perAsset}

	// a zero multiplier keeps the asset's built-in value
	for asset, m := range overrides {
		if m.StopATR < 0 || m.TargetATR < 0 {
			return nil, fmt.Errorf("invalid multipliers for %s: stop %.2f target %.2f", asset, m.StopATR, m.TargetATR)
		}
		base := c.MultipliersFor(asset)
		if m.StopATR == 0 {
			m.StopATR = base.StopATR
		}
		if m.TargetATR == 0 {
			m.TargetATR = base.TargetATR
		}
		perAsset[strings.ToUpper(asset)] = m
	}

	return c, nil
}

// MultipliersFor returns the ATR multipliers used for asset
func (c *Calculator) MultipliersFor(asset string) Multipliers {
	if m, ok := c.perAsset[strings.ToUpper(asset)]; ok {
		return m
	}
	return c.params.Default
}

// Levels calculates stop and target for an entry. Short setups mirror long ones.
func (c *Calculator) Levels(asset string, entry, atr float64, direction int) (Levels, error) {
	if direction != 1 && direction != -1 {
		return Levels{}, fmt.Errorf("%w: direction %d", ErrRejected, direction)
	}
	if !(entry > 0) || !(atr > 0) || math.IsInf(entry, 0) || math.IsInf(atr, 0) {
		return Levels{}, fmt.Errorf("%w: entry %.4f atr %.4f", ErrRejected, entry, atr)
	}

	m := c.MultipliersFor(asset)
	d := float64(direction)

	l := Levels{
		Entry:     roundPrice(entry),
		Stop:      roundPrice(entry - d*atr*m.StopATR),
		Target:    roundPrice(entry + d*atr*m.TargetATR),
		Direction: direction,
	}

	if err := c.Validate(l); err != nil {
		return Levels{}, err
	}
	return l.withRewardRisk(), nil
}

// Validate checks prices, ordering and the reward:risk ratio before sending
func (c *Calculator) Validate(l Levels) error {
	if l.Entry <= 0 || l.Stop <= 0 || l.Target <= 0 {
		return fmt.Errorf("%w: non-positive price (entry %.2f stop %.2f target %.2f)", ErrRejected, l.Entry, l.Stop, l.Target)
	}

	if l.Direction > 0 && !(l.Stop < l.Entry && l.Entry < l.Target) {
		return fmt.Errorf("%w: long levels out of order", ErrRejected)
	}
	if l.Direction < 0 && !(l.Target < l.Entry && l.Entry < l.Stop) {
		return fmt.Errorf("%w: short levels out of order", ErrRejected)
	}

	risk := math.Abs(l.Entry - l.Stop)
	reward := math.Abs(l.Target - l.Entry)
	rr := reward / risk
	if rr < c.params.MinRewardRisk {
		return fmt.Errorf("%w: reward:risk %.2f below %.2f", ErrRejected, rr, c.params.MinRewardRisk)
	}
	return nil
}

func (l Levels) withRewardRisk() Levels {
	risk := math.Abs(l.Entry - l.Stop)
	if risk > 0 {
		l.RewardRisk = math.Round(math.Abs(l.Target-l.Entry)/risk*100) / 100
	}
	return l
}

// roundPrice keeps two decimals for prices above 10 and four below
func roundPrice(p float64) float64 {
	places := int32(2)
	if p < 10 {
		places = 4
	}
	return decimal.NewFromFloat(p).Round(places).InexactFloat64()
}
