package analyze

import (
	"math"

	"github.com/Alias1177/SetupScanner/models"
)

const (
	// MinAlertScore is the lowest score that can carry a setup category
	MinAlertScore = 60.0
	// ConservativeScore is the threshold of the Conservative category
	ConservativeScore = 80.0
	// MinVolumeRatio below this volume ratio the snapshot is vetoed
	MinVolumeRatio = 0.5
)

// Scorer evaluates snapshots against a fixed rule table.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	rules []Rule
}

// NewScorer creates a scorer over the given rules, DefaultRules when none are passed
func NewScorer(rules ...Rule) *Scorer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Scorer{rules: rules}
}

var defaultScorer = NewScorer()

// Score evaluates a snapshot with the default rule table
func Score(s models.IndicatorSnapshot, regime models.Regime) (models.SetupResult, error) {
	return defaultScorer.Score(s, regime)
}

// Score validates the snapshot, applies the volume veto, sums the fired rules
// and assigns a category for the regime. On error no result is returned.
func (sc *Scorer) Score(s models.IndicatorSnapshot, regime models.Regime) (models.SetupResult, error) {
	if err := ValidateSnapshot(s); err != nil {
		return models.SetupResult{}, err
	}

	r := NewReading(s)
	result := models.SetupResult{
		Asset:     s.Asset,
		Timeframe: s.Timeframe,
		Timestamp: s.Timestamp,
		Regime:    regime,
		Category:  models.CategoryNone,
		Direction: r.Direction,
	}

	// Hard veto: thin volume overrides everything else
	if r.VolumeRatio < MinVolumeRatio {
		result.Vetoed = true
		result.Factors = []models.Factor{{
			Name:   "volume_veto",
			Max:    0,
			Fired:  true,
			Detail: "volume below half of average",
		}}
		return result, nil
	}

	factors := make([]models.Factor, 0, len(sc.rules))
	total := 0.0
	for _, rule := range sc.rules {
		f := models.Factor{
			Name:   rule.Name,
			Max:    rule.Weight,
			Detail: rule.Detail,
		}
		if rule.Fires(r) {
			f.Fired = true
			f.Points = rule.Weight
			total += rule.Weight
		}
		factors = append(factors, f)
	}
	result.Factors = factors

	score := clamp(math.Round(total*10)/10, 0, 100)
	result.RawScore = score
	result.Category = Categorize(score, regime, r.OpposesTrend())

	// A setup without a category never reaches the alert threshold
	if result.Category == models.CategoryNone && score >= MinAlertScore {
		score = MinAlertScore - 1
	}
	result.Score = score

	return result, nil
}

// Categorize maps a score to a setup category by descending thresholds.
// Reversal wins over Momentum only in a HighRisk regime with the signal
// against the recent trend.
func Categorize(score float64, regime models.Regime, opposesTrend bool) models.SetupCategory {
	switch {
	case score >= ConservativeScore && regime == models.RegimeTrending:
		return models.CategoryConservative
	case score >= MinAlertScore && (regime == models.RegimeTrending || regime == models.RegimeRanging):
		return models.CategoryMomentum
	case score >= MinAlertScore && regime == models.RegimeHighRisk && opposesTrend:
		return models.CategoryReversal
	}
	return models.CategoryNone
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
