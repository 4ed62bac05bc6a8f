package alert

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Alias1177/SetupScanner/internal/api/coingecko"
	"github.com/Alias1177/SetupScanner/internal/trading/risk"
	"github.com/Alias1177/SetupScanner/models"
	"github.com/shopspring/decimal"
)

// MaxFactorLines limits the factor breakdown of one alert
const MaxFactorLines = 6

type categoryStyle struct {
	icon   string
	title  string
	legend string
}

var styles = map[models.SetupCategory]categoryStyle{
	models.CategoryConservative: {"🛡️", "CONSERVATIVE SETUP", "High confluence in a trending market"},
	models.CategoryMomentum:     {"🚀", "MOMENTUM SETUP", "Continuation with volume behind it"},
	models.CategoryReversal:     {"🔄", "REVERSAL SETUP", "Counter-trend turn, size down"},
}

// Regime labels are plain words: legacy Markdown reads "_" as italics
var regimeLabels = map[models.Regime]string{
	models.RegimeTrending: "Trending 📈",
	models.RegimeRanging:  "Ranging ↔️",
	models.RegimeHighRisk: "High risk ⚠️",
}

// RegimeLabel returns the display name of a regime
func RegimeLabel(r models.Regime) string {
	if label, ok := regimeLabels[r]; ok {
		return label
	}
	return "`" + string(r) + "`"
}

// Alert is everything needed to render one setup message
type Alert struct {
	Result    models.SetupResult
	Snapshot  models.IndicatorSnapshot
	Levels    risk.Levels
	Macro     *models.MacroContext // nil when the macro summary is sent separately
	PaperMode bool
}

// ScoreVisual renders a 0-100 score as five dots
func ScoreVisual(score float64) string {
	switch {
	case score >= 90:
		return "🟢🟢🟢🟢🟢 (Excellent)"
	case score >= 80:
		return "🟢🟢🟢🟢🟡 (Very good)"
	case score >= 70:
		return "🟢🟢🟢🟡🟡 (Good)"
	case score >= 60:
		return "🟢🟢🟡🟡🟡 (Moderate)"
	case score >= 50:
		return "🟢🟡🟡🟡🟡 (Weak)"
	}
	return "🟡🟡🟡⚫⚫ (Very weak)"
}

// RiskLevel maps a score to an icon and label
func RiskLevel(score float64) (string, string) {
	switch {
	case score >= 85:
		return "🟢", "LOW"
	case score >= 70:
		return "🟡", "MEDIUM"
	case score >= 55:
		return "🟠", "HIGH"
	}
	return "🔴", "VERY HIGH"
}

// TradingViewLink returns the OKX chart link of a pair
func TradingViewLink(pair string) string {
	return "https://www.tradingview.com/chart/?symbol=OKX:" + strings.ReplaceAll(strings.ToUpper(pair), "/", "")
}

// FormatAlert renders a setup alert in Telegram Markdown
func FormatAlert(a Alert, now time.Time) string {
	r := a.Result
	st, ok := styles[r.Category]
	if !ok {
		st = categoryStyle{"📊", string(r.Category), ""}
	}

	side := "LONG 📈"
	if r.Direction < 0 {
		side = "SHORT 📉"
	}

	var sb strings.Builder
	if a.PaperMode {
		sb.WriteString("📝 *PAPER MODE*\n\n")
	}
	sb.WriteString(fmt.Sprintf("%s *%s*\n", st.icon, st.title))
	if st.legend != "" {
		sb.WriteString(fmt.Sprintf("_%s_\n", st.legend))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("📊 Pair: `%s` (%s)\n", r.Asset, r.Timeframe))
	sb.WriteString(fmt.Sprintf("🧭 Side: %s\n", side))
	sb.WriteString(fmt.Sprintf("💰 Price: `%s`\n", price(a.Levels.Entry)))
	sb.WriteString(fmt.Sprintf("🎯 Target: `%s`\n", price(a.Levels.Target)))
	sb.WriteString(fmt.Sprintf("🛑 Stop: `%s`\n", price(a.Levels.Stop)))
	sb.WriteString(fmt.Sprintf("⚖️ R:R: %.2f\n\n", a.Levels.RewardRisk))

	riskIcon, riskLabel := RiskLevel(r.Score)
	sb.WriteString(fmt.Sprintf("📊 *Score:* %.1f/100 %s\n", r.Score, ScoreVisual(r.Score)))
	sb.WriteString(fmt.Sprintf("🎲 *Risk:* %s %s\n", riskIcon, riskLabel))
	sb.WriteString(fmt.Sprintf("🌐 *Regime:* %s\n\n", RegimeLabel(r.Regime)))

	sb.WriteString("*✅ CONFLUENCE:*\n")
	sb.WriteString(factorLines(r.Factors))
	sb.WriteString("\n")

	s := a.Snapshot
	sb.WriteString("*📈 INDICATORS:*\n")
	sb.WriteString(fmt.Sprintf("• RSI: %.1f | ADX: %.1f\n", deref(s.RSI), deref(s.ADX)))
	sb.WriteString(fmt.Sprintf("• MACD hist: %.4f | Supertrend: %s\n", deref(s.MACDHist), s.Supertrend))
	sb.WriteString(fmt.Sprintf("• Volume: %.1fx average | ATR: %.4f\n\n", deref(s.VolumeRatio), s.ATR))

	if a.Macro != nil {
		sb.WriteString(macroLine(*a.Macro))
		sb.WriteString("\n\n")
	}

	sb.WriteString(fmt.Sprintf("🕘 %s\n", now.UTC().Format("02/01 15:04 UTC")))
	sb.WriteString(fmt.Sprintf("📉 [TradingView](%s)", TradingViewLink(r.Asset)))
	return sb.String()
}

// factorLines lists fired factors, heaviest first
func factorLines(factors []models.Factor) string {
	fired := make([]models.Factor, 0, len(factors))
	for _, f := range factors {
		if f.Fired && f.Points > 0 {
			fired = append(fired, f)
		}
	}
	sort.SliceStable(fired, func(i, j int) bool { return fired[i].Points > fired[j].Points })

	var sb strings.Builder
	for i, f := range fired {
		if i == MaxFactorLines {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(fired)-MaxFactorLines))
			break
		}
		sb.WriteString(fmt.Sprintf("• %s (+%.0f)\n", f.Detail, f.Points))
	}
	return sb.String()
}

func macroLine(m models.MacroContext) string {
	line := fmt.Sprintf("🌍 F&G %.0f | VIX pct %.0f | BTC/S&P corr %+.2f", m.FearGreed, m.VIXPercentile, m.BTCSPCorrelation)
	if len(m.Degraded) > 0 {
		line += fmt.Sprintf(" (neutral: %s)", codeList(m.Degraded))
	}
	return line
}

// FormatMacro renders the once-per-cycle macro summary. global may be nil.
func FormatMacro(m models.MacroContext, global *coingecko.Global) string {
	var sb strings.Builder
	sb.WriteString("*🌍 MACRO CONTEXT:*\n")

	if global != nil {
		capIcon := "📈"
		if global.MarketCapChange < 0 {
			capIcon = "📉"
		}
		sb.WriteString(fmt.Sprintf("• Total cap: %s %s (%+.1f%%)\n", abbreviate(global.MarketCapUSD), capIcon, global.MarketCapChange))
		sb.WriteString(fmt.Sprintf("• BTC dominance: %.1f%%\n", global.BTCDominance))
	}

	label := m.FearGreedLabel
	if label == "" {
		label = "n/a"
	}
	sb.WriteString(fmt.Sprintf("• Fear & Greed: %.0f %s (%s)\n", m.FearGreed, fearGreedIcon(m.FearGreed), label))
	sb.WriteString(fmt.Sprintf("• VIX percentile: %.0f\n", m.VIXPercentile))
	sb.WriteString(fmt.Sprintf("• BTC/S&P correlation: %+.2f", m.BTCSPCorrelation))

	if global != nil {
		switch {
		case global.MarketCapChange < -3:
			sb.WriteString("\n🔴 *Correction under way*")
		case global.MarketCapChange > 3:
			sb.WriteString("\n🟢 *Rally under way*")
		}
	}
	if len(m.Degraded) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ Neutral fallback: %s", codeList(m.Degraded)))
	}
	return sb.String()
}

func fearGreedIcon(v float64) string {
	switch {
	case v >= 75:
		return "🔥"
	case v >= 55:
		return "😊"
	case v >= 45:
		return "😐"
	case v >= 25:
		return "😰"
	}
	return "🥶"
}

// FormatClosed renders the notice of a finished signal
func FormatClosed(e models.SetupLog) string {
	outcome := "⏰ EXPIRED"
	switch e.Status {
	case models.StatusTargetHit:
		outcome = "🎉 TARGET HIT"
	case models.StatusStopHit:
		outcome = "⚠️ STOP HIT"
	}

	d := e.ClosedAt.Sub(e.Timestamp)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	var sb strings.Builder
	sb.WriteString("📊 *SIGNAL CLOSED*\n\n")
	sb.WriteString(outcome + "\n\n")
	sb.WriteString(fmt.Sprintf("📊 Pair: `%s` (%s)\n", e.Asset, e.Timeframe))
	sb.WriteString(fmt.Sprintf("📋 Setup: %s\n", e.Category))
	sb.WriteString(fmt.Sprintf("💰 Entry: `%s`\n", price(e.Entry)))
	sb.WriteString(fmt.Sprintf("🏁 Exit: `%s`\n", price(e.ExitPrice)))
	sb.WriteString(fmt.Sprintf("⏱️ Duration: %dh %dmin", hours, minutes))
	return sb.String()
}

// PairStatus is one line of the status report
type PairStatus struct {
	Asset string
	Price float64
	RSI   float64
}

// StatusReport summarises a cycle that sent no alert
type StatusReport struct {
	At          time.Time
	Pairs       []PairStatus
	Timeframes  []string
	OpenSignals int
	Warnings    int
	Stats       *models.SetupStats // last 24h of the setup log, nil when unavailable
}

// FormatStatus renders the status report
func FormatStatus(r StatusReport) string {
	var sb strings.Builder
	sb.WriteString("🤖 *Setup Scanner*\n")
	sb.WriteString("📊 *STATUS REPORT*\n\n")
	sb.WriteString(fmt.Sprintf("⏰ Run at %s\n", r.At.UTC().Format("15:04 UTC")))
	sb.WriteString(fmt.Sprintf("🔍 Timeframes: %s\n", strings.Join(r.Timeframes, " + ")))
	sb.WriteString("📈 Result: waiting for setups\n")
	sb.WriteString(fmt.Sprintf("📝 Open signals: %d\n", r.OpenSignals))
	if r.Warnings > 0 {
		sb.WriteString(fmt.Sprintf("⚠️ Skipped evaluations: %d\n", r.Warnings))
	}
	if st := r.Stats; st != nil {
		sb.WriteString(fmt.Sprintf("📊 Last 24h: %d alerts | 🎯 %d | 🛑 %d | ⏰ %d", st.Alerts(), st.TargetHit, st.StopHit, st.Expired))
		if st.TargetHit+st.StopHit > 0 {
			sb.WriteString(fmt.Sprintf(" | win rate %.0f%%", st.WinRate()))
		}
		sb.WriteString("\n")
	}

	if len(r.Pairs) > 0 {
		sb.WriteString("\n*💰 MARKETS:*\n")
		for _, p := range r.Pairs {
			sb.WriteString(fmt.Sprintf("• %s: %s\n", p.Asset, price(p.Price)))
			sb.WriteString(fmt.Sprintf("  RSI: %.1f (%s)\n", p.RSI, rsiStatus(p.RSI)))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func rsiStatus(rsi float64) string {
	switch {
	case rsi < 25:
		return "🔥 extreme oversold"
	case rsi < 35:
		return "🟠 oversold"
	case rsi > 75:
		return "🔴 overbought"
	case rsi > 65:
		return "🟡 mildly overbought"
	}
	return "🟢 neutral"
}

// price formats a price with thousands separators
func price(v float64) string {
	places := int32(2)
	if v < 10 {
		places = 4
	}
	s := decimal.NewFromFloat(v).StringFixed(places)

	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var out strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}

	res := "$" + out.String() + "." + frac
	if neg {
		res = "-" + res
	}
	return res
}

func abbreviate(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	}
	return price(v)
}

// codeList wraps names in backticks so underscores survive Markdown
func codeList(names []string) string {
	return "`" + strings.Join(names, "`, `") + "`"
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
