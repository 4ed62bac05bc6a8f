package macro

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Alias1177/SetupScanner/internal/api/feargreed"
	"github.com/Alias1177/SetupScanner/internal/api/yahoo"
	"github.com/Alias1177/SetupScanner/internal/calculate"
	"github.com/Alias1177/SetupScanner/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Source names, also used in MacroContext.Degraded
const (
	SourceFearGreed   = "fear_greed"
	SourceVIX         = "vix"
	SourceCorrelation = "correlation"
)

// Neutral values used when a source is unavailable
const (
	NeutralFearGreed   = 50.0
	NeutralVIX         = 50.0
	NeutralCorrelation = 0.0
)

// FearGreedSource returns the current sentiment index
type FearGreedSource interface {
	Latest(ctx context.Context) (feargreed.Index, error)
}

// CloseSource returns daily index closes
type CloseSource interface {
	DailyCloses(ctx context.Context, symbol string, days int) ([]yahoo.Bar, error)
}

// DailyCandleSource returns crypto candles
type DailyCandleSource interface {
	GetCandles(ctx context.Context, pair, timeframe string, limit int) ([]models.Candle, error)
}

// Options tune the provider windows
type Options struct {
	BTCPair           string
	VIXLookbackDays   int
	CorrelationWindow int
	CacheTTL          time.Duration
}

// Provider assembles the MacroContext of a scan cycle
type Provider struct {
	fearGreed FearGreedSource
	quotes    CloseSource
	candles   DailyCandleSource
	cache     *Cache
	opts      Options
	now       func() time.Time
	logger    zerolog.Logger
}

// NewProvider creates a provider over the three sources
func NewProvider(fearGreed FearGreedSource, quotes CloseSource, candles DailyCandleSource, opts Options) *Provider {
	if opts.BTCPair == "" {
		opts.BTCPair = "BTC/USDT"
	}
	if opts.VIXLookbackDays <= 0 {
		opts.VIXLookbackDays = 365
	}
	if opts.CorrelationWindow <= 0 {
		opts.CorrelationWindow = 30
	}

	return &Provider{
		fearGreed: fearGreed,
		quotes:    quotes,
		candles:   candles,
		cache:     NewCache(opts.CacheTTL),
		opts:      opts,
		now:       time.Now,
		logger:    log.With().Str("component", "macro_provider").Logger(),
	}
}

// Context returns the macro context. It never fails: a source that cannot
// be read falls back to its neutral value and is listed in Degraded.
func (p *Provider) Context(ctx context.Context) models.MacroContext {
	p.cache.Cleanup()

	var (
		fg, vix, corr    float64
		fgLabel          string
		fgOK, vixOK, cOK bool
	)

	var g errgroup.Group
	g.Go(func() error {
		fg, fgLabel, fgOK = p.cached(SourceFearGreed, func() (float64, string, error) {
			idx, err := p.fearGreed.Latest(ctx)
			return idx.Value, idx.Classification, err
		})
		return nil
	})
	g.Go(func() error {
		vix, _, vixOK = p.cached(SourceVIX, func() (float64, string, error) {
			v, err := p.vixPercentile(ctx)
			return v, "", err
		})
		return nil
	})
	g.Go(func() error {
		corr, _, cOK = p.cached(SourceCorrelation, func() (float64, string, error) {
			v, err := p.btcSPCorrelation(ctx)
			return v, "", err
		})
		return nil
	})
	_ = g.Wait()

	m := models.MacroContext{
		VIXPercentile:    vix,
		FearGreed:        fg,
		FearGreedLabel:   fgLabel,
		BTCSPCorrelation: corr,
		FetchedAt:        p.now().UTC(),
	}
	if !fgOK {
		m.FearGreed, m.FearGreedLabel = NeutralFearGreed, "Neutral"
		m.Degraded = append(m.Degraded, SourceFearGreed)
	}
	if !vixOK {
		m.VIXPercentile = NeutralVIX
		m.Degraded = append(m.Degraded, SourceVIX)
	}
	if !cOK {
		m.BTCSPCorrelation = NeutralCorrelation
		m.Degraded = append(m.Degraded, SourceCorrelation)
	}

	p.logger.Info().
		Float64("vix_percentile", m.VIXPercentile).
		Float64("fear_greed", m.FearGreed).
		Float64("btc_sp_correlation", m.BTCSPCorrelation).
		Strs("degraded", m.Degraded).
		Msg("Macro context ready")

	return m
}

func (p *Provider) cached(source string, fetch func() (float64, string, error)) (float64, string, bool) {
	if v, label, ok := p.cache.Get(source); ok {
		return v, label, true
	}

	v, label, err := fetch()
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = fmt.Errorf("non-finite value")
	}
	if err != nil {
		p.logger.Warn().Err(err).Str("source", source).Msg("Macro source unavailable, using neutral value")
		return 0, "", false
	}

	p.cache.Set(source, v, label)
	return v, label, true
}

// vixPercentile ranks the last VIX close within the lookback window
func (p *Provider) vixPercentile(ctx context.Context) (float64, error) {
	bars, err := p.quotes.DailyCloses(ctx, yahoo.SymbolVIX, p.opts.VIXLookbackDays)
	if err != nil {
		return 0, err
	}
	if len(bars) < 20 {
		return 0, fmt.Errorf("only %d VIX closes", len(bars))
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close.InexactFloat64()
	}
	return calculate.PercentileRank(closes, closes[len(closes)-1]), nil
}

// btcSPCorrelation correlates daily returns of BTC and the S&P 500 over
// the days both markets traded
func (p *Provider) btcSPCorrelation(ctx context.Context) (float64, error) {
	window := p.opts.CorrelationWindow
	// Calendar days: weekends and holidays thin out the S&P series
	days := window*2 + 10

	var (
		spBars  []yahoo.Bar
		candles []models.Candle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		spBars, err = p.quotes.DailyCloses(gctx, yahoo.SymbolSP500, days)
		return err
	})
	g.Go(func() error {
		var err error
		candles, err = p.candles.GetCandles(gctx, p.opts.BTCPair, "1d", models.CandlesForDays("1d", days))
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	btcByDay := make(map[string]float64, len(candles))
	for _, c := range candles {
		btcByDay[c.Time.UTC().Format("2006-01-02")] = c.Close
	}

	var btc, sp []float64
	for _, b := range spBars {
		day := b.Time.UTC().Format("2006-01-02")
		if price, ok := btcByDay[day]; ok {
			btc = append(btc, price)
			sp = append(sp, b.Close.InexactFloat64())
		}
	}

	btcReturns := calculate.Returns(btc)
	spReturns := calculate.Returns(sp)
	if len(btcReturns) > window {
		btcReturns = btcReturns[len(btcReturns)-window:]
		spReturns = spReturns[len(spReturns)-window:]
	}
	if len(btcReturns) < window/2 {
		return 0, fmt.Errorf("only %d aligned daily returns", len(btcReturns))
	}

	return calculate.Pearson(btcReturns, spReturns), nil
}
