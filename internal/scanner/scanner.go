package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Alias1177/SetupScanner/internal/alert"
	"github.com/Alias1177/SetupScanner/internal/analysis/market"
	"github.com/Alias1177/SetupScanner/internal/analyze"
	"github.com/Alias1177/SetupScanner/internal/api/coingecko"
	"github.com/Alias1177/SetupScanner/internal/api/okx"
	"github.com/Alias1177/SetupScanner/internal/calculate"
	"github.com/Alias1177/SetupScanner/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Error kinds reported besides the analyze kinds
const (
	KindFetch            = "fetch"
	KindInsufficientData = "insufficient_data"
	KindDispatch         = "dispatch"
)

// ErrNothingEvaluated is returned when every evaluation of a cycle failed
var ErrNothingEvaluated = errors.New("no asset/timeframe could be evaluated")

// MacroSource provides the macro context of a cycle
type MacroSource interface {
	Context(ctx context.Context) models.MacroContext
}

// SignalMonitor closes open signals
type SignalMonitor interface {
	Check(ctx context.Context) ([]models.SetupLog, int, error)
}

// GlobalSource provides the global market snapshot of the macro summary
type GlobalSource interface {
	Global(ctx context.Context) (coingecko.Global, error)
}

// Dispatcher sends alerts and notices
type Dispatcher interface {
	Dispatch(ctx context.Context, result models.SetupResult, snap models.IndicatorSnapshot, macro *models.MacroContext) (string, error)
	NotifyClosed(ctx context.Context, e models.SetupLog) error
	SendMacro(ctx context.Context, m models.MacroContext, global *coingecko.Global) error
	SendStatus(ctx context.Context, r alert.StatusReport) error
}

// Recorder receives cycle metrics
type Recorder interface {
	RecordCycle(result string, d time.Duration)
	RecordEvaluation(outcome, regime string, score float64)
	RecordError(kind string)
	SetOpenSignals(n int)
}

// Options configures a Scanner
type Options struct {
	Assets            []string
	Timeframes        []string
	CandleLimit       int
	MaxConcurrency    int
	Params            calculate.Params
	LiquidityFilter   bool
	MinDailyVolumeUSD float64
	MacroSummary      bool
	StatusReport      bool

	// ConfluenceTimeframes is a lower and a higher timeframe; the lower one
	// gets the timeframe confluence flag when both are scanned
	ConfluenceTimeframes []string
}

// Evaluation is the outcome of one asset/timeframe
type Evaluation struct {
	Snapshot models.IndicatorSnapshot
	Result   models.SetupResult
	Status   string // dispatch decision, empty when nothing was sent
}

// Warning is one skipped evaluation
type Warning struct {
	Asset     string
	Timeframe string
	Kind      string
	Err       error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s: %s: %v", w.Asset, w.Timeframe, w.Kind, w.Err)
}

// CycleReport summarises one scan cycle
type CycleReport struct {
	Started       time.Time
	Duration      time.Duration
	Macro         models.MacroContext
	Evaluations   []Evaluation
	Closed        []models.SetupLog
	OpenSignals   int
	SkippedAssets []string
	Warnings      []Warning
	Alerts        int
}

// Scanner runs scan cycles
type Scanner struct {
	candles    models.CandleClient
	macro      MacroSource
	monitor    SignalMonitor
	dispatcher Dispatcher
	global     GlobalSource
	metrics    Recorder
	scorer     *analyze.Scorer
	opts       Options
	now        func() time.Time
	logger     zerolog.Logger
}

// New creates a scanner. monitor, global and metrics may be nil.
func New(candles models.CandleClient, macro MacroSource, monitor SignalMonitor, dispatcher Dispatcher, global GlobalSource, metrics Recorder, opts Options) *Scanner {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.CandleLimit <= 0 {
		opts.CandleLimit = okx.MaxLimit
	}
	if opts.Params == (calculate.Params{}) {
		opts.Params = calculate.DefaultParams()
	}
	return &Scanner{
		candles:    candles,
		macro:      macro,
		monitor:    monitor,
		dispatcher: dispatcher,
		global:     global,
		metrics:    metrics,
		scorer:     analyze.NewScorer(),
		opts:       opts,
		now:        time.Now,
		logger:     log.With().Str("component", "scanner").Logger(),
	}
}

// Evaluate builds, classifies and scores one asset/timeframe without dispatching
func (s *Scanner) Evaluate(ctx context.Context, asset, timeframe string, macro models.MacroContext) (Evaluation, error) {
	ev, _, err := s.evaluate(ctx, asset, timeframe, macro)
	return ev, err
}

func (s *Scanner) evaluate(ctx context.Context, asset, timeframe string, macro models.MacroContext) (Evaluation, string, error) {
	snap, kind, err := s.snapshot(ctx, asset, timeframe)
	if err != nil {
		return Evaluation{}, kind, err
	}
	return s.score(snap, macro)
}

// snapshot fetches candles and builds the indicator snapshot
func (s *Scanner) snapshot(ctx context.Context, asset, timeframe string) (models.IndicatorSnapshot, string, error) {
	candles, err := s.candles.GetCandles(ctx, asset, timeframe, s.opts.CandleLimit)
	if err != nil {
		if errors.Is(err, okx.ErrInsufficientData) {
			return models.IndicatorSnapshot{}, KindInsufficientData, err
		}
		return models.IndicatorSnapshot{}, KindFetch, err
	}

	snap, err := calculate.BuildSnapshot(asset, timeframe, candles, s.opts.Params)
	if err != nil {
		if errors.Is(err, calculate.ErrInsufficientData) {
			return models.IndicatorSnapshot{}, KindInsufficientData, err
		}
		return models.IndicatorSnapshot{}, analyze.ErrorKind(err), err
	}
	return snap, "", nil
}

func (s *Scanner) score(snap models.IndicatorSnapshot, macro models.MacroContext) (Evaluation, string, error) {
	regime := market.ClassifySnapshot(snap, macro)
	result, err := s.scorer.Score(snap, regime)
	if err != nil {
		return Evaluation{Snapshot: snap}, analyze.ErrorKind(err), err
	}
	return Evaluation{Snapshot: snap, Result: result}, "", nil
}

// markConfluence sets the timeframe confluence flag on the lower-timeframe
// snapshot of every asset that has both confluence timeframes
func (s *Scanner) markConfluence(snaps []*models.IndicatorSnapshot) {
	if len(s.opts.ConfluenceTimeframes) != 2 {
		return
	}
	lowerTF, higherTF := s.opts.ConfluenceTimeframes[0], s.opts.ConfluenceTimeframes[1]

	higher := make(map[string]*models.IndicatorSnapshot)
	for _, snap := range snaps {
		if snap != nil && snap.Timeframe == higherTF {
			higher[snap.Asset] = snap
		}
	}
	for _, snap := range snaps {
		if snap == nil || snap.Timeframe != lowerTF {
			continue
		}
		if hi, ok := higher[snap.Asset]; ok {
			snap.TimeframeConfluence = analyze.TimeframeConfluence(*snap, *hi)
		}
	}
}

// RunCycle runs one scan: macro once, open-signal monitor, optional
// liquidity filter, concurrent snapshots, timeframe confluence, scoring and
// dispatch. Per-pair failures end
// up in the report; the returned error is for cycle-level failures only.
func (s *Scanner) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{Started: s.now()}
	s.logger.Info().Strs("assets", s.opts.Assets).Strs("timeframes", s.opts.Timeframes).Msg("Scan cycle started")

	report.Macro = s.macro.Context(ctx)

	if s.monitor != nil {
		closed, open, err := s.monitor.Check(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("Open-signal monitor failed")
			s.recordError("monitor")
		}
		report.Closed = closed
		report.OpenSignals = open
		for _, e := range closed {
			if err := s.dispatcher.NotifyClosed(ctx, e); err != nil {
				s.logger.Warn().Err(err).Str("id", e.ID).Msg("Failed to notify closed signal")
			}
		}
	}

	assets := s.opts.Assets
	if s.opts.LiquidityFilter {
		assets, report.SkippedAssets = s.filterLiquidity(ctx, assets)
	}

	type job struct {
		asset, timeframe string
	}
	var jobs []job
	for _, a := range assets {
		for _, tf := range s.opts.Timeframes {
			jobs = append(jobs, job{a, tf})
		}
	}

	snaps := make([]*models.IndicatorSnapshot, len(jobs))
	warnings := make([]*Warning, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrency)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			snap, kind, err := s.snapshot(gctx, j.asset, j.timeframe)
			if err != nil {
				warnings[i] = &Warning{Asset: j.asset, Timeframe: j.timeframe, Kind: kind, Err: err}
				return nil
			}
			snaps[i] = &snap
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return s.finish(report, err)
	}

	s.markConfluence(snaps)

	evaluations := make([]*Evaluation, len(jobs))
	for i, snap := range snaps {
		if snap == nil {
			continue
		}
		ev, kind, err := s.score(*snap, report.Macro)
		if err != nil {
			warnings[i] = &Warning{Asset: jobs[i].asset, Timeframe: jobs[i].timeframe, Kind: kind, Err: err}
			continue
		}
		evaluations[i] = &ev
	}

	for _, w := range warnings {
		if w == nil {
			continue
		}
		s.logger.Warn().
			Err(w.Err).
			Str("asset", w.Asset).
			Str("timeframe", w.Timeframe).
			Str("error_kind", w.Kind).
			Msg("Evaluation skipped")
		s.recordError(w.Kind)
		report.Warnings = append(report.Warnings, *w)
	}

	var alertMacro *models.MacroContext
	if !s.opts.MacroSummary {
		alertMacro = &report.Macro
	}

	// dispatch in job order so throttling is deterministic
	for _, ev := range evaluations {
		if ev == nil {
			continue
		}
		r := ev.Result
		if s.metrics != nil {
			s.metrics.RecordEvaluation(outcome(r), string(r.Regime), r.Score)
		}
		s.logger.Debug().
			Str("asset", r.Asset).
			Str("timeframe", r.Timeframe).
			Str("regime", string(r.Regime)).
			Str("category", string(r.Category)).
			Float64("score", r.Score).
			Bool("vetoed", r.Vetoed).
			Msg("Setup scored")

		status, err := s.dispatcher.Dispatch(ctx, r, ev.Snapshot, alertMacro)
		if err != nil {
			s.logger.Error().Err(err).Str("asset", r.Asset).Str("timeframe", r.Timeframe).Msg("Dispatch failed")
			s.recordError(KindDispatch)
			report.Warnings = append(report.Warnings, Warning{Asset: r.Asset, Timeframe: r.Timeframe, Kind: KindDispatch, Err: err})
		}
		ev.Status = status
		if status == models.StatusSent {
			report.Alerts++
			report.OpenSignals++
		}
		report.Evaluations = append(report.Evaluations, *ev)
	}

	if len(jobs) > 0 && len(report.Evaluations) == 0 {
		return s.finish(report, ErrNothingEvaluated)
	}

	if report.Alerts > 0 && s.opts.MacroSummary {
		s.sendMacro(ctx, report.Macro)
	}
	if report.Alerts == 0 && s.opts.StatusReport {
		if err := s.dispatcher.SendStatus(ctx, s.statusReport(report)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to send status report")
		}
	}

	return s.finish(report, nil)
}

func (s *Scanner) finish(report CycleReport, err error) (CycleReport, error) {
	report.Duration = s.now().Sub(report.Started)

	result := "ok"
	if err != nil {
		result = "failed"
	}
	if s.metrics != nil {
		s.metrics.RecordCycle(result, report.Duration)
		s.metrics.SetOpenSignals(report.OpenSignals)
	}

	event := s.logger.Info()
	if err != nil {
		event = s.logger.Error().Err(err)
	}
	event.
		Int("evaluated", len(report.Evaluations)).
		Int("alerts", report.Alerts).
		Int("closed", len(report.Closed)).
		Int("warnings", len(report.Warnings)).
		Strs("macro_degraded", report.Macro.Degraded).
		Dur("duration", report.Duration).
		Msg("Scan cycle finished")

	return report, err
}

func (s *Scanner) sendMacro(ctx context.Context, m models.MacroContext) {
	var global *coingecko.Global
	if s.global != nil {
		g, err := s.global.Global(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Global market data unavailable")
		} else {
			global = &g
		}
	}
	if err := s.dispatcher.SendMacro(ctx, m, global); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to send macro summary")
	}
}

// statusReport uses the first timeframe of every evaluated asset
func (s *Scanner) statusReport(report CycleReport) alert.StatusReport {
	sr := alert.StatusReport{
		At:          report.Started,
		Timeframes:  s.opts.Timeframes,
		OpenSignals: report.OpenSignals,
		Warnings:    len(report.Warnings),
	}

	seen := make(map[string]bool)
	for _, ev := range report.Evaluations {
		if seen[ev.Result.Asset] {
			continue
		}
		seen[ev.Result.Asset] = true
		var rsi float64
		if ev.Snapshot.RSI != nil {
			rsi = *ev.Snapshot.RSI
		}
		sr.Pairs = append(sr.Pairs, alert.PairStatus{Asset: ev.Result.Asset, Price: ev.Snapshot.Close, RSI: rsi})
	}
	sort.SliceStable(sr.Pairs, func(i, j int) bool { return sr.Pairs[i].Asset < sr.Pairs[j].Asset })
	return sr
}

// filterLiquidity keeps assets whose 30-day mean daily quote volume reaches
// the minimum. Assets that can't be checked are kept.
func (s *Scanner) filterLiquidity(ctx context.Context, assets []string) ([]string, []string) {
	var kept, skipped []string
	for _, a := range assets {
		candles, err := s.candles.GetCandles(ctx, a, "1d", 30)
		if err != nil || len(candles) == 0 {
			s.logger.Warn().Err(err).Str("asset", a).Msg("Liquidity check failed, keeping asset")
			kept = append(kept, a)
			continue
		}

		var total float64
		for _, c := range candles {
			total += c.Volume * c.Close
		}
		mean := total / float64(len(candles))

		if mean >= s.opts.MinDailyVolumeUSD {
			kept = append(kept, a)
		} else {
			skipped = append(skipped, a)
		}
	}

	s.logger.Info().
		Int("kept", len(kept)).
		Strs("skipped", skipped).
		Float64("min_volume_usd", s.opts.MinDailyVolumeUSD).
		Msg("Liquidity filter applied")
	return kept, skipped
}

func (s *Scanner) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordError(kind)
	}
}

func outcome(r models.SetupResult) string {
	switch {
	case r.Vetoed:
		return "vetoed"
	case r.Category == models.CategoryNone:
		return "none"
	}
	return "alertable"
}
