package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alias1177/SetupScanner/internal/api/coingecko"
	"github.com/Alias1177/SetupScanner/internal/throttle"
	"github.com/Alias1177/SetupScanner/internal/trading/risk"
	"github.com/Alias1177/SetupScanner/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWindow is the minimum gap between two alerts with the same key
	DefaultWindow = 30 * time.Minute
	// StatsWindow is the period summarised in the status report
	StatsWindow = 24 * time.Hour
)

// Recorder counts alert decisions
type Recorder interface {
	RecordAlert(category, status string)
}

// Options configures a Dispatcher
type Options struct {
	Window    time.Duration
	MinScore  float64
	PaperMode bool
}

// Dispatcher turns alertable results into throttled, logged messages
type Dispatcher struct {
	notifier Notifier
	throttle throttle.Store
	store    models.SetupStore
	levels   *risk.Calculator
	metrics  Recorder
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher. metrics may be nil.
func NewDispatcher(n Notifier, t throttle.Store, store models.SetupStore, levels *risk.Calculator, metrics Recorder, opts Options) *Dispatcher {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Dispatcher{
		notifier: n,
		throttle: t,
		store:    store,
		levels:   levels,
		metrics:  metrics,
		opts:     opts,
		now:      time.Now,
		logger:   log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch decides what happens to one result and returns the decision
// status. Results that are not alertable or score below the configured
// minimum return "" and are not recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, result models.SetupResult, snap models.IndicatorSnapshot, macro *models.MacroContext) (string, error) {
	if !result.Alertable() || result.Score < d.opts.MinScore {
		return "", nil
	}

	entry := models.SetupLog{
		ID:        uuid.NewString(),
		Timestamp: d.now().UTC(),
		Asset:     result.Asset,
		Timeframe: result.Timeframe,
		Category:  result.Category,
		Score:     result.Score,
		Regime:    result.Regime,
		Direction: result.Direction,
		Entry:     snap.Close,
	}
	logger := d.logger.With().
		Str("asset", result.Asset).
		Str("timeframe", result.Timeframe).
		Str("category", string(result.Category)).
		Float64("score", result.Score).
		Logger()

	levels, err := d.levels.Levels(result.Asset, snap.Close, snap.ATR, result.Direction)
	if err != nil {
		if !errors.Is(err, risk.ErrRejected) {
			return "", err
		}
		logger.Warn().Err(err).Msg("Alert rejected by pre-send validation")
		return d.record(ctx, entry, models.StatusRejected)
	}
	entry.Entry, entry.Stop, entry.Target = levels.Entry, levels.Stop, levels.Target

	ok, err := d.throttle.Allow(ctx, throttle.Key(result.Asset, string(result.Category)), d.opts.Window)
	if err != nil {
		// a broken throttle store must not silence alerts
		logger.Warn().Err(err).Msg("Throttle store unavailable, sending anyway")
		ok = true
	}
	if !ok {
		logger.Info().Dur("window", d.opts.Window).Msg("Alert throttled")
		return d.record(ctx, entry, models.StatusThrottled)
	}

	text := FormatAlert(Alert{
		Result:    result,
		Snapshot:  snap,
		Levels:    levels,
		Macro:     macro,
		PaperMode: d.opts.PaperMode,
	}, d.now())

	if err := d.notifier.Send(ctx, text); err != nil {
		d.count(result.Category, "failed")
		return "", fmt.Errorf("sending alert for %s %s: %w", result.Asset, result.Timeframe, err)
	}
	d.count(result.Category, models.StatusSent)
	logger.Info().Str("id", entry.ID).Float64("entry", levels.Entry).Float64("stop", levels.Stop).Float64("target", levels.Target).Msg("Alert sent")

	// sent alerts are monitored until they close
	if _, err := d.record(ctx, entry, models.StatusOpen); err != nil {
		return models.StatusSent, err
	}
	return models.StatusSent, nil
}

// NotifyClosed sends the notice of a finished signal
func (d *Dispatcher) NotifyClosed(ctx context.Context, e models.SetupLog) error {
	d.count(e.Category, e.Status)
	return d.notifier.Send(ctx, FormatClosed(e))
}

// SendMacro sends the macro summary. global may be nil.
func (d *Dispatcher) SendMacro(ctx context.Context, m models.MacroContext, global *coingecko.Global) error {
	return d.notifier.Send(ctx, FormatMacro(m, global))
}

// SendStatus sends the report of a cycle without alerts, with the setup log
// counts of the last StatsWindow
func (d *Dispatcher) SendStatus(ctx context.Context, r StatusReport) error {
	if r.Stats == nil {
		stats, err := d.store.Stats(ctx, d.now().Add(-StatsWindow))
		if err != nil {
			d.logger.Warn().Err(err).Msg("Setup stats unavailable")
		} else {
			r.Stats = &stats
		}
	}
	return d.notifier.Send(ctx, FormatStatus(r))
}

func (d *Dispatcher) record(ctx context.Context, entry models.SetupLog, status string) (string, error) {
	entry.Status = status
	if status != models.StatusOpen {
		d.count(entry.Category, status)
	}
	if err := d.store.Insert(ctx, entry); err != nil {
		return status, fmt.Errorf("recording %s alert: %w", status, err)
	}
	return status, nil
}

func (d *Dispatcher) count(category models.SetupCategory, status string) {
	if d.metrics != nil {
		d.metrics.RecordAlert(string(category), status)
	}
}
