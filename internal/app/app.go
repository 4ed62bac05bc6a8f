package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Alias1177/SetupScanner/internal/alert"
	"github.com/Alias1177/SetupScanner/internal/api/coingecko"
	"github.com/Alias1177/SetupScanner/internal/api/feargreed"
	"github.com/Alias1177/SetupScanner/internal/api/okx"
	"github.com/Alias1177/SetupScanner/internal/api/yahoo"
	"github.com/Alias1177/SetupScanner/internal/calculate"
	"github.com/Alias1177/SetupScanner/internal/config"
	"github.com/Alias1177/SetupScanner/internal/database"
	"github.com/Alias1177/SetupScanner/internal/ledger"
	"github.com/Alias1177/SetupScanner/internal/macro"
	"github.com/Alias1177/SetupScanner/internal/metrics"
	"github.com/Alias1177/SetupScanner/internal/monitor"
	"github.com/Alias1177/SetupScanner/internal/scanner"
	"github.com/Alias1177/SetupScanner/internal/throttle"
	"github.com/Alias1177/SetupScanner/internal/trading/risk"
	"github.com/Alias1177/SetupScanner/models"
	"github.com/rs/zerolog/log"
)

// App holds the wired components of the scanner
type App struct {
	Config     *config.Config
	OKX        *okx.Client
	Macro      *macro.Provider
	Global     *coingecko.Client
	Notifier   alert.Notifier
	Store      models.SetupStore
	Dispatcher *alert.Dispatcher
	Metrics    *metrics.Recorder
	Scanner    *scanner.Scanner

	closers []func() error
}

// New wires every component from cfg. Postgres and Redis are used when
// configured, the CSV ledger and the in-memory throttle otherwise.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New()}

	a.OKX = okx.NewClient(okx.ClientOptions{
		BaseURL:         cfg.OKXBaseURL,
		RequestTimeout:  cfg.RequestTimeout,
		RequestsPerSec:  cfg.RequestsPerSec,
		MaxRetries:      3,
		MaxRetryTimeout: 30 * time.Second,
	})
	a.Macro = macro.NewProvider(
		feargreed.NewClient("", cfg.RequestTimeout),
		yahoo.NewClient(nil),
		a.OKX,
		macro.Options{CacheTTL: macro.DefaultTTL},
	)
	a.Global = coingecko.NewClient("", cfg.RequestTimeout)

	if cfg.TelegramToken != "" {
		n, err := alert.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		a.Notifier = n
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, alerts go to the log")
		a.Notifier = alert.NewLogNotifier()
	}

	if err := a.openStore(cfg); err != nil {
		a.Close()
		return nil, err
	}

	limiter, err := a.openThrottle(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	levels, err := NewLevels(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Dispatcher = alert.NewDispatcher(a.Notifier, limiter, a.Store, levels, a.Metrics, alert.Options{
		Window:    cfg.ThrottleWindow,
		MinScore:  cfg.MinAlertScore,
		PaperMode: cfg.PaperMode,
	})

	a.Scanner = scanner.New(
		a.OKX,
		a.Macro,
		monitor.New(a.Store, a.OKX, cfg.SignalTTL),
		a.Dispatcher,
		a.Global,
		a.Metrics,
		scanner.Options{
			Assets:            cfg.Assets,
			Timeframes:        cfg.Timeframes,
			CandleLimit:       cfg.CandleLimit,
			MaxConcurrency:    cfg.MaxConcurrency,
			Params:            calculate.DefaultParams(),
			LiquidityFilter:   cfg.LiquidityFilter,
			MinDailyVolumeUSD: cfg.MinDailyVolumeUSD,
			MacroSummary:      cfg.MacroSummary,
			StatusReport:      cfg.StatusReport,

			ConfluenceTimeframes: cfg.ConfluenceTimeframes,
		},
	)

	return a, nil
}

// NewLevels builds the alert level calculator with the watchlist overrides
func NewLevels(cfg *config.Config) (*risk.Calculator, error) {
	overrides := make(map[string]risk.Multipliers, len(cfg.RiskOverrides))
	for pair, o := range cfg.RiskOverrides {
		overrides[pair] = risk.Multipliers{StopATR: o.StopATR, TargetATR: o.TargetATR}
	}
	return risk.NewCalculator(overrides)
}

func (a *App) openStore(cfg *config.Config) error {
	if cfg.Postgres.Enabled() {
		db, err := database.New(database.ConnectionParams{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return fmt.Errorf("connecting to Postgres: %w", err)
		}
		a.Store = db
		a.closers = append(a.closers, db.DB.Close)
		log.Info().Str("host", cfg.Postgres.Host).Msg("Setup log stored in Postgres")
		return nil
	}

	l, err := ledger.New(cfg.LedgerPath)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	a.Store = l
	log.Info().Str("file", cfg.LedgerPath).Msg("Setup log stored in CSV ledger")
	return nil
}

func (a *App) openThrottle(ctx context.Context, cfg *config.Config) (throttle.Store, error) {
	if !cfg.Redis.Enabled() {
		return throttle.NewMemoryStore(), nil
	}

	rs, err := throttle.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	if err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}
	a.closers = append(a.closers, rs.Close)
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Alert throttle shared through Redis")
	return rs, nil
}

// Close releases database and Redis connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}
