package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Alias1177/SetupScanner/internal/alert"
	"github.com/Alias1177/SetupScanner/internal/api/feargreed"
	"github.com/Alias1177/SetupScanner/internal/api/okx"
	"github.com/Alias1177/SetupScanner/internal/api/yahoo"
	"github.com/Alias1177/SetupScanner/internal/app"
	"github.com/Alias1177/SetupScanner/internal/config"
	"github.com/Alias1177/SetupScanner/internal/logger"
	"github.com/Alias1177/SetupScanner/internal/macro"
	"github.com/Alias1177/SetupScanner/internal/scanner"
	"github.com/Alias1177/SetupScanner/models"
	"github.com/rs/zerolog/log"
)

func main() {
	asset := flag.String("asset", "BTC/USDT", "pair to analyze")
	timeframe := flag.String("timeframe", "1h", "candle timeframe")
	noMacro := flag.Bool("no-macro", false, "skip macro sources and use neutral values")
	flag.Parse()

	tf := strings.ToLower(*timeframe)
	if _, err := models.TimeframeDuration(tf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}

	// 3. Setup API clients
	client := okx.NewClient(okx.ClientOptions{
		BaseURL:         cfg.OKXBaseURL,
		RequestTimeout:  cfg.RequestTimeout,
		RequestsPerSec:  cfg.RequestsPerSec,
		MaxRetries:      3,
		MaxRetryTimeout: 30 * time.Second,
	})

	mc := models.MacroContext{
		FearGreed:     macro.NeutralFearGreed,
		VIXPercentile: macro.NeutralVIX,
		FetchedAt:     time.Now(),
	}
	if !*noMacro {
		provider := macro.NewProvider(feargreed.NewClient("", cfg.RequestTimeout), yahoo.NewClient(nil), client, macro.Options{})
		mc = provider.Context(ctx)
	}

	// 4. Evaluate without dispatching
	s := scanner.New(client, nil, nil, nil, nil, nil, scanner.Options{CandleLimit: cfg.CandleLimit})
	ev, err := s.Evaluate(ctx, strings.ToUpper(*asset), tf, mc)
	if err != nil {
		log.Fatal().Err(err).Str("asset", *asset).Str("timeframe", *timeframe).Msg("Evaluation failed")
	}

	printSnapshot(ev.Snapshot)
	printMacro(mc)
	printResult(ev.Result)
	printLevels(cfg, ev)
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
	}()
}

// printSnapshot outputs the indicator readings
func printSnapshot(s models.IndicatorSnapshot) {
	fmt.Println("\n===== INDICATORS =====")
	fmt.Printf("%s %s at %s | Close: %.4f\n", s.Asset, s.Timeframe, s.Timestamp.UTC().Format(time.RFC3339), s.Close)
	fmt.Printf("EMA9: %.4f | EMA21: %.4f | EMA50: %.4f | EMA200: %.4f\n", *s.EMA9, *s.EMA21, s.EMA50, *s.EMA200)
	fmt.Printf("RSI: %.2f", *s.RSI)
	if s.RSIPrev != nil {
		fmt.Printf(" (prev %.2f)", *s.RSIPrev)
	}
	fmt.Printf(" | MACD hist: %.5f | ADX: %.2f\n", *s.MACDHist, *s.ADX)
	fmt.Printf("Volume ratio: %.2f | OBV above mean: %t | ATR: %.4f\n", *s.VolumeRatio, s.OBVAboveMean, s.ATR)
	fmt.Printf("Supertrend: %s | EMA21 slope: %+d\n", s.Supertrend, s.EMASlopeSign)
	fmt.Printf("Reversal candle: %t | Strong candle: %t\n", s.ReversalCandle, s.StrongCandle)
}

func printMacro(m models.MacroContext) {
	fmt.Println("\n===== MACRO =====")
	fmt.Printf("Fear & Greed: %.0f %s | VIX percentile: %.0f | BTC/S&P corr: %+.2f\n",
		m.FearGreed, m.FearGreedLabel, m.VIXPercentile, m.BTCSPCorrelation)
	if len(m.Degraded) > 0 {
		fmt.Printf("Neutral fallback: %s\n", strings.Join(m.Degraded, ", "))
	}
}

// printResult outputs the regime, category and factor breakdown
func printResult(r models.SetupResult) {
	fmt.Println("\n===== SETUP =====")
	fmt.Printf("Regime: %s | Category: %s | Score: %.1f (raw %.1f)\n", r.Regime, r.Category, r.Score, r.RawScore)
	side := "long"
	if r.Direction < 0 {
		side = "short"
	}
	fmt.Printf("Direction: %s | Vetoed: %t | %s\n", side, r.Vetoed, alert.ScoreVisual(r.Score))

	fmt.Println("\nFactors:")
	for _, f := range r.Factors {
		mark := " "
		if f.Fired {
			mark = "x"
		}
		fmt.Printf("[%s] %-20s %5.1f / %-5.1f %s\n", mark, f.Name, f.Points, f.Max, f.Detail)
	}
}

func printLevels(cfg *config.Config, ev scanner.Evaluation) {
	if !ev.Result.Alertable() {
		return
	}

	calc, err := app.NewLevels(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Invalid risk overrides")
		return
	}

	fmt.Println("\n===== LEVELS =====")
	l, err := calc.Levels(ev.Result.Asset, ev.Snapshot.Close, ev.Snapshot.ATR, ev.Result.Direction)
	if err != nil {
		fmt.Printf("Rejected: %v\n", err)
		return
	}
	fmt.Printf("Entry: %.4f | Stop: %.4f | Target: %.4f | R:R %.2f\n", l.Entry, l.Stop, l.Target, l.RewardRisk)
	fmt.Println(alert.TradingViewLink(ev.Result.Asset))
}
