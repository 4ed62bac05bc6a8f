package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alias1177/SetupScanner/internal/app"
	"github.com/Alias1177/SetupScanner/internal/config"
	"github.com/Alias1177/SetupScanner/internal/logger"
	"github.com/Alias1177/SetupScanner/internal/scanner"
	"github.com/rs/zerolog/log"
)

func main() {
	once := flag.Bool("once", false, "run a single scan cycle and exit")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
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
	log.Info().Msg("Starting Setup Scanner")
	printConfig(cfg)

	// 3. Wire components
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scanner")
	}
	defer a.Close()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := a.Metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// 4. Single cycle mode for external schedulers
	if *once {
		report, err := a.Scanner.RunCycle(ctx)
		if err != nil {
			a.Close()
			os.Exit(1)
		}
		for _, w := range report.Warnings {
			log.Debug().Str("warning", w.String()).Msg("Cycle warning")
		}
		return
	}

	// 5. Daemon mode
	runner, err := scanner.NewRunner(ctx, a.Scanner, cfg.Schedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule scanner")
	}
	runner.Start()

	<-ctx.Done()
	runner.Stop()
	log.Info().Msg("Setup Scanner stopped")
}

// setupSignalHandling cancels ctx on SIGINT/SIGTERM so running cycles can finish
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, stopping...")
		cancel()
	}()
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config) {
	log.Info().
		Strs("Assets", cfg.Assets).
		Strs("Timeframes", cfg.Timeframes).
		Int("CandleLimit", cfg.CandleLimit).
		Str("Schedule", cfg.Schedule).
		Dur("ThrottleWindow", cfg.ThrottleWindow).
		Float64("MinAlertScore", cfg.MinAlertScore).
		Bool("LiquidityFilter", cfg.LiquidityFilter).
		Bool("MacroSummary", cfg.MacroSummary).
		Bool("PaperMode", cfg.PaperMode).
		Bool("Telegram", cfg.TelegramToken != "").
		Bool("Postgres", cfg.Postgres.Enabled()).
		Bool("Redis", cfg.Redis.Enabled()).
		Msg("Configuration loaded")
}
