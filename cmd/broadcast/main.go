package main

import (
	"context"
	"time"

	"github.com/Alias1177/SetupScanner/internal/alert"
	"github.com/Alias1177/SetupScanner/internal/api/coingecko"
	"github.com/Alias1177/SetupScanner/internal/api/feargreed"
	"github.com/Alias1177/SetupScanner/internal/api/okx"
	"github.com/Alias1177/SetupScanner/internal/api/yahoo"
	"github.com/Alias1177/SetupScanner/internal/config"
	"github.com/Alias1177/SetupScanner/internal/logger"
	"github.com/Alias1177/SetupScanner/internal/macro"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Initialize notifier
	var notifier alert.Notifier
	if cfg.TelegramToken != "" {
		n, err := alert.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
		}
		notifier = n
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, printing the summary to the log")
		notifier = alert.NewLogNotifier()
	}

	client := okx.NewClient(okx.ClientOptions{
		BaseURL:        cfg.OKXBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
		MaxRetries:     3,
	})
	provider := macro.NewProvider(feargreed.NewClient("", cfg.RequestTimeout), yahoo.NewClient(nil), client, macro.Options{})
	m := provider.Context(ctx)

	var global *coingecko.Global
	if g, err := coingecko.NewClient("", cfg.RequestTimeout).Global(ctx); err != nil {
		log.Warn().Err(err).Msg("Global market data unavailable")
	} else {
		global = &g
	}

	if err := notifier.Send(ctx, alert.FormatMacro(m, global)); err != nil {
		log.Fatal().Err(err).Msg("Failed to broadcast macro summary")
	}
	log.Info().Int64("chat_id", cfg.TelegramChatID).Strs("degraded", m.Degraded).Msg("Macro summary sent")
}
