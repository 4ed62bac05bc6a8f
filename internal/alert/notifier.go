package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notifier delivers rendered messages
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// sender is the part of tgbotapi.BotAPI the notifier uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends Markdown messages to one chat
type TelegramNotifier struct {
	bot        sender
	chatID     int64
	maxRetries uint64
	logger     zerolog.Logger
}

// NewTelegramNotifier connects the bot and checks the token
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing Telegram bot: %w", err)
	}

	n := newTelegramNotifier(bot, chatID)
	n.logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", chatID).Msg("Telegram notifier ready")
	return n, nil
}

func newTelegramNotifier(bot sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		bot:        bot,
		chatID:     chatID,
		maxRetries: 3,
		logger:     log.With().Str("component", "telegram").Logger(),
	}
}

// Send implements Notifier. Rate limit answers are retried after the
// advertised delay, other API errors are not retried.
func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	operation := func() error {
		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}

		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			if apiErr.RetryAfter > 0 {
				n.logger.Warn().Int("retry_after", apiErr.RetryAfter).Msg("Telegram rate limit hit")
				select {
				case <-time.After(time.Duration(apiErr.RetryAfter) * time.Second):
				case <-ctx.Done():
					return backoff.Permanent(ctx.Err())
				}
				return err
			}
			return backoff.Permanent(err)
		}
		return err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = 500 * time.Millisecond
	strategy.MaxElapsedTime = time.Minute

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(strategy, n.maxRetries), ctx)); err != nil {
		n.logger.Error().Err(err).Msg("Failed to send Telegram message")
		return fmt.Errorf("sending Telegram message: %w", err)
	}
	return nil
}

// LogNotifier writes messages to the log instead of Telegram
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier used when no bot token is configured
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: log.With().Str("component", "notifier").Logger()}
}

// Send implements Notifier
func (n *LogNotifier) Send(ctx context.Context, text string) error {
	n.logger.Info().Str("mode", "simulated").Msg("Telegram message:\n" + text)
	return nil
}
