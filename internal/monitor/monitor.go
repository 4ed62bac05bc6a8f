package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/Alias1177/SetupScanner/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long an open signal is monitored before it expires
const DefaultTTL = 24 * time.Hour

// PriceSource returns the last traded price of a pair
type PriceSource interface {
	GetTicker(ctx context.Context, pair string) (float64, error)
}

// Monitor closes open signals that hit their target, their stop or the TTL
type Monitor struct {
	store  models.SetupStore
	prices PriceSource
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// New creates a monitor. A zero ttl uses DefaultTTL.
func New(store models.SetupStore, prices PriceSource, ttl time.Duration) *Monitor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Monitor{
		store:  store,
		prices: prices,
		ttl:    ttl,
		now:    time.Now,
		logger: log.With().Str("component", "monitor").Logger(),
	}
}

// Evaluate returns the closing status of an open entry at price, or "" when
// it stays open. Shorts mirror longs.
func Evaluate(e models.SetupLog, price float64, now time.Time, ttl time.Duration) string {
	if e.Direction < 0 {
		switch {
		case price <= e.Target:
			return models.StatusTargetHit
		case price >= e.Stop:
			return models.StatusStopHit
		}
	} else {
		switch {
		case price >= e.Target:
			return models.StatusTargetHit
		case price <= e.Stop:
			return models.StatusStopHit
		}
	}

	if now.Sub(e.Timestamp) >= ttl {
		return models.StatusExpired
	}
	return ""
}

// Check evaluates every open entry and persists the ones that closed. It
// returns the closed entries and the number still open. Entries whose price
// can't be fetched stay open until the next cycle, unless they are past the
// TTL: those expire at their entry price.
func (m *Monitor) Check(ctx context.Context) ([]models.SetupLog, int, error) {
	open, err := m.store.OpenEntries(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("loading open entries: %w", err)
	}

	var closed []models.SetupLog
	for _, e := range open {
		now := m.now()
		expired := now.Sub(e.Timestamp) >= m.ttl

		var status string
		price, err := m.prices.GetTicker(ctx, e.Asset)
		switch {
		case err != nil && !expired:
			m.logger.Warn().Err(err).Str("asset", e.Asset).Str("id", e.ID).Msg("Ticker unavailable, keeping signal open")
			continue
		case err != nil:
			// past the TTL the signal closes even without a price
			m.logger.Warn().Err(err).Str("asset", e.Asset).Str("id", e.ID).Msg("Ticker unavailable, expiring signal at entry price")
			price, status = e.Entry, models.StatusExpired
		default:
			status = Evaluate(e, price, now, m.ttl)
		}
		if status == "" {
			continue
		}

		e.Status = status
		e.ExitPrice = price
		e.ClosedAt = now
		if err := m.store.UpdateStatus(ctx, e); err != nil {
			m.logger.Error().Err(err).Str("id", e.ID).Msg("Failed to close signal")
			continue
		}

		m.logger.Info().
			Str("asset", e.Asset).
			Str("id", e.ID).
			Str("status", status).
			Float64("exit", price).
			Dur("duration", now.Sub(e.Timestamp)).
			Msg("Signal closed")
		closed = append(closed, e)
	}

	return closed, len(open) - len(closed), nil
}
