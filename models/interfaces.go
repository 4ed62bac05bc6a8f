package models

import (
	"context"
	"time"
)

type CandleClient interface {
	GetCandles(ctx context.Context, pair, timeframe string, limit int) ([]Candle, error)
	GetTicker(ctx context.Context, pair string) (float64, error)
}

// SetupStore persists alert decisions and tracks open signals
type SetupStore interface {
	Insert(ctx context.Context, entry SetupLog) error
	OpenEntries(ctx context.Context) ([]SetupLog, error)
	UpdateStatus(ctx context.Context, entry SetupLog) error
	Stats(ctx context.Context, since time.Time) (SetupStats, error)
}
