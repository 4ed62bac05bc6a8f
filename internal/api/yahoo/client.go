package yahoo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Index symbols used for the macro context
const (
	SymbolVIX   = "^VIX"
	SymbolSP500 = "^GSPC"
)

// Bar is one daily close
type Bar struct {
	Time  time.Time
	Close decimal.Decimal
}

// Fetcher loads daily bars of a symbol between start and end
type Fetcher func(symbol string, start, end time.Time) ([]Bar, error)

// Client reads daily index closes from Yahoo Finance
type Client struct {
	fetch  Fetcher
	now    func() time.Time
	logger zerolog.Logger
}

// NewClient creates a client; a nil fetcher uses the Yahoo chart API
func NewClient(fetch Fetcher) *Client {
	if fetch == nil {
		fetch = fetchChart
	}
	return &Client{
		fetch:  fetch,
		now:    time.Now,
		logger: log.With().Str("component", "yahoo_client").Logger(),
	}
}

func fetchChart(symbol string, start, end time.Time) ([]Bar, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	var bars []Bar
	iter := chart.Get(params)
	for iter.Next() {
		b := iter.Bar()
		bars = append(bars, Bar{
			Time:  time.Unix(int64(b.Timestamp), 0).UTC(),
			Close: b.Close,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// DailyCloses returns the daily closes of the last days calendar days,
// oldest first. The fetch itself cannot be cancelled, the wait can.
func (c *Client) DailyCloses(ctx context.Context, symbol string, days int) ([]Bar, error) {
	end := c.now().UTC()
	start := end.AddDate(0, 0, -days)

	type result struct {
		bars []Bar
		err  error
	}
	done := make(chan result, 1)
	go func() {
		bars, err := c.fetch(symbol, start, end)
		done <- result{bars, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("fetching %s chart: %w", symbol, res.err)
	}

	bars := make([]Bar, 0, len(res.bars))
	for _, b := range res.bars {
		// Yahoo pads holidays with empty closes
		if b.Close.IsPositive() {
			bars = append(bars, b)
		}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no %s closes between %s and %s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	c.logger.Debug().Str("symbol", symbol).Int("count", len(bars)).Msg("Fetched daily closes")
	return bars, nil
}
