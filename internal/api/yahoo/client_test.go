package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyCloses(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var gotSymbol string
	var gotStart, gotEnd time.Time

	client := NewClient(func(symbol string, start, end time.Time) ([]Bar, error) {
		gotSymbol, gotStart, gotEnd = symbol, start, end
		return []Bar{
			{Time: day.AddDate(0, 0, 2), Close: decimal.NewFromFloat(14.2)},
			{Time: day, Close: decimal.NewFromFloat(13.1)},
			{Time: day.AddDate(0, 0, 1), Close: decimal.Zero},
		}, nil
	})
	client.now = func() time.Time { return day.AddDate(0, 0, 3) }

	bars, err := client.DailyCloses(context.Background(), SymbolVIX, 30)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, day, bars[0].Time)
	assert.True(t, bars[1].Close.Equal(decimal.NewFromFloat(14.2)))

	assert.Equal(t, SymbolVIX, gotSymbol)
	assert.Equal(t, 30*24*time.Hour, gotEnd.Sub(gotStart))
}

func TestDailyClosesErrors(t *testing.T) {
	failing := NewClient(func(string, time.Time, time.Time) ([]Bar, error) {
		return nil, errors.New("yahoo down")
	})
	_, err := failing.DailyCloses(context.Background(), SymbolSP500, 10)
	assert.ErrorContains(t, err, "yahoo down")

	empty := NewClient(func(string, time.Time, time.Time) ([]Bar, error) {
		return nil, nil
	})
	_, err = empty.DailyCloses(context.Background(), SymbolSP500, 10)
	assert.ErrorContains(t, err, "no ^GSPC closes")

	blocked := make(chan struct{})
	defer close(blocked)
	slow := NewClient(func(string, time.Time, time.Time) ([]Bar, error) {
		<-blocked
		return nil, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = slow.DailyCloses(ctx, SymbolVIX, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
