package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/SetupScanner/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(asset string, status string) models.SetupLog {
	return models.SetupLog{
		ID:        NewID(),
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Asset:     asset,
		Timeframe: "1h",
		Category:  models.CategoryConservative,
		Score:     85,
		Regime:    models.RegimeTrending,
		Status:    status,
		Direction: 1,
		Entry:     100,
		Stop:      98,
		Target:    105,
	}
}

func TestLedgerLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ledger.csv")
	l, err := New(path)
	require.NoError(t, err)

	ctx := context.Background()
	open := sampleEntry("BTC/USDT", models.StatusOpen)
	require.NoError(t, l.Insert(ctx, open))
	require.NoError(t, l.Insert(ctx, sampleEntry("ETH/USDT", models.StatusThrottled)))

	entries, err := l.OpenEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, open, entries[0])

	closed := open
	closed.Status = models.StatusTargetHit
	closed.ExitPrice = 105.5
	closed.ClosedAt = open.Timestamp.Add(6 * time.Hour)
	require.NoError(t, l.UpdateStatus(ctx, closed))

	entries, err = l.OpenEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	all, err := l.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.StatusTargetHit, all[0].Status)
	assert.Equal(t, 105.5, all[0].ExitPrice)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,created_at,asset"))
	assert.Contains(t, lines[1], ",2.50,") // reward:risk
	assert.Contains(t, lines[1], ",5.50,6.0")

	err = l.UpdateStatus(ctx, closed)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLedgerReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	l, err := New(path)
	require.NoError(t, err)
	require.NoError(t, l.Insert(context.Background(), sampleEntry("BTC/USDT", models.StatusOpen)))

	l2, err := New(path)
	require.NoError(t, err)
	entries, err := l2.OpenEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestROI(t *testing.T) {
	long := models.SetupLog{Entry: 100, ExitPrice: 110, Direction: 1}
	short := models.SetupLog{Entry: 100, ExitPrice: 110, Direction: -1}
	assert.InDelta(t, 10, ROI(long), 1e-9)
	assert.InDelta(t, -10, ROI(short), 1e-9)
	assert.Zero(t, ROI(models.SetupLog{}))
}

func TestLedgerStats(t *testing.T) {
	l, err := New(filepath.Join(t.TempDir(), "ledger.csv"))
	require.NoError(t, err)
	ctx := context.Background()

	old := sampleEntry("BTC/USDT", models.StatusStopHit)
	old.Timestamp = old.Timestamp.Add(-48 * time.Hour)
	for _, e := range []models.SetupLog{
		old,
		sampleEntry("BTC/USDT", models.StatusTargetHit),
		sampleEntry("ETH/USDT", models.StatusStopHit),
		sampleEntry("ETH/USDT", models.StatusOpen),
		sampleEntry("ETH/USDT", models.StatusThrottled),
	} {
		require.NoError(t, l.Insert(ctx, e))
	}

	stats, err := l.Stats(ctx, sampleEntry("", "").Timestamp.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.SetupStats{Throttled: 1, Open: 1, TargetHit: 1, StopHit: 1}, stats)
	assert.Equal(t, 3, stats.Alerts())
	assert.Equal(t, 50.0, stats.WinRate())
}
