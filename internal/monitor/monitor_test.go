package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Alias1177/SetupScanner/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opened = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type memStore struct {
	entries []models.SetupLog
}

func (s *memStore) Insert(ctx context.Context, e models.SetupLog) error {
	s.entries = append(s.entries, e)
	return nil
}

func (s *memStore) OpenEntries(ctx context.Context) ([]models.SetupLog, error) {
	var out []models.SetupLog
	for _, e := range s.entries {
		if e.IsOpen() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, e models.SetupLog) error {
	for i := range s.entries {
		if s.entries[i].ID == e.ID {
			s.entries[i] = e
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memStore) Stats(ctx context.Context, since time.Time) (models.SetupStats, error) {
	var stats models.SetupStats
	for _, e := range s.entries {
		stats.Add(e.Status, 1)
	}
	return stats, nil
}

type prices map[string]float64

func (p prices) GetTicker(ctx context.Context, pair string) (float64, error) {
	v, ok := p[pair]
	if !ok {
		return 0, errors.New("no ticker")
	}
	return v, nil
}

func long(id string) models.SetupLog {
	return models.SetupLog{ID: id, Timestamp: opened, Asset: "BTC/USDT", Status: models.StatusOpen, Direction: 1, Entry: 100, Stop: 95, Target: 110}
}

func TestEvaluate(t *testing.T) {
	short := models.SetupLog{Timestamp: opened, Direction: -1, Entry: 100, Stop: 105, Target: 90}

	tests := []struct {
		name  string
		entry models.SetupLog
		price float64
		age   time.Duration
		want  string
	}{
		{"long target", long("a"), 110, time.Hour, models.StatusTargetHit},
		{"long stop", long("a"), 94, time.Hour, models.StatusStopHit},
		{"long open", long("a"), 101, time.Hour, ""},
		{"long expired", long("a"), 101, 24 * time.Hour, models.StatusExpired},
		{"target wins over expiry", long("a"), 111, 30 * time.Hour, models.StatusTargetHit},
		{"short target", short, 89, time.Hour, models.StatusTargetHit},
		{"short stop", short, 105, time.Hour, models.StatusStopHit},
		{"short open", short, 99, time.Hour, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.entry, tt.price, opened.Add(tt.age), DefaultTTL))
		})
	}
}

func TestCheck(t *testing.T) {
	store := &memStore{}
	hit := long("hit")
	stays := long("stays")
	stays.Asset = "ETH/USDT"
	unknown := long("unknown")
	unknown.Asset = "SOL/USDT"
	done := long("done")
	done.Status = models.StatusStopHit
	for _, e := range []models.SetupLog{hit, stays, unknown, done} {
		store.Insert(context.Background(), e)
	}

	m := New(store, prices{"BTC/USDT": 112, "ETH/USDT": 100}, 0)
	m.now = func() time.Time { return opened.Add(2 * time.Hour) }

	closed, stillOpen, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stillOpen)
	require.Len(t, closed, 1)
	assert.Equal(t, "hit", closed[0].ID)
	assert.Equal(t, models.StatusTargetHit, closed[0].Status)
	assert.Equal(t, 112.0, closed[0].ExitPrice)
	assert.Equal(t, opened.Add(2*time.Hour), closed[0].ClosedAt)

	open, _ := store.OpenEntries(context.Background())
	assert.Len(t, open, 2)
}

func TestCheckExpiresWithoutTicker(t *testing.T) {
	store := &memStore{}
	stale := long("stale")
	stale.Asset = "SOL/USDT"
	fresh := long("fresh")
	fresh.Asset = "SOL/USDT"
	fresh.Timestamp = opened.Add(20 * time.Hour)
	store.Insert(context.Background(), stale)
	store.Insert(context.Background(), fresh)

	m := New(store, prices{}, 0)
	m.now = func() time.Time { return opened.Add(DefaultTTL + time.Hour) }

	closed, stillOpen, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stillOpen, "fresh signal waits for the ticker")
	require.Len(t, closed, 1)
	assert.Equal(t, "stale", closed[0].ID)
	assert.Equal(t, models.StatusExpired, closed[0].Status)
	assert.Equal(t, stale.Entry, closed[0].ExitPrice)

	stats, _ := store.Stats(context.Background(), time.Time{})
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 1, stats.Open)
}
