package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Alias1177/SetupScanner/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	host := os.Getenv("DB_HOST")
	if host == "" {
		t.Skip("DB_HOST not set, skipping Postgres integration test")
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	db, err := New(ConnectionParams{
		Host:     host,
		Port:     port,
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.DB.Close() })
	return db
}

func TestSetupLogLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	entry := models.SetupLog{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Asset:     "BTC/USDT",
		Timeframe: "4h",
		Category:  models.CategoryMomentum,
		Score:     72.5,
		Regime:    models.RegimeTrending,
		Status:    models.StatusOpen,
		Direction: 1,
		Entry:     60000,
		Stop:      59400,
		Target:    61250,
	}
	require.NoError(t, db.Insert(ctx, entry))

	open, err := db.OpenEntries(ctx)
	require.NoError(t, err)

	var found *models.SetupLog
	for i := range open {
		if open[i].ID == entry.ID {
			found = &open[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, models.CategoryMomentum, found.Category)
	assert.Equal(t, 61250.0, found.Target)

	entry.Status = models.StatusTargetHit
	entry.ExitPrice = 61300
	require.NoError(t, db.UpdateStatus(ctx, entry))

	// closed entries can't be closed twice
	assert.Error(t, db.UpdateStatus(ctx, entry))

	stats, err := db.Stats(ctx, entry.Timestamp)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TargetHit, 1)
	assert.GreaterOrEqual(t, stats.Alerts(), 1)
}
