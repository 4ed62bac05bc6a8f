package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Alias1177/SetupScanner/models"
	_ "github.com/lib/pq"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the setup log table if it doesn't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS setup_log (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			asset TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			category TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			regime TEXT NOT NULL,
			status TEXT NOT NULL,
			direction SMALLINT NOT NULL DEFAULT 0,
			entry_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			stop_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			target_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			closed_at TIMESTAMPTZ,
			exit_price DOUBLE PRECISION
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS setup_log_status_idx ON setup_log (status)`)
	return err
}

// Insert stores one alert decision
func (db *DB) Insert(ctx context.Context, e models.SetupLog) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO setup_log (
			id, created_at, asset, timeframe, category, score, regime, status,
			direction, entry_price, stop_price, target_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		e.ID, e.Timestamp, e.Asset, e.Timeframe, string(e.Category), e.Score, string(e.Regime), e.Status,
		e.Direction, e.Entry, e.Stop, e.Target)
	if err != nil {
		return fmt.Errorf("insert setup %s: %w", e.ID, err)
	}
	return nil
}

// OpenEntries returns the signals still being monitored, oldest first
func (db *DB) OpenEntries(ctx context.Context) ([]models.SetupLog, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			id, created_at, asset, timeframe, category, score, regime, status,
			direction, entry_price, stop_price, target_price
		FROM setup_log
		WHERE status = $1
		ORDER BY created_at
	`, models.StatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.SetupLog
	for rows.Next() {
		var e models.SetupLog
		var category, regime string
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Asset, &e.Timeframe, &category, &e.Score, &regime, &e.Status,
			&e.Direction, &e.Entry, &e.Stop, &e.Target,
		); err != nil {
			return nil, err
		}
		e.Category = models.SetupCategory(category)
		e.Regime = models.Regime(regime)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// UpdateStatus records the final status of a monitored signal
func (db *DB) UpdateStatus(ctx context.Context, e models.SetupLog) error {
	closedAt := e.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now()
	}

	res, err := db.ExecContext(ctx, `
		UPDATE setup_log
		SET status = $1, closed_at = $2, exit_price = $3
		WHERE id = $4 AND status = $5
	`, e.Status, closedAt, e.ExitPrice, e.ID, models.StatusOpen)
	if err != nil {
		return fmt.Errorf("update setup %s: %w", e.ID, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update setup %s: no open entry", e.ID)
	}
	return nil
}

// Stats counts the entries created since the given time by status
func (db *DB) Stats(ctx context.Context, since time.Time) (models.SetupStats, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM setup_log
		WHERE created_at >= $1
		GROUP BY status
	`, since)
	if err != nil {
		return models.SetupStats{}, fmt.Errorf("setup stats: %w", err)
	}
	defer rows.Close()

	var stats models.SetupStats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return models.SetupStats{}, err
		}
		stats.Add(status, n)
	}
	return stats, rows.Err()
}
