package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Alias1177/SetupScanner/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var header = []string{
	"id", "created_at", "asset", "timeframe", "category", "score", "regime", "status",
	"direction", "entry", "stop", "target", "rr_ratio",
	"closed_at", "exit_price", "roi_pct", "duration_hours",
}

// ErrNotFound is returned when updating an unknown or already closed entry
var ErrNotFound = errors.New("ledger entry not found")

// Ledger is a CSV file store of setup log entries
type Ledger struct {
	mu     sync.Mutex
	path   string
	logger zerolog.Logger
}

// New opens the ledger at path, creating the file with a header when missing
func New(path string) (*Ledger, error) {
	l := &Ledger{
		path:   path,
		logger: log.With().Str("component", "ledger").Logger(),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := l.writeAll(nil); err != nil {
			return nil, err
		}
		l.logger.Info().Str("file", path).Msg("Ledger created")
	} else if err != nil {
		return nil, err
	}

	return l, nil
}

// NewID returns a fresh entry identifier
func NewID() string {
	return uuid.NewString()
}

// Insert appends one entry
func (l *Ledger) Insert(ctx context.Context, e models.SetupLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(toRecord(e)); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}

	l.logger.Debug().Str("id", e.ID).Str("asset", e.Asset).Str("status", e.Status).Msg("Entry recorded")
	return nil
}

// OpenEntries returns the entries still being monitored
func (l *Ledger) OpenEntries(ctx context.Context) ([]models.SetupLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.readAll()
	if err != nil {
		return nil, err
	}

	var open []models.SetupLog
	for _, e := range entries {
		if e.IsOpen() {
			open = append(open, e)
		}
	}
	return open, nil
}

// All returns every entry in file order
func (l *Ledger) All(ctx context.Context) ([]models.SetupLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAll()
}

// Stats counts the entries created since the given time by status
func (l *Ledger) Stats(ctx context.Context, since time.Time) (models.SetupStats, error) {
	entries, err := l.All(ctx)
	if err != nil {
		return models.SetupStats{}, err
	}

	var stats models.SetupStats
	for _, e := range entries {
		if !e.Timestamp.Before(since) {
			stats.Add(e.Status, 1)
		}
	}
	return stats, nil
}

// UpdateStatus closes an open entry, rewriting the file
func (l *Ledger) UpdateStatus(ctx context.Context, e models.SetupLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.readAll()
	if err != nil {
		return err
	}

	found := false
	for i := range entries {
		if entries[i].ID != e.ID || !entries[i].IsOpen() {
			continue
		}
		entries[i].Status = e.Status
		entries[i].ClosedAt = e.ClosedAt
		if entries[i].ClosedAt.IsZero() {
			entries[i].ClosedAt = time.Now().UTC()
		}
		entries[i].ExitPrice = e.ExitPrice
		found = true
		break
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, e.ID)
	}

	return l.writeAll(entries)
}

func (l *Ledger) readAll() ([]models.SetupLog, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	var entries []models.SetupLog
	for i, rec := range records {
		if i == 0 {
			continue
		}
		e, err := fromRecord(rec)
		if err != nil {
			l.logger.Warn().Err(err).Int("line", i+1).Msg("Skipping malformed ledger row")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// writeAll replaces the file through a temp file and rename
func (l *Ledger) writeAll(entries []models.SetupLog) error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	w.Write(header)
	for _, e := range entries {
		w.Write(toRecord(e))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), l.path)
}

func toRecord(e models.SetupLog) []string {
	rec := []string{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Asset,
		e.Timeframe,
		string(e.Category),
		formatFloat(e.Score, 2),
		string(e.Regime),
		e.Status,
		strconv.Itoa(e.Direction),
		formatFloat(e.Entry, 8),
		formatFloat(e.Stop, 8),
		formatFloat(e.Target, 8),
		formatFloat(rewardRisk(e), 2),
		"", "", "", "",
	}

	if !e.ClosedAt.IsZero() {
		rec[13] = e.ClosedAt.UTC().Format(time.RFC3339)
		rec[14] = formatFloat(e.ExitPrice, 8)
		rec[15] = formatFloat(ROI(e), 2)
		rec[16] = formatFloat(e.ClosedAt.Sub(e.Timestamp).Hours(), 1)
	}
	return rec
}

func fromRecord(rec []string) (models.SetupLog, error) {
	if len(rec) != len(header) {
		return models.SetupLog{}, fmt.Errorf("expected %d columns, got %d", len(header), len(rec))
	}

	var e models.SetupLog
	var err error

	e.ID = rec[0]
	if e.Timestamp, err = time.Parse(time.RFC3339, rec[1]); err != nil {
		return e, err
	}
	e.Asset = rec[2]
	e.Timeframe = rec[3]
	e.Category = models.SetupCategory(rec[4])
	e.Regime = models.Regime(rec[6])
	e.Status = rec[7]
	if e.Direction, err = strconv.Atoi(rec[8]); err != nil {
		return e, err
	}

	floats := map[int]*float64{5: &e.Score, 9: &e.Entry, 10: &e.Stop, 11: &e.Target}
	for col, dst := range floats {
		if *dst, err = strconv.ParseFloat(rec[col], 64); err != nil {
			return e, fmt.Errorf("column %s: %w", header[col], err)
		}
	}

	if rec[13] != "" {
		if e.ClosedAt, err = time.Parse(time.RFC3339, rec[13]); err != nil {
			return e, err
		}
		if e.ExitPrice, err = strconv.ParseFloat(rec[14], 64); err != nil {
			return e, err
		}
	}
	return e, nil
}

// ROI is the signed percent return of a closed entry
func ROI(e models.SetupLog) float64 {
	if e.Entry == 0 || e.ExitPrice == 0 {
		return 0
	}
	dir := float64(e.Direction)
	if dir == 0 {
		dir = 1
	}
	return dir * (e.ExitPrice - e.Entry) / e.Entry * 100
}

func rewardRisk(e models.SetupLog) float64 {
	risk := math.Abs(e.Entry - e.Stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(e.Target-e.Entry) / risk
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
