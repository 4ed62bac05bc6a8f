package okx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	httpClient "github.com/Alias1177/SetupScanner/internal/platform/http"
	"github.com/Alias1177/SetupScanner/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://www.okx.com"
	// MaxLimit is the largest page the candles endpoint returns
	MaxLimit = 300
	// MinUsableCandles below this many clean candles a series is rejected
	MinUsableCandles = 100
)

// ErrInsufficientData is returned when too few valid candles remain after cleaning
var ErrInsufficientData = errors.New("insufficient market data")

var bars = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "1H",
	"2h":  "2H",
	"4h":  "4H",
	"1d":  "1Dutc",
}

// Client is the OKX public market data client
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new OKX client
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new OKX API client
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = defaultBaseURL
	}
	// Public endpoints allow 20 requests per 2 seconds
	if options.RequestsPerSec == 0 {
		options.RequestsPerSec = 8
	}

	return &Client{
		baseURL: strings.TrimRight(options.BaseURL, "/"),
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetries:      options.MaxRetries,
			MaxRetryTimeout: options.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "okx_client").Logger(),
	}
}

// InstrumentID converts a pair like BTC/USDT to the OKX id BTC-USDT
func InstrumentID(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", "-"))
}

// Bar maps a timeframe to the OKX bar parameter
func Bar(timeframe string) (string, error) {
	bar, ok := bars[strings.ToLower(timeframe)]
	if !ok {
		return "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	return bar, nil
}

type response struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	c.logger.Debug().Str("url", endpoint).Msg("Requesting OKX")

	var resp response
	if err := c.httpClient.GetJSON(ctx, endpoint, &resp); err != nil {
		return err
	}
	if resp.Code != "0" {
		c.logger.Error().Str("code", resp.Code).Str("msg", resp.Msg).Msg("OKX API error")
		return fmt.Errorf("OKX API error %s: %s", resp.Code, resp.Msg)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("parsing OKX data: %w", err)
	}
	return nil
}

// GetCandles fetches confirmed candles, oldest first, cleaned of invalid rows
func (c *Client) GetCandles(ctx context.Context, pair, timeframe string, limit int) ([]models.Candle, error) {
	bar, err := Bar(timeframe)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	params := url.Values{}
	params.Set("instId", InstrumentID(pair))
	params.Set("bar", bar)
	params.Set("limit", strconv.Itoa(limit))

	var rows [][]string
	if err := c.get(ctx, "/api/v5/market/candles", params, &rows); err != nil {
		return nil, fmt.Errorf("fetching %s %s candles: %w", pair, timeframe, err)
	}

	candles := make([]models.Candle, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		candle, confirmed, err := parseCandle(row)
		if err != nil {
			skipped++
			continue
		}
		// The forming candle is not part of the closed series
		if !confirmed {
			continue
		}
		candles = append(candles, candle)
	}

	// Sort candles by time (oldest first for proper calculations)
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	cleaned := Clean(candles)
	skipped += len(candles) - len(cleaned)
	if skipped > 0 {
		c.logger.Warn().Str("pair", pair).Str("timeframe", timeframe).Int("skipped", skipped).Msg("Dropped invalid candles")
	}

	minimum := MinUsableCandles
	if limit < minimum {
		// Short requests (daily closes for macro data) only need some rows
		minimum = 1
	}
	if len(cleaned) < minimum {
		return nil, fmt.Errorf("%w: %s %s returned %d usable candles", ErrInsufficientData, pair, timeframe, len(cleaned))
	}

	c.logger.Debug().Str("pair", pair).Str("timeframe", timeframe).Int("count", len(cleaned)).Msg("Fetched candles")
	return cleaned, nil
}

// GetTicker returns the last traded price
func (c *Client) GetTicker(ctx context.Context, pair string) (float64, error) {
	params := url.Values{}
	params.Set("instId", InstrumentID(pair))

	var tickers []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	}
	if err := c.get(ctx, "/api/v5/market/ticker", params, &tickers); err != nil {
		return 0, fmt.Errorf("fetching %s ticker: %w", pair, err)
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("empty ticker for %s", pair)
	}

	price, err := strconv.ParseFloat(tickers[0].Last, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("invalid last price %q for %s", tickers[0].Last, pair)
	}
	return price, nil
}

// parseCandle reads [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]
func parseCandle(row []string) (models.Candle, bool, error) {
	if len(row) < 6 {
		return models.Candle{}, false, fmt.Errorf("short candle row: %d fields", len(row))
	}

	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, false, fmt.Errorf("bad timestamp %q: %w", row[0], err)
	}

	values := make([]float64, 5)
	for i := range values {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return models.Candle{}, false, fmt.Errorf("bad value %q: %w", row[i+1], err)
		}
		values[i] = v
	}

	confirmed := true
	if len(row) >= 9 {
		confirmed = row[8] == "1"
	}

	return models.Candle{
		Time:   time.UnixMilli(ms).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, confirmed, nil
}

// Clean drops candles with inverted ranges, non-positive prices or volume,
// non-finite values and duplicate timestamps. Input must be sorted.
func Clean(candles []models.Candle) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for i, c := range candles {
		if i > 0 && c.Time.Equal(candles[i-1].Time) {
			continue
		}
		if !finite(c.Open, c.High, c.Low, c.Close, c.Volume) {
			continue
		}
		if c.High < c.Low || c.Low <= 0 || c.Volume <= 0 {
			continue
		}
		if c.Close > c.High || c.Close < c.Low || c.Open > c.High || c.Open < c.Low {
			continue
		}
		out = append(out, c)
	}
	return out
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
