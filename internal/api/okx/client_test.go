package okx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Alias1177/SetupScanner/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// candleRows builds n rows newest first, the newest one still forming
func candleRows(n int) [][]string {
	rows := make([][]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		ts := start.Add(time.Duration(i) * time.Hour).UnixMilli()
		price := 60000 + float64(i)*10
		confirm := "1"
		if i == n-1 {
			confirm = "0"
		}
		rows = append(rows, []string{
			fmt.Sprint(ts),
			fmt.Sprintf("%.1f", price),
			fmt.Sprintf("%.1f", price+50),
			fmt.Sprintf("%.1f", price-50),
			fmt.Sprintf("%.1f", price+5),
			"12.5", "750000", "750000", confirm,
		})
	}
	return rows
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Client {
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewClient(ClientOptions{BaseURL: srv.URL, RequestTimeout: 2 * time.Second, RequestsPerSec: 100, MaxRetries: 1})
}

func writeData(w http.ResponseWriter, data interface{}) {
	json.NewEncoder(w).Encode(map[string]interface{}{"code": "0", "msg": "", "data": data})
}

func TestGetCandles(t *testing.T) {
	rows := candleRows(150)
	rows[10][2] = "1" // high below low

	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/candles", r.URL.Path)
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		assert.Equal(t, "4H", r.URL.Query().Get("bar"))
		assert.Equal(t, "150", r.URL.Query().Get("limit"))
		writeData(w, rows)
	})

	candles, err := client.GetCandles(context.Background(), "BTC/USDT", "4h", 150)
	require.NoError(t, err)
	assert.Len(t, candles, 148)
	for i := 1; i < len(candles); i++ {
		assert.True(t, candles[i].Time.After(candles[i-1].Time), "candles must be sorted oldest first")
	}
	assert.Equal(t, start, candles[0].Time)
	assert.Equal(t, 60005.0, candles[0].Close)
}

func TestGetCandlesInsufficient(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, candleRows(50))
	})

	_, err := client.GetCandles(context.Background(), "ETH/USDT", "1h", 300)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestGetCandlesAPIError(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51001","msg":"Instrument ID does not exist","data":[]}`))
	})

	_, err := client.GetCandles(context.Background(), "XXX/USDT", "1h", 300)
	assert.ErrorContains(t, err, "51001")
}

func TestGetCandlesUnsupportedTimeframe(t *testing.T) {
	client := NewClient(ClientOptions{})
	_, err := client.GetCandles(context.Background(), "BTC/USDT", "3d", 100)
	assert.ErrorContains(t, err, "unsupported timeframe")
}

func TestGetTicker(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/market/ticker", r.URL.Path)
		writeData(w, []map[string]string{{"instId": "ETH-USDT", "last": "3120.55"}})
	})

	price, err := client.GetTicker(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.Equal(t, 3120.55, price)
}

func TestClean(t *testing.T) {
	t0 := start
	candles := []models.Candle{
		{Time: t0, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1},
		{Time: t0, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1},
		{Time: t0.Add(time.Hour), Open: 10, High: 9, Low: 11, Close: 10, Volume: 1},
		{Time: t0.Add(2 * time.Hour), Open: 10, High: 11, Low: 9, Close: 10, Volume: 0},
		{Time: t0.Add(3 * time.Hour), Open: 10, High: 11, Low: 9, Close: 12, Volume: 1},
		{Time: t0.Add(4 * time.Hour), Open: 10, High: 11, Low: 9, Close: 10, Volume: 3},
	}

	cleaned := Clean(candles)
	require.Len(t, cleaned, 2)
	assert.Equal(t, t0, cleaned[0].Time)
	assert.Equal(t, t0.Add(4*time.Hour), cleaned[1].Time)
}

func TestInstrumentAndBar(t *testing.T) {
	assert.Equal(t, "BTC-USDT", InstrumentID("btc/usdt"))

	bar, err := Bar("1d")
	require.NoError(t, err)
	assert.Equal(t, "1Dutc", bar)
}
