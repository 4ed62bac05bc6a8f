package coingecko

import (
	"context"
	"fmt"
	"strings"
	"time"

	httpClient "github.com/Alias1177/SetupScanner/internal/platform/http"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.coingecko.com"

// Global is the total crypto market snapshot
type Global struct {
	MarketCapUSD    float64
	MarketCapChange float64 // 24h percent
	BTCDominance    float64 // percent
}

// Client reads global market data from the public CoinGecko API
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// NewClient creates a CoinGecko client; an empty baseURL uses the public API
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         timeout,
			RequestsPerSec:  1,
			MaxRetries:      2,
			MaxRetryTimeout: 10 * time.Second,
		}),
		logger: log.With().Str("component", "coingecko_client").Logger(),
	}
}

type globalResponse struct {
	Data struct {
		TotalMarketCap                  map[string]float64 `json:"total_market_cap"`
		MarketCapPercentage             map[string]float64 `json:"market_cap_percentage"`
		MarketCapChangePercentage24hUSD float64            `json:"market_cap_change_percentage_24h_usd"`
	} `json:"data"`
}

// Global returns total market cap and BTC dominance
func (c *Client) Global(ctx context.Context) (Global, error) {
	var resp globalResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/api/v3/global", &resp); err != nil {
		return Global{}, fmt.Errorf("fetching global market data: %w", err)
	}

	capUSD, ok := resp.Data.TotalMarketCap["usd"]
	if !ok || capUSD <= 0 {
		return Global{}, fmt.Errorf("global market data: missing usd market cap")
	}
	dominance, ok := resp.Data.MarketCapPercentage["btc"]
	if !ok {
		return Global{}, fmt.Errorf("global market data: missing btc dominance")
	}

	g := Global{
		MarketCapUSD:    capUSD,
		MarketCapChange: resp.Data.MarketCapChangePercentage24hUSD,
		BTCDominance:    dominance,
	}
	c.logger.Debug().Float64("market_cap", g.MarketCapUSD).Float64("btc_dominance", g.BTCDominance).Msg("Fetched global market data")
	return g, nil
}
