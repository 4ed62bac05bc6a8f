package feargreed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	httpClient "github.com/Alias1177/SetupScanner/internal/platform/http"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.alternative.me"

// Index is one Fear & Greed reading
type Index struct {
	Value          float64
	Classification string
	Timestamp      time.Time
}

// Client reads the crypto Fear & Greed index from alternative.me
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// NewClient creates a Fear & Greed client; an empty baseURL uses the public API
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
		logger: log.With().Str("component", "feargreed_client").Logger(),
	}
}

type fngResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error interface{} `json:"error"`
	} `json:"metadata"`
}

// Latest returns the current index value
func (c *Client) Latest(ctx context.Context) (Index, error) {
	var resp fngResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/fng/?limit=1", &resp); err != nil {
		return Index{}, fmt.Errorf("fetching fear & greed: %w", err)
	}
	if resp.Metadata.Error != nil {
		return Index{}, fmt.Errorf("fear & greed API error: %v", resp.Metadata.Error)
	}
	if len(resp.Data) == 0 {
		return Index{}, fmt.Errorf("fear & greed: empty data")
	}

	d := resp.Data[0]
	value, err := strconv.ParseFloat(d.Value, 64)
	if err != nil || value < 0 || value > 100 {
		return Index{}, fmt.Errorf("fear & greed: invalid value %q", d.Value)
	}

	idx := Index{Value: value, Classification: d.ValueClassification}
	if sec, err := strconv.ParseInt(d.Timestamp, 10, 64); err == nil {
		idx.Timestamp = time.Unix(sec, 0).UTC()
	}

	c.logger.Debug().Float64("value", idx.Value).Str("classification", idx.Classification).Msg("Fetched fear & greed")
	return idx, nil
}
