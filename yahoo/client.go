// Package yahoo is a minimal client for the Yahoo Finance chart API,
// providing current quotes and historical bars for ticker symbols.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public Yahoo Finance query endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrNoData is returned when the API has no price data for a symbol, the
// symbol is unknown, or a requested range is empty.
var ErrNoData = errors.New("no price data")

// Client is a Yahoo Finance chart API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. baseURL may be empty to use the public
// endpoint; tests point it at a local server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// HistoryRequest represents parameters for fetching historical bars.
type HistoryRequest struct {
	Symbol   string    // Required: ticker symbol (e.g. "AAPL")
	From     time.Time // Start of the range (inclusive)
	To       time.Time // End of the range (exclusive)
	Interval string    // Bar interval (e.g. "1d", "1wk"); default "1d"
}

// Bar is a single OHLCV bar.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// chart API response shapes. OHLCV slots are pointers because the API
// returns null for halted or missing intervals.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quoteData `json:"quote"`
	} `json:"indicators"`
}

type quoteData struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GetPrice fetches the current price for symbol. It prefers the regular
// market price from the chart metadata and falls back to the latest close
// of the day. No usable value yields ErrNoData.
func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("symbol is required")
	}

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	result, err := c.chart(ctx, symbol, params)
	if err != nil {
		return decimal.Zero, err
	}

	if p := result.Meta.RegularMarketPrice; p > 0 {
		return decimal.NewFromFloat(p), nil
	}
	for _, q := range result.Indicators.Quote {
		for i := len(q.Close) - 1; i >= 0; i-- {
			if q.Close[i] != nil && *q.Close[i] > 0 {
				return decimal.NewFromFloat(*q.Close[i]), nil
			}
		}
	}
	return decimal.Zero, fmt.Errorf("price for %s: %w", symbol, ErrNoData)
}

// GetHistory fetches historical bars for the requested symbol and range.
// Intervals with null quote data are skipped. An empty result yields
// ErrNoData.
func (c *Client) GetHistory(ctx context.Context, req HistoryRequest) ([]Bar, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if req.Interval == "" {
		req.Interval = "1d"
	}

	params := url.Values{}
	params.Set("interval", req.Interval)
	if !req.From.IsZero() {
		params.Set("period1", fmt.Sprintf("%d", req.From.Unix()))
	}
	if !req.To.IsZero() {
		params.Set("period2", fmt.Sprintf("%d", req.To.Unix()))
	}

	result, err := c.chart(ctx, req.Symbol, params)
	if err != nil {
		return nil, err
	}
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("history for %s: %w", req.Symbol, ErrNoData)
	}

	q := result.Indicators.Quote[0]
	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		bar := Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			bar.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			bar.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			bar.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("history for %s: %w", req.Symbol, ErrNoData)
	}
	return bars, nil
}

// chart performs a chart API request and returns the first result.
func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	apiURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Yahoo rejects Go's default agent string.
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (compatible; papertrade/1.0)")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	// Unknown symbols come back as 404 with a chart error payload.
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("symbol %s: %w", symbol, ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s: %w",
			apiResp.Chart.Error.Code, apiResp.Chart.Error.Description, ErrNoData)
	}
	if len(apiResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("symbol %s: %w", symbol, ErrNoData)
	}
	return &apiResp.Chart.Result[0], nil
}
