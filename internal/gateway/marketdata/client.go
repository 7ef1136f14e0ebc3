// Package marketdata reads the wallet service's coin proxy: trending and
// top coins, per-coin detail, historical charts and keyword search. All
// endpoints are public and read-only.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	requestTimeout      = 10 * time.Second
	rateLimitRetryAfter = 60 * time.Second

	// The upstream market-data provider allows roughly 30 calls/minute on
	// the free tier; the proxy inherits that budget.
	requestsPerSecond = 0.5
	requestBurst      = 5
)

// Client represents a market-data API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new market-data client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

// GetTrendingCoins fetches the currently trending coins
func (c *Client) GetTrendingCoins(ctx context.Context) (*TrendingResponse, error) {
	var resp TrendingResponse
	if err := c.get(ctx, "/coins/trending", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTopCoins fetches the top coins by market capitalization
func (c *Client) GetTopCoins(ctx context.Context) ([]CoinMarket, error) {
	var coins []CoinMarket
	if err := c.get(ctx, "/coins/top50", &coins); err != nil {
		return nil, err
	}
	return coins, nil
}

// GetCoinDetails fetches full detail for one coin, including its current
// USD price
func (c *Client) GetCoinDetails(ctx context.Context, coinID string) (*CoinDetails, error) {
	var details CoinDetails
	path := fmt.Sprintf("/coins/details/%s", url.PathEscape(coinID))
	if err := c.get(ctx, path, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetMarketChart fetches the price history of a coin over the given number
// of days
func (c *Client) GetMarketChart(ctx context.Context, coinID string, days int) (*MarketChart, error) {
	var chart MarketChart
	path := fmt.Sprintf("/coins/%s/chart?days=%s", url.PathEscape(coinID), strconv.Itoa(days))
	if err := c.get(ctx, path, &chart); err != nil {
		return nil, err
	}
	return &chart, nil
}

// SearchCoins searches coins by keyword
func (c *Client) SearchCoins(ctx context.Context, keyword string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("q", keyword)

	var resp SearchResponse
	if err := c.get(ctx, "/coins/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentPriceUSD is a convenience wrapper returning just the USD spot
// price of one coin.
func (c *Client) CurrentPriceUSD(ctx context.Context, coinID string) (float64, error) {
	details, err := c.GetCoinDetails(ctx, coinID)
	if err != nil {
		return 0, err
	}
	price, ok := details.MarketData.CurrentPrice["usd"]
	if !ok {
		return 0, fmt.Errorf("USD price not found for %s", coinID)
	}
	return price, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			RetryAfter: rateLimitRetryAfter,
			Message:    "market data API rate limit exceeded",
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// RateLimitError represents a rate limit rejection from the market-data API
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	_, ok := err.(*RateLimitError)
	return ok
}
