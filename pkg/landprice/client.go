// Package landprice provides a client for the MLIT real-estate transaction
// price API (土地総合情報システム TradeListSearch).
package landprice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/kozan-lab/landgain/internal/resilience"
)

// TradeTypeLand is the transaction type for land-only deals (宅地(土地)).
// Deals bundling a building are excluded from comparables because their price
// mixes land and structure.
const TradeTypeLand = "宅地(土地)"

// Trade is one transaction record. All fields arrive as strings from the API.
type Trade struct {
	Type         string `json:"Type"`
	Municipality string `json:"Municipality"`
	DistrictName string `json:"DistrictName"`
	TradePrice   string `json:"TradePrice"`
	Area         string `json:"Area"`
	Period       string `json:"Period"`
	Use          string `json:"Use"`
}

// Locality returns the trade's approximate address (municipality + district).
func (t Trade) Locality() string {
	return t.Municipality + t.DistrictName
}

// PricePerSqm computes the unit price of the trade, or 0 if the record's
// numeric fields don't parse.
func (t Trade) PricePerSqm() float64 {
	price, err := strconv.ParseFloat(strings.TrimSpace(t.TradePrice), 64)
	if err != nil || price <= 0 {
		return 0
	}
	area, err := strconv.ParseFloat(strings.TrimSpace(t.Area), 64)
	if err != nil || area <= 0 {
		return 0
	}
	return price / area
}

// Client queries transaction records.
type Client interface {
	// SearchTrades returns the transactions recorded for a prefecture over
	// the four quarters of year.
	SearchTrades(ctx context.Context, prefCode string, year int) ([]Trade, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a new transaction-price client.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    "https://www.land.mlit.go.jp/webland/api/TradeListSearch",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(2, 2),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.OnRetry = resilience.RetryLogger("landprice", "search")
	return c
}

// searchResponse is the JSON envelope of the TradeListSearch endpoint.
type searchResponse struct {
	Data []Trade `json:"data"`
}

func (c *client) SearchTrades(ctx context.Context, prefCode string, year int) ([]Trade, error) {
	params := url.Values{
		"area": {prefCode},
		"from": {fmt.Sprintf("%d1", year)},
		"to":   {fmt.Sprintf("%d4", year)},
	}
	reqURL := c.baseURL + "?" + params.Encode()

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "landprice: parse response")
	}
	return resp.Data, nil
}

func (c *client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "landprice: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "landprice: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "landprice: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("landprice: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "landprice: read body")
	}
	return body, nil
}
