// Package edinet provides a client for the EDINET v2 disclosure document API.
package edinet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/kozan-lab/landgain/internal/resilience"
)

// DocTypeAnnualReport is the docTypeCode for 有価証券報告書 (annual securities
// report), the only document type this tool reads.
const DocTypeAnnualReport = "120"

// Download formats accepted by the documents endpoint.
const (
	FormatZIP = 1 // XBRL/HTML archive
	FormatPDF = 2
)

// Document is one entry from the daily document listing.
type Document struct {
	DocID       string `json:"docID"`
	EDINETCode  string `json:"edinetCode"`
	SecCode     string `json:"secCode"`
	FilerName   string `json:"filerName"`
	DocTypeCode string `json:"docTypeCode"`
	PeriodEnd   string `json:"periodEnd"`
	SubmitDate  string `json:"submitDateTime"`
}

// Client lists and downloads disclosure documents.
type Client interface {
	// ListDocuments returns the annual-report entries filed on the given date.
	ListDocuments(ctx context.Context, date time.Time) ([]Document, error)

	// DownloadDocument fetches a document's bytes in the given format.
	DownloadDocument(ctx context.Context, docID string, format int) ([]byte, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the API base URL (used in tests).
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
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates an EDINET client authenticated by the subscription key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		baseURL:    "https://api.edinet-fsa.go.jp/api/v2",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(2, 2),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.OnRetry = resilience.RetryLogger("edinet", "request")
	return c
}

// listResponse is the JSON envelope of the documents.json endpoint.
type listResponse struct {
	Metadata struct {
		Status string `json:"status"`
	} `json:"metadata"`
	Results []Document `json:"results"`
}

func (c *client) ListDocuments(ctx context.Context, date time.Time) ([]Document, error) {
	params := url.Values{
		"date":             {date.Format("2006-01-02")},
		"type":             {"2"}, // metadata only
		"Subscription-Key": {c.apiKey},
	}
	reqURL := c.baseURL + "/documents.json?" + params.Encode()

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "edinet: parse document list")
	}
	if resp.Metadata.Status != "200" {
		return nil, eris.Errorf("edinet: list returned status %s", resp.Metadata.Status)
	}

	var filtered []Document
	for _, doc := range resp.Results {
		if doc.DocTypeCode == DocTypeAnnualReport {
			filtered = append(filtered, doc)
		}
	}
	return filtered, nil
}

func (c *client) DownloadDocument(ctx context.Context, docID string, format int) ([]byte, error) {
	params := url.Values{
		"type":             {fmt.Sprintf("%d", format)},
		"Subscription-Key": {c.apiKey},
	}
	reqURL := c.baseURL + "/documents/" + url.PathEscape(docID) + "?" + params.Encode()

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
}

// get performs one rate-limited GET, classifying retryable status codes as
// transient.
func (c *client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "edinet: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "edinet: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "edinet: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("edinet: status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "edinet: read body")
	}
	return body, nil
}
