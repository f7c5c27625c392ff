// Package geocode provides address geocoding via the GSI address search
// (primary) and Nominatim (fallback).
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes Japanese addresses.
type Client interface {
	// Geocode resolves a single address. An unmatched address is not an
	// error: the returned Result has Matched=false.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "gsi" or "nominatim"
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL overrides the GSI address-search endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(g *geocoder) { g.gsiURL = u }
}

// WithNominatim enables the Nominatim fallback at the given endpoint.
// contact is sent as the User-Agent, per the service's usage policy.
func WithNominatim(baseURL, contact string) Option {
	return func(g *geocoder) {
		g.nominatimURL = baseURL
		g.nominatimUA = contact
	}
}

// WithHTTPClient sets a custom HTTP client for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) { g.httpClient = hc }
}

// WithRateLimit sets the requests-per-second rate limit shared by both
// providers.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type geocoder struct {
	gsiURL       string
	nominatimURL string
	nominatimUA  string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		gsiURL:     "https://msearch.gsi.go.jp/address-search/AddressSearch",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode tries GSI first, then Nominatim if configured.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	result, gsiErr := g.geocodeGSI(ctx, address)
	if gsiErr == nil && result.Matched {
		return result, nil
	}

	if g.nominatimURL != "" {
		nomResult, nomErr := g.geocodeNominatim(ctx, address)
		if nomErr == nil && nomResult.Matched {
			return nomResult, nil
		}
	}

	// No match from any provider — not an error, just unmatched.
	return &Result{Matched: false}, nil
}
