package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

// nominatimResult is one entry of the Nominatim search response. Coordinates
// arrive as strings.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// geocodeNominatim geocodes an address using a Nominatim instance, restricted
// to Japan.
func (g *geocoder) geocodeNominatim(ctx context.Context, address string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":            {address},
		"format":       {"json"},
		"countrycodes": {"jp"},
		"limit":        {"1"},
	}
	reqURL := g.nominatimURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	if g.nominatimUA != "" {
		req.Header.Set("User-Agent", g.nominatimUA)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}

	if len(results) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		return nil, eris.Errorf("geocode: nominatim returned malformed coordinates %q,%q", results[0].Lat, results[0].Lon)
	}

	return &Result{
		Latitude:  lat,
		Longitude: lng,
		Source:    "nominatim",
		Matched:   true,
	}, nil
}
