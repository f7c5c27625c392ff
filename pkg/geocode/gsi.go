package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
)

// gsiFeature is one entry of the GSI address-search GeoJSON response.
// Coordinates are [longitude, latitude].
type gsiFeature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Title string `json:"title"`
	} `json:"properties"`
}

// geocodeGSI geocodes an address using the GSI address-search API.
func (g *geocoder) geocodeGSI(ctx context.Context, address string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: gsi rate limit")
	}

	params := url.Values{"q": {address}}
	reqURL := g.gsiURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: gsi build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: gsi request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: gsi returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: gsi read body")
	}

	var features []gsiFeature
	if err := json.Unmarshal(body, &features); err != nil {
		return nil, eris.Wrap(err, "geocode: gsi parse response")
	}

	if len(features) == 0 || len(features[0].Geometry.Coordinates) < 2 {
		return &Result{Matched: false, Source: "gsi"}, nil
	}

	coords := features[0].Geometry.Coordinates
	return &Result{
		Latitude:  coords[1],
		Longitude: coords[0],
		Source:    "gsi",
		Matched:   true,
	}, nil
}
