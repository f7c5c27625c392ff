// Package landprice estimates a per-square-meter land price for a coordinate.
// It prefers the nearest recorded land transaction from the trade listing API
// and falls back to prefecture-wide averages when no comparable exists.
package landprice

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/kozan-lab/landgain/internal/geocode"
	"github.com/kozan-lab/landgain/internal/model"
	"github.com/kozan-lab/landgain/pkg/landprice"
)

// Resolver locates a usable price per square meter for a coordinate.
type Resolver struct {
	client  landprice.Client
	geo     *geocode.Resolver
	regions *RegionTable
	year    int
}

// NewResolver builds a Resolver. year selects the trade survey year queried
// from the listing API.
func NewResolver(client landprice.Client, geo *geocode.Resolver, regions *RegionTable, year int) *Resolver {
	return &Resolver{client: client, geo: geo, regions: regions, year: year}
}

// Resolve returns the best available price observation for the coordinate.
// It never returns a nil observation without an error: when no comparable
// transaction can be located it degrades to the prefecture average, tagged
// with the regional_average provenance.
func (r *Resolver) Resolve(ctx context.Context, coord model.Coordinate) (*model.PriceObservation, error) {
	region := r.regions.FromCoordinate(coord)

	obs, err := r.nearestTrade(ctx, coord, region)
	if err != nil {
		zap.L().Warn("landprice: trade search failed, using regional average",
			zap.String("region", region.Name), zap.Error(err))
	}
	if obs != nil {
		return obs, nil
	}

	return &model.PriceObservation{
		SourceAddress: region.Name,
		PricePerSqm:   region.Average.Commercial,
		SurveyPeriod:  "",
		LandUse:       "commercial",
		Provenance:    model.ProvenanceRegionalAverage,
	}, nil
}

// nearestTrade searches the prefecture's land transactions and returns the
// geographically closest one to coord, or nil when none can be geocoded.
func (r *Resolver) nearestTrade(ctx context.Context, coord model.Coordinate, region Region) (*model.PriceObservation, error) {
	trades, err := r.client.SearchTrades(ctx, region.Code, r.year)
	if err != nil {
		return nil, err
	}

	var (
		best     *model.PriceObservation
		bestDist float64
	)
	for _, t := range trades {
		if t.Type != landprice.TradeTypeLand {
			continue
		}
		price := t.PricePerSqm()
		if price <= 0 {
			continue
		}
		locality := t.Locality()
		if locality == "" {
			continue
		}
		tc, err := r.geo.Resolve(ctx, locality)
		if err != nil {
			return nil, err
		}
		if tc == nil {
			continue
		}
		dist := haversineKM(coord, *tc)
		// Strict less-than keeps the earliest listing on equal distance.
		if best == nil || dist < bestDist {
			d := dist
			best = &model.PriceObservation{
				SourceAddress: locality,
				PricePerSqm:   price,
				DistanceKM:    &d,
				SurveyPeriod:  t.Period,
				LandUse:       t.Use,
				Provenance:    model.ProvenanceComparable,
			}
			bestDist = dist
		}
	}
	return best, nil
}

const earthRadiusKM = 6371.0

// haversineKM returns the great-circle distance between two coordinates.
func haversineKM(a, b model.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
