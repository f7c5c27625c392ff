package landprice

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozan-lab/landgain/internal/cache"
	igeocode "github.com/kozan-lab/landgain/internal/geocode"
	"github.com/kozan-lab/landgain/internal/model"
	"github.com/kozan-lab/landgain/pkg/geocode"
	"github.com/kozan-lab/landgain/pkg/landprice"
)

type fakeTrades struct {
	trades []landprice.Trade
	err    error
	areas  []string
}

func (f *fakeTrades) SearchTrades(_ context.Context, area string, _ int) ([]landprice.Trade, error) {
	f.areas = append(f.areas, area)
	return f.trades, f.err
}

type fakeGeo struct {
	coords map[string]*geocode.Result
}

func (f *fakeGeo) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	if r, ok := f.coords[address]; ok {
		return r, nil
	}
	return &geocode.Result{Matched: false}, nil
}

func newTestResolver(t *testing.T, trades landprice.Client, geo geocode.Client) *Resolver {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	regions, err := LoadRegions()
	require.NoError(t, err)
	return NewResolver(trades, igeocode.NewResolver(geo, store), regions, 2024)
}

func TestLoadRegions(t *testing.T) {
	regions, err := LoadRegions()
	require.NoError(t, err)
	assert.NotEmpty(t, regions.Regions)
	assert.Equal(t, float64(300000), regions.Default.Average.Commercial)
}

func TestRegionFromCoordinate(t *testing.T) {
	regions, err := LoadRegions()
	require.NoError(t, err)

	tokyo := regions.FromCoordinate(model.Coordinate{Lat: 35.68, Lng: 139.75})
	assert.Equal(t, "13", tokyo.Code)

	osaka := regions.FromCoordinate(model.Coordinate{Lat: 34.69, Lng: 135.50})
	assert.Equal(t, "27", osaka.Code)

	// Sapporo: outside every box.
	other := regions.FromCoordinate(model.Coordinate{Lat: 43.06, Lng: 141.35})
	assert.Equal(t, "その他", other.Name)
}

func TestResolvePicksNearestComparable(t *testing.T) {
	trades := &fakeTrades{trades: []landprice.Trade{
		{Type: landprice.TradeTypeLand, Municipality: "千代田区", DistrictName: "丸の内", TradePrice: "1000000000", Area: "500", Period: "2024年第1四半期", Use: "商業地"},
		{Type: landprice.TradeTypeLand, Municipality: "八王子市", DistrictName: "旭町", TradePrice: "100000000", Area: "500", Period: "2024年第1四半期", Use: "住宅地"},
		{Type: "中古マンション等", Municipality: "千代田区", DistrictName: "丸の内", TradePrice: "90000000", Area: "50"},
	}}
	geo := &fakeGeo{coords: map[string]*geocode.Result{
		"千代田区丸の内": {Latitude: 35.681, Longitude: 139.765, Matched: true},
		"八王子市旭町":  {Latitude: 35.657, Longitude: 139.338, Matched: true},
	}}
	r := newTestResolver(t, trades, geo)

	obs, err := r.Resolve(context.Background(), model.Coordinate{Lat: 35.68, Lng: 139.76})
	require.NoError(t, err)

	assert.Equal(t, model.ProvenanceComparable, obs.Provenance)
	assert.Equal(t, "千代田区丸の内", obs.SourceAddress)
	assert.InDelta(t, 2000000, obs.PricePerSqm, 1e-9)
	require.NotNil(t, obs.DistanceKM)
	assert.Less(t, *obs.DistanceKM, 1.0)
	assert.Equal(t, []string{"13"}, trades.areas)
}

func TestResolveFallsBackToRegionalAverage(t *testing.T) {
	trades := &fakeTrades{} // no trades at all
	r := newTestResolver(t, trades, &fakeGeo{})

	obs, err := r.Resolve(context.Background(), model.Coordinate{Lat: 35.68, Lng: 139.75})
	require.NoError(t, err)

	assert.Equal(t, model.ProvenanceRegionalAverage, obs.Provenance)
	assert.InDelta(t, 2500000, obs.PricePerSqm, 1e-9)
	assert.Nil(t, obs.DistanceKM)
}

func TestResolveFallsBackWhenSearchFails(t *testing.T) {
	trades := &fakeTrades{err: errors.New("status 503")}
	r := newTestResolver(t, trades, &fakeGeo{})

	obs, err := r.Resolve(context.Background(), model.Coordinate{Lat: 34.69, Lng: 135.50})
	require.NoError(t, err)

	assert.Equal(t, model.ProvenanceRegionalAverage, obs.Provenance)
	assert.InDelta(t, 1200000, obs.PricePerSqm, 1e-9)
}

func TestResolveFallsBackWhenNoTradeGeocodes(t *testing.T) {
	trades := &fakeTrades{trades: []landprice.Trade{
		{Type: landprice.TradeTypeLand, Municipality: "千代田区", DistrictName: "丸の内", TradePrice: "1000000000", Area: "500"},
	}}
	r := newTestResolver(t, trades, &fakeGeo{}) // geocoder matches nothing

	obs, err := r.Resolve(context.Background(), model.Coordinate{Lat: 35.68, Lng: 139.75})
	require.NoError(t, err)
	assert.Equal(t, model.ProvenanceRegionalAverage, obs.Provenance)
}

func TestHaversine(t *testing.T) {
	tokyo := model.Coordinate{Lat: 35.6812, Lng: 139.7671}
	osaka := model.Coordinate{Lat: 34.7025, Lng: 135.4959}

	// Tokyo Station to Osaka Station is roughly 400 km.
	d := haversineKM(tokyo, osaka)
	assert.InDelta(t, 400, d, 10)

	assert.Zero(t, haversineKM(tokyo, tokyo))
}
