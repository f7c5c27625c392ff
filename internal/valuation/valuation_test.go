package valuation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozan-lab/landgain/internal/cache"
	igeocode "github.com/kozan-lab/landgain/internal/geocode"
	ilandprice "github.com/kozan-lab/landgain/internal/landprice"
	"github.com/kozan-lab/landgain/internal/model"
	"github.com/kozan-lab/landgain/pkg/geocode"
	"github.com/kozan-lab/landgain/pkg/landprice"
)

type fakeGeo struct {
	coords map[string]*geocode.Result
	calls  int
}

func (f *fakeGeo) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	f.calls++
	if r, ok := f.coords[address]; ok {
		return r, nil
	}
	return &geocode.Result{Matched: false}, nil
}

type noTrades struct{ calls int }

func (n *noTrades) SearchTrades(context.Context, string, int) ([]landprice.Trade, error) {
	n.calls++
	return nil, nil
}

// newTestValuer wires a valuer whose price lookups always land on the
// default regional average of 300000 yen per square meter.
func newTestValuer(t *testing.T, geo geocode.Client, trades landprice.Client) *Valuer {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	regions, err := ilandprice.LoadRegions()
	require.NoError(t, err)

	geoResolver := igeocode.NewResolver(geo, store)
	priceResolver := ilandprice.NewResolver(trades, geoResolver, regions, 2024)
	return NewValuer(geoResolver, priceResolver)
}

// Sapporo sits outside every prefecture box, forcing the default average.
var sapporoGeo = &fakeGeo{coords: map[string]*geocode.Result{
	"北海道札幌市中央区北1条": {Latitude: 43.06, Longitude: 141.35, Matched: true},
}}

func TestValueOwnedProperty(t *testing.T) {
	v := newTestValuer(t, sapporoGeo, &noTrades{})

	rec, err := v.Value(context.Background(), model.PropertyRecord{
		Name:          "本社",
		Ownership:     model.OwnershipOwned,
		Address:       "北海道札幌市中央区北1条",
		LandAreaSqm:   model.Float(2500),
		BookValueMYen: model.Float(150),
	})
	require.NoError(t, err)

	require.NotNil(t, rec.EstimatedValueMYen)
	assert.Equal(t, float64(750), *rec.EstimatedValueMYen)
	require.NotNil(t, rec.UnrealizedGainMYen)
	assert.Equal(t, float64(600), *rec.UnrealizedGainMYen)
	assert.Equal(t, model.ProvenanceRegionalAverage, rec.Method)
	require.NotNil(t, rec.PricePerSqmUsed)
	assert.Equal(t, float64(300000), *rec.PricePerSqmUsed)
}

func TestValueLeasedPropertySkipsLookup(t *testing.T) {
	geo := &fakeGeo{}
	trades := &noTrades{}
	v := newTestValuer(t, geo, trades)

	rec, err := v.Value(context.Background(), model.PropertyRecord{
		Name:          "賃借オフィス",
		Ownership:     model.OwnershipLeased,
		Address:       "東京都港区",
		LandAreaSqm:   model.Float(800),
		BookValueMYen: model.Float(90),
	})
	require.NoError(t, err)

	assert.Nil(t, rec.EstimatedValueMYen)
	require.NotNil(t, rec.UnrealizedGainMYen)
	assert.Zero(t, *rec.UnrealizedGainMYen)
	assert.Equal(t, NoteLeased, rec.Notes)
	assert.Zero(t, geo.calls)
	assert.Zero(t, trades.calls)
}

func TestValueMissingAddress(t *testing.T) {
	v := newTestValuer(t, &fakeGeo{}, &noTrades{})

	rec, err := v.Value(context.Background(), model.PropertyRecord{
		Ownership:   model.OwnershipOwned,
		LandAreaSqm: model.Float(1000),
	})
	require.NoError(t, err)
	assert.Nil(t, rec.EstimatedValueMYen)
	assert.Nil(t, rec.UnrealizedGainMYen)
	assert.Equal(t, NoteNoAddress, rec.Notes)
}

func TestValueMissingLandArea(t *testing.T) {
	v := newTestValuer(t, sapporoGeo, &noTrades{})

	rec, err := v.Value(context.Background(), model.PropertyRecord{
		Ownership: model.OwnershipOwned,
		Address:   "北海道札幌市中央区北1条",
	})
	require.NoError(t, err)
	assert.Nil(t, rec.EstimatedValueMYen)
	assert.Nil(t, rec.UnrealizedGainMYen)
	assert.Equal(t, NoteNoLandArea, rec.Notes)
}

func TestValueGeocodeFailure(t *testing.T) {
	v := newTestValuer(t, &fakeGeo{}, &noTrades{})

	rec, err := v.Value(context.Background(), model.PropertyRecord{
		Ownership:   model.OwnershipOwned,
		Address:     "解読不能な住所",
		LandAreaSqm: model.Float(1000),
	})
	require.NoError(t, err)
	assert.Nil(t, rec.EstimatedValueMYen)
	assert.Nil(t, rec.UnrealizedGainMYen)
	assert.Equal(t, NoteGeocodeFailed, rec.Notes)
}

func TestValueNilBookValueTreatedAsZero(t *testing.T) {
	v := newTestValuer(t, sapporoGeo, &noTrades{})

	rec, err := v.Value(context.Background(), model.PropertyRecord{
		Ownership:   model.OwnershipOwned,
		Address:     "北海道札幌市中央区北1条",
		LandAreaSqm: model.Float(1000),
	})
	require.NoError(t, err)
	require.NotNil(t, rec.EstimatedValueMYen)
	assert.Equal(t, float64(300), *rec.EstimatedValueMYen)
	require.NotNil(t, rec.UnrealizedGainMYen)
	assert.Equal(t, float64(300), *rec.UnrealizedGainMYen)
}

func TestValuePortfolioSumsOnlyKnownValues(t *testing.T) {
	v := newTestValuer(t, sapporoGeo, &noTrades{})

	pf, err := v.ValuePortfolio(context.Background(), []model.PropertyRecord{
		{
			Ownership:     model.OwnershipOwned,
			Address:       "北海道札幌市中央区北1条",
			LandAreaSqm:   model.Float(2500),
			BookValueMYen: model.Float(150),
		},
		{
			Ownership:     model.OwnershipLeased,
			Address:       "東京都港区",
			BookValueMYen: model.Float(40),
		},
		{
			Ownership:   model.OwnershipOwned,
			LandAreaSqm: model.Float(9999),
		},
	})
	require.NoError(t, err)

	require.Len(t, pf.Properties, 3)
	assert.Equal(t, float64(190), pf.TotalBookValueMYen)
	assert.Equal(t, float64(750), pf.TotalEstimatedValueMYen)
	assert.Equal(t, float64(600), pf.TotalUnrealizedGainMYen)
}
