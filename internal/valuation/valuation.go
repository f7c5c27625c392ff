// Package valuation turns extracted property records into market value
// estimates. Estimates are in millions of yen, rounded to whole millions.
package valuation

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/kozan-lab/landgain/internal/geocode"
	"github.com/kozan-lab/landgain/internal/landprice"
	"github.com/kozan-lab/landgain/internal/model"
)

// Notes attached to records that could not be fully valued.
const (
	NoteLeased        = "賃貸物件のため評価対象外"
	NoteNoAddress     = "住所情報なし"
	NoteNoLandArea    = "土地面積情報なし"
	NoteGeocodeFailed = "住所の位置を特定できず"
)

// Valuer estimates market value for individual properties and portfolios.
type Valuer struct {
	geo    *geocode.Resolver
	prices *landprice.Resolver
}

// NewValuer builds a Valuer over the geocoding and land price resolvers.
func NewValuer(geo *geocode.Resolver, prices *landprice.Resolver) *Valuer {
	return &Valuer{geo: geo, prices: prices}
}

// Value estimates one property. Leased properties carry a zero gain by
// definition; properties missing an address or land area, or whose address
// cannot be located, keep all value fields unset. Both carry an explanatory
// note and no price lookup is performed for them.
func (v *Valuer) Value(ctx context.Context, p model.PropertyRecord) (model.ValuationRecord, error) {
	rec := model.ValuationRecord{Property: p}

	if p.Ownership == model.OwnershipLeased {
		rec.UnrealizedGainMYen = model.Float(0)
		rec.Notes = NoteLeased
		return rec, nil
	}
	if p.Address == "" {
		rec.Notes = NoteNoAddress
		return rec, nil
	}
	if p.LandAreaSqm == nil || *p.LandAreaSqm <= 0 {
		rec.Notes = NoteNoLandArea
		return rec, nil
	}

	coord, err := v.geo.Resolve(ctx, p.Address)
	if err != nil {
		return rec, err
	}
	if coord == nil {
		rec.Notes = NoteGeocodeFailed
		return rec, nil
	}

	obs, err := v.prices.Resolve(ctx, *coord)
	if err != nil {
		return rec, err
	}

	estimated := math.Round(*p.LandAreaSqm * obs.PricePerSqm / 1e6)
	book := 0.0
	if p.BookValueMYen != nil {
		book = *p.BookValueMYen
	}
	gain := estimated - book

	rec.EstimatedValueMYen = model.Float(estimated)
	rec.UnrealizedGainMYen = model.Float(gain)
	rec.PricePerSqmUsed = model.Float(obs.PricePerSqm)
	rec.Method = obs.Provenance

	zap.L().Debug("valuation: property valued",
		zap.String("property", p.Name),
		zap.Float64("estimated_m_yen", estimated),
		zap.Float64("gain_m_yen", gain),
		zap.String("method", string(obs.Provenance)))
	return rec, nil
}

// ValuePortfolio values every property and sums the totals. Totals include
// only values that are actually known: a property with no estimate
// contributes nothing to the estimated and gain totals but its book value,
// when present, still counts toward the book total.
func (v *Valuer) ValuePortfolio(ctx context.Context, props []model.PropertyRecord) (model.Portfolio, error) {
	pf := model.Portfolio{Properties: make([]model.ValuationRecord, 0, len(props))}
	for _, p := range props {
		rec, err := v.Value(ctx, p)
		if err != nil {
			return pf, err
		}
		pf.Properties = append(pf.Properties, rec)

		if p.BookValueMYen != nil {
			pf.TotalBookValueMYen += *p.BookValueMYen
		}
		if rec.EstimatedValueMYen != nil {
			pf.TotalEstimatedValueMYen += *rec.EstimatedValueMYen
		}
		if rec.UnrealizedGainMYen != nil {
			pf.TotalUnrealizedGainMYen += *rec.UnrealizedGainMYen
		}
	}
	return pf, nil
}
