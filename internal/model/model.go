// Package model defines the shared types of the valuation pipeline.
package model

import "time"

// Ownership distinguishes owned property from leased property. Leased assets
// carry no unrealized gain and are never priced.
type Ownership string

const (
	OwnershipOwned  Ownership = "owned"
	OwnershipLeased Ownership = "leased"
)

// Provenance tags where a price-per-sqm observation came from. Consumers use
// it to gauge confidence: a comparable transaction nearby is worth more than a
// prefecture-wide average.
type Provenance string

const (
	ProvenanceComparable      Provenance = "comparable"
	ProvenanceRegionalAverage Provenance = "regional_average"
)

// EntityRef identifies one company in the roster. Code is the identity key
// (4-digit securities code). EDINETCode may be empty until resolved through
// the registry mapping.
type EntityRef struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	EDINETCode string `json:"edinet_code,omitempty"`
}

// FilingRef points at the most recent annual securities report found for an
// entity.
type FilingRef struct {
	DocID        string    `json:"doc_id"`
	PeriodYear   int       `json:"period_year"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// PropertyRecord is one land/building holding extracted from a filing's
// equipment section. Numeric fields are pointers: nil means the filing did
// not disclose the value, which is different from zero.
type PropertyRecord struct {
	Name            string    `json:"name"`
	Ownership       Ownership `json:"ownership"`
	Address         string    `json:"address"`
	LandAreaSqm     *float64  `json:"land_area_sqm"`
	BuildingAreaSqm *float64  `json:"building_area_sqm"`
	BookValueMYen   *float64  `json:"book_value_million_yen"`
	Purpose         string    `json:"purpose"`
	Notes           string    `json:"notes,omitempty"`
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PriceObservation is a resolved price-per-area figure for a location.
// DistanceKM is nil for regional-average fallbacks, which have no source
// point to measure from.
type PriceObservation struct {
	SourceAddress string     `json:"source_address"`
	PricePerSqm   float64    `json:"price_per_sqm"`
	DistanceKM    *float64   `json:"distance_km,omitempty"`
	SurveyPeriod  string     `json:"survey_period"`
	LandUse       string     `json:"land_use"`
	Provenance    Provenance `json:"provenance"`
}

// ValuationRecord is the per-property output of the estimator. Value fields
// stay nil whenever the estimate could not be made; Notes says why.
type ValuationRecord struct {
	Property           PropertyRecord `json:"property"`
	EstimatedValueMYen *float64       `json:"estimated_value_million_yen"`
	UnrealizedGainMYen *float64       `json:"unrealized_gain_million_yen"`
	PricePerSqmUsed    *float64       `json:"price_per_sqm_used,omitempty"`
	Method             Provenance     `json:"method,omitempty"`
	Notes              string         `json:"notes,omitempty"`
}

// Portfolio aggregates valuation records for one entity. Totals are
// sum-of-known: a nil field contributes nothing rather than being coerced
// to zero in its own record.
type Portfolio struct {
	TotalBookValueMYen      float64           `json:"total_book_value_million_yen"`
	TotalEstimatedValueMYen float64           `json:"total_estimated_value_million_yen"`
	TotalUnrealizedGainMYen float64           `json:"total_unrealized_gain_million_yen"`
	Properties              []ValuationRecord `json:"properties"`
}

// EntityResult is the terminal outcome of the pipeline for one entity.
// Exactly one of (Properties populated by a successful run, Error set) holds;
// a successful run with zero extracted properties is still a success.
type EntityResult struct {
	Entity     EntityRef `json:"entity"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	FilingID   string    `json:"filing_id,omitempty"`
	FiscalYear int       `json:"fiscal_year,omitempty"`
	Portfolio  Portfolio `json:"portfolio"`
	Error      string    `json:"error,omitempty"`
}

// Failed reports whether the entity terminated with an error.
func (r EntityResult) Failed() bool { return r.Error != "" }

// PropertyCounts breaks a portfolio down by ownership and purpose.
type PropertyCounts struct {
	Total     int            `json:"total"`
	Owned     int            `json:"owned"`
	Leased    int            `json:"leased"`
	ByPurpose map[string]int `json:"by_purpose,omitempty"`
}

// CountProperties tallies ownership and purpose across valuation records.
func CountProperties(records []ValuationRecord) PropertyCounts {
	c := PropertyCounts{ByPurpose: make(map[string]int)}
	for _, vr := range records {
		c.Total++
		if vr.Property.Ownership == OwnershipLeased {
			c.Leased++
		} else {
			c.Owned++
		}
		purpose := vr.Property.Purpose
		if purpose == "" {
			purpose = "unknown"
		}
		c.ByPurpose[purpose]++
	}
	return c
}

// BatchSummary is the aggregate report printed at the end of a batch run.
type BatchSummary struct {
	RunID                   string         `json:"run_id"`
	Succeeded               int            `json:"succeeded"`
	Failed                  int            `json:"failed"`
	TotalBookValueMYen      float64        `json:"total_book_value_million_yen"`
	TotalEstimatedValueMYen float64        `json:"total_estimated_value_million_yen"`
	TotalUnrealizedGainMYen float64        `json:"total_unrealized_gain_million_yen"`
	Properties              PropertyCounts `json:"properties"`
	TopGains                []EntityResult `json:"top_gains"`
}

// Float returns a pointer to v. Convenience for optional numeric fields.
func Float(v float64) *float64 { return &v }
