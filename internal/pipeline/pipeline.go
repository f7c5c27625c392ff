// Package pipeline runs the full per-entity analysis: filing discovery,
// section extraction, structured parsing, and valuation.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kozan-lab/landgain/internal/extract"
	"github.com/kozan-lab/landgain/internal/model"
)

// FilingSource finds an entity's latest annual report and its equipment
// section text. Implemented by filing.Searcher.
type FilingSource interface {
	FindLatest(ctx context.Context, edinetCode string) (*model.FilingRef, error)
	PropertySectionText(ctx context.Context, docID string) (string, error)
}

// PropertyExtractor parses property records out of section text. Implemented
// by extract.Extractor.
type PropertyExtractor interface {
	Extract(ctx context.Context, entityName, sectionText string) (*extract.Result, error)
}

// PortfolioValuer prices a set of extracted properties. Implemented by
// valuation.Valuer.
type PortfolioValuer interface {
	ValuePortfolio(ctx context.Context, props []model.PropertyRecord) (model.Portfolio, error)
}

// Pipeline wires the per-entity stages together.
type Pipeline struct {
	filings   FilingSource
	extractor PropertyExtractor
	valuer    PortfolioValuer
	now       func() time.Time
}

// New builds a Pipeline from its stage implementations.
func New(filings FilingSource, extractor PropertyExtractor, valuer PortfolioValuer) *Pipeline {
	return &Pipeline{
		filings:   filings,
		extractor: extractor,
		valuer:    valuer,
		now:       time.Now,
	}
}

// Analyze runs every stage for one entity. Stage failures do not return an
// error: they terminate the entity with the failure reason recorded on the
// result, so a batch caller can checkpoint it and move on. The returned error
// is reserved for faults that should stop the whole run, such as a cancelled
// context.
func (p *Pipeline) Analyze(ctx context.Context, entity model.EntityRef) (model.EntityResult, error) {
	result := model.EntityResult{Entity: entity, AnalyzedAt: p.now()}
	log := zap.L().With(zap.String("code", entity.Code), zap.String("name", entity.Name))

	if entity.EDINETCode == "" {
		result.Error = model.NewMissingInputError("edinet_code").Error()
		log.Warn("pipeline: entity skipped", zap.String("reason", result.Error))
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	ref, err := p.filings.FindLatest(ctx, entity.EDINETCode)
	if err != nil {
		return p.fail(result, log, "filing search", err)
	}
	result.FilingID = ref.DocID
	result.FiscalYear = ref.PeriodYear

	text, err := p.filings.PropertySectionText(ctx, ref.DocID)
	if err != nil {
		return p.fail(result, log, "section extraction", err)
	}

	extracted, err := p.extractor.Extract(ctx, entity.Name, text)
	if err != nil {
		return p.fail(result, log, "property extraction", err)
	}
	if len(extracted.Properties) == 0 {
		// A filing that discloses no real estate is a clean result.
		log.Info("pipeline: no properties disclosed")
		return result, nil
	}

	portfolio, err := p.valuer.ValuePortfolio(ctx, extracted.Properties)
	if err != nil {
		return p.fail(result, log, "valuation", err)
	}
	result.Portfolio = portfolio

	log.Info("pipeline: entity analyzed",
		zap.Int("properties", len(portfolio.Properties)),
		zap.Float64("total_gain_m_yen", portfolio.TotalUnrealizedGainMYen))
	return result, nil
}

// fail terminates one entity with the stage's error. Context cancellation is
// passed through instead, so the batch run stops rather than recording every
// remaining entity as failed.
func (p *Pipeline) fail(result model.EntityResult, log *zap.Logger, stage string, err error) (model.EntityResult, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return result, err
	}
	result.Error = err.Error()
	log.Warn("pipeline: entity failed", zap.String("stage", stage), zap.Error(err))
	return result, nil
}
