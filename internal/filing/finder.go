// Package filing locates an entity's most recent annual securities report and
// pulls the equipment section text out of its archive.
package filing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kozan-lab/landgain/internal/cache"
	"github.com/kozan-lab/landgain/internal/model"
	"github.com/kozan-lab/landgain/pkg/edinet"
)

// Clock abstracts time.Now for tests.
type Clock func() time.Time

// Searcher finds and downloads filings for an entity.
type Searcher struct {
	client          edinet.Client
	cache           *cache.Store
	windowDays      int
	sampleEveryDays int
	cacheTTL        time.Duration
	now             Clock
}

// NewSearcher builds a Searcher. windowDays bounds how far back the search
// walks and sampleEveryDays is the stride between sampled listing dates.
// Positive results are cached for cacheTTL; misses are never cached, so a
// company that files tomorrow is picked up on the next run.
func NewSearcher(client edinet.Client, store *cache.Store, windowDays, sampleEveryDays int, cacheTTL time.Duration) *Searcher {
	return &Searcher{
		client:          client,
		cache:           store,
		windowDays:      windowDays,
		sampleEveryDays: sampleEveryDays,
		cacheTTL:        cacheTTL,
		now:             time.Now,
	}
}

// recentWindowDays bounds the always-searched head of the window; beyond it
// the walk jumps to filing-season months before sweeping the rest.
const recentWindowDays = 90

// filingSeason reports whether the month falls in the annual-report filing
// season (March fiscal-year-end companies file in June and July).
func filingSeason(m time.Month) bool {
	return m == time.June || m == time.July
}

// sampleDates returns the listing dates to query, one per stride across the
// window: the most recent quarter first, then filing-season dates, then the
// remainder, each group most-recent-first.
func (s *Searcher) sampleDates(today time.Time) []time.Time {
	var recent, season, rest []time.Time
	for offset := 0; offset <= s.windowDays; offset += s.sampleEveryDays {
		date := today.AddDate(0, 0, -offset)
		switch {
		case offset <= recentWindowDays:
			recent = append(recent, date)
		case filingSeason(date.Month()):
			season = append(season, date)
		default:
			rest = append(rest, date)
		}
	}
	out := append(recent, season...)
	return append(out, rest...)
}

// FindLatest returns the most recent annual report filed by the entity with
// the given registry code. The search samples listing dates across the window
// and stops at the first match; since annual reports are filed once a year,
// the first hit in the most-recent-first order is the latest filing.
func (s *Searcher) FindLatest(ctx context.Context, edinetCode string) (*model.FilingRef, error) {
	if edinetCode == "" {
		return nil, model.NewMissingInputError("edinet_code")
	}

	if ref, found, err := cache.GetJSON[model.FilingRef](ctx, s.cache, cache.NamespaceFiling, edinetCode); err != nil {
		return nil, err
	} else if found {
		zap.L().Debug("filing: cache hit", zap.String("edinet_code", edinetCode), zap.String("doc_id", ref.DocID))
		return &ref, nil
	}

	today := s.now()
	for _, date := range s.sampleDates(today) {
		docs, err := s.client.ListDocuments(ctx, date)
		if err != nil {
			return nil, model.NewExternalServiceError("edinet", err)
		}
		for _, doc := range docs {
			if doc.EDINETCode != edinetCode {
				continue
			}
			ref := model.FilingRef{
				DocID:        doc.DocID,
				PeriodYear:   periodYear(doc.PeriodEnd),
				DiscoveredAt: today,
			}
			if err := cache.PutJSON(ctx, s.cache, cache.NamespaceFiling, edinetCode, ref, cache.ExpiresAfter(s.cacheTTL)); err != nil {
				return nil, err
			}
			zap.L().Info("filing: found annual report",
				zap.String("edinet_code", edinetCode),
				zap.String("doc_id", doc.DocID),
				zap.String("filed", date.Format("2006-01-02")))
			return &ref, nil
		}
	}

	return nil, model.NotFoundf("no annual report for %s within %d days", edinetCode, s.windowDays)
}

// periodYear extracts the fiscal year from a periodEnd date string like
// "2024-03-31". Unparseable values yield 0.
func periodYear(periodEnd string) int {
	t, err := time.Parse("2006-01-02", periodEnd)
	if err != nil {
		return 0
	}
	return t.Year()
}
