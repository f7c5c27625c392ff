// Package roster builds the list of companies to analyze from the TOPIX
// constituent weight workbook published by JPX, joined with the EDINET filer
// registry to resolve each securities code to its registry code.
package roster

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kozan-lab/landgain/internal/cache"
	"github.com/kozan-lab/landgain/internal/model"
)

// cacheTTL keeps the roster fresh for a week; constituents change rarely and
// the weight workbook is republished monthly.
const cacheTTL = 7 * 24 * time.Hour

const cacheKey = "topix"

// Source fetches and caches the constituent roster.
type Source struct {
	httpClient  *http.Client
	weightURL   string
	codeListURL string
	limit       int
	cache       *cache.Store
}

// NewSource builds a roster Source. limit caps the roster at the top N
// constituents by workbook order.
func NewSource(weightURL, codeListURL string, limit int, store *cache.Store) *Source {
	return &Source{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		weightURL:   weightURL,
		codeListURL: codeListURL,
		limit:       limit,
		cache:       store,
	}
}

// WithHTTPClient overrides the HTTP client (used in tests).
func (s *Source) WithHTTPClient(hc *http.Client) *Source {
	s.httpClient = hc
	return s
}

// Load returns the roster, from cache when fresh. The weight workbook and the
// filer registry are fetched concurrently; when either fetch fails the
// built-in fallback list keeps the tool usable offline.
func (s *Source) Load(ctx context.Context) ([]model.EntityRef, error) {
	if cached, found, err := cache.GetJSON[[]model.EntityRef](ctx, s.cache, cache.NamespaceRoster, cacheKey); err != nil {
		return nil, err
	} else if found {
		return cached, nil
	}

	var (
		workbook []byte
		registry map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		workbook, err = s.fetch(gctx, s.weightURL)
		return err
	})
	g.Go(func() error {
		archive, err := s.fetch(gctx, s.codeListURL)
		if err != nil {
			return err
		}
		registry, err = parseRegistry(archive)
		return err
	})

	if err := g.Wait(); err != nil {
		zap.L().Warn("roster: fetch failed, using built-in fallback list", zap.Error(err))
		return fallbackRoster(s.limit), nil
	}

	entities, err := parseWorkbook(workbook, s.limit)
	if err != nil {
		zap.L().Warn("roster: workbook parse failed, using built-in fallback list", zap.Error(err))
		return fallbackRoster(s.limit), nil
	}

	for i := range entities {
		if code, ok := registry[entities[i].Code]; ok {
			entities[i].EDINETCode = code
		}
	}

	if err := cache.PutJSON(ctx, s.cache, cache.NamespaceRoster, cacheKey, entities, cache.ExpiresAfter(cacheTTL)); err != nil {
		return nil, err
	}
	zap.L().Info("roster: loaded constituents", zap.Int("count", len(entities)))
	return entities, nil
}

func (s *Source) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "roster: build request")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: fetch %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("roster: fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var secCodeRe = regexp.MustCompile(`^\d{4}$`)

// parseWorkbook extracts (code, name) pairs from the weight workbook. Layout
// shifts between publications, so rather than fixing column indexes the
// parser takes the first 4-digit cell in a row as the securities code and the
// next non-empty cell as the name.
func parseWorkbook(data []byte, limit int) ([]model.EntityRef, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("roster: workbook has no sheets")
	}

	var entities []model.EntityRef
	seen := make(map[string]bool)
	for _, row := range f.Sheets[0].Rows {
		code, name := scanRow(row)
		if code == "" || name == "" || seen[code] {
			continue
		}
		seen[code] = true
		entities = append(entities, model.EntityRef{Code: code, Name: name})
		if limit > 0 && len(entities) >= limit {
			break
		}
	}
	if len(entities) == 0 {
		return nil, eris.New("roster: no constituents in workbook")
	}
	return entities, nil
}

func scanRow(row *xlsx.Row) (code, name string) {
	for _, cell := range row.Cells {
		v := strings.TrimSpace(cell.String())
		if v == "" {
			continue
		}
		if code == "" {
			if secCodeRe.MatchString(v) {
				code = v
			}
			continue
		}
		return code, v
	}
	return "", ""
}
