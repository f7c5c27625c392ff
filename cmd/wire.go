package main

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/kozan-lab/landgain/internal/cache"
	"github.com/kozan-lab/landgain/internal/config"
	"github.com/kozan-lab/landgain/internal/extract"
	"github.com/kozan-lab/landgain/internal/filing"
	igeocode "github.com/kozan-lab/landgain/internal/geocode"
	ilandprice "github.com/kozan-lab/landgain/internal/landprice"
	"github.com/kozan-lab/landgain/internal/pipeline"
	"github.com/kozan-lab/landgain/internal/roster"
	"github.com/kozan-lab/landgain/internal/valuation"
	"github.com/kozan-lab/landgain/pkg/claude"
	"github.com/kozan-lab/landgain/pkg/edinet"
	"github.com/kozan-lab/landgain/pkg/geocode"
	"github.com/kozan-lab/landgain/pkg/landprice"
)

// app bundles the wired pipeline and its shared resources. Close releases the
// cache database.
type app struct {
	store    *cache.Store
	roster   *roster.Source
	pipeline *pipeline.Pipeline
}

func (a *app) Close() error { return a.store.Close() }

// buildApp wires every stage from config. It fails fast on missing
// credentials so a misconfigured batch run stops before touching the roster.
func buildApp(cfg *config.Config) (*app, error) {
	if cfg.EDINET.Key == "" {
		return nil, eris.New("edinet.key is not configured (LANDGAIN_EDINET_KEY)")
	}
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic.key is not configured (LANDGAIN_ANTHROPIC_KEY)")
	}

	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	edinetClient := edinet.NewClient(cfg.EDINET.Key,
		edinet.WithBaseURL(cfg.EDINET.BaseURL),
		edinet.WithRateLimit(cfg.EDINET.RatePerSec),
	)
	searcher := filing.NewSearcher(edinetClient, store,
		cfg.Filing.WindowDays, cfg.Filing.SampleEveryDays,
		time.Duration(cfg.Filing.CacheDays)*24*time.Hour,
	)

	geoOpts := []geocode.Option{
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithRateLimit(cfg.Geocode.RatePerSec),
	}
	if cfg.Geocode.FallbackEnabled {
		geoOpts = append(geoOpts, geocode.WithNominatim(cfg.Geocode.FallbackBaseURL, cfg.Geocode.FallbackContact))
	}
	geoResolver := igeocode.NewResolver(geocode.NewClient(geoOpts...), store)

	regions, err := ilandprice.LoadRegions()
	if err != nil {
		store.Close()
		return nil, err
	}
	priceClient := landprice.NewClient(
		landprice.WithBaseURL(cfg.LandPrice.BaseURL),
		landprice.WithRateLimit(cfg.LandPrice.RatePerSec),
	)
	priceResolver := ilandprice.NewResolver(priceClient, geoResolver, regions, cfg.LandPrice.SurveyYear)

	extractor := extract.NewExtractor(
		claude.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
		cfg.Anthropic.MaxInputRune,
	)

	valuer := valuation.NewValuer(geoResolver, priceResolver)

	return &app{
		store:    store,
		roster:   roster.NewSource(cfg.Roster.WeightURL, cfg.Roster.CodeListURL, cfg.Roster.Limit, store),
		pipeline: pipeline.New(searcher, extractor, valuer),
	}, nil
}
