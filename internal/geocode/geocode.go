// Package geocode resolves disclosure addresses to coordinates, memoized
// through the on-disk cache. Coordinates for an address are static facts, so
// cache entries never expire.
package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/kozan-lab/landgain/internal/cache"
	"github.com/kozan-lab/landgain/internal/model"
	"github.com/kozan-lab/landgain/pkg/geocode"
)

// Resolver geocodes addresses with caching and a street-level retry.
type Resolver struct {
	client geocode.Client
	cache  *cache.Store
}

// NewResolver creates a Resolver over the given client and cache.
func NewResolver(client geocode.Client, store *cache.Store) *Resolver {
	return &Resolver{client: client, cache: store}
}

// Resolve returns the coordinate for an address, or (nil, nil) when the
// address cannot be located. Service failures are treated the same as a
// no-match: disclosure addresses are frequently truncated and a missing
// coordinate only downgrades one property's valuation, it must not abort the
// pipeline.
func (r *Resolver) Resolve(ctx context.Context, address string) (*model.Coordinate, error) {
	address = Normalize(address)
	if address == "" {
		return nil, nil
	}

	key := cacheKey(address)
	if coord, found, err := cache.GetJSON[model.Coordinate](ctx, r.cache, cache.NamespaceGeocode, key); err != nil {
		return nil, err
	} else if found {
		return &coord, nil
	}

	coord := r.lookup(ctx, address)

	// Disclosure addresses often carry lot numbers the geocoder can't match.
	// Retry once at street level before giving up.
	if coord == nil {
		if simplified := Simplify(address); simplified != address {
			coord = r.lookup(ctx, simplified)
		}
	}

	if coord == nil {
		zap.L().Debug("geocode: no match", zap.String("address", address))
		return nil, nil
	}

	if err := cache.PutJSON(ctx, r.cache, cache.NamespaceGeocode, key, coord, cache.Permanent()); err != nil {
		return nil, err
	}
	return coord, nil
}

// lookup performs one geocoding call, swallowing service errors as no-match.
func (r *Resolver) lookup(ctx context.Context, address string) *model.Coordinate {
	result, err := r.client.Geocode(ctx, address)
	if err != nil {
		zap.L().Warn("geocode: lookup failed", zap.String("address", address), zap.Error(err))
		return nil
	}
	if !result.Matched {
		return nil
	}
	return &model.Coordinate{Lat: result.Latitude, Lng: result.Longitude}
}

// Normalize folds runes to their canonical width and strips whitespace, so
// that 「東京都千代田区１−１」 and 「東京都千代田区1-1」 share one cache
// entry. Folding narrows full-width digits and Latin characters but leaves
// katakana place names (市ノ坪, 霞ヶ関) untouched.
func Normalize(address string) string {
	address = width.Fold.String(address)
	address = strings.Join(strings.Fields(address), "")
	return address
}

var (
	lotNumberRe = regexp.MustCompile(`\d+-\d+(-\d+)?$`)
	blockTailRe = regexp.MustCompile(`(\d+丁目|\d+番|\d+号).*$`)
)

// Simplify strips the finest-grained address component (lot/block numbers)
// to retry geocoding at street level.
func Simplify(address string) string {
	simplified := lotNumberRe.ReplaceAllString(address, "")
	simplified = blockTailRe.ReplaceAllString(simplified, "$1")
	return strings.TrimSpace(simplified)
}

// cacheKey returns SHA-256 hex of the normalized address for cache lookup.
func cacheKey(normalized string) string {
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}
