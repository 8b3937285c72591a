package cog

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// tileKey identifies a decoded tile within a specific overview level.
// Overview pointers are stable for the lifetime of an open GeoTIFF, so they
// double as the per-source, per-level cache namespace.
type tileKey struct {
	ov       *Overview
	col, row int
}

// TileCache is a bounded LRU cache of decoded RasterArray tiles, shared
// across many Overview.FetchTile calls so repeated output pixels mapping to
// the same source tile don't re-fetch and re-decode it. Grounded on the
// teacher's hand-rolled cog.TileCache, rewritten against the already-vendored
// hashicorp/golang-lru/v2 (used elsewhere in this module by
// internal/bytesource's block cache) instead of a bespoke FIFO eviction list.
type TileCache struct {
	cache *lru.Cache[tileKey, RasterArray]
}

// NewTileCache creates a tile cache holding at most maxEntries decoded tiles.
func NewTileCache(maxEntries int) *TileCache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	c, _ := lru.New[tileKey, RasterArray](maxEntries)
	return &TileCache{cache: c}
}

// FetchTileCached wraps Overview.FetchTile with the shared cache. A nil
// cache disables caching and always fetches directly.
func (ov *Overview) FetchTileCached(ctx context.Context, x, y int, boundless bool, cache *TileCache) (RasterArray, error) {
	if cache == nil {
		return ov.FetchTile(ctx, x, y, boundless)
	}
	key := tileKey{ov: ov, col: x, row: y}
	if ra, ok := cache.cache.Get(key); ok {
		return ra, nil
	}
	ra, err := ov.FetchTile(ctx, x, y, boundless)
	if err != nil {
		return nil, err
	}
	cache.cache.Add(key, ra)
	return ra, nil
}
