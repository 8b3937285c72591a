package bytesource

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// DefaultCacheBytes is the default cache budget CachedSource uses when none
// is configured explicitly, approximately 1 GiB.
const DefaultCacheBytes = 1 << 30

// CachedSource wraps inner in a bounded LRU keyed by chunk offset. It is
// meant to sit directly under a ChunkedSource so every sized call it
// receives is already chunk-aligned and chunk-sized: chunkSize is only used
// to size the cache's entry budget from a byte budget, not to re-align
// requests. To-end requests (length < 0) bypass the cache.
//
// Entries are copied on both Add and Get, so neither the cache's internal
// storage nor a caller can mutate the other's view of a chunk.
type CachedSource struct {
	inner     Source
	cache     *lru.Cache[int64, []byte]
}

// NewCachedSource builds a CachedSource with room for roughly
// cacheBytes/chunkSize chunks, replacing the teacher's hand-rolled
// map+slice TileCache with golang-lru's tested eviction.
func NewCachedSource(inner Source, chunkSize, cacheBytes int64) (*CachedSource, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if cacheBytes <= 0 {
		cacheBytes = DefaultCacheBytes
	}
	entries := int(cacheBytes / chunkSize)
	if entries < 1 {
		entries = 1
	}
	cache, err := lru.New[int64, []byte](entries)
	if err != nil {
		return nil, err
	}
	return &CachedSource{inner: inner, cache: cache}, nil
}

func (c *CachedSource) Fetch(ctx context.Context, offset, length int64) ([]byte, error) {
	if length < 0 {
		return c.inner.Fetch(ctx, offset, length)
	}
	if v, ok := c.cache.Get(offset); ok {
		return append([]byte(nil), v...), nil
	}

	data, err := c.inner.Fetch(ctx, offset, length)
	if err != nil && !cogerr.Is(err, cogerr.ShortRead) {
		return nil, err
	}

	cp := append([]byte(nil), data...)
	c.cache.Add(offset, cp)

	if err != nil {
		return data, err
	}
	return data, nil
}
