package bytesource

import (
	"context"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// DefaultChunkSize is the chunk size ChunkedSource rounds requests to when
// none is configured explicitly.
const DefaultChunkSize = 32 * 1024

// ChunkedSource replaces an arbitrary Fetch(offset, length) with one or more
// fixed-size, chunk-aligned Fetch calls against inner, so the layer below
// (typically a CachedSource) only ever sees a small, cache-friendly set of
// distinct ranges.
type ChunkedSource struct {
	inner     Source
	chunkSize int64
}

// NewChunkedSource wraps inner with chunkSize-aligned requests. chunkSize
// defaults to DefaultChunkSize when <= 0.
func NewChunkedSource(inner Source, chunkSize int64) *ChunkedSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkedSource{inner: inner, chunkSize: chunkSize}
}

func (c *ChunkedSource) Fetch(ctx context.Context, offset, length int64) ([]byte, error) {
	if length < 0 {
		alignedStart := offset - offset%c.chunkSize
		data, err := c.fetchChunkTolerant(ctx, alignedStart, -1)
		if err != nil {
			return nil, err
		}
		skip := offset - alignedStart
		if skip > int64(len(data)) {
			return nil, cogerr.New(cogerr.ShortRead, "short read to end of resource", cogerr.KV{Key: "offset", Value: offset})
		}
		return data[skip:], nil
	}

	startChunk := offset / c.chunkSize
	endChunk := (offset + length - 1) / c.chunkSize

	buf := make([]byte, 0, length)
	for chunk := startChunk; chunk <= endChunk; chunk++ {
		chunkOffset := chunk * c.chunkSize
		data, err := c.fetchChunkTolerant(ctx, chunkOffset, c.chunkSize)
		if err != nil {
			return nil, err
		}

		lo := int64(0)
		if chunkOffset < offset {
			lo = offset - chunkOffset
		}
		hi := c.chunkSize
		if chunkOffset+c.chunkSize > offset+length {
			hi = offset + length - chunkOffset
		}
		if hi > int64(len(data)) {
			hi = int64(len(data))
		}
		if lo >= hi {
			continue
		}
		buf = append(buf, data[lo:hi]...)
	}

	if int64(len(buf)) < length {
		return buf, cogerr.New(cogerr.ShortRead, "short read",
			cogerr.KV{Key: "offset", Value: offset}, cogerr.KV{Key: "wanted", Value: length}, cogerr.KV{Key: "got", Value: len(buf)})
	}
	return buf, nil
}

// fetchChunkTolerant calls inner.Fetch but tolerates a ShortRead: chunk
// boundaries routinely extend past the end of the underlying resource (the
// last chunk of a file), and that alone is not a failure — only the final
// assembled range being short of what the caller asked for is.
func (c *ChunkedSource) fetchChunkTolerant(ctx context.Context, offset, length int64) ([]byte, error) {
	data, err := c.inner.Fetch(ctx, offset, length)
	if err != nil && !cogerr.Is(err, cogerr.ShortRead) {
		return nil, err
	}
	return data, nil
}
