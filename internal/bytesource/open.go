package bytesource

// Option configures the middleware pipeline Open builds around a raw
// Source.
type Option func(*pipelineConfig)

type pipelineConfig struct {
	chunkSize  int64
	cacheBytes int64
}

// WithChunking sets the chunk size the pipeline rounds requests to.
func WithChunking(chunkSize int64) Option {
	return func(c *pipelineConfig) { c.chunkSize = chunkSize }
}

// WithCache enables the LRU caching layer with the given byte budget.
func WithCache(cacheBytes int64) Option {
	return func(c *pipelineConfig) { c.cacheBytes = cacheBytes }
}

// Open composes raw into a linear middleware pipeline: caching (if
// requested) sits directly on raw, and chunking sits on top of that so every
// request the cache sees is already chunk-aligned.
func Open(raw Source, opts ...Option) (Source, error) {
	cfg := pipelineConfig{chunkSize: DefaultChunkSize}
	for _, o := range opts {
		o(&cfg)
	}

	src := raw
	if cfg.cacheBytes > 0 {
		cached, err := NewCachedSource(src, cfg.chunkSize, cfg.cacheBytes)
		if err != nil {
			return nil, err
		}
		src = cached
	}
	return NewChunkedSource(src, cfg.chunkSize), nil
}
