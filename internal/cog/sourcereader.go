package cog

import (
	"context"
	"errors"
	"io"

	"github.com/pspoerri/geotiff-reproject/internal/bytesource"
)

// sourceReader adapts a bytesource.Source into an io.ReadSeeker so the TIFF
// header/IFD parser can be written the ordinary streaming way while actually
// pulling bytes through the chunking/caching pipeline (and, for HTTP
// sources, over the network) rather than requiring the whole file resident
// in memory the way the teacher's mmap did.
type sourceReader struct {
	ctx context.Context
	src bytesource.Source
	pos int64
}

func newSourceReader(ctx context.Context, src bytesource.Source) *sourceReader {
	return &sourceReader{ctx: ctx, src: src}
}

func (r *sourceReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	data, err := r.src.Fetch(r.ctx, r.pos, int64(len(p)))
	n := copy(p, data)
	r.pos += int64(n)
	if err != nil {
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, nil
}

func (r *sourceReader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		r.pos = offset
	case io.SeekCurrent:
		r.pos += offset
	case io.SeekEnd:
		return 0, errSeekEndUnsupported
	}
	return r.pos, nil
}

var errSeekEndUnsupported = errors.New("cog: SeekEnd requires a resource length, which bytesource.Source does not expose")
