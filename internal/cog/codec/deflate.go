package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// DeflateDecoder handles TIFF Compression codes 8 and 32946 (Deflate/zlib),
// using klauspost/compress rather than stdlib compress/flate+zlib for its
// faster inflate path. TIFF writers normally emit a zlib-wrapped stream;
// some omit the two-byte zlib header and write raw deflate, so zlib is
// tried first and raw deflate is the fallback, matching the teacher's
// decompressDeflate.
type DeflateDecoder struct{}

func (DeflateDecoder) Decode(raw []byte, _ DecoderMetadata) (Result, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		defer zr.Close()
		if out, err := io.ReadAll(zr); err == nil {
			return Result{Raw: out}, nil
		}
	}

	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return Result{}, cogerr.Wrap(cogerr.InvalidTiff, err, "decompressing deflate tile")
	}
	return Result{Raw: out}, nil
}
