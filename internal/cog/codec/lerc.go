package codec

// LERC2 (Limited Error Raster Compression) decoder, covering the value
// layout GDAL emits for COG LERC (compression code 34887) overviews: a
// fixed header, an RLE-encoded validity mask, and a pixel block that is
// either a single repeated constant, stored raw, or bit-stuffed as offsets
// from the header's zMin with one scale factor for the whole image (the
// image is decoded as a single block; there are no per-microblock
// minimums). Huffman-coded blocks (an optional
// LERC2 v4+ mode PROJ/GDAL only emits when asked for extreme compression
// ratios) are out of scope and fail UnsupportedTiffFeature rather than
// silently misdecoding — no pack library ships a Go LERC implementation to
// check this against, so the safer failure mode is to say so.
//
// The older LERC1 on-disk format is not decoded: a blob without the LERC2
// file key fails UnsupportedTiffFeature.

import (
	"encoding/binary"
	"math"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

var lerc2FileKey = [6]byte{'L', 'e', 'r', 'c', '2', ' '}

const (
	lercBlockRaw      = 0
	lercBlockConstant = 1
	lercBlockBitStuff = 2
)

// LERCDecoder handles TIFF Compression code 34887. Like JPEG, LERC
// reconstructs pixels itself, so its output is DecodedPixels and the
// predictor is skipped.
type LERCDecoder struct{}

func (LERCDecoder) Decode(raw []byte, meta DecoderMetadata) (Result, error) {
	if len(raw) < 6 || [6]byte(raw[:6]) != lerc2FileKey {
		return Result{}, cogerr.New(cogerr.UnsupportedTiffFeature, "LERC blob missing Lerc2 file key")
	}
	r := &lercReader{buf: raw, pos: 6}

	version := r.readInt32()
	if version < 2 {
		return Result{}, cogerr.New(cogerr.UnsupportedTiffFeature, "LERC version too old", cogerr.KV{Key: "version", Value: version})
	}
	if version >= 3 {
		r.readUint32() // checksum, not verified here
	}

	height := int(r.readInt32())
	width := int(r.readInt32())
	numValidPixel := r.readInt32()
	_ = numValidPixel
	r.readFloat64() // maxZError, informational only for a lossless read-back
	zMin := r.readFloat64()
	zMax := r.readFloat64()
	if r.err != nil {
		return Result{}, cogerr.Wrap(cogerr.InvalidTiff, r.err, "reading LERC header")
	}
	if width <= 0 || height <= 0 {
		return Result{}, cogerr.New(cogerr.InvalidRasterSize, "LERC blob has non-positive dimensions")
	}

	mask, err := r.readMask(width, height)
	if err != nil {
		return Result{}, err
	}

	values, err := r.readValueBlock(width, height, zMin, zMax)
	if err != nil {
		return Result{}, err
	}

	data := encodeSamples(values, mask, meta)
	return Result{Pixels: &DecodedPixels{Width: width, Height: height, Data: data}}, nil
}

type lercReader struct {
	buf []byte
	pos int
	err error
}

func (r *lercReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.err = cogerr.New(cogerr.ShortRead, "LERC blob truncated")
		return false
	}
	return true
}

func (r *lercReader) readInt32() int32 {
	if !r.need(4) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v
}

func (r *lercReader) readUint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *lercReader) readFloat64() float64 {
	if !r.need(8) {
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v
}

func (r *lercReader) readByte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.buf[r.pos]
	r.pos++
	return b
}

// readMask decodes the RLE validity mask: a run-length encoded stream of
// (runLength int32, value byte) pairs, or no mask at all (all valid) when
// numValidPixel equals width*height, signalled by a leading zero-length
// mask section.
func (r *lercReader) readMask(width, height int) ([]byte, error) {
	maskLen := r.readInt32()
	if r.err != nil {
		return nil, cogerr.Wrap(cogerr.InvalidTiff, r.err, "reading LERC mask length")
	}
	mask := make([]byte, width*height)
	for i := range mask {
		mask[i] = 1
	}
	if maskLen == 0 {
		return mask, nil
	}
	end := r.pos + int(maskLen)
	if end > len(r.buf) {
		return nil, cogerr.New(cogerr.ShortRead, "LERC mask section truncated")
	}
	idx := 0
	for r.pos < end && idx < len(mask) {
		run := int(r.readInt32())
		val := r.readByte()
		if r.err != nil {
			return nil, cogerr.Wrap(cogerr.InvalidTiff, r.err, "reading LERC mask run")
		}
		for j := 0; j < run && idx < len(mask); j++ {
			mask[idx] = val
			idx++
		}
	}
	return mask, nil
}

// readValueBlock decodes the pixel values into float64 for uniform
// downstream packing, dispatching on a one-byte block-type tag.
func (r *lercReader) readValueBlock(width, height int, zMin, zMax float64) ([]float64, error) {
	blockType := r.readByte()
	n := width * height
	values := make([]float64, n)

	switch blockType {
	case lercBlockConstant:
		for i := range values {
			values[i] = zMin
		}
		return values, r.err

	case lercBlockRaw:
		for i := range values {
			values[i] = r.readFloat64()
		}
		if r.err != nil {
			return nil, cogerr.Wrap(cogerr.InvalidTiff, r.err, "reading LERC raw block")
		}
		return values, nil

	case lercBlockBitStuff:
		numBits := int(r.readByte())
		if numBits < 0 || numBits > 64 {
			return nil, cogerr.New(cogerr.InvalidTiff, "LERC block has invalid bit width", cogerr.KV{Key: "numBits", Value: numBits})
		}
		scale := r.readFloat64()
		if r.err != nil {
			return nil, cogerr.Wrap(cogerr.InvalidTiff, r.err, "reading LERC bit-stuff header")
		}
		br := &bitReader{buf: r.buf, bytePos: r.pos}
		for i := 0; i < n; i++ {
			bits, err := br.read(numBits)
			if err != nil {
				return nil, cogerr.Wrap(cogerr.InvalidTiff, err, "reading LERC bit-stuffed value")
			}
			values[i] = zMin + float64(bits)*scale
		}
		r.pos = br.bytePos
		if br.bitOff > 0 {
			r.pos++
		}
		return values, nil

	default:
		return nil, cogerr.New(cogerr.UnsupportedTiffFeature, "unsupported LERC block encoding (Huffman or newer)", cogerr.KV{Key: "blockType", Value: blockType})
	}
}

// bitReader reads an arbitrary number of MSB-first bits, the same
// convention the TIFF LZW codec uses, since LERC bit-stuffing packs
// fixed-width unsigned deltas the same way.
type bitReader struct {
	buf     []byte
	bytePos int
	bitOff  int
}

func (b *bitReader) read(n int) (uint64, error) {
	var result uint64
	for i := 0; i < n; i++ {
		if b.bytePos >= len(b.buf) {
			return 0, cogerr.New(cogerr.ShortRead, "bit reader ran past end of buffer")
		}
		bit := (b.buf[b.bytePos] >> (7 - b.bitOff)) & 1
		result = (result << 1) | uint64(bit)
		b.bitOff++
		if b.bitOff == 8 {
			b.bitOff = 0
			b.bytePos++
		}
	}
	return result, nil
}

// encodeSamples packs decoded float64 values (and the validity mask, via
// zeroing invalid samples) into the native BitsPerSample/SampleFormat byte
// layout DecodedPixels carries, mirroring what the predictor stage would
// have produced for a byte-level codec.
func encodeSamples(values []float64, mask []byte, meta DecoderMetadata) []byte {
	bps := uint16(32)
	if len(meta.BitsPerSample) > 0 {
		bps = meta.BitsPerSample[0]
	}
	format := uint16(3) // float, LERC's native domain
	if len(meta.SampleFormat) > 0 {
		format = meta.SampleFormat[0]
	}

	out := make([]byte, 0, len(values)*int(bps)/8)
	for i, v := range values {
		if i < len(mask) && mask[i] == 0 {
			v = 0
		}
		switch {
		case format == 3 && bps == 64:
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
			out = append(out, b[:]...)
		case format == 3:
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(v)))
			out = append(out, b[:]...)
		case bps == 32:
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(int32(v)))
			out = append(out, b[:]...)
		case bps == 16:
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(int16(v)))
			out = append(out, b[:]...)
		default:
			out = append(out, byte(int8(v)))
		}
	}
	return out
}
