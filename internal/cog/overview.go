package cog

import (
	"context"
	"encoding/binary"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/pspoerri/geotiff-reproject/internal/affine"
	"github.com/pspoerri/geotiff-reproject/internal/cog/codec"
	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// RasterArray is the common interface both BandSeparate[T] and
// PixelInterleaved[T] satisfy, letting Overview.FetchTile return a single
// concrete type chosen at runtime by (SampleFormat, BitsPerSample) without
// the caller needing to know T ahead of time.
type RasterArray interface {
	Bounds() Header
}

func (b BandSeparate[T]) Bounds() Header      { return b.Header }
func (p PixelInterleaved[T]) Bounds() Header { return p.Header }

// Overview is one resolution level of a GeoTIFF: a data IFD, optionally
// paired with a mask IFD of identical dimensions, plus the affine that
// maps this level's own pixel grid to CRS space.
type Overview struct {
	gt      *GeoTIFF
	dataIdx int
	data    *IFD

	dataTags *CachedTags

	maskIdx int
	mask    *IFD
	maskTags *CachedTags

	affine affine.Affine
}

// Width returns this level's pixel width.
func (o *Overview) Width() int { return o.dataTags.Width }

// Height returns this level's pixel height.
func (o *Overview) Height() int { return o.dataTags.Height }

// TileWidth returns this level's tile width.
func (o *Overview) TileWidth() int { return o.dataTags.TileWidth }

// TileHeight returns this level's tile height.
func (o *Overview) TileHeight() int { return o.dataTags.TileHeight }

// Affine returns this level's own pixel->CRS geotransform.
func (o *Overview) Affine() affine.Affine { return o.affine }

func (o *Overview) tilesAcross() int {
	return (o.Width() + o.TileWidth() - 1) / o.TileWidth()
}

func (o *Overview) tilesDown() int {
	return (o.Height() + o.TileHeight() - 1) / o.TileHeight()
}

// FetchTile fetches, decodes and decompresses the tile at (x,y), joining
// the data-tile and (if present) mask-tile byte fetches concurrently. A
// sparse tile (zero TileByteCounts entry) fails with SparseTile unless
// boundless is true, in which case a blank tile (zero-filled bands, all-zero
// validity mask) is returned instead — matching spec.md §4.6 exactly.
func (o *Overview) FetchTile(ctx context.Context, x, y int, boundless bool) (RasterArray, error) {
	across, down := o.tilesAcross(), o.tilesDown()
	if x < 0 || x >= across || y < 0 || y >= down {
		return nil, cogerr.New(cogerr.TileNotFound, "tile index out of range", cogerr.KV{Key: "x", Value: x}, cogerr.KV{Key: "y", Value: y})
	}

	tileIdx := y*across + x
	sparse := tileIdx >= len(o.data.TileByteCounts) || o.data.TileByteCounts[tileIdx] == 0

	if sparse {
		if !boundless {
			return nil, cogerr.New(cogerr.SparseTile, "tile has no data", cogerr.KV{Key: "x", Value: x}, cogerr.KV{Key: "y", Value: y})
		}
		return o.blankTile(x, y)
	}

	var dataRaw, maskRaw []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dataRaw, err = o.fetchTileBytes(gctx, o.data, tileIdx)
		return err
	})
	if o.mask != nil {
		g.Go(func() error {
			var err error
			maskRaw, err = o.fetchTileBytes(gctx, o.mask, tileIdx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data, err := o.decodeTile(o.data, o.dataTags, dataRaw)
	if err != nil {
		return nil, err
	}

	var validity []byte
	if maskRaw != nil {
		maskPixels, err := o.decodeTile(o.mask, o.maskTags, maskRaw)
		if err != nil {
			return nil, err
		}
		validity = normalizeMask(maskPixels)
	}

	w, h := o.TileWidth(), o.TileHeight()
	tileAffine := affine.Compose(o.affine, affine.Translation(float64(x*w), float64(y*h)))

	clipW, clipH := w, h
	if !boundless {
		clipW = min(w, o.Width()-x*w)
		clipH = min(h, o.Height()-y*h)
	}

	return buildRasterArray(data, validity, w, h, clipW, clipH, o.dataTags, tileAffine, o.gt)
}

func (o *Overview) fetchTileBytes(ctx context.Context, ifd *IFD, tileIdx int) ([]byte, error) {
	if tileIdx >= len(ifd.TileOffsets) || tileIdx >= len(ifd.TileByteCounts) {
		return nil, cogerr.New(cogerr.TileNotFound, "tile index exceeds stored tile layout", cogerr.KV{Key: "tileIdx", Value: tileIdx})
	}
	offset := int64(ifd.TileOffsets[tileIdx])
	size := int64(ifd.TileByteCounts[tileIdx])
	if size == 0 {
		return nil, nil
	}
	return o.gt.src.Fetch(ctx, offset, size)
}

// decodeTile runs a tile's compressed bytes through the codec registry and
// the TIFF predictor, returning unpacked sample bytes in native
// (SampleFormat, BitsPerSample) encoding.
func (o *Overview) decodeTile(ifd *IFD, tags *CachedTags, raw []byte) ([]byte, error) {
	dec, err := o.gt.codecs.Decoder(tags.Compression)
	if err != nil {
		return nil, err
	}
	meta := codec.DecoderMetadata{
		SampleFormat:    ifd.SampleFormat,
		BitsPerSample:   ifd.BitsPerSample,
		SamplesPerPixel: tags.SamplesPerPixel,
		PlanarConfig:    tags.PlanarConfig,
		TileWidth:       tags.TileWidth,
		TileHeight:      tags.TileHeight,
		JPEGTables:      ifd.JPEGTables,
	}
	result, err := dec.Decode(raw, meta)
	if err != nil {
		return nil, err
	}
	if result.Pixels != nil {
		return result.Pixels.Data, nil
	}

	stride := tags.SamplesPerPixel
	if tags.PlanarConfig == 2 {
		stride = 1
	}
	if err := applyPredictor(tags.Predictor, result.Raw, tags.TileWidth, stride, tags.BitsPerSample); err != nil {
		return nil, err
	}
	return result.Raw, nil
}

// normalizeMask reduces a decoded single-band mask tile's raw byte samples
// to 1/0 validity bytes: any non-zero sample is valid.
func normalizeMask(raw []byte) []byte {
	out := make([]byte, len(raw))
	for i, b := range raw {
		if b != 0 {
			out[i] = 1
		}
	}
	return out
}

func (o *Overview) blankTile(x, y int) (RasterArray, error) {
	w, h := o.TileWidth(), o.TileHeight()
	tileAffine := affine.Compose(o.affine, affine.Translation(float64(x*w), float64(y*h)))
	h2 := Header{
		Width: w, Height: h, Count: o.dataTags.SamplesPerPixel,
		Affine: tileAffine, NoData: o.dataTags.NoData,
		Mask: make([]byte, w*h),
	}
	if c, err := o.gt.CRS(); err == nil {
		h2.CRS = c
	}
	bands := make([][]uint8, h2.Count)
	for i := range bands {
		bands[i] = make([]uint8, w*h)
	}
	ba, err := NewBandSeparate(h2, bands)
	if err != nil {
		return nil, err
	}
	return ba, nil
}

// buildRasterArray unpacks raw native-width sample bytes into the correct
// generic RasterArray instantiation per (SampleFormat, BitsPerSample), then
// clips to (clipW, clipH) when smaller than the full tile.
func buildRasterArray(raw, mask []byte, tileW, tileH, clipW, clipH int, tags *CachedTags, tileAffine affine.Affine, gt *GeoTIFF) (RasterArray, error) {
	count := tags.SamplesPerPixel
	if count == 0 {
		count = 1
	}

	var clippedMask []byte
	if mask != nil {
		clippedMask = clipPlane(mask, tileW, tileH, clipW, clipH, 1)
	}

	h := Header{Width: clipW, Height: clipH, Count: count, Affine: tileAffine, NoData: tags.NoData, Mask: clippedMask}
	if c, err := gt.CRS(); err == nil {
		h.CRS = c
	}

	switch {
	case tags.SampleFormat == 3 && tags.BitsPerSample == 64:
		return unpackBandSeparate[float64](raw, tileW, tileH, clipW, clipH, count, h, 8, readFloat64)
	case tags.SampleFormat == 3:
		return unpackBandSeparate[float32](raw, tileW, tileH, clipW, clipH, count, h, 4, readFloat32)
	case tags.SampleFormat == 2 && tags.BitsPerSample == 32:
		return unpackBandSeparate[int32](raw, tileW, tileH, clipW, clipH, count, h, 4, readInt32)
	case tags.SampleFormat == 2 && tags.BitsPerSample == 16:
		return unpackBandSeparate[int16](raw, tileW, tileH, clipW, clipH, count, h, 2, readInt16)
	case tags.SampleFormat == 2:
		return unpackBandSeparate[int8](raw, tileW, tileH, clipW, clipH, count, h, 1, readInt8)
	case tags.BitsPerSample == 32:
		return unpackBandSeparate[uint32](raw, tileW, tileH, clipW, clipH, count, h, 4, readUint32)
	case tags.BitsPerSample == 16:
		return unpackBandSeparate[uint16](raw, tileW, tileH, clipW, clipH, count, h, 2, readUint16)
	default:
		return unpackBandSeparate[uint8](raw, tileW, tileH, clipW, clipH, count, h, 1, readUint8)
	}
}

func unpackBandSeparate[T Sample](raw []byte, tileW, tileH, clipW, clipH, count int, h Header, sampleBytes int, read func([]byte) T) (RasterArray, error) {
	bands := make([][]T, count)
	for b := range bands {
		bands[b] = make([]T, clipW*clipH)
	}
	for y := 0; y < clipH; y++ {
		for x := 0; x < clipW; x++ {
			srcBase := (y*tileW + x) * count * sampleBytes
			for b := 0; b < count; b++ {
				off := srcBase + b*sampleBytes
				if off+sampleBytes > len(raw) {
					continue
				}
				bands[b][y*clipW+x] = read(raw[off : off+sampleBytes])
			}
		}
	}
	return NewBandSeparate(h, bands)
}

func clipPlane(plane []byte, tileW, tileH, clipW, clipH int, sampleBytes int) []byte {
	if clipW == tileW && clipH == tileH {
		return plane
	}
	out := make([]byte, clipW*clipH*sampleBytes)
	for y := 0; y < clipH; y++ {
		srcOff := y * tileW * sampleBytes
		dstOff := y * clipW * sampleBytes
		copy(out[dstOff:dstOff+clipW*sampleBytes], plane[srcOff:srcOff+clipW*sampleBytes])
	}
	return out
}

func readUint8(b []byte) uint8   { return b[0] }
func readInt8(b []byte) int8     { return int8(b[0]) }
func readUint16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func readInt16(b []byte) int16   { return int16(binary.LittleEndian.Uint16(b)) }
func readUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func readInt32(b []byte) int32   { return int32(binary.LittleEndian.Uint32(b)) }
func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
func readFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
