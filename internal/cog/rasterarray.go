package cog

import (
	"github.com/pspoerri/geotiff-reproject/internal/affine"
	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
	"github.com/pspoerri/geotiff-reproject/internal/crs"
)

// Sample is the set of pixel types RasterArray is generic over — every
// TIFF SampleFormat/BitsPerSample combination this package decodes.
type Sample interface {
	~uint8 | ~uint16 | ~uint32 | ~int8 | ~int16 | ~int32 | ~float32 | ~float64
}

// Header is the metadata shared by both RasterArray layouts, factored out
// so BandSeparate and PixelInterleaved don't mirror the same fields (the
// teacher never needed this since it only ever produced image.RGBA; this
// is new for the generic, band-count-agnostic layouts spec.md §4.8 wants).
type Header struct {
	Width, Height, Count int
	Affine               affine.Affine
	CRS                  crs.CRS
	NoData               string
	Mask                 []byte // nil or width*height bytes, 1=valid 0=invalid
}

func (h Header) validateMask() error {
	if h.Mask != nil && len(h.Mask) != h.Width*h.Height {
		return cogerr.New(cogerr.InvalidRasterSize, "mask length does not match width*height",
			cogerr.KV{Key: "maskLen", Value: len(h.Mask)}, cogerr.KV{Key: "want", Value: h.Width * h.Height})
	}
	return nil
}

// BandSeparate stores each band as its own contiguous slice.
type BandSeparate[T Sample] struct {
	Header
	Bands [][]T
}

// NewBandSeparate validates and constructs a BandSeparate array: each band
// must be exactly Width*Height samples long.
func NewBandSeparate[T Sample](h Header, bands [][]T) (BandSeparate[T], error) {
	if err := h.validateMask(); err != nil {
		return BandSeparate[T]{}, err
	}
	if len(bands) != h.Count {
		return BandSeparate[T]{}, cogerr.New(cogerr.InvalidRasterSize, "band count mismatch", cogerr.KV{Key: "got", Value: len(bands)}, cogerr.KV{Key: "want", Value: h.Count})
	}
	want := h.Width * h.Height
	for i, band := range bands {
		if len(band) != want {
			return BandSeparate[T]{}, cogerr.New(cogerr.InvalidRasterSize, "band length does not match width*height", cogerr.KV{Key: "band", Value: i}, cogerr.KV{Key: "got", Value: len(band)}, cogerr.KV{Key: "want", Value: want})
		}
	}
	return BandSeparate[T]{Header: h, Bands: bands}, nil
}

// PixelInterleaved stores samples as width*height*count values, pixel by
// pixel, band by band within a pixel.
type PixelInterleaved[T Sample] struct {
	Header
	Data []T
}

// NewPixelInterleaved validates and constructs a PixelInterleaved array.
func NewPixelInterleaved[T Sample](h Header, data []T) (PixelInterleaved[T], error) {
	if err := h.validateMask(); err != nil {
		return PixelInterleaved[T]{}, err
	}
	want := h.Width * h.Height * h.Count
	if len(data) != want {
		return PixelInterleaved[T]{}, cogerr.New(cogerr.InvalidRasterSize, "pixel data length does not match width*height*count", cogerr.KV{Key: "got", Value: len(data)}, cogerr.KV{Key: "want", Value: want})
	}
	return PixelInterleaved[T]{Header: h, Data: data}, nil
}

// ToPixelInterleaved reorders bands according to order (nil/empty means
// identity order 0..Count-1) and interleaves them into one buffer.
func (b BandSeparate[T]) ToPixelInterleaved(order []int) (PixelInterleaved[T], error) {
	order, err := resolveBandOrder(order, b.Count)
	if err != nil {
		return PixelInterleaved[T]{}, err
	}
	n := b.Width * b.Height
	data := make([]T, n*len(order))
	for pix := 0; pix < n; pix++ {
		base := pix * len(order)
		for bi, band := range order {
			data[base+bi] = b.Bands[band][pix]
		}
	}
	h := b.Header
	h.Count = len(order)
	return NewPixelInterleaved(h, data)
}

// ToBandSeparate de-interleaves a PixelInterleaved array back into bands.
func (p PixelInterleaved[T]) ToBandSeparate() (BandSeparate[T], error) {
	n := p.Width * p.Height
	bands := make([][]T, p.Count)
	for b := range bands {
		bands[b] = make([]T, n)
	}
	for pix := 0; pix < n; pix++ {
		base := pix * p.Count
		for b := range bands {
			bands[b][pix] = p.Data[base+b]
		}
	}
	return NewBandSeparate(p.Header, bands)
}

// ReorderBands returns a new BandSeparate array with bands permuted
// according to order.
func (b BandSeparate[T]) ReorderBands(order []int) (BandSeparate[T], error) {
	order, err := resolveBandOrder(order, b.Count)
	if err != nil {
		return BandSeparate[T]{}, err
	}
	bands := make([][]T, len(order))
	for i, band := range order {
		bands[i] = b.Bands[band]
	}
	h := b.Header
	h.Count = len(order)
	return NewBandSeparate(h, bands)
}

// PackBandsToRGBA packs up to four bands (per order) into an 8-bit RGBA
// byte buffer, truncating/rounding wider sample types to the display
// range. Missing colour channels (order shorter than 3) are filled with
// fill; a missing alpha channel (order shorter than 4) is 255, fully opaque.
func (b BandSeparate[T]) PackBandsToRGBA(order []int, fill T) ([]byte, error) {
	order, err := resolveBandOrder(order, b.Count)
	if err != nil {
		return nil, err
	}
	n := b.Width * b.Height
	out := make([]byte, n*4)
	fillByte := sampleToByte(fill)
	for pix := 0; pix < n; pix++ {
		for c := 0; c < 4; c++ {
			if c < len(order) {
				out[pix*4+c] = sampleToByte(b.Bands[order[c]][pix])
			} else if c == 3 {
				out[pix*4+c] = 255 // fully opaque alpha by default
			} else {
				out[pix*4+c] = fillByte
			}
		}
	}
	return out, nil
}

func sampleToByte[T Sample](v T) byte {
	f := float64(v)
	switch {
	case f <= 0:
		return 0
	case f >= 255:
		return 255
	default:
		return byte(f + 0.5)
	}
}

// resolveBandOrder defaults order to 0..count-1 and validates every index.
func resolveBandOrder(order []int, count int) ([]int, error) {
	if len(order) == 0 {
		if count == 0 {
			return nil, cogerr.New(cogerr.EmptyBandOrder, "band order is empty and array has no bands")
		}
		order = make([]int, count)
		for i := range order {
			order[i] = i
		}
		return order, nil
	}
	for _, idx := range order {
		if idx < 0 || idx >= count {
			return nil, cogerr.New(cogerr.BandIndexOutOfRange, "band index out of range", cogerr.KV{Key: "index", Value: idx}, cogerr.KV{Key: "count", Value: count})
		}
	}
	return order, nil
}
