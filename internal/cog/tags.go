package cog

import (
	"github.com/pspoerri/geotiff-reproject/internal/affine"
	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// sampleFormatUint is TIFF's default SampleFormat (1) when the tag is
// absent altogether.
const sampleFormatUint = 1

// CachedTags is the pre-fetched tag bag materialised once per IFD at open
// time, per spec.md §4.4's pre-fetch set. Unlike the teacher's IFD (which
// exposes raw, possibly heterogeneous per-sample slices), CachedTags
// carries a single validated BitsPerSample/SampleFormat — the module's
// RasterArray type requires a uniform sample type per image, and catching
// a heterogeneous file here means every later stage can assume it.
type CachedTags struct {
	Compression            int
	Width, Height           int
	TileWidth, TileHeight   int
	BitsPerSample           int
	SampleFormat            uint16
	SamplesPerPixel         int
	Photometric             uint16
	PlanarConfig            uint16
	Predictor               uint16
	ColorMap                []uint16
	NoData                  string
	Affine                  affine.Affine
	HasAffine               bool
	IsMaskIFD               bool
}

// newCachedTags builds a CachedTags from a parsed IFD, enforcing the
// uniform-sample-type invariant RasterArray depends on.
func newCachedTags(ifd *IFD) (*CachedTags, error) {
	bps, err := uniformBitsPerSample(ifd)
	if err != nil {
		return nil, err
	}
	sf, err := uniformSampleFormat(ifd)
	if err != nil {
		return nil, err
	}

	gt, hasAffine := buildAffineFromIFD(ifd)

	return &CachedTags{
		Compression:     int(ifd.Compression),
		Width:           int(ifd.Width),
		Height:          int(ifd.Height),
		TileWidth:       int(ifd.TileWidth),
		TileHeight:      int(ifd.TileHeight),
		BitsPerSample:   bps,
		SampleFormat:    sf,
		SamplesPerPixel: int(ifd.SamplesPerPixel),
		Photometric:     ifd.Photometric,
		PlanarConfig:    ifd.PlanarConfig,
		Predictor:       ifd.Predictor,
		ColorMap:        ifd.ColorMap,
		NoData:          ifd.GDALNoData,
		Affine:          gt,
		HasAffine:       hasAffine,
		IsMaskIFD:       ifd.IsMask(),
	}, nil
}

func uniformBitsPerSample(ifd *IFD) (int, error) {
	if len(ifd.BitsPerSample) == 0 {
		return 8, nil
	}
	first := ifd.BitsPerSample[0]
	for _, v := range ifd.BitsPerSample[1:] {
		if v != first {
			return 0, cogerr.New(cogerr.HeterogeneousBitsPerSample, "BitsPerSample is not uniform across samples", cogerr.KV{Key: "values", Value: ifd.BitsPerSample})
		}
	}
	return int(first), nil
}

func uniformSampleFormat(ifd *IFD) (uint16, error) {
	if len(ifd.SampleFormat) == 0 {
		return sampleFormatUint, nil
	}
	first := ifd.SampleFormat[0]
	for _, v := range ifd.SampleFormat[1:] {
		if v != first {
			return 0, cogerr.New(cogerr.HeterogeneousSampleFormat, "SampleFormat is not uniform across samples", cogerr.KV{Key: "values", Value: ifd.SampleFormat})
		}
	}
	return first, nil
}
