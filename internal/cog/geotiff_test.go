package cog

import (
	"testing"

	"github.com/pspoerri/geotiff-reproject/internal/affine"
	"github.com/pspoerri/geotiff-reproject/internal/crs"
)

func TestScaleOverviewAffinePreservesOrigin(t *testing.T) {
	primary := affine.New(2, 0, 100, 0, -2, 200)
	scaled := scaleOverviewAffine(primary, 1000, 500)
	if scaled.A != 4 || scaled.E != -4 {
		t.Errorf("scale factors = (%v, %v), want (4, -4)", scaled.A, scaled.E)
	}
	if scaled.C != 100 || scaled.F != 200 {
		t.Errorf("origin = (%v, %v), want (100, 200) preserved from primary", scaled.C, scaled.F)
	}
}

func TestScaleOverviewAffineZeroWidthReturnsPrimary(t *testing.T) {
	primary := affine.New(2, 0, 100, 0, -2, 200)
	scaled := scaleOverviewAffine(primary, 1000, 0)
	if scaled != primary {
		t.Errorf("scaled = %+v, want unchanged primary %+v", scaled, primary)
	}
}

// buildTestGeoTIFF constructs a minimal in-memory GeoTIFF (no byte source,
// no Open() call) directly from fabricated tags, exercising buildOverviews'
// data/mask pairing and descending pixel-count sort without needing a real
// TIFF byte stream.
func buildTestGeoTIFF(t *testing.T, tags []*CachedTags) *GeoTIFF {
	t.Helper()
	gt := &GeoTIFF{
		ifds: make([]IFD, len(tags)),
		tags: tags,
	}
	for i, tag := range tags {
		gt.ifds[i] = IFD{Width: uint32(tag.Width), Height: uint32(tag.Height)}
	}
	if err := gt.buildOverviews(); err != nil {
		t.Fatalf("buildOverviews: %v", err)
	}
	return gt
}

func TestBuildOverviewsPairsMaskWithData(t *testing.T) {
	primary := &CachedTags{Width: 1000, Height: 1000, Affine: affine.New(1, 0, 0, 0, -1, 1000)}
	primaryMask := &CachedTags{Width: 1000, Height: 1000, IsMaskIFD: true}
	ov1 := &CachedTags{Width: 500, Height: 500}
	ov1Mask := &CachedTags{Width: 500, Height: 500, IsMaskIFD: true}
	ov2 := &CachedTags{Width: 250, Height: 250}

	gt := buildTestGeoTIFF(t, []*CachedTags{primary, primaryMask, ov1, ov1Mask, ov2})

	if gt.primary.mask == nil {
		t.Error("primary overview has no paired mask IFD, want index 1")
	}
	if len(gt.overviews) != 2 {
		t.Fatalf("got %d overviews, want 2", len(gt.overviews))
	}
	if gt.overviews[0].Width() != 500 || gt.overviews[1].Width() != 250 {
		t.Errorf("overview widths = [%d, %d], want [500, 250] (finest first)", gt.overviews[0].Width(), gt.overviews[1].Width())
	}
	if gt.overviews[0].mask == nil {
		t.Error("first overview has no paired mask IFD, want ov1Mask")
	}
	if gt.overviews[1].mask != nil {
		t.Error("second overview (250x250) has a mask, want none (no matching dims)")
	}
}

func TestBuildOverviewsScalesAffineFromPrimary(t *testing.T) {
	primary := &CachedTags{Width: 1000, Height: 1000, Affine: affine.New(1, 0, 10, 0, -1, 20)}
	ov1 := &CachedTags{Width: 500, Height: 500}

	gt := buildTestGeoTIFF(t, []*CachedTags{primary, ov1})

	aff := gt.overviews[0].Affine()
	if aff.A != 2 || aff.E != -2 {
		t.Errorf("overview affine scale = (%v, %v), want (2, -2)", aff.A, aff.E)
	}
	if aff.C != 10 || aff.F != 20 {
		t.Errorf("overview affine origin = (%v, %v), want (10, 20)", aff.C, aff.F)
	}
}

func TestGeoTIFFOverviewForResolution(t *testing.T) {
	primary := &CachedTags{Width: 4000, Height: 4000, Affine: affine.New(1, 0, 0, 0, -1, 0)}
	ov1 := &CachedTags{Width: 2000, Height: 2000} // pixel size 2 after scaling
	ov2 := &CachedTags{Width: 1000, Height: 1000} // pixel size 4 after scaling

	gt := buildTestGeoTIFF(t, []*CachedTags{primary, ov1, ov2})

	// Target pixel size 3: the coarsest overview not finer than 3 is ov1
	// (pixel size 2); ov2 (pixel size 4) is too coarse.
	got := gt.OverviewForResolution(3)
	if got != gt.overviews[0] {
		t.Errorf("OverviewForResolution(3) picked a different level than ov1 (pixel size 2)")
	}

	// Target pixel size 10: every overview qualifies, pick the coarsest (ov2).
	got = gt.OverviewForResolution(10)
	if got != gt.overviews[1] {
		t.Errorf("OverviewForResolution(10) picked a different level than ov2 (pixel size 4, coarsest)")
	}

	// Target finer than the primary's own resolution: falls back to primary.
	got = gt.OverviewForResolution(0.1)
	if got != gt.primary {
		t.Error("OverviewForResolution(0.1) did not fall back to the primary (finest) level")
	}
}

func TestGeoTIFFPixelSizeIsAbsolute(t *testing.T) {
	primary := &CachedTags{Width: 10, Height: 10, Affine: affine.New(-3, 0, 0, 0, 3, 0)}
	gt := buildTestGeoTIFF(t, []*CachedTags{primary})
	if got := gt.PixelSize(); got != 3 {
		t.Errorf("PixelSize() = %v, want 3 (absolute value of a negative A)", got)
	}
}

func TestGeoTIFFIsFloat(t *testing.T) {
	floatTags := &CachedTags{Width: 1, Height: 1, SampleFormat: 3}
	gt := buildTestGeoTIFF(t, []*CachedTags{floatTags})
	if !gt.IsFloat() {
		t.Error("IsFloat() = false, want true for SampleFormat 3")
	}

	intTags := &CachedTags{Width: 1, Height: 1, SampleFormat: 1}
	gt2 := buildTestGeoTIFF(t, []*CachedTags{intTags})
	if gt2.IsFloat() {
		t.Error("IsFloat() = true, want false for SampleFormat 1")
	}
}

func TestGeoTIFFFormatDescription(t *testing.T) {
	tags := &CachedTags{Width: 1, Height: 1, SamplesPerPixel: 3, BitsPerSample: 8, SampleFormat: 1, TileWidth: 256, TileHeight: 256}
	gt := buildTestGeoTIFF(t, []*CachedTags{tags})
	want := "3-band 8-bit uint, 256x256 tiles"
	if got := gt.FormatDescription(); got != want {
		t.Errorf("FormatDescription() = %q, want %q", got, want)
	}
}

func TestGeoTIFFEPSGCodeFailsWithoutBareEPSG(t *testing.T) {
	tags := &CachedTags{Width: 1, Height: 1}
	gt := buildTestGeoTIFF(t, []*CachedTags{tags})
	gt.crsParsed = &crs.CRS{} // no EPSG, no Projected/Geographic
	_, err := gt.EPSGCode()
	if err == nil {
		t.Fatal("expected UnsupportedCrs error when CRS has no bare EPSG code")
	}
}

func TestGeoTIFFBoundsUsesPrimaryAffine(t *testing.T) {
	primary := &CachedTags{Width: 100, Height: 100, Affine: affine.New(2, 0, 0, 0, -2, 200)}
	gt := buildTestGeoTIFF(t, []*CachedTags{primary})
	minX, minY, maxX, maxY := gt.Bounds()
	if minX != 0 || maxX != 200 || minY != 0 || maxY != 200 {
		t.Errorf("Bounds() = (%v,%v,%v,%v), want (0,0,200,200)", minX, minY, maxX, maxY)
	}
}
