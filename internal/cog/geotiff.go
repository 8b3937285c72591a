package cog

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/pspoerri/geotiff-reproject/internal/affine"
	"github.com/pspoerri/geotiff-reproject/internal/bytesource"
	"github.com/pspoerri/geotiff-reproject/internal/cog/codec"
	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
	"github.com/pspoerri/geotiff-reproject/internal/crs"
)

// GeoTIFF is the file-level façade: it owns the byte source and the parsed
// IFDs, and exposes the primary image plus its reduced-resolution
// overviews. Grounded on the teacher's cog.Reader/cog.Open, generalized
// to operate over a bytesource.Source instead of a direct mmap so a
// remote, HTTP-backed COG can be opened exactly the same way as a local
// file.
type GeoTIFF struct {
	src     bytesource.Source
	codecs  *codec.Registry
	strips  map[int]*stripLayout // by ifd index, for strip-promoted IFDs
	ifds    []IFD
	tags    []*CachedTags
	primary *Overview
	// overviews holds the reduced-resolution levels only (primary excluded),
	// sorted by pixel count descending (finest first), per spec.md §4.7.
	overviews []*Overview

	crsParsed *crs.CRS

	// closer, when set, releases the raw resource underneath src (e.g. the
	// os.File a FileSource wraps). bytesource's chunking/caching middleware
	// doesn't itself implement io.Closer, so OpenAll stashes the original
	// raw source here rather than losing the handle.
	closer io.Closer
}

// Close releases the underlying byte source, if it owns a closable resource
// (a local file handle). Sources with nothing to close (in-memory buffers,
// a caller-owned reader) are a no-op.
func (gt *GeoTIFF) Close() error {
	if gt.closer == nil {
		return nil
	}
	return gt.closer.Close()
}

// OpenOption configures GeoTIFF.Open.
type OpenOption func(*openConfig)

type openConfig struct {
	codecs *codec.Registry
	closer io.Closer
}

// WithCloser attaches a resource for GeoTIFF.Close to release, e.g. the raw
// os.File underneath a bytesource.FileSource that's been wrapped in chunking
// and caching middleware before being passed to Open.
func WithCloser(c io.Closer) OpenOption {
	return func(cfg *openConfig) { cfg.closer = c }
}

// WithCodecRegistry overrides the codec registry used to decode tiles,
// e.g. to register a custom Compression code. Defaults to codec.Default().
func WithCodecRegistry(r *codec.Registry) OpenOption {
	return func(c *openConfig) { c.codecs = r }
}

// Open reads the TIFF/BigTIFF header and every IFD header from src, builds
// the primary Overview (paired with its mask IFD if present), and builds
// the remaining reduced-resolution Overviews. It does not fetch any tile
// data — only directory structure.
func Open(ctx context.Context, src bytesource.Source, opts ...OpenOption) (*GeoTIFF, error) {
	cfg := openConfig{codecs: codec.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	sr := newSourceReader(ctx, src)
	ifds, _, err := parseTIFF(sr)
	if err != nil {
		return nil, cogerr.Wrap(cogerr.InvalidTiff, err, "parsing TIFF structure")
	}
	if len(ifds) == 0 {
		return nil, cogerr.New(cogerr.InvalidTiff, "no IFDs found")
	}

	strips := make(map[int]*stripLayout)
	tags := make([]*CachedTags, len(ifds))
	for i := range ifds {
		ifd := &ifds[i]
		if ifd.TileWidth == 0 || ifd.TileHeight == 0 {
			if len(ifd.StripOffsets) == 0 {
				return nil, cogerr.New(cogerr.InvalidTiff, "IFD has neither tile nor strip layout", cogerr.KV{Key: "ifd", Value: i})
			}
			strips[i] = promoteStripsToTiles(ifd)
		}
		t, err := newCachedTags(ifd)
		if err != nil {
			return nil, err
		}
		tags[i] = t
	}

	gt := &GeoTIFF{
		src:    src,
		codecs: cfg.codecs,
		strips: strips,
		ifds:   ifds,
		tags:   tags,
		closer: cfg.closer,
	}

	if err := gt.buildOverviews(); err != nil {
		return nil, err
	}
	return gt, nil
}

// buildOverviews partitions IFDs[1:] into data vs. mask buckets keyed by
// (width,height), pairs the primary data IFD (index 0) with its matching
// mask, and builds the remaining reduced-resolution overviews sorted by
// pixel count descending.
func (gt *GeoTIFF) buildOverviews() error {
	type key struct{ w, h int }
	masksByDims := make(map[key][]int)
	var dataIdx []int

	for i := 1; i < len(gt.ifds); i++ {
		t := gt.tags[i]
		k := key{t.Width, t.Height}
		if t.IsMaskIFD {
			masksByDims[k] = append(masksByDims[k], i)
		} else {
			dataIdx = append(dataIdx, i)
		}
	}

	popMask := func(w, h int) int {
		k := key{w, h}
		lst := masksByDims[k]
		if len(lst) == 0 {
			return -1
		}
		masksByDims[k] = lst[1:]
		return lst[0]
	}

	primaryMask := popMask(gt.tags[0].Width, gt.tags[0].Height)
	primary, err := gt.newOverview(0, primaryMask, gt.tags[0].Affine)
	if err != nil {
		return err
	}
	gt.primary = primary

	sort.Slice(dataIdx, func(a, b int) bool {
		ta, tb := gt.tags[dataIdx[a]], gt.tags[dataIdx[b]]
		return ta.Width*ta.Height > tb.Width*tb.Height
	})

	for _, i := range dataIdx {
		maskIdx := popMask(gt.tags[i].Width, gt.tags[i].Height)
		scaled := scaleOverviewAffine(gt.tags[0].Affine, gt.tags[0].Width, gt.tags[i].Width)
		ov, err := gt.newOverview(i, maskIdx, scaled)
		if err != nil {
			return err
		}
		gt.overviews = append(gt.overviews, ov)
	}
	return nil
}

// scaleOverviewAffine scales the primary affine by primaryWidth/overviewWidth,
// preserving the origin (c,f) exactly, per spec.md §4.7.
func scaleOverviewAffine(primary affine.Affine, primaryWidth, overviewWidth int) affine.Affine {
	if overviewWidth == 0 {
		return primary
	}
	scale := float64(primaryWidth) / float64(overviewWidth)
	return affine.New(primary.A*scale, primary.B*scale, primary.C, primary.D*scale, primary.E*scale, primary.F)
}

func (gt *GeoTIFF) newOverview(dataIdx, maskIdx int, aff affine.Affine) (*Overview, error) {
	ov := &Overview{
		gt:       gt,
		dataIdx:  dataIdx,
		data:     &gt.ifds[dataIdx],
		dataTags: gt.tags[dataIdx],
		affine:   aff,
	}
	if maskIdx >= 0 {
		ov.maskIdx = maskIdx
		ov.mask = &gt.ifds[maskIdx]
		ov.maskTags = gt.tags[maskIdx]
	}
	return ov, nil
}

// CRS lazily parses the primary IFD's GeoKeyDirectory.
func (gt *GeoTIFF) CRS() (crs.CRS, error) {
	if gt.crsParsed != nil {
		return *gt.crsParsed, nil
	}
	c, err := resolveCRS(gt.data0())
	if err != nil {
		return crs.CRS{}, err
	}
	gt.crsParsed = &c
	return c, nil
}

func (gt *GeoTIFF) data0() *IFD { return &gt.ifds[0] }

// Primary returns the full-resolution Overview.
func (gt *GeoTIFF) Primary() *Overview { return gt.primary }

// Overviews returns the reduced-resolution levels, finest first.
func (gt *GeoTIFF) Overviews() []*Overview { return gt.overviews }

// Width returns the primary image's pixel width.
func (gt *GeoTIFF) Width() int { return gt.tags[0].Width }

// Height returns the primary image's pixel height.
func (gt *GeoTIFF) Height() int { return gt.tags[0].Height }

// TileWidth returns the primary image's tile width.
func (gt *GeoTIFF) TileWidth() int { return gt.tags[0].TileWidth }

// TileHeight returns the primary image's tile height.
func (gt *GeoTIFF) TileHeight() int { return gt.tags[0].TileHeight }

// SamplesPerPixel returns the primary image's band count.
func (gt *GeoTIFF) SamplesPerPixel() int { return gt.tags[0].SamplesPerPixel }

// NoData returns the primary image's GDAL_NODATA string, if any.
func (gt *GeoTIFF) NoData() string { return gt.tags[0].NoData }

// Affine returns the primary image's pixel->CRS geotransform.
func (gt *GeoTIFF) Affine() affine.Affine { return gt.tags[0].Affine }

// Bounds returns the primary image's CRS-space bounding box.
func (gt *GeoTIFF) Bounds() (minX, minY, maxX, maxY float64) {
	return gt.tags[0].Affine.Bounds(float64(gt.Width()), float64(gt.Height()))
}

// Tags returns the pre-fetched tag bag for the given IFD level (0 is the
// primary image, higher indices are overviews in file order, not the
// pixel-count-sorted order Overviews() exposes). Intended for
// diagnostics tooling, not the tile-fetch path.
func (gt *GeoTIFF) Tags(level int) *CachedTags { return gt.tags[level] }

// LevelCount returns the number of IFDs (data and mask together) the file
// carries.
func (gt *GeoTIFF) LevelCount() int { return len(gt.ifds) }

// Source returns the byte source the GeoTIFF was opened with, for
// diagnostics that need to read raw bytes outside the tile-fetch path.
func (gt *GeoTIFF) Source() bytesource.Source { return gt.src }

// EPSGCode returns the primary image's EPSG code. Synthesised PROJJSON CRSes
// (no bare EPSG code) report UnsupportedCrs.
func (gt *GeoTIFF) EPSGCode() (int, error) {
	c, err := gt.CRS()
	if err != nil {
		return 0, err
	}
	if c.EPSG == nil {
		return 0, cogerr.New(cogerr.UnsupportedCrs, "CRS has no bare EPSG code")
	}
	return *c.EPSG, nil
}

// PixelSize returns the primary image's ground pixel size in CRS units,
// assuming square pixels (the affine's |A| term).
func (gt *GeoTIFF) PixelSize() float64 {
	a := gt.tags[0].Affine.A
	if a < 0 {
		return -a
	}
	return a
}

// IsFloat reports whether the primary image stores floating-point samples
// (SampleFormat 3), e.g. elevation/DEM data.
func (gt *GeoTIFF) IsFloat() bool { return gt.tags[0].SampleFormat == 3 }

// FormatDescription returns a short human-readable summary of the primary
// image's pixel format, for diagnostics.
func (gt *GeoTIFF) FormatDescription() string {
	t := gt.tags[0]
	kind := "uint"
	switch t.SampleFormat {
	case 2:
		kind = "int"
	case 3:
		kind = "float"
	}
	return fmt.Sprintf("%d-band %d-bit %s, %dx%d tiles", t.SamplesPerPixel, t.BitsPerSample, kind, t.TileWidth, t.TileHeight)
}

// OverviewForResolution returns the coarsest level (the primary image or one
// of its reduced-resolution overviews) whose pixel size does not exceed
// targetPixelSize, falling back to the primary (finest) level when every
// overview is coarser than the target — i.e. the caller is zooming in
// beyond native resolution and must upsample.
func (gt *GeoTIFF) OverviewForResolution(targetPixelSize float64) *Overview {
	best := gt.primary
	bestPixelSize := absFloat(best.Affine().A)
	for _, ov := range gt.overviews {
		ps := absFloat(ov.Affine().A)
		if ps <= targetPixelSize && ps > bestPixelSize {
			best = ov
			bestPixelSize = ps
		}
	}
	return best
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// FetchTile delegates to the primary Overview.
func (gt *GeoTIFF) FetchTile(ctx context.Context, x, y int, boundless bool) (RasterArray, error) {
	return gt.primary.FetchTile(ctx, x, y, boundless)
}

// Index converts CRS coordinates to a (row,col) pixel index on the primary
// image, rounding down.
func (gt *GeoTIFF) Index(x, y float64) (row, col int, err error) {
	return affine.Index(gt.tags[0].Affine, x, y, affine.FloorRounder)
}

// XY converts a (row,col) pixel index on the primary image to CRS
// coordinates, anchored at the pixel's upper-left corner.
func (gt *GeoTIFF) XY(row, col int) (x, y float64) {
	return affine.XY(gt.tags[0].Affine, row, col, affine.UL)
}
