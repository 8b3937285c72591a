// Package tms builds OGC 17-083 Tile Matrix Sets from a GeoTIFF's own
// overview pyramid, or from an authoritative bounds rectangle plus an
// explicit list of resolution levels (the Zarr-parallel path).
package tms

import (
	"math"

	"github.com/pspoerri/geotiff-reproject/internal/affine"
	"github.com/pspoerri/geotiff-reproject/internal/cog"
	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
	"github.com/pspoerri/geotiff-reproject/internal/crs"
)

// standardPixelSize is the OGC 17-083 reference pixel size (0.28mm) used to
// convert a cell size into a scale denominator.
const standardPixelSize = 0.00028

// wgs84SemiMajorAxis is the fallback ellipsoid semi-major axis (meters) used
// when a geographic CRS's own ellipsoid is unavailable.
const wgs84SemiMajorAxis = 6378137.0

// TileMatrix is one resolution level of a TileMatrixSet.
type TileMatrix struct {
	ID               string
	ScaleDenominator float64
	CellSize         float64
	// PointOfOrigin is the top-left corner in CRS coordinates, shared by
	// every TileMatrix in the same TileMatrixSet.
	PointOfOrigin              [2]float64
	TileWidth, TileHeight      int
	MatrixWidth, MatrixHeight  int
	Affine                     affine.Affine
}

// TileMatrixSet is an ordered (coarsest-first) pyramid of TileMatrix levels
// sharing a common CRS and origin.
type TileMatrixSet struct {
	CRS         crs.CRS
	BoundingBox [4]float64 // minX, minY, maxX, maxY in CRS space
	WGSBounds   cog.Bounds
	TileMatrices []TileMatrix
}

// Build converts gt's own overview pyramid into a TileMatrixSet, following
// spec.md §4.9 steps 1-5: cell size from the base affine, one TileMatrix
// per level (primary + overviews), reversed to coarsest-first, scale
// denominators per OGC 17-083 §2, and a sampled WGS84 bounding box.
func Build(gt *cog.GeoTIFF) (*TileMatrixSet, error) {
	c, err := gt.CRS()
	if err != nil {
		return nil, err
	}
	mpu, err := metersPerUnit(c)
	if err != nil {
		return nil, err
	}

	levels := append([]*cog.Overview{gt.Primary()}, gt.Overviews()...)

	matrices := make([]TileMatrix, len(levels))
	for i, ov := range levels {
		matrices[i] = buildMatrix(i, ov, mpu)
	}

	// Reverse to coarsest-first (levels is finest-first: primary, then
	// overviews sorted finest-to-coarsest per spec.md §4.7 step 5).
	for l, r := 0, len(matrices)-1; l < r; l, r = l+1, r-1 {
		matrices[l], matrices[r] = matrices[r], matrices[l]
	}
	for i := range matrices {
		matrices[i].ID = idFor(i)
	}

	minX, minY, maxX, maxY := gt.Bounds()

	proj, err := crs.ForProjector(c)
	if err != nil {
		return nil, err
	}

	return &TileMatrixSet{
		CRS:          c,
		BoundingBox:  [4]float64{minX, minY, maxX, maxY},
		WGSBounds:    sampleWGSBounds(minX, minY, maxX, maxY, proj),
		TileMatrices: matrices,
	}, nil
}

// ResolutionLevel is one level of an externally-supplied pyramid (the
// Zarr-parallel path), expressed as independent per-axis pixel counts
// rather than a GeoTIFF overview.
type ResolutionLevel struct {
	Width, Height         int
	TileWidth, TileHeight int
}

// BuildFromBounds builds a TileMatrixSet from an authoritative bounds
// rectangle and an explicit list of resolution levels, finest-first, as
// spec.md §4.9's Zarr path requires: longitude is normalised from 0-360 to
// -180-180 when the extent permits, per-dimension scale factors are
// derived independently (pyramid generation may round differently in X and
// Y), and every level's origin comes from the authoritative bounds so all
// levels share one pointOfOrigin.
func BuildFromBounds(bounds [4]float64, levels []ResolutionLevel, c crs.CRS) (*TileMatrixSet, error) {
	minX, minY, maxX, maxY := bounds[0], bounds[1], bounds[2], bounds[3]
	if maxX > 180 && minX >= 0 {
		shift := 180.0
		if minX >= 180 {
			shift = 360
		}
		minX -= shift
		maxX -= shift
	}

	mpu, err := metersPerUnit(c)
	if err != nil {
		return nil, err
	}

	matrices := make([]TileMatrix, len(levels))
	for i, lvl := range levels {
		if lvl.Width <= 0 || lvl.Height <= 0 {
			return nil, cogerr.New(cogerr.InvalidRasterSize, "resolution level has zero or negative extent",
				cogerr.KV{Key: "level", Value: i})
		}
		sx := (maxX - minX) / float64(lvl.Width)
		sy := (maxY - minY) / float64(lvl.Height)
		cellSize := (sx + sy) / 2

		aff := affine.New(sx, 0, minX, 0, -sy, maxY)
		matrices[i] = TileMatrix{
			ScaleDenominator: scaleDenominator(cellSize, mpu),
			CellSize:         cellSize,
			PointOfOrigin:    [2]float64{minX, maxY},
			TileWidth:        lvl.TileWidth,
			TileHeight:       lvl.TileHeight,
			MatrixWidth:      ceilDiv(lvl.Width, lvl.TileWidth),
			MatrixHeight:     ceilDiv(lvl.Height, lvl.TileHeight),
			Affine:           aff,
		}
	}
	for l, r := 0, len(matrices)-1; l < r; l, r = l+1, r-1 {
		matrices[l], matrices[r] = matrices[r], matrices[l]
	}
	for i := range matrices {
		matrices[i].ID = idFor(i)
	}

	proj, err := crs.ForProjector(c)
	if err != nil {
		return nil, err
	}

	return &TileMatrixSet{
		CRS:          c,
		BoundingBox:  [4]float64{minX, minY, maxX, maxY},
		WGSBounds:    sampleWGSBounds(minX, minY, maxX, maxY, proj),
		TileMatrices: matrices,
	}, nil
}

func buildMatrix(levelIdx int, ov *cog.Overview, mpu float64) TileMatrix {
	aff := ov.Affine()
	cellSize := math.Abs(aff.A)
	return TileMatrix{
		ScaleDenominator: scaleDenominator(cellSize, mpu),
		CellSize:         cellSize,
		PointOfOrigin:    [2]float64{aff.C, aff.F},
		TileWidth:        ov.TileWidth(),
		TileHeight:       ov.TileHeight(),
		MatrixWidth:      ceilDiv(ov.Width(), ov.TileWidth()),
		MatrixHeight:     ceilDiv(ov.Height(), ov.TileHeight()),
		Affine:           aff,
	}
}

func scaleDenominator(cellSize, metersPerUnitFactor float64) float64 {
	return (cellSize * metersPerUnitFactor) / standardPixelSize
}

func ceilDiv(n, d int) int {
	if d <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

func idFor(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return string(digits[i])
	}
	// Unlikely in practice (pyramids rarely exceed a handful of levels),
	// but avoid silently truncating IDs beyond single digits.
	var buf []byte
	for i > 0 {
		buf = append([]byte{digits[i%10]}, buf...)
		i /= 10
	}
	return string(buf)
}

// metersPerUnit resolves the OGC 17-083 §2 metersPerUnit factor for c: 1 for
// metric CRSes, 0.3048 for foot, 1200/3937 for US survey foot, 2*pi*a/360
// for degrees (a = ellipsoid semi-major axis, defaulting to WGS84).
func metersPerUnit(c crs.CRS) (float64, error) {
	switch {
	case c.Geographic != nil:
		return degreesToMeters(c.Geographic.Datum.Ellipsoid.SemiMajorAxis), nil
	case c.Projected != nil:
		return unitFactor(axisUnit(c.Projected.CoordinateSystem), c.Projected.BaseCRS.Datum.Ellipsoid.SemiMajorAxis), nil
	case c.EPSG != nil:
		// Bare EPSG codes carry no PROJJSON axis data. EPSG:4326 is in
		// degrees on the WGS84 ellipsoid; every other bare code is treated
		// as metric.
		if *c.EPSG == 4326 {
			return degreesToMeters(0), nil
		}
		return 1.0, nil
	default:
		return 1.0, nil
	}
}

func axisUnit(cs crs.CoordinateSystem) crs.Unit {
	if len(cs.Axis) == 0 {
		return crs.UnitMetre
	}
	return cs.Axis[0].Unit
}

func unitFactor(u crs.Unit, semiMajorAxis float64) float64 {
	switch u.Name {
	case crs.UnitFoot.Name:
		return 0.3048
	case crs.UnitUSSurveyFoot.Name:
		return 1200.0 / 3937.0
	case crs.UnitDegree.Name:
		return degreesToMeters(semiMajorAxis)
	default:
		return 1.0
	}
}

func degreesToMeters(semiMajorAxis float64) float64 {
	a := semiMajorAxis
	if a <= 0 {
		a = wgs84SemiMajorAxis
	}
	return 2 * math.Pi * a / 360
}

// sampleWGSBounds reprojects >=20 points per boundary edge to capture
// curved-projection extents, per spec.md §4.9 step 5.
func sampleWGSBounds(minX, minY, maxX, maxY float64, proj crs.Projector) cog.Bounds {
	const samplesPerEdge = 20

	b := cog.Bounds{MinLon: math.MaxFloat64, MaxLon: -math.MaxFloat64, MinLat: math.MaxFloat64, MaxLat: -math.MaxFloat64}
	consider := func(x, y float64) {
		lon, lat := x, y
		if proj != nil {
			lon, lat = proj.ToWGS84(x, y)
		}
		b.MinLon = math.Min(b.MinLon, lon)
		b.MaxLon = math.Max(b.MaxLon, lon)
		b.MinLat = math.Min(b.MinLat, lat)
		b.MaxLat = math.Max(b.MaxLat, lat)
	}

	for i := 0; i <= samplesPerEdge; i++ {
		t := float64(i) / float64(samplesPerEdge)
		x := minX + t*(maxX-minX)
		consider(x, minY)
		consider(x, maxY)
		y := minY + t*(maxY-minY)
		consider(minX, y)
		consider(maxX, y)
	}

	return b
}
