package cog

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/pspoerri/geotiff-reproject/internal/bytesource"
	"github.com/pspoerri/geotiff-reproject/internal/crs"
)

// Bounds represents geographic bounds in WGS84.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// CenterLat returns the center latitude.
func (b Bounds) CenterLat() float64 {
	return (b.MinLat + b.MaxLat) / 2
}

// OpenAll opens every local file in paths as a GeoTIFF, validating
// upfront that all of them exist so a multi-source merge reports every
// missing input at once instead of failing on the first one. Grounded on
// the teacher's cog.OpenAll (same pre-validation shape), adapted to
// return *GeoTIFF over a bytesource.FileSource for each path.
func OpenAll(ctx context.Context, paths []string) ([]*GeoTIFF, error) {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		msg := fmt.Sprintf("%d of %d input file(s) cannot be accessed:\n", len(missing), len(paths))
		for _, p := range missing {
			msg += fmt.Sprintf("  - %s\n", p)
		}
		msg += "Aborting to avoid holes in the output."
		return nil, fmt.Errorf("%s", msg)
	}

	sources := make([]*GeoTIFF, 0, len(paths))
	for _, p := range paths {
		raw, err := bytesource.NewFileSource(p)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		src, err := bytesource.Open(raw)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		gt, err := Open(ctx, src, WithCloser(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		sources = append(sources, gt)
	}
	return sources, nil
}

// CoverageGap describes a rectangular region within the merged bounding box
// that is not covered by any input file, in source CRS coordinates.
type CoverageGap struct {
	MinX, MinY, MaxX, MaxY float64
}

// CheckCoverageGaps analyzes the geographic coverage of the given sources
// and detects holes — areas within the merged bounding box not covered by
// any file — by rasterizing a coarse coverage grid and flood-filling
// uncovered cells into contiguous regions. Ported from the teacher's
// CheckCoverageGaps unchanged; it operates purely on each source's own
// CRS-space bounding box, so it needs no adaptation for the new GeoTIFF
// type beyond the Bounds() accessor name.
func CheckCoverageGaps(sources []*GeoTIFF) []CoverageGap {
	if len(sources) <= 1 {
		return nil
	}

	type bbox struct{ minX, minY, maxX, maxY float64 }

	boxes := make([]bbox, len(sources))
	mergedMinX, mergedMinY := math.MaxFloat64, math.MaxFloat64
	mergedMaxX, mergedMaxY := -math.MaxFloat64, -math.MaxFloat64
	var totalW, totalH float64

	for i, src := range sources {
		minX, minY, maxX, maxY := src.Bounds()
		boxes[i] = bbox{minX, minY, maxX, maxY}
		mergedMinX = math.Min(mergedMinX, minX)
		mergedMinY = math.Min(mergedMinY, minY)
		mergedMaxX = math.Max(mergedMaxX, maxX)
		mergedMaxY = math.Max(mergedMaxY, maxY)
		totalW += maxX - minX
		totalH += maxY - minY
	}

	avgW := totalW / float64(len(sources))
	avgH := totalH / float64(len(sources))
	if avgW <= 0 || avgH <= 0 {
		return nil
	}

	cellW := avgW / 2
	cellH := avgH / 2

	nx := int(math.Ceil((mergedMaxX - mergedMinX) / cellW))
	ny := int(math.Ceil((mergedMaxY - mergedMinY) / cellH))

	const maxGrid = 2000
	if nx > maxGrid {
		cellW = (mergedMaxX - mergedMinX) / maxGrid
		nx = maxGrid
	}
	if ny > maxGrid {
		cellH = (mergedMaxY - mergedMinY) / maxGrid
		ny = maxGrid
	}
	if nx <= 0 || ny <= 0 {
		return nil
	}

	covered := make([]bool, nx*ny)
	for iy := 0; iy < ny; iy++ {
		cy := mergedMinY + (float64(iy)+0.5)*cellH
		for ix := 0; ix < nx; ix++ {
			cx := mergedMinX + (float64(ix)+0.5)*cellW
			for _, b := range boxes {
				if cx >= b.minX && cx <= b.maxX && cy >= b.minY && cy <= b.maxY {
					covered[iy*nx+ix] = true
					break
				}
			}
		}
	}

	visited := make([]bool, nx*ny)
	var gaps []CoverageGap

	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			idx := iy*nx + ix
			if covered[idx] || visited[idx] {
				continue
			}
			gapMinX, gapMinY := math.MaxFloat64, math.MaxFloat64
			gapMaxX, gapMaxY := -math.MaxFloat64, -math.MaxFloat64
			queue := [][2]int{{ix, iy}}
			visited[idx] = true

			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				cx, cy := cur[0], cur[1]

				cellMinX := mergedMinX + float64(cx)*cellW
				cellMinY := mergedMinY + float64(cy)*cellH
				cellMaxX := cellMinX + cellW
				cellMaxY := cellMinY + cellH
				gapMinX = math.Min(gapMinX, cellMinX)
				gapMinY = math.Min(gapMinY, cellMinY)
				gapMaxX = math.Max(gapMaxX, cellMaxX)
				gapMaxY = math.Max(gapMaxY, cellMaxY)

				for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx2, ny2 := cx+d[0], cy+d[1]
					if nx2 >= 0 && nx2 < nx && ny2 >= 0 && ny2 < ny {
						nIdx := ny2*nx + nx2
						if !covered[nIdx] && !visited[nIdx] {
							visited[nIdx] = true
							queue = append(queue, [2]int{nx2, ny2})
						}
					}
				}
			}
			gaps = append(gaps, CoverageGap{gapMinX, gapMinY, gapMaxX, gapMaxY})
		}
	}

	return gaps
}

// MergedBoundsWGS84 computes the WGS84 bounding box covering every source.
// Unlike the teacher's version (a hardcoded EPSG:2056/3857/4326 switch),
// this resolves each source's actual CRS through internal/crs and uses its
// Projector.ToWGS84, so any closed-form-supported CRS works, not just the
// three the teacher's own dataset happened to use.
func MergedBoundsWGS84(sources []*GeoTIFF) Bounds {
	if len(sources) == 0 {
		return Bounds{}
	}

	merged := Bounds{MinLon: 180, MaxLon: -180, MinLat: 90, MaxLat: -90}

	for _, src := range sources {
		minX, minY, maxX, maxY := src.Bounds()
		c, err := src.CRS()

		var proj crs.Projector
		if err == nil {
			proj, err = crs.ForProjector(c)
		}

		corners := [][2]float64{{minX, minY}, {minX, maxY}, {maxX, minY}, {maxX, maxY}}
		for _, corner := range corners {
			lon, lat := corner[0], corner[1]
			if proj != nil {
				lon, lat = proj.ToWGS84(corner[0], corner[1])
			}
			merged.MinLon = math.Min(merged.MinLon, lon)
			merged.MaxLon = math.Max(merged.MaxLon, lon)
			merged.MinLat = math.Min(merged.MinLat, lat)
			merged.MaxLat = math.Max(merged.MaxLat, lat)
		}
	}

	return merged
}
