package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pspoerri/geotiff-reproject/internal/bytesource"
	"github.com/pspoerri/geotiff-reproject/internal/cog"
	"github.com/pspoerri/geotiff-reproject/internal/crs"
	"github.com/pspoerri/geotiff-reproject/internal/mesh"
	"github.com/pspoerri/geotiff-reproject/internal/tms"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: coginfo <file.tif>\n")
		os.Exit(1)
	}

	ctx := context.Background()
	path := os.Args[1]

	raw, err := bytesource.NewFileSource(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer raw.Close()

	src, err := bytesource.Open(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	gt, err := cog.Open(ctx, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("File: %s\n", path)
	if crsVal, err := gt.CRS(); err != nil {
		fmt.Printf("CRS: unresolved (%v)\n", err)
	} else {
		b, _ := json.Marshal(crsVal)
		fmt.Printf("CRS: %s\n", b)
	}
	fmt.Printf("Full-res size: %d x %d\n", gt.Width(), gt.Height())
	fmt.Printf("Tile size: %d x %d\n", gt.TileWidth(), gt.TileHeight())
	fmt.Printf("Samples per pixel: %d\n", gt.SamplesPerPixel())
	fmt.Printf("Overview count: %d (1 full-res + %d overviews)\n", len(gt.Overviews())+1, len(gt.Overviews()))

	minX, minY, maxX, maxY := gt.Bounds()
	fmt.Printf("Bounds (CRS): X=[%f, %f], Y=[%f, %f]\n", minX, maxX, minY, maxY)

	levels := append([]*cog.Overview{gt.Primary()}, gt.Overviews()...)
	for level, ov := range levels {
		fmt.Printf("\n  Level %d: %dx%d, tile %dx%d\n", level, ov.Width(), ov.Height(), ov.TileWidth(), ov.TileHeight())

		tile, err := ov.FetchTile(ctx, 0, 0, true)
		if err != nil {
			fmt.Printf("  FetchTile(level=%d, 0, 0): ERROR: %v\n", level, err)
			continue
		}
		h := tile.Bounds()
		fmt.Printf("  FetchTile(level=%d, 0, 0): OK, %dx%d, %d band(s)\n", level, h.Width, h.Height, h.Count)
	}

	set, err := tms.Build(gt)
	if err != nil {
		fmt.Printf("\nTileMatrixSet: unavailable (%v)\n", err)
		return
	}
	fmt.Printf("\nTileMatrixSet: %d levels, WGS84 bounds lon=[%f, %f] lat=[%f, %f]\n",
		len(set.TileMatrices), set.WGSBounds.MinLon, set.WGSBounds.MaxLon, set.WGSBounds.MinLat, set.WGSBounds.MaxLat)
	for _, m := range set.TileMatrices {
		fmt.Printf("  TileMatrix %s: cellSize=%f scaleDenominator=%f grid=%dx%d tile=%dx%d origin=(%f, %f)\n",
			m.ID, m.CellSize, m.ScaleDenominator, m.MatrixWidth, m.MatrixHeight, m.TileWidth, m.TileHeight,
			m.PointOfOrigin[0], m.PointOfOrigin[1])
	}

	printMeshSummary(ctx, gt)
}

// printMeshSummary builds an adaptive reprojection mesh for the primary
// image's pixel grid into WGS84, using the primary TileMatrix's affine and
// the dataset's own CRS projector, and reports its size as a cheap sanity
// check on both internal/tms and internal/mesh together.
func printMeshSummary(ctx context.Context, gt *cog.GeoTIFF) {
	c, err := gt.CRS()
	if err != nil {
		fmt.Printf("\nMesh: unavailable (%v)\n", err)
		return
	}
	proj, err := crs.ForProjector(c)
	if err != nil {
		fmt.Printf("\nMesh: unavailable (%v)\n", err)
		return
	}

	aff := gt.Affine()
	invAff, err := aff.Invert()
	if err != nil {
		fmt.Printf("\nMesh: unavailable (%v)\n", err)
		return
	}

	fns := mesh.ReprojectionFns{
		PixelToInputCRS: func(px, py float64) (float64, float64) { return aff.Forward(px, py) },
		InputCRSToPixel: func(x, y float64) (float64, float64) { return invAff.Forward(x, y) },
		ForwardReproject: func(x, y float64) (float64, float64, error) {
			lon, lat := proj.ToWGS84(x, y)
			return lon, lat, nil
		},
		InverseReproject: func(lon, lat float64) (float64, float64, error) {
			x, y := proj.FromWGS84(lon, lat)
			return x, y, nil
		},
	}

	m, err := mesh.Run(ctx, gt.Width(), gt.Height(), fns, 0.5)
	if err != nil {
		fmt.Printf("\nMesh: ERROR: %v\n", err)
		return
	}
	fmt.Printf("\nMesh: %d vertices, %d triangles (maxError=0.5px)\n", len(m.Positions)/3, len(m.Indices)/3)
}
