package main

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/pspoerri/geotiff-reproject/internal/bytesource"
	"github.com/pspoerri/geotiff-reproject/internal/cog"
)

func main() {
	ctx := context.Background()
	path := os.Args[1]

	raw, err := bytesource.NewFileSource(path)
	if err != nil {
		fmt.Printf("Error opening: %v\n", err)
		os.Exit(1)
	}
	defer raw.Close()

	src, err := bytesource.Open(raw)
	if err != nil {
		fmt.Printf("Error opening: %v\n", err)
		os.Exit(1)
	}

	gt, err := cog.Open(ctx, src)
	if err != nil {
		fmt.Printf("Error opening: %v\n", err)
		os.Exit(1)
	}

	tags0 := gt.Tags(0)
	fmt.Printf("SampleFormat: %d (1=uint 2=int 3=float)\n", tags0.SampleFormat)
	fmt.Printf("NoData: %q\n", gt.NoData())
	fmt.Printf("Width: %d, Height: %d\n", gt.Width(), gt.Height())
	minX, minY, maxX, maxY := gt.Bounds()
	fmt.Printf("Bounds: [%f, %f, %f, %f]\n", minX, minY, maxX, maxY)
	fmt.Printf("LevelCount: %d\n", gt.LevelCount())

	for i := 0; i < gt.LevelCount(); i++ {
		t := gt.Tags(i)
		fmt.Printf("IFD %d: %dx%d, tileSize=%dx%d, mask=%v\n", i, t.Width, t.Height, t.TileWidth, t.TileHeight, t.IsMaskIFD)
	}

	fmt.Println("\n--- Raw Tile Debug ---")
	t0 := gt.Tags(0)
	fmt.Printf("IFD 0: compression=%d, spp=%d, bps=%d, sampleFormat=%d, predictor=%d\n",
		t0.Compression, t0.SamplesPerPixel, t0.BitsPerSample, t0.SampleFormat, t0.Predictor)

	fmt.Println("\n--- Tile Fetch ---")
	tile, err := gt.Primary().FetchTile(ctx, 0, 0, true)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	h := tile.Bounds()
	fmt.Printf("Success: %dx%d, %d band(s)\n", h.Width, h.Height, h.Count)

	if ba, ok := tile.(cog.BandSeparate[float32]); ok {
		minVal, maxVal := math.Inf(1), math.Inf(-1)
		nanCount := 0
		for _, v := range ba.Bands[0] {
			fv := float64(v)
			if math.IsNaN(fv) {
				nanCount++
				continue
			}
			minVal = math.Min(minVal, fv)
			maxVal = math.Max(maxVal, fv)
		}
		fmt.Printf("NaN: %d/%d, range: [%.2f, %.2f]\n", nanCount, len(ba.Bands[0]), minVal, maxVal)
	}
}
