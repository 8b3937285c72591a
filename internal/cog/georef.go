package cog

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pspoerri/geotiff-reproject/internal/affine"
	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
	"github.com/pspoerri/geotiff-reproject/internal/crs"
)

func errShortTFW(path string, lines int) error {
	return cogerr.New(cogerr.InvalidTiff, "TFW sidecar has too few lines", cogerr.KV{Key: "path", Value: path}, cogerr.KV{Key: "lines", Value: lines})
}

// buildAffineFromIFD derives the pixel->CRS geotransform from whichever
// georeferencing tags the IFD carries: ModelTransformationTag (full affine,
// including the rotation terms a GeoTIFF rarely but legitimately sets) takes
// priority over the ModelPixelScale+ModelTiepoint pair.
func buildAffineFromIFD(ifd *IFD) (affine.Affine, bool) {
	if len(ifd.ModelTransform) >= 12 {
		m := ifd.ModelTransform
		return affine.New(m[0], m[1], m[3], m[4], m[5], m[7]), true
	}
	if len(ifd.ModelPixelScale) >= 2 && len(ifd.ModelTiepoint) >= 6 {
		sx, sy := ifd.ModelPixelScale[0], ifd.ModelPixelScale[1]
		i, j, x, y := ifd.ModelTiepoint[0], ifd.ModelTiepoint[1], ifd.ModelTiepoint[3], ifd.ModelTiepoint[4]
		originX := x - i*sx
		originY := y + j*sy
		return affine.New(sx, 0, originX, 0, -sy, originY), true
	}
	return affine.Affine{}, false
}

// resolveCRS parses the IFD's GeoKeyDirectory into a crs.CRS.
func resolveCRS(ifd *IFD) (crs.CRS, error) {
	return crs.Parse(crs.Input{
		Directory:    ifd.GeoKeys,
		DoubleParams: ifd.GeoDoubleParams,
		ASCIIParams:  ifd.GeoAsciiParams,
	})
}

// tfw holds the six parameters of a TIFF World File sidecar.
type tfw struct {
	pixelSizeX, rotationY, rotationX, pixelSizeY, originX, originY float64
}

// findTFW looks for a TFW sidecar file alongside the given TIFF path.
func findTFW(tiffPath string) string {
	ext := filepath.Ext(tiffPath)
	base := tiffPath[:len(tiffPath)-len(ext)]
	for _, c := range []string{".tfw", ".TFW", ".tifw", ".TIFW"} {
		if p := base + c; fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func parseTFW(path string) (*tfw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 6 {
		return nil, errShortTFW(path, len(lines))
	}
	vals := make([]float64, 6)
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(lines[i]), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return &tfw{
		pixelSizeX: vals[0], rotationY: vals[1], rotationX: vals[2],
		pixelSizeY: vals[3], originX: vals[4], originY: vals[5],
	}, nil
}

// toAffine converts the TFW parameters (pixel-center origin) to a pixel->CRS
// Affine with a corner (upper-left edge) origin, matching the rest of the
// pipeline's convention.
func (t *tfw) toAffine() affine.Affine {
	return affine.New(
		t.pixelSizeX, t.rotationY, t.originX-t.pixelSizeX/2,
		t.rotationX, t.pixelSizeY, t.originY-t.pixelSizeY/2,
	)
}

// inferEPSG guesses an EPSG code from a TFW-derived affine's coordinate
// range, for the common case of a world file with no embedded CRS at all.
func inferEPSG(gt affine.Affine, width, height uint32) int {
	minX, minY, maxX, maxY := gt.Bounds(float64(width), float64(height))

	if minX >= -180 && maxX <= 360 && minY >= -90 && maxY <= 90 {
		return 4326
	}
	if math.Abs(minX) > 100000 || math.Abs(minY) > 100000 {
		if minX >= 2400000 && minX <= 2900000 && minY >= 1000000 && minY <= 1400000 {
			return 2056
		}
		if math.Abs(minX) <= 20037508.34 && math.Abs(maxY) <= 20048966.10 {
			return 3857
		}
	}
	return 4326
}
