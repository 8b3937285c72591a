package tms

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pspoerri/geotiff-reproject/internal/crs"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestMetersPerUnitMetricEPSG(t *testing.T) {
	epsg := 2056
	mpu, err := metersPerUnit(crs.CRS{EPSG: &epsg})
	if err != nil {
		t.Fatalf("metersPerUnit: %v", err)
	}
	if mpu != 1.0 {
		t.Errorf("mpu = %v, want 1.0", mpu)
	}
}

func TestMetersPerUnitGeographicDegrees(t *testing.T) {
	c := crs.CRS{Geographic: &crs.GeographicCRS{
		Datum: crs.Datum{Ellipsoid: crs.Ellipsoid{SemiMajorAxis: 6378137.0}},
	}}
	mpu, err := metersPerUnit(c)
	if err != nil {
		t.Fatalf("metersPerUnit: %v", err)
	}
	want := 2 * math.Pi * 6378137.0 / 360
	if !almostEqual(mpu, want, 1e-6) {
		t.Errorf("mpu = %v, want %v", mpu, want)
	}
}

func TestMetersPerUnitProjectedFoot(t *testing.T) {
	c := crs.CRS{Projected: &crs.ProjectedCRS{
		CoordinateSystem: crs.CoordinateSystem{
			Axis: []crs.Axis{{Unit: crs.UnitFoot}},
		},
	}}
	mpu, err := metersPerUnit(c)
	if err != nil {
		t.Fatalf("metersPerUnit: %v", err)
	}
	if !almostEqual(mpu, 0.3048, 1e-9) {
		t.Errorf("mpu = %v, want 0.3048", mpu)
	}
}

func TestMetersPerUnitProjectedUSSurveyFoot(t *testing.T) {
	c := crs.CRS{Projected: &crs.ProjectedCRS{
		CoordinateSystem: crs.CoordinateSystem{
			Axis: []crs.Axis{{Unit: crs.UnitUSSurveyFoot}},
		},
	}}
	mpu, err := metersPerUnit(c)
	if err != nil {
		t.Fatalf("metersPerUnit: %v", err)
	}
	want := 1200.0 / 3937.0
	if !almostEqual(mpu, want, 1e-9) {
		t.Errorf("mpu = %v, want %v", mpu, want)
	}
}

func TestScaleDenominator(t *testing.T) {
	// A 0.00028m cell in a metric CRS has a scale denominator of 1 by
	// construction of the OGC 17-083 reference pixel size.
	got := scaleDenominator(standardPixelSize, 1.0)
	if !almostEqual(got, 1.0, 1e-12) {
		t.Errorf("scaleDenominator = %v, want 1.0", got)
	}
}

func TestBuildFromBoundsOriginConsistency(t *testing.T) {
	bounds := [4]float64{0, 0, 1000, 2000}
	levels := []ResolutionLevel{
		{Width: 1000, Height: 2000, TileWidth: 256, TileHeight: 256},
		{Width: 500, Height: 1000, TileWidth: 256, TileHeight: 256},
		{Width: 250, Height: 500, TileWidth: 256, TileHeight: 256},
	}
	epsg := 3857
	set, err := BuildFromBounds(bounds, levels, crs.CRS{EPSG: &epsg})
	if err != nil {
		t.Fatalf("BuildFromBounds: %v", err)
	}
	if len(set.TileMatrices) != len(levels) {
		t.Fatalf("got %d matrices, want %d", len(set.TileMatrices), len(levels))
	}

	origin := set.TileMatrices[0].PointOfOrigin
	for i, m := range set.TileMatrices {
		if m.PointOfOrigin != origin {
			t.Errorf("matrix %d origin = %v, want %v (must match across all levels)", i, m.PointOfOrigin, origin)
		}
	}

	// Coarsest-first: matrix 0 has the largest cell size.
	for i := 1; i < len(set.TileMatrices); i++ {
		if set.TileMatrices[i].CellSize > set.TileMatrices[i-1].CellSize {
			t.Errorf("matrix %d cellSize %v > matrix %d cellSize %v; want coarsest-first ordering",
				i, set.TileMatrices[i].CellSize, i-1, set.TileMatrices[i-1].CellSize)
		}
	}

	if set.TileMatrices[0].MatrixWidth != 1 || set.TileMatrices[0].MatrixHeight != 2 {
		t.Errorf("coarsest matrix grid = %dx%d, want 1x2 (ceil(250/256)=1, ceil(500/256)=2)",
			set.TileMatrices[0].MatrixWidth, set.TileMatrices[0].MatrixHeight)
	}
}

func TestBuildFromBoundsZeroExtentFails(t *testing.T) {
	bounds := [4]float64{0, 0, 1000, 2000}
	levels := []ResolutionLevel{{Width: 0, Height: 0, TileWidth: 256, TileHeight: 256}}
	epsg := 3857
	_, err := BuildFromBounds(bounds, levels, crs.CRS{EPSG: &epsg})
	if err == nil {
		t.Fatal("expected InvalidRasterSize error, got nil")
	}
}

func TestBuildFromBoundsIsDeterministic(t *testing.T) {
	bounds := [4]float64{0, 0, 1000, 2000}
	levels := []ResolutionLevel{
		{Width: 1000, Height: 2000, TileWidth: 256, TileHeight: 256},
		{Width: 500, Height: 1000, TileWidth: 256, TileHeight: 256},
	}
	epsg := 3857

	a, err := BuildFromBounds(bounds, levels, crs.CRS{EPSG: &epsg})
	if err != nil {
		t.Fatalf("BuildFromBounds: %v", err)
	}
	b, err := BuildFromBounds(bounds, levels, crs.CRS{EPSG: &epsg})
	if err != nil {
		t.Fatalf("BuildFromBounds: %v", err)
	}

	if diff := cmp.Diff(a.TileMatrices, b.TileMatrices); diff != "" {
		t.Errorf("two builds from identical input produced different TileMatrices (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(a.WGSBounds, b.WGSBounds); diff != "" {
		t.Errorf("two builds from identical input produced different WGSBounds (-a +b):\n%s", diff)
	}
}

func TestBuildFromBoundsLongitudeNormalization(t *testing.T) {
	bounds := [4]float64{0, -90, 360, 90}
	levels := []ResolutionLevel{{Width: 720, Height: 360, TileWidth: 256, TileHeight: 256}}
	set, err := BuildFromBounds(bounds, levels, crs.CRS{Geographic: &crs.GeographicCRS{}})
	if err != nil {
		t.Fatalf("BuildFromBounds: %v", err)
	}
	if set.BoundingBox[0] != -180 || set.BoundingBox[2] != 180 {
		t.Errorf("bbox = %v, want normalized [-180, ..., 180, ...]", set.BoundingBox)
	}
}
