package crs

import (
	"testing"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// buildDirectory packs (key, location, count, value) tuples into a
// GeoKeyDirectory, mirroring the on-disk layout ParseGeoKeys expects.
func buildDirectory(entries ...[4]uint16) []uint16 {
	dir := []uint16{1, 1, 0, uint16(len(entries))}
	for _, e := range entries {
		dir = append(dir, e[:]...)
	}
	return dir
}

func TestParseEPSGProjected(t *testing.T) {
	dir := buildDirectory(
		[4]uint16{uint16(KeyGTModelType), 0, 1, ModelTypeProjected},
		[4]uint16{uint16(KeyProjectedCS), 0, 1, 32633},
	)
	c, err := Parse(Input{Directory: dir})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.EPSG == nil || *c.EPSG != 32633 {
		t.Fatalf("EPSG = %v, want 32633", c.EPSG)
	}
}

func TestParseUserDefinedEllipsoidMissingParams(t *testing.T) {
	dir := buildDirectory(
		[4]uint16{uint16(KeyGTModelType), 0, 1, ModelTypeGeographic},
		[4]uint16{uint16(KeyGeodeticCRS), 0, 1, unitCodeUserDefined},
		[4]uint16{uint16(KeyEllipsoidSemiMajorAxis), 34736, 1, 0},
	)
	_, err := Parse(Input{Directory: dir, DoubleParams: []float64{6378137}})
	if !cogerr.Is(err, cogerr.InvalidEllipsoid) {
		t.Fatalf("expected InvalidEllipsoid, got %v", err)
	}
}

func TestParseUserDefinedEllipsoidWithInvFlattening(t *testing.T) {
	dir := buildDirectory(
		[4]uint16{uint16(KeyGTModelType), 0, 1, ModelTypeGeographic},
		[4]uint16{uint16(KeyGeodeticCRS), 0, 1, unitCodeUserDefined},
		[4]uint16{uint16(KeyGeogAngularUnits), 0, 1, unitCodeDegree},
		[4]uint16{uint16(KeyEllipsoidSemiMajorAxis), 34736, 1, 0},
		[4]uint16{uint16(KeyEllipsoidInvFlattening), 34736, 1, 1},
	)
	c, err := Parse(Input{Directory: dir, DoubleParams: []float64{6378137, 298.257223563}})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Geographic == nil {
		t.Fatalf("expected synthesised GeographicCRS")
	}
	if c.Geographic.Datum.Ellipsoid.SemiMajorAxis != 6378137 {
		t.Errorf("semi_major_axis = %v, want 6378137", c.Geographic.Datum.Ellipsoid.SemiMajorAxis)
	}
}

func TestParseUnsupportedModelType(t *testing.T) {
	dir := buildDirectory([4]uint16{uint16(KeyGTModelType), 0, 1, 99})
	_, err := Parse(Input{Directory: dir})
	if !cogerr.Is(err, cogerr.UnsupportedCrs) {
		t.Fatalf("expected UnsupportedCrs, got %v", err)
	}
}
