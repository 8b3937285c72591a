package crs

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestWebMercatorRoundTrip(t *testing.T) {
	p := webMercator{}
	lon, lat := 8.5417, 47.3769
	x, y := p.FromWGS84(lon, lat)
	rlon, rlat := p.ToWGS84(x, y)
	if !almostEqual(rlon, lon, 1e-7) || !almostEqual(rlat, lat, 1e-7) {
		t.Errorf("round trip = (%v,%v), want (%v,%v)", rlon, rlat, lon, lat)
	}
}

func TestSwissLV95RoundTrip(t *testing.T) {
	p := swissLV95{}
	lon, lat := 8.5417, 47.3769 // Zurich
	e, n := p.FromWGS84(lon, lat)
	rlon, rlat := p.ToWGS84(e, n)
	if !almostEqual(rlon, lon, 1e-4) || !almostEqual(rlat, lat, 1e-4) {
		t.Errorf("round trip = (%v,%v), want (%v,%v)", rlon, rlat, lon, lat)
	}
}

// wgs84Ellipsoid matches EPSG:7030 (WGS 84) semi_major_axis/inverse_flattening.
const (
	wgs84SemiMajorAxis = 6378137.0
	wgs84InvFlattening = 298.257223563
)

func TestTransverseMercatorRoundTrip(t *testing.T) {
	// UTM zone 32N parameters.
	tm := &transverseMercator{
		a: wgs84SemiMajorAxis, f: 1 / wgs84InvFlattening,
		lon0Deg: 9, lat0Deg: 0, k0: 0.9996,
		falseEasting: 500000, falseNorthing: 0,
	}
	lon, lat := 10.0, 51.0
	x, y := tm.FromWGS84(lon, lat)
	rlon, rlat := tm.ToWGS84(x, y)
	if !almostEqual(rlon, lon, 1e-8) || !almostEqual(rlat, lat, 1e-8) {
		t.Errorf("round trip = (%v,%v), want (%v,%v)", rlon, rlat, lon, lat)
	}
}

func TestLambertConformalConic2SPRoundTrip(t *testing.T) {
	// EPSG:32040-style Lambert, standard parallels approximating Texas.
	lcc, err := newLambertConformalConic2SP(wgs84SemiMajorAxis, 1/wgs84InvFlattening, -100, 31.17, 33.75, 34.75, 200000, 1000000)
	if err != nil {
		t.Fatalf("newLambertConformalConic2SP: %v", err)
	}
	lon, lat := -99.5, 34.0
	x, y := lcc.FromWGS84(lon, lat)
	rlon, rlat := lcc.ToWGS84(x, y)
	if !almostEqual(rlon, lon, 1e-8) || !almostEqual(rlat, lat, 1e-8) {
		t.Errorf("round trip = (%v,%v), want (%v,%v)", rlon, rlat, lon, lat)
	}
}

func TestLambertConformalConic1SPRoundTrip(t *testing.T) {
	lcc, err := newLambertConformalConic1SP(wgs84SemiMajorAxis, 1/wgs84InvFlattening, 10, 52, 0.9996, 0, 0)
	if err != nil {
		t.Fatalf("newLambertConformalConic1SP: %v", err)
	}
	lon, lat := 11.0, 53.0
	x, y := lcc.FromWGS84(lon, lat)
	rlon, rlat := lcc.ToWGS84(x, y)
	if !almostEqual(rlon, lon, 1e-8) || !almostEqual(rlat, lat, 1e-8) {
		t.Errorf("round trip = (%v,%v), want (%v,%v)", rlon, rlat, lon, lat)
	}
}

func TestAlbersEqualAreaRoundTrip(t *testing.T) {
	al, err := newAlbersEqualArea(wgs84SemiMajorAxis, 1/wgs84InvFlattening, -96, 23, 29.5, 45.5, 0, 0)
	if err != nil {
		t.Fatalf("newAlbersEqualArea: %v", err)
	}
	lon, lat := -98.0, 38.0
	x, y := al.FromWGS84(lon, lat)
	rlon, rlat := al.ToWGS84(x, y)
	if !almostEqual(rlon, lon, 1e-7) || !almostEqual(rlat, lat, 1e-7) {
		t.Errorf("round trip = (%v,%v), want (%v,%v)", rlon, rlat, lon, lat)
	}
}

func TestForProjectorUnknownEPSG(t *testing.T) {
	epsg := 99999
	_, err := ForProjector(CRS{EPSG: &epsg})
	if err == nil {
		t.Fatal("expected error for unknown EPSG code")
	}
}
