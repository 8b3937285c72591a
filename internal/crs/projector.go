package crs

import (
	"math"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// Projector converts between a CRS's native coordinates and WGS84
// longitude/latitude (degrees). It is the closed-form counterpart to a full
// PROJ pipeline: only the CRSes this module recognises without an external
// database lookup implement it.
type Projector interface {
	EPSG() int
	ToWGS84(x, y float64) (lon, lat float64)
	FromWGS84(lon, lat float64) (x, y float64)
}

// wgs84Identity is the trivial projector for EPSG:4326 itself.
type wgs84Identity struct{}

func (wgs84Identity) EPSG() int                                    { return 4326 }
func (wgs84Identity) ToWGS84(x, y float64) (lon, lat float64)      { return x, y }
func (wgs84Identity) FromWGS84(lon, lat float64) (x, y float64)    { return lon, lat }

// webMercator is EPSG:3857, ported from the spherical Web Mercator formulas
// used throughout the tile pipeline.
type webMercator struct{}

const (
	earthCircumference = 40075016.685578488
	originShift         = earthCircumference / 2.0
)

func (webMercator) EPSG() int { return 3857 }

func (webMercator) ToWGS84(x, y float64) (lon, lat float64) {
	lon = (x / originShift) * 180.0
	lat = (y / originShift) * 180.0
	lat = 180.0 / math.Pi * (2.0*math.Atan(math.Exp(lat*math.Pi/180.0)) - math.Pi/2.0)
	return
}

func (webMercator) FromWGS84(lon, lat float64) (x, y float64) {
	x = lon * originShift / 180.0
	y = math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * originShift / 180.0
	return
}

// swissLV95 is EPSG:2056, swisstopo's published polynomial approximation
// (~1m accuracy, sufficient for tile boundary computation and pixel
// reprojection).
type swissLV95 struct{}

func (swissLV95) EPSG() int { return 2056 }

func (swissLV95) ToWGS84(easting, northing float64) (lon, lat float64) {
	y := (easting - 2_600_000) / 1_000_000
	x := (northing - 1_200_000) / 1_000_000

	lonSec := 2.6779094 +
		4.728982*y +
		0.791484*y*x +
		0.1306*y*x*x -
		0.0436*y*y*y

	latSec := 16.9023892 +
		3.238272*x -
		0.270978*y*y -
		0.002528*x*x -
		0.0447*y*y*x -
		0.0140*x*x*x

	lon = lonSec * 100.0 / 36.0
	lat = latSec * 100.0 / 36.0
	return
}

func (swissLV95) FromWGS84(lon, lat float64) (easting, northing float64) {
	phiSec := lat * 3600
	lambdaSec := lon * 3600

	phiAux := (phiSec - 169028.66) / 10000
	lambdaAux := (lambdaSec - 26782.5) / 10000

	easting = 2_600_072.37 +
		211_455.93*lambdaAux -
		10_938.51*lambdaAux*phiAux -
		0.36*lambdaAux*phiAux*phiAux -
		44.54*lambdaAux*lambdaAux*lambdaAux

	northing = 1_200_147.07 +
		308_807.95*phiAux +
		3_745.25*lambdaAux*lambdaAux +
		76.63*phiAux*phiAux -
		194.56*lambdaAux*lambdaAux*phiAux +
		119.79*phiAux*phiAux*phiAux

	return
}

var wellKnownProjectors = map[int]Projector{
	4326: wgs84Identity{},
	3857: webMercator{},
	2056: swissLV95{},
}

// ForProjector resolves a Projector for the given CRS. EPSG codes are
// resolved against the well-known closed-form table above; PROJJSON CRSes
// synthesised by Parse are resolved via the generic ellipsoidal evaluator in
// generic.go for the methods it supports. Anything else fails with
// UnsupportedCrs: this module never performs a network lookup to resolve a
// user-defined CRS.
func ForProjector(c CRS) (Projector, error) {
	if c.EPSG != nil {
		if p, ok := wellKnownProjectors[*c.EPSG]; ok {
			return p, nil
		}
		return nil, cogerr.New(cogerr.UnsupportedCrs, "no closed-form projector for EPSG code", cogerr.KV{Key: "epsg", Value: *c.EPSG})
	}
	if c.Geographic != nil {
		return genericGeographicProjector(c.Geographic)
	}
	if c.Projected != nil {
		return genericProjectedProjector(c.Projected)
	}
	return nil, cogerr.New(cogerr.UnsupportedCrs, "empty CRS value")
}
