package crs

// GeoTIFF ProjCoordTransGeoKey (CT_*) method codes, per OGC 19-008 §6.3.3.3.
const (
	ctTransverseMercator         = 1
	ctObliqueMercatorB           = 3
	ctMercator                   = 7
	ctLambertConfConic2SP        = 8
	ctLambertConfConic1SP        = 9
	ctLambertAzimEqualArea       = 10
	ctAlbersEqualArea            = 11
	ctAzimuthalEquidistant       = 12
	ctEquidistantConic           = 13
	ctStereographic              = 14
	ctPolarStereographic         = 15
	ctObliqueStereographic       = 16
	ctEquirectangular            = 17
	ctCassiniSoldner             = 18
	ctOrthographic               = 21
	ctPolyconic                  = 22
	ctSinusoidal                 = 24
	ctNewZealandMapGrid          = 26
	ctTransvMercatorSouthOriented = 27
)

// projMethodNames gives the PROJJSON conversion method name for each CT_
// code this module recognises while building a synthesised ProjectedCRS.
var projMethodNames = map[int]string{
	ctTransverseMercator:          "Transverse Mercator",
	ctObliqueMercatorB:            "Hotine Oblique Mercator (variant B)",
	ctMercator:                    "Mercator (variant A)",
	ctLambertConfConic2SP:         "Lambert Conic Conformal (2SP)",
	ctLambertConfConic1SP:         "Lambert Conic Conformal (1SP)",
	ctLambertAzimEqualArea:        "Lambert Azimuthal Equal Area",
	ctAlbersEqualArea:             "Albers Equal Area",
	ctAzimuthalEquidistant:        "Modified Azimuthal Equidistant",
	ctEquidistantConic:            "Equidistant Conic",
	ctStereographic:               "Stereographic",
	ctPolarStereographic:          "Polar Stereographic",
	ctObliqueStereographic:        "Oblique Stereographic",
	ctEquirectangular:             "Equidistant Cylindrical",
	ctCassiniSoldner:              "Cassini-Soldner",
	ctOrthographic:                "Orthographic",
	ctPolyconic:                   "American Polyconic",
	ctSinusoidal:                  "Sinusoidal",
	ctNewZealandMapGrid:           "New Zealand Map Grid",
	ctTransvMercatorSouthOriented: "Transverse Mercator (South Orientated)",
}
