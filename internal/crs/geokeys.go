// Package crs parses a TIFF GeoKeyDirectory into either an EPSG code or a
// PROJJSON object, and resolves the handful of closed-form projections this
// module knows how to reproject without an external PROJ database lookup.
package crs

import (
	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// GeoKey is a GeoTIFF GeoKeyDirectory key ID, per OGC 19-008.
type GeoKey uint16

const (
	KeyGTModelType  GeoKey = 1024
	KeyGTRasterType GeoKey = 1025
	KeyGTCitation   GeoKey = 1026

	KeyGeodeticCRS            GeoKey = 2048
	KeyGeogCitation           GeoKey = 2049
	KeyGeodeticDatum          GeoKey = 2050
	KeyPrimeMeridian          GeoKey = 2051
	KeyGeogLinearUnits        GeoKey = 2052
	KeyGeogLinearUnitSize     GeoKey = 2053
	KeyGeogAngularUnits       GeoKey = 2054
	KeyGeogAngularUnitSize    GeoKey = 2055
	KeyEllipsoid              GeoKey = 2056
	KeyEllipsoidSemiMajorAxis GeoKey = 2057
	KeyEllipsoidSemiMinorAxis GeoKey = 2058
	KeyEllipsoidInvFlattening GeoKey = 2059
	KeyAzimuthUnits           GeoKey = 2060
	KeyPrimeMeridianLongitude GeoKey = 2061

	KeyProjectedCS                   GeoKey = 3072
	KeyPCSCitation                   GeoKey = 3073
	KeyProjection                    GeoKey = 3074
	KeyProjMethod                    GeoKey = 3075
	KeyProjLinearUnits               GeoKey = 3076
	KeyProjLinearUnitSize            GeoKey = 3077
	KeyProjStdParallel1              GeoKey = 3078
	KeyProjStdParallel2              GeoKey = 3079
	KeyProjNatOriginLong             GeoKey = 3080
	KeyProjNatOriginLat              GeoKey = 3081
	KeyProjFalseEasting              GeoKey = 3082
	KeyProjFalseNorthing             GeoKey = 3083
	KeyProjFalseOriginLong           GeoKey = 3084
	KeyProjFalseOriginLat            GeoKey = 3085
	KeyProjFalseOriginEasting        GeoKey = 3086
	KeyProjFalseOriginNorthing       GeoKey = 3087
	KeyProjCenterLong                GeoKey = 3088
	KeyProjCenterLat                 GeoKey = 3089
	KeyProjCenterEasting             GeoKey = 3090
	KeyProjCenterNorthing            GeoKey = 3091
	KeyProjScaleAtNatOrigin          GeoKey = 3092
	KeyProjScaleAtCenter             GeoKey = 3093
	KeyProjAzimuthAngle              GeoKey = 3094
	KeyProjStraightVertPoleLong      GeoKey = 3095
)

// ModelType values for KeyGTModelType.
const (
	ModelTypeProjected  = 1
	ModelTypeGeographic = 2
)

// ParsedGeoKeys is the flat decode of a GeoKeyDirectory plus its associated
// double/ASCII parameter blocks.
type ParsedGeoKeys struct {
	Shorts map[GeoKey]int
	Double map[GeoKey]float64
	ASCII  map[GeoKey]string
}

// ParseGeoKeys decodes a raw GeoKeyDirectoryTag (plus the GeoDoubleParamsTag
// and GeoAsciiParamsTag it may reference) into a ParsedGeoKeys.
func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams string) (*ParsedGeoKeys, error) {
	if len(directory) < 4 {
		return nil, cogerr.New(cogerr.InvalidTiff, "GeoKeyDirectory shorter than header")
	}
	if keyDirectoryVersion := directory[0]; keyDirectoryVersion != 1 {
		return nil, cogerr.New(cogerr.InvalidTiff, "unsupported GeoKeyDirectory version", cogerr.KV{Key: "version", Value: keyDirectoryVersion})
	}
	numberOfKeys := int(directory[3])
	if len(directory) < 4+4*numberOfKeys {
		return nil, cogerr.New(cogerr.InvalidTiff, "GeoKeyDirectory truncated")
	}

	pgk := &ParsedGeoKeys{
		Shorts: make(map[GeoKey]int),
		Double: make(map[GeoKey]float64),
		ASCII:  make(map[GeoKey]string),
	}

	for i := 0; i < numberOfKeys; i++ {
		entry := directory[4+4*i : 4+4*(i+1)]
		key := GeoKey(entry[0])
		tiffTagLocation := entry[1]
		count := int(entry[2])
		valueOffset := int(entry[3])

		switch tiffTagLocation {
		case 0:
			pgk.Shorts[key] = valueOffset
		case 34736: // GeoDoubleParamsTag
			if valueOffset < len(doubleParams) {
				pgk.Double[key] = doubleParams[valueOffset]
			}
		case 34737: // GeoAsciiParamsTag
			end := valueOffset + count
			if end <= len(asciiParams) {
				pgk.ASCII[key] = trimPipe(asciiParams[valueOffset:end])
			}
		default:
			// Unknown tag location: ignore rather than fail, several
			// real-world encoders emit harmless extra locations.
		}
	}
	return pgk, nil
}

// trimPipe strips the trailing '|' field terminator GeoTIFF ASCII params use.
func trimPipe(s string) string {
	for len(s) > 0 && s[len(s)-1] == '|' {
		s = s[:len(s)-1]
	}
	return s
}
