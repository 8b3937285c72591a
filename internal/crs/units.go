package crs

import "github.com/pspoerri/geotiff-reproject/internal/cogerr"

// GeoTIFF/EPSG unit codes referenced by GeoKeys such as GeogAngularUnits,
// GeogLinearUnits and ProjLinearUnits.
const (
	unitCodeUserDefined = 32767

	unitCodeMetre        = 9001
	unitCodeFoot         = 9002
	unitCodeUSSurveyFoot = 9003
	unitCodeRadian       = 9101
	unitCodeDegree       = 9102
	unitCodeGrad         = 9105
)

// angularUnit maps a GeoTIFF angular unit code to a PROJJSON Unit.
func angularUnit(code int) (Unit, error) {
	switch code {
	case unitCodeDegree, 0:
		return UnitDegree, nil
	case unitCodeRadian:
		return UnitRadian, nil
	case unitCodeGrad:
		return UnitGrad, nil
	default:
		return Unit{}, cogerr.New(cogerr.UnsupportedCrs, "unsupported angular unit code", cogerr.KV{Key: "code", Value: code})
	}
}

// linearUnit maps a GeoTIFF linear unit code to a PROJJSON Unit.
func linearUnit(code int) (Unit, error) {
	switch code {
	case unitCodeMetre, 0:
		return UnitMetre, nil
	case unitCodeFoot:
		return UnitFoot, nil
	case unitCodeUSSurveyFoot:
		return UnitUSSurveyFoot, nil
	default:
		return Unit{}, cogerr.New(cogerr.UnsupportedCrs, "unsupported linear unit code", cogerr.KV{Key: "code", Value: code})
	}
}
