package crs

import (
	"encoding/json"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// Input is the parsed-GeoKeyDirectory input to Parse: the raw
// GeoKeyDirectoryTag contents plus the GeoDoubleParamsTag and
// GeoAsciiParamsTag blocks it may reference.
type Input struct {
	Directory    []uint16
	DoubleParams []float64
	ASCIIParams  string
}

// CRS is either a bare EPSG code or a synthesised PROJJSON CRS object. Only
// one of EPSG, Geographic, Projected is set.
type CRS struct {
	EPSG       *int
	Geographic *GeographicCRS
	Projected  *ProjectedCRS
}

// MarshalJSON emits a bare integer for the EPSG case, or the PROJJSON object
// otherwise.
func (c CRS) MarshalJSON() ([]byte, error) {
	switch {
	case c.EPSG != nil:
		return json.Marshal(*c.EPSG)
	case c.Projected != nil:
		return json.Marshal(c.Projected)
	case c.Geographic != nil:
		return json.Marshal(c.Geographic)
	default:
		return nil, cogerr.New(cogerr.UnsupportedCrs, "empty CRS value")
	}
}

// Parse decodes a GeoKeyDirectory into either an EPSG code or a synthesised
// PROJJSON object, per the rules in the ModelType 1/2 switch below.
func Parse(in Input) (CRS, error) {
	pgk, err := ParseGeoKeys(in.Directory, in.DoubleParams, in.ASCIIParams)
	if err != nil {
		return CRS{}, err
	}

	modelType, ok := pgk.Shorts[KeyGTModelType]
	if !ok {
		return CRS{}, cogerr.New(cogerr.UnsupportedCrs, "GeoKeyDirectory has no GTModelType key")
	}

	switch modelType {
	case ModelTypeProjected:
		if code, ok := pgk.Shorts[KeyProjectedCS]; ok && code != unitCodeUserDefined {
			return CRS{EPSG: &code}, nil
		}
		base, err := buildGeographicCRS(pgk)
		if err != nil {
			return CRS{}, err
		}
		conv, err := buildConversion(pgk)
		if err != nil {
			return CRS{}, err
		}
		linUnit, err := linearUnit(pgk.Shorts[KeyProjLinearUnits])
		if err != nil {
			return CRS{}, err
		}
		name := pgk.ASCII[KeyPCSCitation]
		if name == "" {
			name = "unnamed"
		}
		return CRS{Projected: &ProjectedCRS{
			Type:    "ProjectedCRS",
			Name:    name,
			BaseCRS: *base,
			Conversion: conv,
			CoordinateSystem: CoordinateSystem{
				Subtype: "Cartesian",
				Axis: []Axis{
					{Name: "Easting", Abbreviation: "E", Direction: "east", Unit: linUnit},
					{Name: "Northing", Abbreviation: "N", Direction: "north", Unit: linUnit},
				},
			},
		}}, nil

	case ModelTypeGeographic:
		if code, ok := pgk.Shorts[KeyGeodeticCRS]; ok && code != unitCodeUserDefined {
			return CRS{EPSG: &code}, nil
		}
		base, err := buildGeographicCRS(pgk)
		if err != nil {
			return CRS{}, err
		}
		return CRS{Geographic: base}, nil

	default:
		return CRS{}, cogerr.New(cogerr.UnsupportedCrs, "unsupported GTModelType", cogerr.KV{Key: "modelType", Value: modelType})
	}
}

// buildGeographicCRS synthesises the base Geographic CRS used both standalone
// (ModelType 2) and as a Projected CRS's base_crs.
func buildGeographicCRS(pgk *ParsedGeoKeys) (*GeographicCRS, error) {
	angUnit, err := angularUnit(pgk.Shorts[KeyGeogAngularUnits])
	if err != nil {
		return nil, err
	}

	ellipsoid, err := buildEllipsoid(pgk)
	if err != nil {
		return nil, err
	}

	datumName := pgk.ASCII[KeyGeogCitation]
	if datumName == "" {
		datumName = "unnamed"
	}

	return &GeographicCRS{
		Type: "GeographicCRS",
		Name: datumName,
		Datum: Datum{
			Type:      "GeodeticReferenceFrame",
			Name:      datumName,
			Ellipsoid: ellipsoid,
		},
		CoordinateSystem: CoordinateSystem{
			Subtype: "ellipsoidal",
			Axis: []Axis{
				{Name: "Geodetic longitude", Abbreviation: "Lon", Direction: "east", Unit: angUnit},
				{Name: "Geodetic latitude", Abbreviation: "Lat", Direction: "north", Unit: angUnit},
			},
		},
	}, nil
}

// buildEllipsoid enforces the rule that a user-defined ellipsoid's
// semi_major_axis must be accompanied by either inverse_flattening or
// semi_minor_axis.
func buildEllipsoid(pgk *ParsedGeoKeys) (Ellipsoid, error) {
	semiMajor, hasMajor := pgk.Double[KeyEllipsoidSemiMajorAxis]
	if !hasMajor {
		return Ellipsoid{}, cogerr.New(cogerr.UnsupportedCrs, "no ellipsoid semi_major_axis available to synthesise a CRS")
	}
	invFlat, hasInvFlat := pgk.Double[KeyEllipsoidInvFlattening]
	semiMinor, hasMinor := pgk.Double[KeyEllipsoidSemiMinorAxis]
	if !hasInvFlat && !hasMinor {
		return Ellipsoid{}, cogerr.New(cogerr.InvalidEllipsoid, "user-defined ellipsoid missing inverse_flattening and semi_minor_axis", cogerr.KV{Key: "semi_major_axis", Value: semiMajor})
	}

	name := pgk.ASCII[KeyGeogCitation]
	if name == "" {
		name = "unnamed"
	}
	e := Ellipsoid{Name: name, SemiMajorAxis: semiMajor}
	if hasInvFlat {
		e.InverseFlattening = float64Ptr(invFlat)
	}
	if hasMinor {
		e.SemiMinorAxis = float64Ptr(semiMinor)
	}
	return e, nil
}

// projParam describes one possible Conversion parameter: its GeoTIFF key,
// PROJJSON parameter name, and whether its value is angular, linear or
// dimensionless (scale factor).
type projParam struct {
	key  GeoKey
	name string
	kind string // "angular", "linear", "scale"
}

var allProjParams = []projParam{
	{KeyProjStdParallel1, "Latitude of 1st standard parallel", "angular"},
	{KeyProjStdParallel2, "Latitude of 2nd standard parallel", "angular"},
	{KeyProjNatOriginLong, "Longitude of natural origin", "angular"},
	{KeyProjNatOriginLat, "Latitude of natural origin", "angular"},
	{KeyProjFalseEasting, "False easting", "linear"},
	{KeyProjFalseNorthing, "False northing", "linear"},
	{KeyProjFalseOriginLong, "Longitude of false origin", "angular"},
	{KeyProjFalseOriginLat, "Latitude of false origin", "angular"},
	{KeyProjFalseOriginEasting, "Easting at false origin", "linear"},
	{KeyProjFalseOriginNorthing, "Northing at false origin", "linear"},
	{KeyProjCenterLong, "Longitude of projection centre", "angular"},
	{KeyProjCenterLat, "Latitude of projection centre", "angular"},
	{KeyProjCenterEasting, "Easting at projection centre", "linear"},
	{KeyProjCenterNorthing, "Northing at projection centre", "linear"},
	{KeyProjScaleAtNatOrigin, "Scale factor at natural origin", "scale"},
	{KeyProjScaleAtCenter, "Scale factor at projection centre", "scale"},
	{KeyProjAzimuthAngle, "Azimuth of initial line", "angular"},
	{KeyProjStraightVertPoleLong, "Longitude of straight vertical pole", "angular"},
}

// buildConversion synthesises the Conversion object for a ProjectedCRS from
// the ProjMethod GeoKey and whichever parameter GeoKeys are present.
func buildConversion(pgk *ParsedGeoKeys) (Conversion, error) {
	methodCode, ok := pgk.Shorts[KeyProjMethod]
	if !ok {
		return Conversion{}, cogerr.New(cogerr.UnsupportedCrs, "GeoKeyDirectory has no ProjMethod key")
	}
	methodName, ok := projMethodNames[methodCode]
	if !ok {
		return Conversion{}, cogerr.New(cogerr.UnsupportedCrs, "unsupported ProjMethod", cogerr.KV{Key: "method", Value: methodCode})
	}

	angUnit, err := angularUnit(pgk.Shorts[KeyGeogAngularUnits])
	if err != nil {
		return Conversion{}, err
	}
	linUnit, err := linearUnit(pgk.Shorts[KeyProjLinearUnits])
	if err != nil {
		return Conversion{}, err
	}

	var params []Parameter
	for _, pp := range allProjParams {
		v, ok := pgk.Double[pp.key]
		if !ok {
			continue
		}
		p := Parameter{Name: pp.name, Value: v}
		switch pp.kind {
		case "angular":
			p.Unit = angUnit
		case "linear":
			p.Unit = linUnit
		case "scale":
			p.Unit = Unit{Type: "ScaleUnit", Name: "unity"}
		}
		params = append(params, p)
	}

	return Conversion{
		Name:       methodName,
		Method:     Method{Name: methodName},
		Parameters: params,
	}, nil
}
