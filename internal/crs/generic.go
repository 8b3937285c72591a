package crs

import (
	"math"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// genericGeographicProjector treats a synthesised GeographicCRS as WGS84 for
// reprojection purposes: this module has no datum-shift database, so a
// user-defined geodetic datum is assumed close enough to WGS84 for the tile
// boundary and mesh error-bound computations that consume it.
func genericGeographicProjector(g *GeographicCRS) (Projector, error) {
	return wgs84Identity{}, nil
}

func ellipsoidParams(e Ellipsoid) (a, f float64, err error) {
	a = e.SemiMajorAxis
	switch {
	case e.InverseFlattening != nil && *e.InverseFlattening != 0:
		f = 1 / *e.InverseFlattening
	case e.SemiMinorAxis != nil:
		b := *e.SemiMinorAxis
		f = (a - b) / a
	default:
		return 0, 0, cogerr.New(cogerr.InvalidEllipsoid, "ellipsoid has neither inverse_flattening nor semi_minor_axis")
	}
	return a, f, nil
}

func paramValue(params []Parameter, name string) (float64, bool) {
	for _, p := range params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return 0, false
}

func paramOr(params []Parameter, name string, def float64) float64 {
	if v, ok := paramValue(params, name); ok {
		return v
	}
	return def
}

// genericProjectedProjector resolves an ellipsoidal evaluator for the
// synthesised ProjectedCRS's conversion method. Only Transverse Mercator,
// Lambert Conic Conformal (1SP/2SP) and Albers Equal Area have closed-form
// support; any other method fails with UnsupportedCrs.
func genericProjectedProjector(pc *ProjectedCRS) (Projector, error) {
	a, f, err := ellipsoidParams(pc.BaseCRS.Datum.Ellipsoid)
	if err != nil {
		return nil, err
	}
	params := pc.Conversion.Parameters
	falseEasting := paramOr(params, "False easting", paramOr(params, "Easting at false origin", 0))
	falseNorthing := paramOr(params, "False northing", paramOr(params, "Northing at false origin", 0))

	switch pc.Conversion.Method.Name {
	case projMethodNames[ctTransverseMercator], projMethodNames[ctTransvMercatorSouthOriented]:
		lon0 := paramOr(params, "Longitude of natural origin", 0)
		lat0 := paramOr(params, "Latitude of natural origin", 0)
		k0 := paramOr(params, "Scale factor at natural origin", 1)
		south := pc.Conversion.Method.Name == projMethodNames[ctTransvMercatorSouthOriented]
		return &transverseMercator{a: a, f: f, lon0Deg: lon0, lat0Deg: lat0, k0: k0, falseEasting: falseEasting, falseNorthing: falseNorthing, southOriented: south}, nil

	case projMethodNames[ctLambertConfConic1SP]:
		lon0 := paramOr(params, "Longitude of natural origin", 0)
		lat0 := paramOr(params, "Latitude of natural origin", 0)
		k0 := paramOr(params, "Scale factor at natural origin", 1)
		return newLambertConformalConic1SP(a, f, lon0, lat0, k0, falseEasting, falseNorthing)

	case projMethodNames[ctLambertConfConic2SP]:
		lon0 := paramOr(params, "Longitude of false origin", 0)
		lat0 := paramOr(params, "Latitude of false origin", 0)
		sp1 := paramOr(params, "Latitude of 1st standard parallel", 0)
		sp2 := paramOr(params, "Latitude of 2nd standard parallel", 0)
		return newLambertConformalConic2SP(a, f, lon0, lat0, sp1, sp2, falseEasting, falseNorthing)

	case projMethodNames[ctAlbersEqualArea]:
		lon0 := paramOr(params, "Longitude of false origin", 0)
		lat0 := paramOr(params, "Latitude of false origin", 0)
		sp1 := paramOr(params, "Latitude of 1st standard parallel", 0)
		sp2 := paramOr(params, "Latitude of 2nd standard parallel", 0)
		return newAlbersEqualArea(a, f, lon0, lat0, sp1, sp2, falseEasting, falseNorthing)

	default:
		return nil, cogerr.New(cogerr.UnsupportedCrs, "no closed-form projector for conversion method", cogerr.KV{Key: "method", Value: pc.Conversion.Method.Name})
	}
}

const deg2rad = math.Pi / 180.0
const rad2deg = 180.0 / math.Pi

// transverseMercator is the ellipsoidal Transverse Mercator projection
// (Snyder 1987, §8, eqs. 8-9 forward / 8-11 inverse via footpoint latitude).
type transverseMercator struct {
	a, f                       float64
	lon0Deg, lat0Deg           float64
	k0                         float64
	falseEasting, falseNorthing float64
	southOriented              bool
}

func (t *transverseMercator) EPSG() int { return 0 }

func (t *transverseMercator) FromWGS84(lon, lat float64) (x, y float64) {
	a, f := t.a, t.f
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)

	phi := lat * deg2rad
	lam := (lon - t.lon0Deg) * deg2rad

	sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := a / math.Sqrt(1-e2*sinPhi*sinPhi)
	tT := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	aCoef := lam * cosPhi

	m := meridianArc(a, e2, phi)
	m0 := meridianArc(a, e2, t.lat0Deg*deg2rad)

	x = t.k0 * n * (aCoef +
		(1-tT+c)*aCoef*aCoef*aCoef/6 +
		(5-18*tT+tT*tT+72*c-58*ep2)*aCoef*aCoef*aCoef*aCoef*aCoef/120)

	y = t.k0 * (m - m0 + n*tanPhi*(aCoef*aCoef/2+
		(5-tT+9*c+4*c*c)*aCoef*aCoef*aCoef*aCoef/24+
		(61-58*tT+tT*tT+600*c-330*ep2)*aCoef*aCoef*aCoef*aCoef*aCoef*aCoef/720))

	if t.southOriented {
		x, y = -x, -y
	}
	x += t.falseEasting
	y += t.falseNorthing
	return
}

func (t *transverseMercator) ToWGS84(x, y float64) (lon, lat float64) {
	a, f := t.a, t.f
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))

	xr, yr := x-t.falseEasting, y-t.falseNorthing
	if t.southOriented {
		xr, yr = -xr, -yr
	}

	m0 := meridianArc(a, e2, t.lat0Deg*deg2rad)
	m := m0 + yr/t.k0
	mu := m / (a * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	phi1 := mu + (3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu)

	sinPhi1, cosPhi1 := math.Sin(phi1), math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)
	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := a / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := a * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := xr / (n1 * t.k0)

	phi := phi1 - (n1*tanPhi1/r1)*(d*d/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d*d*d*d/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d*d*d*d*d*d/720)

	lam := (d - (1+2*t1+c1)*d*d*d/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d*d*d*d*d/120) / cosPhi1

	lat = phi * rad2deg
	lon = t.lon0Deg + lam*rad2deg
	return
}

// meridianArc returns the meridional distance from the equator to phi, the
// series in Snyder eq. 3-21.
func meridianArc(a, e2, phi float64) float64 {
	e4 := e2 * e2
	e6 := e4 * e2
	return a * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// lambertConformalConic implements both the 1SP and 2SP variants of the
// Lambert Conic Conformal projection (Snyder 1987, §15), parameterised by
// the conic constant n, the scale constant F and the origin latitude's
// isometric radius rho0. newLambertConformalConic1SP/2SP compute these from
// their respective EPSG parameter sets.
type lambertConformalConic struct {
	a, e                         float64
	n, bigF, rho0                float64
	lon0Deg                      float64
	falseEasting, falseNorthing  float64
}

func conformalLat(e, phi float64) float64 {
	sinPhi := math.Sin(phi)
	return math.Tan(math.Pi/4+phi/2) * math.Pow((1-e*sinPhi)/(1+e*sinPhi), e/2)
}

func newLambertConformalConic1SP(a, f, lon0, lat0, k0, falseEasting, falseNorthing float64) (*lambertConformalConic, error) {
	e2 := f * (2 - f)
	e := math.Sqrt(e2)
	phi0 := lat0 * deg2rad

	m0 := math.Cos(phi0) / math.Sqrt(1-e2*math.Sin(phi0)*math.Sin(phi0))
	t0 := conformalLatT(e, phi0)
	n := math.Sin(phi0)
	if n == 0 {
		return nil, cogerr.New(cogerr.UnsupportedCrs, "Lambert Conic Conformal (1SP) degenerates at the equator")
	}
	bigF := m0 / (n * math.Pow(t0, n))
	rho0 := a * k0 * bigF * math.Pow(t0, n)

	return &lambertConformalConic{a: a * k0, e: e, n: n, bigF: bigF, rho0: rho0, lon0Deg: lon0, falseEasting: falseEasting, falseNorthing: falseNorthing}, nil
}

func newLambertConformalConic2SP(a, f, lon0, lat0, sp1, sp2, falseEasting, falseNorthing float64) (*lambertConformalConic, error) {
	e2 := f * (2 - f)
	e := math.Sqrt(e2)
	phi0 := lat0 * deg2rad
	phi1 := sp1 * deg2rad
	phi2 := sp2 * deg2rad

	m1 := math.Cos(phi1) / math.Sqrt(1-e2*math.Sin(phi1)*math.Sin(phi1))
	m2 := math.Cos(phi2) / math.Sqrt(1-e2*math.Sin(phi2)*math.Sin(phi2))
	t0 := conformalLatT(e, phi0)
	t1 := conformalLatT(e, phi1)
	t2 := conformalLatT(e, phi2)

	var n float64
	if phi1 == phi2 {
		n = math.Sin(phi1)
	} else {
		n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	}
	if n == 0 {
		return nil, cogerr.New(cogerr.UnsupportedCrs, "Lambert Conic Conformal (2SP) degenerates with n=0")
	}
	bigF := m1 / (n * math.Pow(t1, n))
	rho0 := a * bigF * math.Pow(t0, n)

	return &lambertConformalConic{a: a, e: e, n: n, bigF: bigF, rho0: rho0, lon0Deg: lon0, falseEasting: falseEasting, falseNorthing: falseNorthing}, nil
}

// conformalLatT is Snyder's t(phi) auxiliary function (eq. 15-9).
func conformalLatT(e, phi float64) float64 {
	sinPhi := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*sinPhi)/(1+e*sinPhi), e/2)
}

func (l *lambertConformalConic) EPSG() int { return 0 }

func (l *lambertConformalConic) FromWGS84(lon, lat float64) (x, y float64) {
	phi := lat * deg2rad
	lam := (lon - l.lon0Deg) * deg2rad

	t := conformalLatT(l.e, phi)
	rho := l.a * l.bigF * math.Pow(t, l.n)
	theta := l.n * lam

	x = l.falseEasting + rho*math.Sin(theta)
	y = l.falseNorthing + l.rho0 - rho*math.Cos(theta)
	return
}

func (l *lambertConformalConic) ToWGS84(x, y float64) (lon, lat float64) {
	xr := x - l.falseEasting
	yr := l.rho0 - (y - l.falseNorthing)

	rho := math.Hypot(xr, yr)
	if l.n < 0 {
		rho = -rho
		xr, yr = -xr, -yr
	}
	theta := math.Atan2(xr, yr)

	t := math.Pow(rho/(l.a*l.bigF), 1/l.n)
	phi := conformalLatInverse(l.e, t)

	lon = l.lon0Deg + (theta/l.n)*rad2deg
	lat = phi * rad2deg
	return
}

// conformalLatInverse inverts conformalLatT by fixed-point iteration
// (Snyder eq. 7-9), converging in a handful of steps away from the poles.
func conformalLatInverse(e, t float64) float64 {
	phi := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < 8; i++ {
		sinPhi := math.Sin(phi)
		phiNext := math.Pi/2 - 2*math.Atan(t*math.Pow((1-e*sinPhi)/(1+e*sinPhi), e/2))
		if math.Abs(phiNext-phi) < 1e-12 {
			phi = phiNext
			break
		}
		phi = phiNext
	}
	return phi
}

// albersEqualArea implements the ellipsoidal Albers Equal Area projection
// (Snyder 1987, §14).
type albersEqualArea struct {
	a, e2                       float64
	n, bigC, rho0                float64
	lon0Deg                      float64
	falseEasting, falseNorthing  float64
}

func albersQ(e, sinPhi float64) float64 {
	return (1 - e*e) * (sinPhi/(1-e*e*sinPhi*sinPhi) - (1/(2*e))*math.Log((1-e*sinPhi)/(1+e*sinPhi)))
}

func newAlbersEqualArea(a, f, lon0, lat0, sp1, sp2, falseEasting, falseNorthing float64) (*albersEqualArea, error) {
	e2 := f * (2 - f)
	e := math.Sqrt(e2)
	phi0 := lat0 * deg2rad
	phi1 := sp1 * deg2rad
	phi2 := sp2 * deg2rad

	m1 := math.Cos(phi1) / math.Sqrt(1-e2*math.Sin(phi1)*math.Sin(phi1))
	m2 := math.Cos(phi2) / math.Sqrt(1-e2*math.Sin(phi2)*math.Sin(phi2))
	q0 := albersQ(e, math.Sin(phi0))
	q1 := albersQ(e, math.Sin(phi1))
	q2 := albersQ(e, math.Sin(phi2))

	var n float64
	if phi1 == phi2 {
		n = math.Sin(phi1)
	} else {
		n = (m1*m1 - m2*m2) / (q2 - q1)
	}
	if n == 0 {
		return nil, cogerr.New(cogerr.UnsupportedCrs, "Albers Equal Area degenerates with n=0")
	}
	bigC := m1*m1 + n*q1
	rho0 := a * math.Sqrt(bigC-n*q0) / n

	return &albersEqualArea{a: a, e2: e2, n: n, bigC: bigC, rho0: rho0, lon0Deg: lon0, falseEasting: falseEasting, falseNorthing: falseNorthing}, nil
}

func (al *albersEqualArea) EPSG() int { return 0 }

func (al *albersEqualArea) FromWGS84(lon, lat float64) (x, y float64) {
	e := math.Sqrt(al.e2)
	phi := lat * deg2rad
	lam := (lon - al.lon0Deg) * deg2rad

	q := albersQ(e, math.Sin(phi))
	rho := al.a * math.Sqrt(al.bigC-al.n*q) / al.n
	theta := al.n * lam

	x = al.falseEasting + rho*math.Sin(theta)
	y = al.falseNorthing + al.rho0 - rho*math.Cos(theta)
	return
}

func (al *albersEqualArea) ToWGS84(x, y float64) (lon, lat float64) {
	e := math.Sqrt(al.e2)
	xr := x - al.falseEasting
	yr := al.rho0 - (y - al.falseNorthing)

	rho := math.Hypot(xr, yr)
	theta := math.Atan2(xr, yr)
	q := (al.bigC - (rho*al.n/al.a)*(rho*al.n/al.a)) / al.n

	phi := math.Asin(q / 2)
	for i := 0; i < 8; i++ {
		sinPhi := math.Sin(phi)
		cosPhi := math.Cos(phi)
		factor := (1 - al.e2*sinPhi*sinPhi) * (1 - al.e2*sinPhi*sinPhi) / (2 * cosPhi)
		phiNext := phi + factor*(q/(1-al.e2)-sinPhi/(1-al.e2*sinPhi*sinPhi)+1/(2*e)*math.Log((1-e*sinPhi)/(1+e*sinPhi)))
		if math.Abs(phiNext-phi) < 1e-12 {
			phi = phiNext
			break
		}
		phi = phiNext
	}

	lon = al.lon0Deg + (theta/al.n)*rad2deg
	lat = phi * rad2deg
	return
}
