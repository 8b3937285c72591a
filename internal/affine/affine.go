// Package affine implements the 6-parameter geotransform used throughout
// the COG reader and Tile Matrix Set builder to map pixel (col,row)
// coordinates to CRS (x,y) coordinates and back.
package affine

import (
	"math"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

// Affine is a 6-parameter affine geotransform:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
//
// where (x,y) are pixel (col,row) coordinates and (x',y') are CRS
// coordinates.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// New builds an Affine from its six coefficients in [a,b,c,d,e,f] order.
func New(a, b, c, d, e, f float64) Affine {
	return Affine{A: a, B: b, C: c, D: d, E: e, F: f}
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translation returns a pure translation transform.
func Translation(dx, dy float64) Affine {
	return Affine{A: 1, C: dx, E: 1, F: dy}
}

// Scale returns a pure scale transform with origin preserved at (0,0).
func Scale(sx, sy float64) Affine {
	return Affine{A: sx, E: sy}
}

// Forward evaluates the transform at pixel coordinates (x,y), returning CRS
// coordinates (x',y').
func (gt Affine) Forward(x, y float64) (xp, yp float64) {
	xp = gt.A*x + gt.B*y + gt.C
	yp = gt.D*x + gt.E*y + gt.F
	return
}

// Determinant returns a*e - b*d.
func (gt Affine) Determinant() float64 {
	return gt.A*gt.E - gt.B*gt.D
}

// Invert returns the inverse transform. It fails with
// cogerr.DegenerateTransform when the determinant is zero.
func (gt Affine) Invert() (Affine, error) {
	det := gt.Determinant()
	if det == 0 {
		return Affine{}, cogerr.New(cogerr.DegenerateTransform, "affine transform has zero determinant")
	}
	invDet := 1 / det
	ia := gt.E * invDet
	ib := -gt.B * invDet
	id := -gt.D * invDet
	ie := gt.A * invDet
	// Solve for ic, if such that forward(inv, forward(gt, 0,0)) == (0,0):
	// inv maps (c,f) -> (0,0), i.e. ia*c + ib*f + ic = 0.
	ic := -(ia*gt.C + ib*gt.F)
	iff := -(id*gt.C + ie*gt.F)
	return Affine{A: ia, B: ib, C: ic, D: id, E: ie, F: iff}, nil
}

// Compose returns the affine transform equivalent to first applying inner,
// then outer: Compose(outer, inner).Forward(x,y) == outer.Forward(inner.Forward(x,y)).
//
// This is the operation used to translate a parent transform to a tile
// origin: tileTransform = Compose(parent, Translation(col0, row0)).
func Compose(outer, inner Affine) Affine {
	return Affine{
		A: outer.A*inner.A + outer.B*inner.D,
		B: outer.A*inner.B + outer.B*inner.E,
		C: outer.A*inner.C + outer.B*inner.F + outer.C,
		D: outer.D*inner.A + outer.E*inner.D,
		E: outer.D*inner.B + outer.E*inner.E,
		F: outer.D*inner.C + outer.E*inner.F + outer.F,
	}
}

// Rounder turns a continuous row/col value into an integer index.
type Rounder func(float64) float64

// FloorRounder rounds towards negative infinity; the default used by Index.
func FloorRounder(v float64) float64 { return math.Floor(v) }

// Index maps a CRS coordinate (x,y) to a (row, col) pixel index via the
// inverse transform. rounder defaults to math.Floor when nil.
func Index(gt Affine, x, y float64, rounder Rounder) (row, col int, err error) {
	inv, err := gt.Invert()
	if err != nil {
		return 0, 0, err
	}
	if rounder == nil {
		rounder = FloorRounder
	}
	px, py := inv.Forward(x, y)
	return int(rounder(py)), int(rounder(px)), nil
}

// Anchor selects where within a pixel XY samples.
type Anchor int

const (
	Center Anchor = iota
	UL
	UR
	LL
	LR
)

// XY maps a (row, col) pixel index to a CRS coordinate, sampling at the
// given anchor point within the pixel.
func XY(gt Affine, row, col int, anchor Anchor) (x, y float64) {
	px, py := float64(col), float64(row)
	switch anchor {
	case Center:
		px += 0.5
		py += 0.5
	case UL:
		// no offset
	case UR:
		px += 1
	case LL:
		py += 1
	case LR:
		px += 1
		py += 1
	}
	return gt.Forward(px, py)
}

// Bounds returns the CRS bounding box covered by a raster of the given
// pixel width/height under this transform, taking the convex hull of all
// four corners so rotated transforms are still handled correctly.
func (gt Affine) Bounds(width, height float64) (minX, minY, maxX, maxY float64) {
	corners := [4][2]float64{
		{0, 0}, {width, 0}, {0, height}, {width, height},
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := gt.Forward(c[0], c[1])
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	return
}
