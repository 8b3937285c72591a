package affine

import (
	"math"
	"testing"

	"github.com/pspoerri/geotiff-reproject/internal/cogerr"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestForwardInvertRoundTrip(t *testing.T) {
	cases := []Affine{
		New(0.01, 0, -180, 0, -0.01, 90),
		New(2, 0.3, 100, -0.1, -3, 50),
		New(30, 0, 2600000, 0, -30, 1200000),
	}
	points := [][2]float64{{0, 0}, {128, 128}, {-5, 200.5}, {1e6, -1e6}}

	for _, gt := range cases {
		inv, err := gt.Invert()
		if err != nil {
			t.Fatalf("Invert: %v", err)
		}
		for _, p := range points {
			x, y := gt.Forward(p[0], p[1])
			rx, ry := inv.Forward(x, y)
			if !almostEqual(rx, p[0], 1e-9) || !almostEqual(ry, p[1], 1e-9) {
				t.Errorf("round trip mismatch: got (%v,%v), want (%v,%v)", rx, ry, p[0], p[1])
			}
		}
	}
}

func TestInvertDegenerate(t *testing.T) {
	gt := New(0, 0, 0, 0, 0, 0)
	_, err := gt.Invert()
	if !cogerr.Is(err, cogerr.DegenerateTransform) {
		t.Fatalf("expected DegenerateTransform, got %v", err)
	}
}

func TestComposeTileOrigin(t *testing.T) {
	parent := New(0.01, 0, -180, 0, -0.01, 90)
	tileTransform := Compose(parent, Translation(64, 64))
	x, y := tileTransform.Forward(0, 0)
	wantX, wantY := parent.Forward(64, 64)
	if !almostEqual(x, wantX, 1e-12) || !almostEqual(y, wantY, 1e-12) {
		t.Errorf("composed tile origin = (%v,%v), want (%v,%v)", x, y, wantX, wantY)
	}
}

func TestIndexXYRoundTrip(t *testing.T) {
	gt := New(0.01, 0, -180, 0, -0.01, 90)
	row, col, err := Index(gt, -179.5, 89.5, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if row != 50 || col != 50 {
		t.Errorf("Index = (%d,%d), want (50,50)", row, col)
	}

	x, y := XY(gt, 10, 20, Center)
	wantX, wantY := gt.Forward(20.5, 10.5)
	if x != wantX || y != wantY {
		t.Errorf("XY(Center) = (%v,%v), want (%v,%v)", x, y, wantX, wantY)
	}

	xUL, yUL := XY(gt, 10, 20, UL)
	wantXUL, wantYUL := gt.Forward(20, 10)
	if xUL != wantXUL || yUL != wantYUL {
		t.Errorf("XY(UL) = (%v,%v), want (%v,%v)", xUL, yUL, wantXUL, wantYUL)
	}
}

func TestBounds(t *testing.T) {
	gt := New(0.01, 0, -180, 0, -0.01, 90)
	minX, minY, maxX, maxY := gt.Bounds(36000, 18000)
	if !almostEqual(minX, -180, 1e-9) || !almostEqual(maxX, -180+360, 1e-9) {
		t.Errorf("X bounds = [%v,%v], want [-180,180]", minX, maxX)
	}
	if !almostEqual(minY, -90, 1e-9) || !almostEqual(maxY, 90, 1e-9) {
		t.Errorf("Y bounds = [%v,%v], want [-90,90]", minY, maxY)
	}
}
